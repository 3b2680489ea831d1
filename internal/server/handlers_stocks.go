package server

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/zhstock/dsa/internal/domain"
	"github.com/zhstock/dsa/internal/llm"
)

const maxImageBytes = 8 << 20 // 8MB

const extractTickerPrompt = `Identify every stock ticker symbol visible in this image ` +
	`(a screenshot of a watchlist, portfolio, or chart). Respond with a JSON array of ` +
	`uppercase ticker strings and nothing else, e.g. ["AAPL","MSFT"].`

// handleExtractFromImage implements POST /stocks/extract-from-image
// (200/413): the image is reused as a vision prompt on the LLM Router
// (§4.3), asking for a ticker list back instead of a narrative report.
func (s *Server) handleExtractFromImage(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Vision == nil {
		writeError(w, http.StatusServiceUnavailable, "vision extraction not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)

	resp, err := s.cfg.Vision.Chat(r.Context(), llm.ChatRequest{
		Messages: []llm.ChatMessage{
			{Role: "user", Content: []llm.ContentPart{
				{Type: "text", Text: extractTickerPrompt},
				{Type: "image_url", ImageURL: dataURL},
			}},
		},
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	var tickers []string
	if err := json.Unmarshal([]byte(textOfResponse(resp)), &tickers); err != nil {
		writeError(w, http.StatusBadGateway, "vision provider returned an unparsable ticker list")
		return
	}

	canonical := make([]string, len(tickers))
	for i, t := range tickers {
		canonical[i] = domain.Canonical(t)
	}
	writeJSON(w, http.StatusOK, map[string][]string{"tickers": canonical})
}

func textOfResponse(resp llm.ChatResponse) string {
	out := ""
	for _, part := range resp.Message.Content {
		if part.Type == "text" {
			out += part.Text
		}
	}
	return out
}
