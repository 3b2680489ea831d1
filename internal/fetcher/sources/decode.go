package sources

import (
	"encoding/json"
	"io"
	"time"

	"github.com/zhstock/dsa/internal/domain"
)

// wireCandle and wireQuote mirror the JSON shape common vendor quote
// APIs use (open/high/low/close/volume, unix-seconds timestamps). Each
// adapter's HTTP response is decoded through these before converting
// to the domain model.
type wireCandle struct {
	Date   int64   `json:"t"`
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
}

type wireQuote struct {
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
	Timestamp int64   `json:"t"`
}

type wireProfile struct {
	Name string `json:"name"`
}

func decodeCandles(r io.Reader) ([]domain.Candle, error) {
	var wire []wireCandle
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return nil, err
	}
	out := make([]domain.Candle, 0, len(wire))
	for _, w := range wire {
		out = append(out, domain.Candle{
			Date:   time.Unix(w.Date, 0).UTC(),
			Open:   w.Open,
			High:   w.High,
			Low:    w.Low,
			Close:  w.Close,
			Volume: w.Volume,
		})
	}
	return out, nil
}

func decodeQuote(r io.Reader) (domain.Quote, error) {
	var w wireQuote
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{
		Price:     w.Price,
		ChangePct: w.ChangePct,
		Timestamp: time.Unix(w.Timestamp, 0).UTC(),
	}, nil
}

func decodeName(r io.Reader) (string, error) {
	var w wireProfile
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return "", err
	}
	return w.Name, nil
}
