package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhstock/dsa/internal/domain"
	"github.com/zhstock/dsa/internal/events"
	"github.com/zhstock/dsa/internal/llm"
)

// handleStrategies implements GET /agent/strategies.
func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	out := make([]map[string]interface{}, 0, len(s.cfg.Strategies))
	for _, st := range s.cfg.Strategies {
		out = append(out, map[string]interface{}{
			"name":         st.Name,
			"display_name": st.DisplayName,
			"description":  st.Description,
			"category":     st.Category,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSessionList implements GET /agent/chat/sessions.
func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.cfg.ConversationRepo.Sessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// handleSessionGet implements GET /agent/chat/sessions/{session_id}.
func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	turns, err := s.cfg.ConversationRepo.BySession(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(turns) == 0 {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, turns)
}

// handleSessionDelete implements DELETE /agent/chat/sessions/{session_id}.
func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if err := s.cfg.ConversationRepo.DeleteSession(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type agentChatRequest struct {
	SessionID  string   `json:"session_id"`
	Message    string   `json:"message"`
	Strategies []string `json:"strategies"`
}

// handleAgentChatStream implements POST /agent/chat/stream (§6): the
// request body starts a bounded ReAct run, and the response itself is
// the SSE feed of thinking/tool_start/tool_done/generating/done/error
// events for that session, grounded on the same SSE shape as the task
// stream.
func (s *Server) handleAgentChatStream(w http.ResponseWriter, r *http.Request) {
	var req agentChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "session_id and message are required")
		return
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	subID, ch := s.cfg.Bus.Subscribe([]events.EventType{
		events.AgentThinking, events.AgentToolStart, events.AgentToolDone,
		events.AgentGenerating, events.AgentDone, events.AgentError,
	})
	defer s.cfg.Bus.Unsubscribe(subID)

	// The executor always emits AgentDone or AgentError before Run
	// returns (including on a chat error or an exhausted step budget),
	// so the loop below terminates on that event rather than racing
	// against a separate "goroutine finished" signal.
	go s.runAgentChat(r.Context(), req)

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			step, ok := evt.Data.(events.AgentStepData)
			if !ok || step.SessionID != req.SessionID {
				continue
			}
			sse.send(map[string]interface{}{"type": string(evt.Type), "tool_name": step.ToolName, "message": step.Message})
			if evt.Type == events.AgentDone || evt.Type == events.AgentError {
				return
			}
		}
	}
}

func (s *Server) runAgentChat(ctx context.Context, req agentChatRequest) {
	_ = s.cfg.ConversationRepo.Append(ctx, domain.ConversationTurn{
		SessionID: req.SessionID, Role: domain.RoleUser, Content: req.Message, CreatedAt: time.Now(),
	})

	result, err := s.cfg.Executor.Run(ctx, req.SessionID, s.cfg.Strategies, req.Strategies, req.Message)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", req.SessionID).Msg("agent run failed")
		_ = s.cfg.ConversationRepo.Append(ctx, domain.ConversationTurn{
			SessionID: req.SessionID, Role: domain.RoleAssistant, Content: "error: " + err.Error(), CreatedAt: time.Now(),
		})
		return
	}

	// result.Messages holds the full turn sequence the ReAct loop
	// produced (system, user, then each assistant/tool step); the user
	// turn is already persisted and the system turn is not stored, so
	// only the turns after them are appended.
	for _, msg := range result.Messages[2:] {
		s.appendAgentTurn(ctx, req.SessionID, msg)
	}
}

func (s *Server) appendAgentTurn(ctx context.Context, sessionID string, msg llm.ChatMessage) {
	turn := domain.ConversationTurn{
		SessionID: sessionID,
		Role:      domain.ConversationRole(msg.Role),
		Content:   textOfMessage(msg),
		CreatedAt: time.Now(),
	}
	for _, tc := range msg.ToolCalls {
		turn.ToolCalls = append(turn.ToolCalls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	_ = s.cfg.ConversationRepo.Append(ctx, turn)
}

func textOfMessage(m llm.ChatMessage) string {
	out := ""
	for _, part := range m.Content {
		if part.Type == "text" {
			out += part.Text
		}
	}
	return out
}
