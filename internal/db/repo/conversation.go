package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zhstock/dsa/internal/db"
	"github.com/zhstock/dsa/internal/domain"
)

// ConversationRepo persists agent conversation turns (C9/C11). Both
// successful and failed LLM attempts are saved so context is never
// torn (§3 ConversationTurn lifecycle).
type ConversationRepo struct {
	db *db.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(d *db.DB) *ConversationRepo { return &ConversationRepo{db: d} }

// Append writes one turn.
func (r *ConversationRepo) Append(ctx context.Context, turn domain.ConversationTurn) error {
	var toolCalls []byte
	if len(turn.ToolCalls) > 0 {
		var err error
		toolCalls, err = json.Marshal(turn.ToolCalls)
		if err != nil {
			return fmt.Errorf("marshal tool calls: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversation_messages (session_id, role, content, tool_calls, reasoning_blob, created_at)
		VALUES (?,?,?,?,?,?)`,
		turn.SessionID, string(turn.Role), turn.Content, nullableBytes(toolCalls), nullableBytes(turn.ReasoningBlob),
		turn.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert conversation_messages: %w", err)
	}
	return nil
}

func nullableBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

// BySession returns every turn for a session, ordered by creation time
// (totally ordered per §3/§5).
func (r *ConversationRepo) BySession(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT role, content, tool_calls, reasoning_blob, created_at
		FROM conversation_messages WHERE session_id = ? ORDER BY created_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query conversation_messages: %w", err)
	}
	defer rows.Close()

	var out []domain.ConversationTurn
	for rows.Next() {
		var turn domain.ConversationTurn
		var role, createdAt string
		var toolCalls, reasoning []byte
		if err := rows.Scan(&role, &turn.Content, &toolCalls, &reasoning, &createdAt); err != nil {
			return nil, fmt.Errorf("scan conversation_messages: %w", err)
		}
		turn.SessionID = sessionID
		turn.Role = domain.ConversationRole(role)
		turn.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		turn.ReasoningBlob = reasoning
		if len(toolCalls) > 0 {
			_ = json.Unmarshal(toolCalls, &turn.ToolCalls)
		}
		out = append(out, turn)
	}
	return out, rows.Err()
}

// DeleteSession removes every turn for a session.
func (r *ConversationRepo) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversation_messages WHERE session_id = ?`, sessionID)
	return err
}

// SessionInfo summarizes one conversation session for listing.
type SessionInfo struct {
	SessionID    string
	LastMessage  time.Time
	MessageCount int
}

// Sessions returns every known session, most recently active first.
func (r *ConversationRepo) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, MAX(created_at), COUNT(*)
		FROM conversation_messages GROUP BY session_id ORDER BY MAX(created_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query conversation sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var lastMessage string
		if err := rows.Scan(&info.SessionID, &lastMessage, &info.MessageCount); err != nil {
			return nil, fmt.Errorf("scan conversation sessions: %w", err)
		}
		info.LastMessage, _ = time.Parse(time.RFC3339Nano, lastMessage)
		out = append(out, info)
	}
	return out, rows.Err()
}
