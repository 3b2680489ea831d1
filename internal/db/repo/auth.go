package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zhstock/dsa/internal/db"
)

// AuthRepo stores the admin auth config as a flat key/value table
// (password hash, failed-attempt count, cooldown deadline).
type AuthRepo struct {
	db *db.DB
}

// NewAuthRepo constructs an AuthRepo.
func NewAuthRepo(d *db.DB) *AuthRepo { return &AuthRepo{db: d} }

// Get returns the value for key, or ("", false) if unset.
func (r *AuthRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM auth_config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get auth_config: %w", err)
	}
	return value, true, nil
}

// Set upserts key=value.
func (r *AuthRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO auth_config (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set auth_config: %w", err)
	}
	return nil
}
