package auth

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhstock/dsa/internal/db"
	"github.com/zhstock/dsa/internal/db/repo"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(":memory:", db.ProfileStandard, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, d.Migrate(context.Background()))
	t.Cleanup(func() { d.Close() })
	return d
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	d := openTestDB(t)
	return NewService(repo.NewAuthRepo(d), "test-secret", zerolog.Nop())
}

func TestService_ConfiguredReflectsStoredPassword(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	configured, err := s.Configured(ctx)
	require.NoError(t, err)
	assert.False(t, configured)

	require.NoError(t, s.SetPassword(ctx, "hunter2"))

	configured, err = s.Configured(ctx)
	require.NoError(t, err)
	assert.True(t, configured)
}

func TestService_LoginSucceedsAndReturnsValidToken(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	require.NoError(t, s.SetPassword(ctx, "hunter2"))

	token, err := s.Login(ctx, "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, s.ValidateToken(token))
	assert.False(t, s.ValidateToken(token+"tampered"))
}

func TestService_LoginFailsWhenNotConfigured(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	_, err := s.Login(ctx, "anything")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestService_LoginRejectsWrongPassword(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	require.NoError(t, s.SetPassword(ctx, "hunter2"))

	_, err := s.Login(ctx, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_CooldownAfterMaxFailedAttempts(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	require.NoError(t, s.SetPassword(ctx, "hunter2"))

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	for i := 0; i < MaxFailedAttempts; i++ {
		_, err := s.Login(ctx, "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// One more attempt with the correct password is still refused:
	// the cooldown blocks login outright, regardless of credentials.
	_, err := s.Login(ctx, "hunter2")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	// After the cooldown window elapses, login succeeds again.
	s.now = func() time.Time { return now.Add(CooldownDuration + time.Second) }
	_, err = s.Login(ctx, "hunter2")
	assert.NoError(t, err)
}

func TestService_ChangePasswordRequiresCurrentPassword(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	require.NoError(t, s.SetPassword(ctx, "hunter2"))

	err := s.ChangePassword(ctx, "wrong", "newpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, s.ChangePassword(ctx, "hunter2", "newpass"))

	_, err = s.Login(ctx, "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(ctx, "newpass")
	assert.NoError(t, err)
}
