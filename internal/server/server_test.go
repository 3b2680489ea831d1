package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhstock/dsa/internal/auth"
	"github.com/zhstock/dsa/internal/config"
	"github.com/zhstock/dsa/internal/db"
	"github.com/zhstock/dsa/internal/db/repo"
	"github.com/zhstock/dsa/internal/events"
	"github.com/zhstock/dsa/internal/queue"
)

func newTestServer(t *testing.T) (*Server, *events.Bus) {
	t.Helper()
	d, err := db.Open(":memory:", db.ProfileStandard, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, d.Migrate(context.Background()))
	t.Cleanup(func() { d.Close() })

	bus := events.NewBus()
	historyRepo := repo.NewHistoryRepo(d)
	newsRepo := repo.NewNewsRepo(d)
	convRepo := repo.NewConversationRepo(d)
	authSvc := auth.NewService(repo.NewAuthRepo(d), "test-secret", zerolog.Nop())

	pool := queue.NewPool(1, bus, func(ctx context.Context, job *queue.Job, rep *queue.ProgressReporter) error {
		return nil
	}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	pool.Start(ctx)

	taskStore := queue.NewTaskStore(bus)
	t.Cleanup(taskStore.Close)

	cfg := Config{
		Log:              zerolog.Nop(),
		Cfg:              &config.Config{AdminAuthEnabled: true},
		Bus:              bus,
		Pool:             pool,
		TaskStore:        taskStore,
		HistoryRepo:      historyRepo,
		NewsRepo:         newsRepo,
		ConversationRepo: convRepo,
		AuthService:      authSvc,
		Host:             "127.0.0.1",
		Port:             0,
		DevMode:          true,
	}
	return New(cfg), bus
}

func TestHandleHealth_ReturnsOK(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHandleAnalyze_RequiresAuthAndQueuesTask(t *testing.T) {
	s, _ := newTestServer(t)

	// No token: unauthorized.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/analyze", strings.NewReader(`{"ticker":"AAPL"}`))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.NoError(t, s.cfg.AuthService.SetPassword(context.Background(), "hunter2"))
	token, err := s.cfg.AuthService.Login(context.Background(), "hunter2")
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/analysis/analyze", strings.NewReader(`{"ticker":"AAPL"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"task_id"`)
}

func TestHandleTaskStatus_NotFoundForUnknownTask(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis/status/nope", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleTaskStatus_ReflectsBusEvents(t *testing.T) {
	s, bus := newTestServer(t)
	bus.Emit("queue", events.TaskCreatedData{TaskID: "t1", Ticker: "AAPL"})

	deadline := time.Now().Add(time.Second)
	var rec *httptest.ResponseRecorder
	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis/status/t1", nil)
		rec = httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			break
		}
		time.Sleep(time.Millisecond)
	}
	require.NotNil(t, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending"`)
}

func TestHandleHistoryByID_NotFound(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/history/999", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleAuthStatus_ReflectsConfiguredState(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/status", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"configured":false`)

	require.NoError(t, s.cfg.AuthService.SetPassword(context.Background(), "hunter2"))
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/status", nil))
	assert.Contains(t, rec.Body.String(), `"configured":true`)
}

func TestHandleAuthLogin_RejectsBadPassword(t *testing.T) {
	s, _ := newTestServer(t)
	require.NoError(t, s.cfg.AuthService.SetPassword(context.Background(), "hunter2"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"password":"wrong"}`))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
