// Package server is the HTTP half of C10/§6: a go-chi router exposing
// analysis submission/status, history, agent chat, stock-image
// extraction, and admin auth over JSON and Server-Sent Events.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/zhstock/dsa/internal/agent"
	"github.com/zhstock/dsa/internal/auth"
	"github.com/zhstock/dsa/internal/config"
	"github.com/zhstock/dsa/internal/db/repo"
	"github.com/zhstock/dsa/internal/events"
	"github.com/zhstock/dsa/internal/llm"
	"github.com/zhstock/dsa/internal/queue"
	"github.com/zhstock/dsa/pkg/strategy"
)

// Chatter is the llm.Router surface the vision-extraction handler
// needs; matches agent.Chat so the same *llm.Router value satisfies
// both without an import cycle.
type Chatter interface {
	Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error)
}

// Config collects every dependency the HTTP API's handlers need.
type Config struct {
	Log zerolog.Logger

	Cfg *config.Config

	Bus        *events.Bus
	Pool       *queue.Pool
	TaskStore  *queue.TaskStore
	HistoryRepo *repo.HistoryRepo
	NewsRepo    *repo.NewsRepo
	ConversationRepo *repo.ConversationRepo

	AuthService *auth.Service

	Executor   *agent.Executor
	Strategies map[string]strategy.Strategy
	Vision     Chatter // used by POST /stocks/extract-from-image; nil disables the route

	Host    string
	Port    int
	DevMode bool
}

// Server wraps the chi router and the stdlib http.Server around it.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    Config
}

// New builds a Server with every route wired.
func New(cfg Config) *Server {
	s := &Server{
		log:    cfg.Log.With().Str("component", "http-server").Logger(),
		cfg:    cfg,
		router: chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if !s.cfg.DevMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/analysis", func(r chi.Router) {
			r.Get("/tasks/stream", s.handleTaskStream) // registered before other /analysis routes, SSE needs no auth gate
			r.Get("/status/{task_id}", s.handleTaskStatus)
			r.Get("/tasks", s.handleTaskList)
			r.With(s.requireAuth).Post("/analyze", s.handleAnalyze)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", s.handleHistoryList)
			r.Get("/{record_id}", s.handleHistoryByID)
			r.Get("/{record_id}/news", s.handleHistoryNews)
		})

		r.Route("/agent", func(r chi.Router) {
			r.With(s.requireAuth).Post("/chat/stream", s.handleAgentChatStream)
			r.Get("/strategies", s.handleStrategies)
			r.Get("/chat/sessions", s.handleSessionList)
			r.Get("/chat/sessions/{session_id}", s.handleSessionGet)
			r.With(s.requireAuth).Delete("/chat/sessions/{session_id}", s.handleSessionDelete)
		})

		r.With(s.requireAuth).Post("/stocks/extract-from-image", s.handleExtractFromImage)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/status", s.handleAuthStatus)
			r.Post("/login", s.handleAuthLogin)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/logout", s.handleAuthLogout)
				r.Post("/change-password", s.handleAuthChangePassword)
			})
		})
	})
}

// Start begins serving. It blocks until Shutdown stops the listener.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("http server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
