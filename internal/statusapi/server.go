package statusapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"surgitrack/internal/history"
	"surgitrack/internal/logging"
	"surgitrack/internal/session"
)

// ServiceName is reported by the health check.
const ServiceName = "SurgiTrack Frontend"

// Session is the controller surface served over HTTP. Submit must select
// the file and start its upload atomically so concurrent requests cannot
// replace each other's file.
type Session interface {
	Snapshot() session.State
	Submit(ctx context.Context, path string) (session.State, error)
	Reset() session.State
}

// History is the read side of the session ledger.
type History interface {
	List(ctx context.Context, limit int) ([]history.Entry, error)
	Get(ctx context.Context, id string) (history.Entry, error)
}

// Options configures a Server. Session is required.
type Options struct {
	Bind    string
	Session Session
	History History
	Logs    *logging.StreamHub
	Logger  *slog.Logger
	Now     func() time.Time
}

// Server serves the status API.
type Server struct {
	bind    string
	session Session
	history History
	logs    *logging.StreamHub
	logger  *slog.Logger
	now     func() time.Time
	engine  *gin.Engine

	mu       sync.Mutex
	baseCtx  context.Context
	listener net.Listener
	server   *http.Server
}

// New builds the router. Nothing listens until Start.
func New(opts Options) (*Server, error) {
	if opts.Session == nil {
		return nil, errors.New("statusapi: session is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Server{
		bind:    strings.TrimSpace(opts.Bind),
		session: opts.Session,
		history: opts.History,
		logs:    opts.Logs,
		logger:  logging.NewComponentLogger(opts.Logger, "status-api"),
		now:     now,
		baseCtx: context.Background(),
	}
	s.engine = s.router()
	return s, nil
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(requestID(), requestLogging(s.logger), recovery(s.logger))

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	api.GET("/session", s.handleSession)
	api.POST("/session", s.handleSubmit)
	api.POST("/session/reset", s.handleReset)
	api.GET("/logs", s.handleLogs)
	api.GET("/history", s.handleHistoryList)
	api.GET("/history/:id", s.handleHistoryItem)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on the configured address and serves until ctx is done or
// Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("statusapi: bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}

	s.mu.Lock()
	s.baseCtx = ctx
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	server := s.server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("status api listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down. Background submissions belong to the
// session and are stopped by its owner.
func (s *Server) Stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.mu.Unlock()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
}

func (s *Server) submitContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}
