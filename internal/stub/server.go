package stub

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and its in-memory state.
type Server struct {
	http    *http.Server
	state   *State
	log     *zap.Logger
	baseURL string
}

// New builds the stub server listening on addr. baseURL is the address
// clients reach it at, used in the device-flow verification URI.
func New(addr, baseURL string, log *zap.Logger) *Server {
	s := &Server{
		state:   NewState(),
		log:     log,
		baseURL: baseURL,
	}

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Router assembles the route table. Exposed so tests can drive the
// handlers through httptest without binding a port.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	r.Use(s.accessLog)

	r.Get("/me", s.handleMe)
	r.Post("/logout", s.handleLogout)

	r.Get("/notifications/feed", s.handleFeed)
	r.Post("/notifications/read/{id}", s.handleMarkRead)
	r.Post("/notifications/read-all", s.handleMarkAllRead)
	r.Get("/notifications", s.handleList)
	r.Post("/notifications/send", s.handleSend)
	r.Post("/notifications/broadcast", s.handleBroadcast)

	r.Get("/users", s.handleUsers)

	r.Post("/device/code", s.handleDeviceCode)
	r.Post("/device/token", s.handleDeviceToken)
	r.Post("/device/resolve", s.handleDeviceResolve)

	return r
}

// accessLog writes one structured line per request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Start runs the server. Blocks until shutdown or error.
func (s *Server) Start() error {
	s.log.Info("stub backend listening", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("stub backend shutting down")
	return s.http.Shutdown(ctx)
}
