// Package server exposes the dashboard API: live machine state over
// REST and WebSocket, plus request-scoped analysis queries.
package server

import (
	"context"
	"net"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Atot4/iot-project/internal/analysis"
	"github.com/Atot4/iot-project/internal/appconfig"
	"github.com/Atot4/iot-project/internal/register"
	"github.com/Atot4/iot-project/internal/store"
)

// Server is the HTTP server serving the REST API and the WebSocket
// live feed.
type Server struct {
	reg      *register.Register
	store    *store.Store
	analysis *analysis.Engine
	cfg      *appconfig.Config
	logger   zerolog.Logger
	hub      *Hub
	srv      *http.Server
}

// New creates a new Server.
func New(reg *register.Register, st *store.Store, an *analysis.Engine, cfg *appconfig.Config, logger zerolog.Logger) *Server {
	return &Server{
		reg:      reg,
		store:    st,
		analysis: an,
		cfg:      cfg,
		logger:   logger.With().Str("component", "http-server").Logger(),
		hub:      newHub(reg, logger),
	}
}

// Start begins serving on the given address. It blocks until the
// context is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	h := &handlers{reg: s.reg, store: s.store, analysis: s.analysis, cfg: s.cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/machines", h.machines)
	mux.HandleFunc("GET /api/v1/machines/{name}", h.machine)
	mux.HandleFunc("GET /api/v1/machines/{name}/logs", h.statusLogs)
	mux.HandleFunc("GET /api/v1/analysis/programs", h.programReport)
	mux.HandleFunc("GET /api/v1/analysis/sessions", h.sessionAnalysis)
	mux.HandleFunc("/api/v1/ws", s.hub.handleWS)

	s.srv = &http.Server{
		Addr:    addr,
		Handler: mux,
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},
	}

	go s.hub.start(ctx)

	s.logger.Info().Str("addr", addr).Msg("starting HTTP server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.srv.Close()
	case err := <-errCh:
		return err
	}
}

// StartBackground starts the server in a goroutine (non-blocking).
func (s *Server) StartBackground(ctx context.Context, addr string) {
	go func() {
		if err := s.Start(ctx, addr); err != nil {
			s.logger.Err(err).Msg("http server error")
		}
	}()
}
