// Package server assembles the gateway's HTTP surface.
package server

import (
	"log/slog"
	"net/http"

	"github.com/calmihq/calmi/pkg/gateway/config"
	"github.com/calmihq/calmi/pkg/gateway/handlers"
	"github.com/calmihq/calmi/pkg/gateway/mw"
)

// Server routes requests to the endpoint set.
type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux
}

// New builds the route table.
func New(cfg config.Config, h *handlers.Handlers, logger *slog.Logger) *Server {
	s := &Server{cfg: cfg, logger: logger, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /healthz", h.Health)
	s.mux.HandleFunc("POST /session/create", h.CreateSession)
	s.mux.HandleFunc("POST /chat/send", h.SendChat)
	s.mux.HandleFunc("POST /chat/stream", h.StreamChat)
	s.mux.HandleFunc("POST /music/recommend", h.RecommendMusic)

	return s
}

// Handler returns the mux wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	handler = mw.CORS(s.cfg.AllowedOrigin)(handler)
	handler = mw.AccessLog(s.logger)(handler)
	handler = mw.Recover(s.logger)(handler)
	handler = mw.RequestID(handler)
	return handler
}
