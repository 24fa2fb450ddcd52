// README: API gateway; wires middleware and delegates routes to handlers.
package http

import (
	"go.uber.org/zap"

	"wayfarer/internal/infra"
	"wayfarer/internal/modules/examples"
	"wayfarer/internal/modules/metrics"
	"wayfarer/internal/service"
)

const (
	ServiceName = "wayfarer travel assistant"
	Version     = "1.0.0"
)

type ServerDeps struct {
	Assistant *service.TravelAssistant
	Metrics   *metrics.Tracker
	Cache     *examples.Cache
	// Verifier enables Firebase auth on /api and admin-only dashboard routes. Nil disables auth.
	Verifier infra.TokenVerifier
	Log      *zap.Logger
}

type Server struct {
	assistant *service.TravelAssistant
	metrics   *metrics.Tracker
	cache     *examples.Cache
	verifier  infra.TokenVerifier
	log       *zap.Logger
}

func NewServer(deps ServerDeps) *Server {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		assistant: deps.Assistant,
		metrics:   deps.Metrics,
		cache:     deps.Cache,
		verifier:  deps.Verifier,
		log:       log,
	}
}
