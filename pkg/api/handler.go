// Package api serves the optimizer, planner and intensity explorer over HTTP
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/core/intensity"
	"github.com/jakechorley/shift-optimizer/pkg/core/optimizer"
)

type Handler struct {
	validate *validator.Validate
	engine   *optimizer.Engine
	explorer *intensity.Explorer
	logger   *zap.Logger

	Mux *chi.Mux
}

func NewHandler(engine *optimizer.Engine, explorer *intensity.Explorer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		engine:   engine,
		explorer: explorer,
		logger:   logger,

		Mux: chi.NewRouter(),
	}
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(middleware.RequestID)
	h.Mux.Use(h.requestLogger)
	h.Mux.Use(h.recoverer)

	h.Mux.Get("/healthz", h.Health)

	h.Mux.Route("/api", func(r chi.Router) {
		r.Post("/optimizeShift", h.OptimizeShift)
		r.Post("/getOptimizedShift", h.GetOptimizedShift)
		r.Post("/solve", h.Solve)
		r.Post("/plan", h.Plan)

		r.Route("/intensities", func(r chi.Router) {
			r.Post("/", h.GetIntensities)
			r.Get("/cache", h.GetCacheStats)
			r.Delete("/cache", h.ClearCache)
		})
	})
}
