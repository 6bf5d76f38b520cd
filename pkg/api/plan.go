package api

import (
	"net/http"

	"github.com/jakechorley/shift-optimizer/pkg/core/intensity"
	"github.com/jakechorley/shift-optimizer/pkg/core/shiftgrid"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	backend := ""
	if b := h.engine.Backend(); b != nil {
		backend = b.Name()
	}
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok", "backend": backend})
}

// Plan computes the shift grid for an operating window
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	var in shiftgrid.Input
	if err := h.readJSON(w, r, &in); err != nil {
		h.badRequest(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, shiftgrid.Plan(in))
}

func (h *Handler) GetIntensities(w http.ResponseWriter, r *http.Request) {
	var params intensity.Params
	if err := h.readJSON(w, r, &params); err != nil {
		h.badRequest(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.explorer.GetDistinguishedIntensities(r.Context(), params))
}

func (h *Handler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.explorer.Cache().Stats(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, stats)
}

func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.explorer.Cache().Clear(r.Context()); err != nil {
		h.internalServerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
