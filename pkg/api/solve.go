package api

import (
	"errors"
	"net/http"

	"github.com/jakechorley/shift-optimizer/pkg/core/lpmodel"
	"github.com/jakechorley/shift-optimizer/pkg/solver"
)

// Solve runs LP text through the configured backend under the engine timeout
func (h *Handler) Solve(w http.ResponseWriter, r *http.Request) {
	var req solver.SolveRequest
	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if h.engine.Backend() == nil {
		h.internalServerError(w, r, errors.New("no solver backend configured"))
		return
	}

	solution, err := solver.Handle(r.Context(), h.engine, req, h.logger)
	if err != nil {
		if errors.Is(err, lpmodel.ErrSyntax) {
			h.badRequest(w, r, err)
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, solution)
}
