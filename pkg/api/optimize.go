package api

import (
	"net/http"
	"strconv"

	"github.com/jakechorley/shift-optimizer/pkg/clients/legacyclient"
	"github.com/jakechorley/shift-optimizer/pkg/core/model"
)

// OptimizeShift answers with the assignment result indexed [post][hour][worker]
func (h *Handler) OptimizeShift(w http.ResponseWriter, r *http.Request) {
	var req legacyclient.OptimizeShiftRequest
	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	outcome := h.engine.OptimizeTensor(r.Context(), legacyclient.DecodeConstraints(req.Constraints))
	result := outcome.Result
	if result == nil {
		result = model.AssignmentResult{}
	}

	h.writeJSON(w, r, http.StatusOK, legacyclient.OptimizeShiftResponse{
		Result:  result,
		IsOptim: outcome.IsOptim,
	})
}

// GetOptimizedShift answers with the label of the worker assigned to each (post, hour)
func (h *Handler) GetOptimizedShift(w http.ResponseWriter, r *http.Request) {
	var req legacyclient.OptimizeShiftRequest
	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	tensor := legacyclient.DecodeConstraints(req.Constraints)
	outcome := h.engine.OptimizeTensor(r.Context(), tensor)
	_, posts, hours := tensor.Normalize().Dims()

	labels := make([][]string, posts)
	for p := range labels {
		labels[p] = make([]string, hours)
		for hour := range labels[p] {
			worker := outcome.Result.AssignedWorker(p, hour)
			switch {
			case worker < 0:
			case worker < len(req.Workers):
				labels[p][hour] = req.Workers[worker]
			default:
				labels[p][hour] = strconv.Itoa(worker)
			}
		}
	}

	h.writeJSON(w, r, http.StatusOK, legacyclient.OptimizedShiftLabels{
		Result:  labels,
		IsOptim: outcome.IsOptim,
	})
}
