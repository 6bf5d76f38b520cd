// Package solver holds the wire format shared by the out-of-process solver backends
package solver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/core/lpmodel"
	"github.com/jakechorley/shift-optimizer/pkg/core/optimizer"
)

// SolveRequest carries a model as LP text
type SolveRequest struct {
	Model string `json:"model" validate:"required"`
}

// NewSolveRequest serialises m into a request
func NewSolveRequest(m *lpmodel.Model) SolveRequest {
	return SolveRequest{Model: m.String()}
}

// Parse reads the LP text back into a model
func (r SolveRequest) Parse() (*lpmodel.Model, error) {
	m, err := lpmodel.ParseString(r.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	return m, nil
}

// Handle parses the request and solves it with backend. Solver failures are
// logged and reported in the solution status so the caller always has something
// to send back. Pass an *optimizer.Engine as backend to bound the solve by the
// configured timeout.
func Handle(ctx context.Context, backend optimizer.SolverBackend, req SolveRequest, logger *zap.Logger) (*lpmodel.Solution, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	m, err := req.Parse()
	if err != nil {
		return nil, err
	}

	solution, err := backend.Solve(ctx, m)
	if err != nil {
		status := lpmodel.StatusError
		if errors.Is(err, optimizer.ErrSolverTimeout) {
			status = optimizer.StatusTimeout
		}
		logger.Error("Solver failed",
			zap.String("backend", backend.Name()),
			zap.String("status", status),
			zap.Error(err))
		return &lpmodel.Solution{Status: status, Columns: map[string]lpmodel.Column{}}, nil
	}
	if solution == nil {
		return &lpmodel.Solution{Status: lpmodel.StatusUndefined, Columns: map[string]lpmodel.Column{}}, nil
	}
	if solution.Columns == nil {
		solution.Columns = map[string]lpmodel.Column{}
	}
	solution.Status = lpmodel.NormalizeStatus(solution.Status)
	return solution, nil
}

// CheckResponse rejects responses that carry no usable status
func CheckResponse(solution *lpmodel.Solution) error {
	if solution == nil || strings.TrimSpace(solution.Status) == "" {
		return fmt.Errorf("response has no status")
	}
	return nil
}
