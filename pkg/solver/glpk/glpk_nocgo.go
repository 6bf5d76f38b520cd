//go:build !cgo

package glpk

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/core/lpmodel"
)

// ErrUnavailable is returned when the binary was built without cgo
var ErrUnavailable = errors.New("glpk backend requires cgo")

// Backend reports ErrUnavailable for every solve
type Backend struct{}

// New creates a GLPK backend
func New(_ *zap.Logger) *Backend {
	return &Backend{}
}

func (b *Backend) Name() string {
	return "glpk"
}

func (b *Backend) Solve(context.Context, *lpmodel.Model) (*lpmodel.Solution, error) {
	return nil, ErrUnavailable
}
