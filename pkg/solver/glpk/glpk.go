//go:build cgo

// Package glpk solves models in process with the GNU Linear Programming Kit.
package glpk

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/lukpank/go-glpk/glpk"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/core/lpmodel"
)

// GLPK keeps global state, so only one problem is solved at a time per process
var mu sync.Mutex

// Backend is an in-process GLPK solver
type Backend struct {
	logger *zap.Logger
}

// New creates a GLPK backend
func New(logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{logger: logger}
}

func (b *Backend) Name() string {
	return "glpk"
}

// Solve loads the model into GLPK, runs simplex for the relaxation and then
// branch and bound. The call cannot be interrupted once GLPK is running.
func (b *Backend) Solve(ctx context.Context, m *lpmodel.Model) (*lpmodel.Solution, error) {
	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lp := glpk.New()
	defer lp.Delete()

	if err := load(lp, m); err != nil {
		return nil, err
	}

	smcp := glpk.NewSmcp()
	smcp.SetMsgLev(glpk.MSG_ERR)
	if err := lp.Simplex(smcp); err != nil {
		// No feasible relaxation means no feasible integer solution either
		if err == glpk.ENOPFS || err == glpk.ENOFEAS {
			return &lpmodel.Solution{Status: lpmodel.StatusInfeasible}, nil
		}
		return nil, fmt.Errorf("simplex solver failed: %w", err)
	}

	iocp := glpk.NewIocp()
	iocp.SetPresolve(true)
	iocp.SetMsgLev(glpk.MSG_ERR)
	if err := lp.Intopt(iocp); err != nil {
		if err == glpk.ENOPFS {
			return &lpmodel.Solution{Status: lpmodel.StatusInfeasible}, nil
		}
		return nil, fmt.Errorf("integer solver failed: %w", err)
	}

	status := lp.MipStatus()
	solution := &lpmodel.Solution{
		Status:  statusName(status),
		Columns: make(map[string]lpmodel.Column, lp.NumCols()),
	}
	if status == glpk.OPT || status == glpk.FEAS {
		solution.Objective = lp.MipObjVal()
		for j := 1; j <= lp.NumCols(); j++ {
			solution.Columns[lp.ColName(j)] = lpmodel.Column{Primal: lp.MipColVal(j)}
		}
	}

	b.logger.Debug("GLPK finished",
		zap.String("status", solution.Status),
		zap.Float64("objective", solution.Objective))

	return solution, nil
}

// load copies the model into lp. GLPK indices are 1-based and SetMatRow
// ignores element 0 of its slices.
func load(lp *glpk.Prob, m *lpmodel.Model) error {
	lp.SetProbName(m.Name)
	lp.SetObjName(m.ObjectiveName)
	if m.Sense == lpmodel.Maximize {
		lp.SetObjDir(glpk.MAX)
	} else {
		lp.SetObjDir(glpk.MIN)
	}

	if len(m.Variables) > 0 {
		lp.AddCols(len(m.Variables))
	}
	for i, v := range m.Variables {
		j := i + 1
		lp.SetColName(j, v.Name)
		switch v.Kind {
		case lpmodel.Binary:
			lp.SetColKind(j, glpk.BV)
		case lpmodel.Integer:
			lp.SetColKind(j, glpk.IV)
		default:
			lp.SetColKind(j, glpk.CV)
		}
		if v.Kind != lpmodel.Binary {
			lp.SetColBnds(j, boundsType(v.Bounds()), finite(v.Lower), finite(v.Upper))
		}
	}

	for _, term := range m.Objective {
		j := m.VariableIndex(term.Var) + 1
		if j == 0 {
			return fmt.Errorf("objective references unknown variable %q", term.Var)
		}
		lp.SetObjCoef(j, lp.ObjCoef(j)+term.Coef)
	}

	if len(m.Constraints) > 0 {
		lp.AddRows(len(m.Constraints))
	}
	for r, c := range m.Constraints {
		i := r + 1
		lp.SetRowName(i, c.Name)
		switch c.Relation {
		case lpmodel.LessEqual:
			lp.SetRowBnds(i, glpk.UP, 0, c.RHS)
		case lpmodel.GreaterEqual:
			lp.SetRowBnds(i, glpk.LO, c.RHS, 0)
		default:
			lp.SetRowBnds(i, glpk.FX, c.RHS, c.RHS)
		}

		ind := make([]int32, 1, len(c.Terms)+1)
		val := make([]float64, 1, len(c.Terms)+1)
		for _, term := range c.Terms {
			j := m.VariableIndex(term.Var) + 1
			if j == 0 {
				return fmt.Errorf("constraint %s references unknown variable %q", c.Name, term.Var)
			}
			ind = append(ind, int32(j))
			val = append(val, term.Coef)
		}
		lp.SetMatRow(i, ind, val)
	}

	return nil
}

func boundsType(kind lpmodel.BoundKind) glpk.BndsType {
	switch kind {
	case lpmodel.BoundFree:
		return glpk.FR
	case lpmodel.BoundLower:
		return glpk.LO
	case lpmodel.BoundUpper:
		return glpk.UP
	case lpmodel.BoundFixed:
		return glpk.FX
	default:
		return glpk.DB
	}
}

// finite replaces infinities, which GLPK ignores for the unused side of a bound
func finite(v float64) float64 {
	if math.IsInf(v, 0) {
		return 0
	}
	return v
}

func statusName(status glpk.SolStat) string {
	switch status {
	case glpk.OPT:
		return lpmodel.StatusOptimal
	case glpk.FEAS:
		return lpmodel.StatusFeasible
	case glpk.INFEAS, glpk.NOFEAS:
		return lpmodel.StatusInfeasible
	case glpk.UNBND:
		return lpmodel.StatusUnbounded
	default:
		return lpmodel.StatusUndefined
	}
}
