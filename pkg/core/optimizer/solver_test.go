package optimizer

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/jakechorley/shift-optimizer/pkg/core/lpmodel"
)

// bruteForceSolver enumerates every binary assignment of a small model. Continuous
// deviation variables are derived from the equality rows they appear in.
type bruteForceSolver struct {
	calls atomic.Int32
}

func (s *bruteForceSolver) Name() string { return "brute-force" }

func (s *bruteForceSolver) Solve(_ context.Context, m *lpmodel.Model) (*lpmodel.Solution, error) {
	s.calls.Add(1)

	var binaries []string
	for _, v := range m.Variables {
		if v.Kind == lpmodel.Binary {
			binaries = append(binaries, v.Name)
		}
	}

	best := math.Inf(1)
	var bestValues map[string]float64

	for mask := 0; mask < 1<<len(binaries); mask++ {
		values := make(map[string]float64, len(m.Variables))
		for i, name := range binaries {
			if mask&(1<<i) != 0 {
				values[name] = 1
			}
		}
		deriveDeviations(m, values)

		feasible := true
		for _, c := range m.Constraints {
			if !c.Satisfied(values, 1e-9) {
				feasible = false
				break
			}
		}
		if !feasible {
			continue
		}

		if obj := lpmodel.Evaluate(m.Objective, values); obj < best-1e-9 {
			best = obj
			bestValues = values
		}
	}

	if bestValues == nil {
		return &lpmodel.Solution{Status: lpmodel.StatusInfeasible}, nil
	}

	columns := make(map[string]lpmodel.Column, len(m.Variables))
	for _, v := range m.Variables {
		columns[v.Name] = lpmodel.Column{Primal: bestValues[v.Name]}
	}
	return &lpmodel.Solution{Status: "OPT", Objective: best, Columns: columns}, nil
}

// deriveDeviations sets the smallest non-negative surplus (coefficient -1) and
// shortfall (coefficient +1) that satisfy each equality row
func deriveDeviations(m *lpmodel.Model, values map[string]float64) {
	for _, c := range m.Constraints {
		if c.Relation != lpmodel.Equal {
			continue
		}
		var surplus, shortfall string
		gap := c.RHS
		for _, t := range c.Terms {
			v, _ := m.Variable(t.Var)
			if v.Kind == lpmodel.Binary {
				gap -= t.Coef * values[t.Var]
				continue
			}
			if t.Coef < 0 {
				surplus = t.Var
			} else {
				shortfall = t.Var
			}
		}
		if surplus == "" || shortfall == "" {
			continue
		}
		values[surplus] = math.Max(0, -gap)
		values[shortfall] = math.Max(0, gap)
	}
}

// stubSolver returns a fixed answer
type stubSolver struct {
	solution *lpmodel.Solution
	err      error
	block    bool
	calls    atomic.Int32
}

func (s *stubSolver) Name() string { return "stub" }

func (s *stubSolver) Solve(ctx context.Context, _ *lpmodel.Model) (*lpmodel.Solution, error) {
	s.calls.Add(1)
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.solution, s.err
}
