package optimizer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jakechorley/shift-optimizer/pkg/core/lpmodel"
	"github.com/jakechorley/shift-optimizer/pkg/core/model"
)

const (
	assignPrefix = "x_"
	abovePrefix  = "above_"
	belowPrefix  = "below_"
)

// AssignVar names the binary assigning worker w to (post p, hour h)
func AssignVar(w, p, h int) string {
	return fmt.Sprintf("x_%d_%d_%d", w, p, h)
}

// ParseAssignVar is the inverse of AssignVar
func ParseAssignVar(name string) (w, p, h int, ok bool) {
	if !strings.HasPrefix(name, assignPrefix) {
		return 0, 0, 0, false
	}
	parts := strings.Split(strings.TrimPrefix(name, assignPrefix), "_")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}

	var idx [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, 0, 0, false
		}
		idx[i] = n
	}
	return idx[0], idx[1], idx[2], true
}

// AboveVar names worker w's surplus over the average assignment count
func AboveVar(w int) string {
	return abovePrefix + strconv.Itoa(w)
}

// BelowVar names worker w's shortfall under the average assignment count
func BelowVar(w int) string {
	return belowPrefix + strconv.Itoa(w)
}

// ExpectedAverage is the number of coverable slots shared evenly across workers
func ExpectedAverage(tensor model.AvailabilityTensor, posts, hours int) float64 {
	workers := len(tensor)
	if workers == 0 {
		return 0
	}
	coverable := posts*hours - len(UncoverableSlots(tensor, posts, hours))
	return float64(coverable) / float64(workers)
}

// BuildModel formulates the assignment problem as an integer program.
//
// Assignment binaries exist only where a worker is available. Every coverable
// slot gets exactly one worker, no worker takes two consecutive hours on the same
// post, and the objective minimises the total absolute deviation of each worker's
// assignment count from the average.
func BuildModel(tensor model.AvailabilityTensor, posts, hours int) (*lpmodel.Model, error) {
	workers := len(tensor)
	m := lpmodel.New(fmt.Sprintf("shift assignment %dx%dx%d", workers, posts, hours), lpmodel.Minimize)

	assigned := make([][]lpmodel.Term, workers)
	for w := 0; w < workers; w++ {
		for p := 0; p < posts; p++ {
			for h := 0; h < hours; h++ {
				if !tensor.Available(w, p, h) {
					continue
				}
				name := AssignVar(w, p, h)
				if err := m.AddVariable(lpmodel.NewBinary(name)); err != nil {
					return nil, fmt.Errorf("failed to add assignment variable: %w", err)
				}
				assigned[w] = append(assigned[w], lpmodel.Term{Coef: 1, Var: name})
			}
		}
	}

	objective := make([]lpmodel.Term, 0, 2*workers)
	for w := 0; w < workers; w++ {
		for _, name := range []string{AboveVar(w), BelowVar(w)} {
			if err := m.AddVariable(lpmodel.NewNonNegative(name)); err != nil {
				return nil, fmt.Errorf("failed to add deviation variable: %w", err)
			}
			objective = append(objective, lpmodel.Term{Coef: 1, Var: name})
		}
	}
	if err := m.SetObjective(objective); err != nil {
		return nil, fmt.Errorf("failed to set objective: %w", err)
	}

	// Coverage
	for p := 0; p < posts; p++ {
		for h := 0; h < hours; h++ {
			var terms []lpmodel.Term
			for w := 0; w < workers; w++ {
				if tensor.Available(w, p, h) {
					terms = append(terms, lpmodel.Term{Coef: 1, Var: AssignVar(w, p, h)})
				}
			}
			if len(terms) == 0 {
				continue
			}
			if err := m.AddConstraint(lpmodel.Constraint{
				Name:     fmt.Sprintf("cover_%d_%d", p, h),
				Terms:    terms,
				Relation: lpmodel.Equal,
				RHS:      1,
			}); err != nil {
				return nil, fmt.Errorf("failed to add coverage constraint: %w", err)
			}
		}
	}

	// Adjacency
	for w := 0; w < workers; w++ {
		for p := 0; p < posts; p++ {
			for h := 0; h+1 < hours; h++ {
				if !tensor.Available(w, p, h) || !tensor.Available(w, p, h+1) {
					continue
				}
				if err := m.AddConstraint(lpmodel.Constraint{
					Name: fmt.Sprintf("adj_%d_%d_%d", w, p, h),
					Terms: []lpmodel.Term{
						{Coef: 1, Var: AssignVar(w, p, h)},
						{Coef: 1, Var: AssignVar(w, p, h+1)},
					},
					Relation: lpmodel.LessEqual,
					RHS:      1,
				}); err != nil {
					return nil, fmt.Errorf("failed to add adjacency constraint: %w", err)
				}
			}
		}
	}

	// Fairness
	average := ExpectedAverage(tensor, posts, hours)
	for w := 0; w < workers; w++ {
		terms := append([]lpmodel.Term{}, assigned[w]...)
		terms = append(terms,
			lpmodel.Term{Coef: -1, Var: AboveVar(w)},
			lpmodel.Term{Coef: 1, Var: BelowVar(w)},
		)
		if err := m.AddConstraint(lpmodel.Constraint{
			Name:     fmt.Sprintf("fair_%d", w),
			Terms:    terms,
			Relation: lpmodel.Equal,
			RHS:      average,
		}); err != nil {
			return nil, fmt.Errorf("failed to add fairness constraint: %w", err)
		}
	}

	return m, nil
}
