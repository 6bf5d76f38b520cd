package lpmodel

import "strings"

// Solver status values shared by every backend
const (
	StatusOptimal    = "Optimal"
	StatusFeasible   = "Feasible"
	StatusInfeasible = "Infeasible"
	StatusUnbounded  = "Unbounded"
	StatusUndefined  = "Undefined"
	StatusError      = "Error"
)

// Column holds a solved variable value
type Column struct {
	Primal float64 `json:"Primal"`
}

// Solution is the backend-neutral solver answer
type Solution struct {
	Status    string            `json:"Status"`
	Objective float64           `json:"ObjectiveValue"`
	Columns   map[string]Column `json:"Columns"`
}

// Values flattens the columns into name -> primal value
func (s *Solution) Values() map[string]float64 {
	values := make(map[string]float64, len(s.Columns))
	for name, col := range s.Columns {
		values[name] = col.Primal
	}
	return values
}

// IsOptimal reports whether the solver proved optimality
func (s *Solution) IsOptimal() bool {
	return s != nil && NormalizeStatus(s.Status) == StatusOptimal
}

// NormalizeStatus maps solver-native status strings onto the shared values.
// Unrecognised strings are returned trimmed but otherwise unchanged.
func NormalizeStatus(status string) string {
	trimmed := strings.TrimSpace(status)
	switch strings.ToLower(trimmed) {
	case "optimal", "opt", "integer optimal", "optimal solution found":
		return StatusOptimal
	case "feasible", "feas":
		return StatusFeasible
	case "infeasible", "infeas", "nofeas", "integer infeasible", "problem proven infeasible":
		return StatusInfeasible
	case "unbounded", "unbnd":
		return StatusUnbounded
	case "undefined", "undef":
		return StatusUndefined
	case "error":
		return StatusError
	}
	return trimmed
}
