package optimizer

import (
	"fmt"

	"github.com/jakechorley/shift-optimizer/pkg/core/model"
)

// SlotViolation describes a hard rule broken by an assignment result
type SlotViolation struct {
	Post        int    `json:"post"`
	Hour        int    `json:"hour"`
	Worker      int    `json:"worker"` // -1 when the violation is not tied to one worker
	RuleName    string `json:"rule"`
	Description string `json:"description"`
}

// ResultState is what rules inspect after a solve
type ResultState struct {
	Tensor  model.AvailabilityTensor
	Result  model.AssignmentResult
	Workers int
	Posts   int
	Hours   int
}

// Rule checks a decoded result against one hard constraint of the model
type Rule interface {
	// Name returns a human-readable identifier for this rule
	Name() string

	// Validate returns every violation found. An empty slice means the result is valid.
	Validate(state *ResultState) []SlotViolation
}

// DefaultRules mirror the hard constraints of BuildModel
func DefaultRules() []Rule {
	return []Rule{
		&CoverageRule{},
		&NoAdjacentSlotsRule{},
		&AvailabilityRule{},
	}
}

// ValidateResult runs every rule and collects their violations
func ValidateResult(state *ResultState, rules []Rule) []SlotViolation {
	var violations []SlotViolation
	for _, rule := range rules {
		violations = append(violations, rule.Validate(state)...)
	}
	return violations
}

// CoverageRule requires exactly one worker on every slot someone is available for,
// and nobody on slots that nobody is available for.
type CoverageRule struct{}

func (r *CoverageRule) Name() string {
	return "Coverage"
}

func (r *CoverageRule) Validate(state *ResultState) []SlotViolation {
	var violations []SlotViolation

	for p := 0; p < state.Posts; p++ {
		for h := 0; h < state.Hours; h++ {
			count := 0
			for w := 0; w < state.Workers; w++ {
				if state.Result[p][h][w] {
					count++
				}
			}

			want := 1
			if !slotCoverable(state.Tensor, p, h) {
				want = 0
			}
			if count != want {
				violations = append(violations, SlotViolation{
					Post:        p,
					Hour:        h,
					Worker:      -1,
					RuleName:    r.Name(),
					Description: fmt.Sprintf("Slot (%d, %d) has %d workers assigned, expected %d", p, h, count, want),
				})
			}
		}
	}

	return violations
}

// NoAdjacentSlotsRule prevents a worker holding consecutive hours on the same post
type NoAdjacentSlotsRule struct{}

func (r *NoAdjacentSlotsRule) Name() string {
	return "NoAdjacentSlots"
}

func (r *NoAdjacentSlotsRule) Validate(state *ResultState) []SlotViolation {
	var violations []SlotViolation

	for p := 0; p < state.Posts; p++ {
		for h := 1; h < state.Hours; h++ {
			for w := 0; w < state.Workers; w++ {
				if state.Result[p][h-1][w] && state.Result[p][h][w] {
					violations = append(violations, SlotViolation{
						Post:        p,
						Hour:        h,
						Worker:      w,
						RuleName:    r.Name(),
						Description: fmt.Sprintf("Worker %d is assigned to adjacent hours %d and %d on post %d", w, h-1, h, p),
					})
				}
			}
		}
	}

	return violations
}

// AvailabilityRule rejects assignments to slots the worker is unavailable for
type AvailabilityRule struct{}

func (r *AvailabilityRule) Name() string {
	return "Availability"
}

func (r *AvailabilityRule) Validate(state *ResultState) []SlotViolation {
	var violations []SlotViolation

	for p := 0; p < state.Posts; p++ {
		for h := 0; h < state.Hours; h++ {
			for w := 0; w < state.Workers; w++ {
				if state.Result[p][h][w] && !state.Tensor.Available(w, p, h) {
					violations = append(violations, SlotViolation{
						Post:        p,
						Hour:        h,
						Worker:      w,
						RuleName:    r.Name(),
						Description: fmt.Sprintf("Worker %d is not available for slot (%d, %d)", w, p, h),
					})
				}
			}
		}
	}

	return violations
}
