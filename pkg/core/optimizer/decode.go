package optimizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jakechorley/shift-optimizer/pkg/core/lpmodel"
	"github.com/jakechorley/shift-optimizer/pkg/core/model"
)

// assignedThreshold absorbs floating point noise in solver output
const assignedThreshold = 1 - 1e-6

// ErrShapeMismatch is returned by Decode when the solution names a slot outside the grid
var ErrShapeMismatch = errors.New("decoded result does not match grid shape")

// Decode turns the assignment binaries of a solution into a posts x hours x workers result.
// On any mismatch it returns an all-false result of the expected shape with ErrShapeMismatch.
func Decode(solution *lpmodel.Solution, workers, posts, hours int) (model.AssignmentResult, error) {
	result := model.NewAssignmentResult(posts, hours, workers)
	if solution == nil {
		return result, nil
	}

	for name, col := range solution.Columns {
		if col.Primal < assignedThreshold {
			continue
		}
		if !strings.HasPrefix(name, assignPrefix) {
			continue
		}

		w, p, h, ok := ParseAssignVar(name)
		if !ok {
			return model.NewAssignmentResult(posts, hours, workers), fmt.Errorf("%w: malformed variable %q", ErrShapeMismatch, name)
		}
		if w >= workers || p >= posts || h >= hours {
			return model.NewAssignmentResult(posts, hours, workers), fmt.Errorf("%w: %s outside %dx%dx%d", ErrShapeMismatch, name, workers, posts, hours)
		}
		result[p][h][w] = true
	}

	if !result.HasShape(posts, hours, workers) {
		return model.NewAssignmentResult(posts, hours, workers), ErrShapeMismatch
	}
	return result, nil
}
