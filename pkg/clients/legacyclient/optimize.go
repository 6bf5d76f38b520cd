package legacyclient

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/core/lpmodel"
	"github.com/jakechorley/shift-optimizer/pkg/core/model"
	"github.com/jakechorley/shift-optimizer/pkg/core/optimizer"
)

// StatusTransportError marks outcomes where the legacy service could not be reached
const StatusTransportError = "TransportError"

// OptimizeShiftRequest is the body of both legacy endpoints. Constraints are
// indexed [worker][post][hour] with 1 for available.
type OptimizeShiftRequest struct {
	Constraints [][][]int `json:"constraints" validate:"required"`
	Workers     []string  `json:"workers,omitempty"`
}

// OptimizeShiftResponse is returned by /api/optimizeShift. Result is [post][hour][worker].
type OptimizeShiftResponse struct {
	Result  [][][]bool `json:"result"`
	IsOptim bool       `json:"isOptim"`
}

// OptimizedShiftLabels is returned by /api/getOptimizedShift: the assigned
// worker's label per [post][hour], "" where nobody is assigned.
type OptimizedShiftLabels struct {
	Result  [][]string `json:"result"`
	IsOptim bool       `json:"isOptim"`
}

// UserShiftData is one worker with the slots the optimizer gave them, [post][hour]
type UserShiftData struct {
	Worker      model.Worker         `json:"worker"`
	Constraints [][]model.Constraint `json:"constraints"`
	Shifts      [][]bool             `json:"shifts"`
}

// EncodeConstraints flattens a tensor into the 0/1 wire form
func EncodeConstraints(tensor model.AvailabilityTensor) [][][]int {
	out := make([][][]int, len(tensor))
	for w := range tensor {
		out[w] = make([][]int, len(tensor[w]))
		for p := range tensor[w] {
			out[w][p] = make([]int, len(tensor[w][p]))
			for h, available := range tensor[w][p] {
				if available {
					out[w][p][h] = 1
				}
			}
		}
	}
	return out
}

// DecodeConstraints is the inverse of EncodeConstraints. Any non-zero value counts as available.
func DecodeConstraints(constraints [][][]int) model.AvailabilityTensor {
	tensor := make(model.AvailabilityTensor, len(constraints))
	for w := range constraints {
		tensor[w] = make([][]bool, len(constraints[w]))
		for p := range constraints[w] {
			tensor[w][p] = make([]bool, len(constraints[w][p]))
			for h, v := range constraints[w][p] {
				tensor[w][p][h] = v != 0
			}
		}
	}
	return tensor
}

// TensorFromUsers reads each user's constraint grid, padding ragged grids with false
func TensorFromUsers(users []model.WorkerConstraints) model.AvailabilityTensor {
	tensor := make(model.AvailabilityTensor, len(users))
	for w, user := range users {
		tensor[w] = make([][]bool, len(user.Constraints))
		for p, row := range user.Constraints {
			tensor[w][p] = make([]bool, len(row))
			for h, c := range row {
				tensor[w][p][h] = c.Availability
			}
		}
	}
	return tensor.Normalize()
}

// OptimizeShift calls /api/optimizeShift with a prebuilt tensor
func (c *Client) OptimizeShift(ctx context.Context, tensor model.AvailabilityTensor) (*OptimizeShiftResponse, error) {
	var resp OptimizeShiftResponse
	if err := c.post(ctx, OptimizeShiftPath, OptimizeShiftRequest{Constraints: EncodeConstraints(tensor)}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetOptimizedShift calls /api/getOptimizedShift. labels name the workers in
// tensor order; the server falls back to worker indices when empty.
func (c *Client) GetOptimizedShift(ctx context.Context, tensor model.AvailabilityTensor, labels []string) (*OptimizedShiftLabels, error) {
	var resp OptimizedShiftLabels
	req := OptimizeShiftRequest{Constraints: EncodeConstraints(tensor), Workers: labels}
	if err := c.post(ctx, GetOptimizedShiftPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Assign optimizes users remotely and maps the result back onto them. A
// response of the wrong shape is replaced by an empty one and reported as not optimal.
func (c *Client) Assign(ctx context.Context, users []model.WorkerConstraints) ([]UserShiftData, bool, error) {
	tensor := TensorFromUsers(users)
	workers, posts, hours := tensor.Dims()

	resp, err := c.OptimizeShift(ctx, tensor)
	if err != nil {
		return nil, false, err
	}

	result := model.AssignmentResult(resp.Result)
	isOptim := resp.IsOptim
	if workers > 0 && !result.HasShape(posts, hours, workers) {
		c.logger.Warn("Legacy optimizer returned a result of the wrong shape",
			zap.Int("workers", workers), zap.Int("posts", posts), zap.Int("hours", hours))
		result = model.NewAssignmentResult(posts, hours, workers)
		isOptim = false
	}

	out := make([]UserShiftData, len(users))
	for w, user := range users {
		shifts := make([][]bool, posts)
		for p := range shifts {
			shifts[p] = make([]bool, hours)
			for h := range shifts[p] {
				shifts[p][h] = workers > 0 && result[p][h][w]
			}
		}
		out[w] = UserShiftData{Worker: user.Worker, Constraints: user.Constraints, Shifts: shifts}
	}

	return out, isOptim, nil
}

// Optimize runs a request through the legacy service. Transport failures and
// malformed responses produce IsOptim=false with an empty result of the grid's shape.
func (c *Client) Optimize(ctx context.Context, req optimizer.Request) optimizer.Outcome {
	start := time.Now()
	tensor := optimizer.BuildTensor(req.Posts, req.Hours, req.Workers)
	posts, hours, workers := len(req.Posts), len(req.Hours), len(req.Workers)

	outcome := optimizer.Outcome{
		Result:        model.NewAssignmentResult(posts, hours, workers),
		Backend:       "legacy",
		SolverInvoked: true,
	}
	if workers == 0 {
		outcome.Result = model.AssignmentResult{}
	}

	resp, err := c.OptimizeShift(ctx, tensor)
	outcome.Duration = time.Since(start)
	if err != nil {
		c.logger.Error("Legacy optimizer failed", zap.String("url", c.baseURL), zap.Error(err))
		outcome.Status = StatusTransportError
		outcome.Err = err
		return outcome
	}

	result := model.AssignmentResult(resp.Result)
	if workers > 0 && !result.HasShape(posts, hours, workers) {
		c.logger.Warn("Discarding legacy result of the wrong shape")
		outcome.Status = lpmodel.StatusError
		return outcome
	}

	if !resp.IsOptim {
		outcome.Status = lpmodel.StatusInfeasible
		return outcome
	}

	if workers > 0 {
		outcome.Result = result
	}
	outcome.IsOptim = true
	outcome.Status = lpmodel.StatusOptimal
	return outcome
}
