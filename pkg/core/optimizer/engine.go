package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/core/lpmodel"
	"github.com/jakechorley/shift-optimizer/pkg/core/model"
)

// Outcome statuses produced by the engine itself
const (
	StatusStructurallyInfeasible = "StructurallyInfeasible"
	StatusTimeout                = "Timeout"
	StatusInvalidSolution        = "InvalidSolution"
)

// ErrSolverTimeout is set on Outcome.Err when the solve deadline passes
var ErrSolverTimeout = errors.New("solver timed out")

// SolverBackend solves an integer program. Implementations may run in process,
// in a subprocess or on another machine.
type SolverBackend interface {
	Name() string
	Solve(ctx context.Context, m *lpmodel.Model) (*lpmodel.Solution, error)
}

// Request is a snapshot of the grid and every worker's constraints
type Request struct {
	Posts   []model.Post              `json:"posts"`
	Hours   []model.Hour              `json:"hours"`
	Workers []model.WorkerConstraints `json:"workers"`
}

// Outcome is the result of an optimisation. Solver failures never surface as
// errors; they produce IsOptim=false and an all-false result of the grid's shape.
type Outcome struct {
	Result        model.AssignmentResult `json:"result"`
	IsOptim       bool                   `json:"isOptim"`
	Status        string                 `json:"status"`
	SolverInvoked bool                   `json:"solverInvoked"`
	Backend       string                 `json:"backend,omitempty"`
	Objective     float64                `json:"objective"`
	Duration      time.Duration          `json:"duration"`
	Uncoverable   []model.SlotKey        `json:"uncoverable,omitempty"`
	Violations    []SlotViolation        `json:"violations,omitempty"`
	Err           error                  `json:"-"`
}

// Engine builds the assignment model, hands it to a backend and decodes the answer
type Engine struct {
	backend SolverBackend
	timeout time.Duration
	rules   []Rule
	logger  *zap.Logger
}

// NewEngine creates an engine. A zero timeout leaves the solve bounded only by ctx.
func NewEngine(backend SolverBackend, timeout time.Duration, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		backend: backend,
		timeout: timeout,
		rules:   DefaultRules(),
		logger:  logger,
	}
}

// Backend returns the configured solver backend
func (e *Engine) Backend() SolverBackend {
	return e.backend
}

// Name reports the wrapped backend, so an Engine can stand in for it
func (e *Engine) Name() string {
	if e.backend == nil {
		return ""
	}
	return e.backend.Name()
}

// Solve runs m through the backend under the engine timeout, recovering
// backend panics. It lets raw models share the deadline used by Optimize.
func (e *Engine) Solve(ctx context.Context, m *lpmodel.Model) (*lpmodel.Solution, error) {
	if e.backend == nil {
		return nil, errors.New("no solver backend configured")
	}
	return e.solve(ctx, m)
}

// Optimize assigns exactly one worker to every coverable (post, hour) slot
func (e *Engine) Optimize(ctx context.Context, req Request) Outcome {
	tensor := BuildTensor(req.Posts, req.Hours, req.Workers)
	return e.run(ctx, tensor, len(req.Posts), len(req.Hours))
}

// OptimizeTensor is Optimize for a prebuilt tensor. Ragged tensors are padded with false.
func (e *Engine) OptimizeTensor(ctx context.Context, tensor model.AvailabilityTensor) Outcome {
	normalized := tensor.Normalize()
	_, posts, hours := normalized.Dims()
	return e.run(ctx, normalized, posts, hours)
}

func (e *Engine) run(ctx context.Context, tensor model.AvailabilityTensor, posts, hours int) Outcome {
	start := time.Now()
	workers := len(tensor)

	logger := e.logger.With(
		zap.Int("workers", workers),
		zap.Int("posts", posts),
		zap.Int("hours", hours),
	)

	outcome := Outcome{Result: model.NewAssignmentResult(posts, hours, workers)}
	finish := func(o Outcome) Outcome {
		o.Duration = time.Since(start)
		return o
	}

	if workers == 0 {
		outcome.Result = model.AssignmentResult{}
		outcome.IsOptim = true
		outcome.Status = lpmodel.StatusOptimal
		return finish(outcome)
	}

	if uncoverable := UncoverableSlots(tensor, posts, hours); len(uncoverable) > 0 {
		logger.Warn("Grid has slots nobody can cover, skipping solver",
			zap.Int("uncoverable", len(uncoverable)))
		outcome.Status = StatusStructurallyInfeasible
		outcome.Uncoverable = uncoverable
		return finish(outcome)
	}

	if posts == 0 || hours == 0 {
		outcome.IsOptim = true
		outcome.Status = lpmodel.StatusOptimal
		return finish(outcome)
	}

	m, err := BuildModel(tensor, posts, hours)
	if err != nil {
		logger.Error("Failed to build model", zap.Error(err))
		outcome.Status = lpmodel.StatusError
		outcome.Err = err
		return finish(outcome)
	}

	if e.backend == nil {
		outcome.Status = lpmodel.StatusError
		outcome.Err = errors.New("no solver backend configured")
		logger.Error("Failed to solve model", zap.Error(outcome.Err))
		return finish(outcome)
	}

	outcome.Backend = e.backend.Name()
	outcome.SolverInvoked = true
	logger.Debug("Solving model",
		zap.String("backend", outcome.Backend),
		zap.Int("variables", len(m.Variables)),
		zap.Int("constraints", len(m.Constraints)))

	solution, err := e.solve(ctx, m)
	if err != nil {
		outcome.Err = err
		outcome.Status = lpmodel.StatusError
		if errors.Is(err, ErrSolverTimeout) {
			outcome.Status = StatusTimeout
		}
		logger.Error("Solver failed", zap.String("backend", outcome.Backend), zap.Error(err))
		return finish(outcome)
	}

	outcome.Status = lpmodel.NormalizeStatus(solution.Status)
	outcome.Objective = solution.Objective
	if outcome.Status != lpmodel.StatusOptimal {
		logger.Warn("Solver did not find an optimal assignment", zap.String("status", solution.Status))
		return finish(outcome)
	}

	result, err := Decode(solution, workers, posts, hours)
	if err != nil {
		logger.Warn("Discarding decoded result", zap.Error(err))
	}

	violations := ValidateResult(&ResultState{
		Tensor:  tensor,
		Result:  result,
		Workers: workers,
		Posts:   posts,
		Hours:   hours,
	}, e.rules)
	if len(violations) > 0 {
		for _, v := range violations {
			logger.Warn("Solver result violates rule",
				zap.String("rule", v.RuleName),
				zap.String("description", v.Description))
		}
		outcome.Status = StatusInvalidSolution
		outcome.Violations = violations
		return finish(outcome)
	}

	outcome.Result = result
	outcome.IsOptim = true
	logger.Info("Optimal assignment found",
		zap.Float64("objective", solution.Objective),
		zap.Duration("duration", time.Since(start)))
	return finish(outcome)
}

type solveResult struct {
	solution *lpmodel.Solution
	err      error
}

// solve runs the backend under the engine timeout. Backends that ignore ctx are
// abandoned when the deadline passes.
func (e *Engine) solve(ctx context.Context, m *lpmodel.Model) (*lpmodel.Solution, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	done := make(chan solveResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- solveResult{err: fmt.Errorf("solver panicked: %v", r)}
			}
		}()
		solution, err := e.backend.Solve(ctx, m)
		done <- solveResult{solution: solution, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %w", ErrSolverTimeout, res.err)
			}
			return nil, fmt.Errorf("failed to solve with %s: %w", e.backend.Name(), res.err)
		}
		if res.solution == nil {
			return nil, fmt.Errorf("%s returned no solution", e.backend.Name())
		}
		return res.solution, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrSolverTimeout, e.timeout)
		}
		return nil, fmt.Errorf("solve cancelled: %w", ctx.Err())
	}
}
