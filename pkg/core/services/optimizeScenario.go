package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/core/model"
	"github.com/jakechorley/shift-optimizer/pkg/core/optimizer"
	"github.com/jakechorley/shift-optimizer/pkg/core/session"
	"github.com/jakechorley/shift-optimizer/pkg/core/shiftgrid"
	"github.com/jakechorley/shift-optimizer/pkg/db"
)

// ScenarioResult is the outcome of optimising a scenario
type ScenarioResult struct {
	Plan    shiftgrid.Result
	Session *session.Session
	Outcome optimizer.Outcome
	Run     *db.Run // nil when not recorded
}

// BuildSession plans the hours for a scenario and loads its workers and
// unavailability into a fresh session
func BuildSession(scenario *Scenario, logger *zap.Logger) (*session.Session, shiftgrid.Result, error) {
	plan := shiftgrid.Plan(shiftgrid.Input{
		StartTime:            scenario.Plan.Start,
		EndTime:              scenario.Plan.End,
		PostCount:            len(scenario.Posts),
		StaffCount:           len(scenario.Workers),
		MinimumTotalRestTime: scenario.Plan.Rest,
	})
	if !plan.IsFeasible {
		return nil, plan, fmt.Errorf("scenario cannot be planned: %s", plan.Message)
	}

	logger.Debug("Planned shift grid",
		zap.Int("shifts", plan.MinimumShiftsNeeded),
		zap.Float64("shift_duration", plan.ShiftDuration),
		zap.Strings("start_times", plan.ShiftStartTimes))

	posts := make([]model.Post, len(scenario.Posts))
	postIndex := make(map[string]int, len(scenario.Posts))
	for i, name := range scenario.Posts {
		posts[i] = model.Post{ID: uuid.NewString(), Value: name}
		postIndex[name] = i
	}

	hourIndex := make(map[string]int, len(plan.ShiftStartTimes))
	for i, start := range plan.ShiftStartTimes {
		hourIndex[start] = i
	}

	sess := session.New(posts, nil, logger)
	if err := sess.ApplyPlan(plan); err != nil {
		return nil, plan, err
	}

	for _, sw := range scenario.Workers {
		worker := sess.AddWorker(sw.Name)
		for _, ref := range sw.Unavailable {
			slots, err := resolveSlots(ref, postIndex, hourIndex, len(posts), len(plan.ShiftStartTimes))
			if err != nil {
				return nil, plan, fmt.Errorf("worker %s: %w", sw.Name, err)
			}
			for _, slot := range slots {
				if err := sess.SetAvailability(worker.ID, slot.Post, slot.Hour, false); err != nil {
					return nil, plan, fmt.Errorf("failed to set availability for %s: %w", sw.Name, err)
				}
			}
		}
	}

	return sess, plan, nil
}

func resolveSlots(ref SlotRef, postIndex, hourIndex map[string]int, posts, hours int) ([]model.SlotKey, error) {
	postRange := []int{}
	if ref.Post == "" {
		for p := 0; p < posts; p++ {
			postRange = append(postRange, p)
		}
	} else {
		p, ok := postIndex[ref.Post]
		if !ok {
			return nil, fmt.Errorf("unknown post %q", ref.Post)
		}
		postRange = append(postRange, p)
	}

	hourRange := []int{}
	if ref.Hour == "" {
		for h := 0; h < hours; h++ {
			hourRange = append(hourRange, h)
		}
	} else {
		h, ok := hourIndex[ref.Hour]
		if !ok {
			return nil, fmt.Errorf("hour %q is not a planned shift start", ref.Hour)
		}
		hourRange = append(hourRange, h)
	}

	slots := make([]model.SlotKey, 0, len(postRange)*len(hourRange))
	for _, p := range postRange {
		for _, h := range hourRange {
			slots = append(slots, model.SlotKey{Post: p, Hour: h})
		}
	}
	return slots, nil
}

// OptimizeScenario plans, optimises and (when store is non-nil) records a scenario
func OptimizeScenario(ctx context.Context, opt session.Optimizer, store db.RunStore, logger *zap.Logger, scenario *Scenario) (*ScenarioResult, error) {
	logger.Debug("Optimising scenario",
		zap.String("name", scenario.Name),
		zap.Int("posts", len(scenario.Posts)),
		zap.Int("workers", len(scenario.Workers)))

	sess, plan, err := BuildSession(scenario, logger)
	if err != nil {
		return nil, err
	}

	outcome := sess.Optimize(ctx, opt)
	logger.Info("Optimisation finished",
		zap.Bool("is_optim", outcome.IsOptim),
		zap.String("status", outcome.Status),
		zap.Duration("duration", outcome.Duration))

	result := &ScenarioResult{
		Plan:    plan,
		Session: sess,
		Outcome: outcome,
	}

	if store == nil {
		return result, nil
	}

	run, err := newRun(sess, outcome)
	if err != nil {
		return nil, err
	}

	logger.Debug("Recording run", zap.String("id", run.ID))
	if err := store.InsertRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	result.Run = run

	return result, nil
}

func newRun(sess *session.Session, outcome optimizer.Outcome) (*db.Run, error) {
	encoded, err := json.Marshal(outcome.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	return &db.Run{
		ID:          uuid.New().String(),
		CreatedAt:   time.Now().UTC(),
		Signature:   sess.Signature(),
		Backend:     outcome.Backend,
		WorkerCount: len(sess.Workers()),
		PostCount:   len(sess.Posts()),
		HourCount:   len(sess.Hours()),
		IsOptim:     outcome.IsOptim,
		Status:      outcome.Status,
		Objective:   outcome.Objective,
		DurationMS:  outcome.Duration.Milliseconds(),
		Result:      encoded,
	}, nil
}

// ListRuns returns the most recent runs, newest first
func ListRuns(ctx context.Context, store db.RunStore, logger *zap.Logger, limit int) ([]db.Run, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	logger.Debug("Fetching runs", zap.Int("limit", limit))
	runs, err := store.GetRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch runs: %w", err)
	}
	logger.Debug("Found runs", zap.Int("count", len(runs)))

	return runs, nil
}
