package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/core/model"
	"github.com/jakechorley/shift-optimizer/pkg/core/optimizer"
	"github.com/jakechorley/shift-optimizer/pkg/db"
)

// greedyOptimizer gives each slot to the first available worker
type greedyOptimizer struct {
	requests []optimizer.Request
}

func (g *greedyOptimizer) Optimize(_ context.Context, req optimizer.Request) optimizer.Outcome {
	g.requests = append(g.requests, req)
	tensor := optimizer.BuildTensor(req.Posts, req.Hours, req.Workers)
	result := model.NewAssignmentResult(len(req.Posts), len(req.Hours), len(req.Workers))
	for p := range result {
		for h := range result[p] {
			for w := range req.Workers {
				if tensor.Available(w, p, h) {
					result[p][h][w] = true
					break
				}
			}
		}
	}
	return optimizer.Outcome{Result: result, IsOptim: true, Status: "Optimal", Backend: "greedy", Objective: 1.5}
}

type failingStore struct{}

func (failingStore) InsertRun(context.Context, *db.Run) error { return assert.AnError }

func (failingStore) GetRuns(context.Context, int) ([]db.Run, error) { return nil, assert.AnError }

const scenarioYAML = `
name: weekday
plan:
  start: "07:00"
  end: "23:00"
  rest: 4
posts: [Gate, Desk]
workers:
  - name: Sam
    unavailable:
      - post: Gate
        hour: "07:00"
  - name: Alex
    unavailable:
      - hour: "15:00"
  - name: Kim
`

func TestParseScenario(t *testing.T) {
	scenario, err := ParseScenario([]byte(scenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, "weekday", scenario.Name)
	assert.Equal(t, PlanSpec{Start: "07:00", End: "23:00", Rest: 4}, scenario.Plan)
	assert.Equal(t, []string{"Gate", "Desk"}, scenario.Posts)
	require.Len(t, scenario.Workers, 3)
	assert.Equal(t, []SlotRef{{Post: "Gate", Hour: "07:00"}}, scenario.Workers[0].Unavailable)
}

func TestParseScenario_JSON(t *testing.T) {
	scenario, err := ParseScenario([]byte(`{"plan":{"start":"08:00","end":"12:00"},"posts":["A"],"workers":[{"name":"Sam"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "08:00", scenario.Plan.Start)
	assert.Len(t, scenario.Workers, 1)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "posts: [unclosed"},
		{"no plan", "posts: [A]\nworkers: [{name: Sam}]"},
		{"no posts", "plan: {start: '07:00', end: '09:00'}\nworkers: [{name: Sam}]"},
		{"duplicate posts", "plan: {start: '07:00', end: '09:00'}\nposts: [A, A]"},
		{"empty post name", "plan: {start: '07:00', end: '09:00'}\nposts: ['']"},
		{"negative rest", "plan: {start: '07:00', end: '09:00', rest: -1}\nposts: [A]"},
		{"worker without name", "plan: {start: '07:00', end: '09:00'}\nposts: [A]\nworkers: [{unavailable: []}]"},
		{"empty slot ref", "plan: {start: '07:00', end: '09:00'}\nposts: [A]\nworkers: [{name: Sam, unavailable: [{}]}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestBuildSession(t *testing.T) {
	scenario, err := ParseScenario([]byte(scenarioYAML))
	require.NoError(t, err)

	sess, plan, err := BuildSession(scenario, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []string{"07:00", "15:00"}, plan.ShiftStartTimes)
	require.Len(t, sess.Hours(), 2)
	assert.Equal(t, "15:00", sess.Hours()[1].Value)
	require.Len(t, sess.Posts(), 2)
	assert.Equal(t, "Desk", sess.Posts()[1].Value)

	workers := sess.Workers()
	require.Len(t, workers, 3)

	availability := func(w int) [][]bool {
		out := make([][]bool, len(workers[w].Constraints))
		for p, row := range workers[w].Constraints {
			for _, c := range row {
				out[p] = append(out[p], c.Availability)
			}
		}
		return out
	}
	assert.Equal(t, [][]bool{{false, true}, {true, true}}, availability(0))
	assert.Equal(t, [][]bool{{true, false}, {true, false}}, availability(1))
	assert.Equal(t, [][]bool{{true, true}, {true, true}}, availability(2))
}

func TestBuildSession_Errors(t *testing.T) {
	tests := []struct {
		name     string
		scenario Scenario
		contains string
	}{
		{
			name: "not enough staff",
			scenario: Scenario{
				Plan:    PlanSpec{Start: "07:00", End: "23:00"},
				Posts:   []string{"A", "B"},
				Workers: []ScenarioWorker{{Name: "Sam"}},
			},
			contains: "Need at least 2 staff",
		},
		{
			name: "unknown post",
			scenario: Scenario{
				Plan:    PlanSpec{Start: "07:00", End: "23:00"},
				Posts:   []string{"A"},
				Workers: []ScenarioWorker{{Name: "Sam", Unavailable: []SlotRef{{Post: "B"}}}},
			},
			contains: `unknown post "B"`,
		},
		{
			name: "unknown hour",
			scenario: Scenario{
				Plan:    PlanSpec{Start: "07:00", End: "23:00"},
				Posts:   []string{"A"},
				Workers: []ScenarioWorker{{Name: "Sam", Unavailable: []SlotRef{{Hour: "08:30"}}}},
			},
			contains: `hour "08:30"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := BuildSession(&tt.scenario, zap.NewNop())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestOptimizeScenario_RecordsRun(t *testing.T) {
	scenario, err := ParseScenario([]byte(scenarioYAML))
	require.NoError(t, err)

	store := db.NewMemoryStore()
	opt := &greedyOptimizer{}

	result, err := OptimizeScenario(context.Background(), opt, store, zap.NewNop(), scenario)
	require.NoError(t, err)

	require.Len(t, opt.requests, 1)
	assert.Len(t, opt.requests[0].Workers, 3)
	assert.True(t, result.Outcome.IsOptim)
	assert.Equal(t, []string{"07:00", "15:00"}, result.Plan.ShiftStartTimes)
	assert.Equal(t, [][]string{{"Alex", "Sam"}, {"Sam", "Sam"}}, result.Session.Labels())

	require.NotNil(t, result.Run)
	assert.NotEmpty(t, result.Run.ID)
	assert.Equal(t, result.Session.Signature(), result.Run.Signature)
	assert.Equal(t, "greedy", result.Run.Backend)
	assert.Equal(t, 3, result.Run.WorkerCount)
	assert.Equal(t, 2, result.Run.PostCount)
	assert.Equal(t, 2, result.Run.HourCount)
	assert.Equal(t, 1.5, result.Run.Objective)

	var stored model.AssignmentResult
	require.NoError(t, json.Unmarshal(result.Run.Result, &stored))
	assert.Equal(t, result.Outcome.Result, stored)

	runs, err := ListRuns(context.Background(), store, zap.NewNop(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.Run.ID, runs[0].ID)
}

func TestOptimizeScenario_WithoutStore(t *testing.T) {
	scenario, err := ParseScenario([]byte(scenarioYAML))
	require.NoError(t, err)

	result, err := OptimizeScenario(context.Background(), &greedyOptimizer{}, nil, zap.NewNop(), scenario)
	require.NoError(t, err)
	assert.Nil(t, result.Run)
}

func TestOptimizeScenario_StoreFailure(t *testing.T) {
	scenario, err := ParseScenario([]byte(scenarioYAML))
	require.NoError(t, err)

	_, err = OptimizeScenario(context.Background(), &greedyOptimizer{}, failingStore{}, zap.NewNop(), scenario)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestListRuns_Errors(t *testing.T) {
	_, err := ListRuns(context.Background(), db.NewMemoryStore(), zap.NewNop(), 0)
	assert.Error(t, err)

	_, err = ListRuns(context.Background(), failingStore{}, zap.NewNop(), 5)
	assert.ErrorIs(t, err, assert.AnError)
}
