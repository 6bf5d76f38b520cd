package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/internal/config"
	"github.com/jakechorley/shift-optimizer/pkg/clients/legacyclient"
	"github.com/jakechorley/shift-optimizer/pkg/core/intensity"
	"github.com/jakechorley/shift-optimizer/pkg/core/lpmodel"
	"github.com/jakechorley/shift-optimizer/pkg/core/optimizer"
	"github.com/jakechorley/shift-optimizer/pkg/core/shiftgrid"
	"github.com/jakechorley/shift-optimizer/pkg/solver"
)

// fixedBackend answers every solve with the same solution
type fixedBackend struct {
	solution *lpmodel.Solution
	last     *lpmodel.Model
}

func (f *fixedBackend) Name() string { return "fixed" }

func (f *fixedBackend) Solve(_ context.Context, m *lpmodel.Model) (*lpmodel.Solution, error) {
	f.last = m
	return f.solution, nil
}

// Worker 0 can only take hour 0; worker 1 takes hour 1
var twoWorkerConstraints = [][][]int{{{1, 0}}, {{1, 1}}}

func twoWorkerSolution() *lpmodel.Solution {
	return &lpmodel.Solution{
		Status: "Optimal",
		Columns: map[string]lpmodel.Column{
			optimizer.AssignVar(0, 0, 0): {Primal: 1},
			optimizer.AssignVar(1, 0, 0): {Primal: 0},
			optimizer.AssignVar(1, 0, 1): {Primal: 1},
		},
	}
}

// stuckBackend only returns once its ctx is done
type stuckBackend struct{}

func (s *stuckBackend) Name() string { return "stuck" }

func (s *stuckBackend) Solve(ctx context.Context, _ *lpmodel.Model) (*lpmodel.Solution, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func newTestHandler(backend optimizer.SolverBackend) *Handler {
	return newTestHandlerWithTimeout(backend, time.Second)
}

func newTestHandlerWithTimeout(backend optimizer.SolverBackend, timeout time.Duration) *Handler {
	engine := optimizer.NewEngine(backend, timeout, zap.NewNop())
	explorer := intensity.NewExplorer(intensity.NewMemoryCache(), nil, zap.NewNop())
	h := NewHandler(engine, explorer, zap.NewNop())
	h.RegisterRoutes()
	return h
}

func do(t *testing.T, h *Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestHandler(&fixedBackend{}), http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","backend":"fixed"}`, rec.Body.String())
}

func TestOptimizeShift(t *testing.T) {
	h := newTestHandler(&fixedBackend{solution: twoWorkerSolution()})

	rec := do(t, h, http.MethodPost, "/api/optimizeShift", legacyclient.OptimizeShiftRequest{Constraints: twoWorkerConstraints})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp legacyclient.OptimizeShiftResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.IsOptim)
	assert.Equal(t, [][][]bool{{{true, false}, {false, true}}}, resp.Result)
}

func TestOptimizeShift_StructurallyInfeasible(t *testing.T) {
	backend := &fixedBackend{solution: twoWorkerSolution()}
	h := newTestHandler(backend)

	rec := do(t, h, http.MethodPost, "/api/optimizeShift", legacyclient.OptimizeShiftRequest{
		Constraints: [][][]int{{{1, 0}}, {{1, 0}}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp legacyclient.OptimizeShiftResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.IsOptim)
	assert.Equal(t, [][][]bool{{{false, false}, {false, false}}}, resp.Result)
	assert.Nil(t, backend.last)
}

func TestOptimizeShift_NoWorkers(t *testing.T) {
	rec := do(t, newTestHandler(&fixedBackend{}), http.MethodPost, "/api/optimizeShift", `{"constraints":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":[],"isOptim":true}`, rec.Body.String())
}

func TestOptimizeShift_BadRequest(t *testing.T) {
	h := newTestHandler(&fixedBackend{})

	tests := []struct {
		name string
		body string
	}{
		{"missing constraints", `{}`},
		{"not json", `{`},
		{"wrong type", `{"constraints":"yes"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/optimizeShift", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestGetOptimizedShift(t *testing.T) {
	h := newTestHandler(&fixedBackend{solution: twoWorkerSolution()})

	t.Run("named workers", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/getOptimizedShift", legacyclient.OptimizeShiftRequest{
			Constraints: twoWorkerConstraints,
			Workers:     []string{"Ana", "Ben"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"result":[["Ana","Ben"]],"isOptim":true}`, rec.Body.String())
	})

	t.Run("falls back to indices", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/getOptimizedShift", legacyclient.OptimizeShiftRequest{
			Constraints: twoWorkerConstraints,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"result":[["0","1"]],"isOptim":true}`, rec.Body.String())
	})
}

func TestSolve(t *testing.T) {
	backend := &fixedBackend{solution: &lpmodel.Solution{
		Status:  "OPT",
		Columns: map[string]lpmodel.Column{"x": {Primal: 1}},
	}}
	h := newTestHandler(backend)

	rec := do(t, h, http.MethodPost, "/api/solve", solver.SolveRequest{
		Model: "Minimize\n obj: x\nSubject To\n c1: x = 1\nBinary\n x\nEnd\n",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var solution lpmodel.Solution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &solution))
	assert.Equal(t, lpmodel.StatusOptimal, solution.Status)
	assert.Equal(t, 1.0, solution.Columns["x"].Primal)
	require.NotNil(t, backend.last)
	assert.Equal(t, []string{"x"}, []string{backend.last.Variables[0].Name})
}

func TestSolve_StopsAtSolverTimeout(t *testing.T) {
	h := newTestHandlerWithTimeout(&stuckBackend{}, 20*time.Millisecond)

	start := time.Now()
	rec := do(t, h, http.MethodPost, "/api/solve", solver.SolveRequest{
		Model: "Minimize\n obj: x\nSubject To\n c1: x = 1\nBinary\n x\nEnd\n",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Less(t, time.Since(start), time.Second)

	var solution lpmodel.Solution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &solution))
	assert.Equal(t, optimizer.StatusTimeout, solution.Status)
	assert.Empty(t, solution.Columns)
}

func TestSolve_BadModel(t *testing.T) {
	h := newTestHandler(&fixedBackend{})

	rec := do(t, h, http.MethodPost, "/api/solve", solver.SolveRequest{Model: "Subject To\n c1: x = 1\nEnd\n"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/solve", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlan(t *testing.T) {
	rec := do(t, newTestHandler(&fixedBackend{}), http.MethodPost, "/api/plan", shiftgrid.Input{
		StartTime:            "07:00",
		EndTime:              "23:00",
		PostCount:            3,
		StaffCount:           10,
		MinimumTotalRestTime: 4,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result shiftgrid.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.IsFeasible)
	assert.Equal(t, 2, result.MinimumShiftsNeeded)
	assert.Equal(t, []string{"07:00", "15:00"}, result.ShiftStartTimes)
}

func TestIntensities(t *testing.T) {
	h := newTestHandler(&fixedBackend{})
	params := intensity.Params{StartTime: "07:00", EndTime: "23:00", PostCount: 3, StaffCount: 10}

	rec := do(t, h, http.MethodPost, "/api/intensities", params)
	require.Equal(t, http.StatusOK, rec.Code)

	var result intensity.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, []int{10, 8}, result.DistinguishedIntensities)

	do(t, h, http.MethodPost, "/api/intensities", params)

	rec = do(t, h, http.MethodGet, "/api/intensities/cache", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats intensity.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, []string{params.Key()}, stats.Keys)

	rec = do(t, h, http.MethodDelete, "/api/intensities/cache", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/intensities/cache", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.Size)
}

func TestIntensities_Validation(t *testing.T) {
	rec := do(t, newTestHandler(&fixedBackend{}), http.MethodPost, "/api/intensities", `{"postCount":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RunAndShutdown(t *testing.T) {
	h := newTestHandler(&fixedBackend{})
	srv := NewServer(config.ServerConfig{
		Addr:            "127.0.0.1:0",
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		IdleTimeout:     time.Second,
		ShutdownTimeout: time.Second,
	}, h.Mux, zap.NewNop())

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, l) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
