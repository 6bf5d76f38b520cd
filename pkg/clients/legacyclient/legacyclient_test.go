package legacyclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/core/lpmodel"
	"github.com/jakechorley/shift-optimizer/pkg/core/model"
	"github.com/jakechorley/shift-optimizer/pkg/core/optimizer"
)

func users() []model.WorkerConstraints {
	grid := func(avail ...bool) [][]model.Constraint {
		row := make([]model.Constraint, len(avail))
		for h, a := range avail {
			row[h] = model.Constraint{PostID: "p0", HourID: string(rune('a' + h)), Availability: a}
		}
		return [][]model.Constraint{row}
	}
	return []model.WorkerConstraints{
		{Worker: model.Worker{ID: "w0", Name: "Ana"}, Constraints: grid(true, false)},
		{Worker: model.Worker{ID: "w1", Name: "Ben"}, Constraints: grid(true, true)},
	}
}

func request() optimizer.Request {
	return optimizer.Request{
		Posts:   []model.Post{{ID: "p0", Value: "Gate"}},
		Hours:   []model.Hour{{ID: "a", Value: "07:00"}, {ID: "b", Value: "15:00"}},
		Workers: users(),
	}
}

func newServer(t *testing.T, handler func(req OptimizeShiftRequest) any) *httptest.Server {
	t.Helper()
	return newPathServer(t, nil, handler)
}

func newPathServer(t *testing.T, path *string, handler func(req OptimizeShiftRequest) any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if path != nil {
			*path = r.URL.Path
		}
		var req OptimizeShiftRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(handler(req)))
	}))
}

func TestEncodeDecodeConstraints(t *testing.T) {
	tensor := model.AvailabilityTensor{{{true, false}}, {{false, true}}}

	encoded := EncodeConstraints(tensor)
	assert.Equal(t, [][][]int{{{1, 0}}, {{0, 1}}}, encoded)
	assert.Equal(t, tensor, DecodeConstraints(encoded))
	assert.Equal(t, model.AvailabilityTensor{{{true}}}, DecodeConstraints([][][]int{{{2}}}))
}

func TestTensorFromUsers_PadsRaggedGrids(t *testing.T) {
	u := users()
	u[0].Constraints[0] = u[0].Constraints[0][:1]

	tensor := TensorFromUsers(u)
	assert.Equal(t, model.AvailabilityTensor{{{true, false}}, {{true, true}}}, tensor)
}

func TestClient_Assign(t *testing.T) {
	var gotPath string
	server := newPathServer(t, &gotPath, func(req OptimizeShiftRequest) any {
		assert.Equal(t, [][][]int{{{1, 0}}, {{1, 1}}}, req.Constraints)
		return OptimizeShiftResponse{
			Result:  [][][]bool{{{true, false}, {false, true}}},
			IsOptim: true,
		}
	})
	defer server.Close()

	client := NewClient(server.URL, 0, zap.NewNop())
	data, isOptim, err := client.Assign(context.Background(), users())
	require.NoError(t, err)

	assert.Equal(t, OptimizeShiftPath, gotPath)
	assert.True(t, isOptim)
	require.Len(t, data, 2)
	assert.Equal(t, "Ana", data[0].Worker.Name)
	assert.Equal(t, [][]bool{{true, false}}, data[0].Shifts)
	assert.Equal(t, [][]bool{{false, true}}, data[1].Shifts)
}

func TestClient_Assign_WrongShape(t *testing.T) {
	server := newServer(t, func(OptimizeShiftRequest) any {
		return OptimizeShiftResponse{Result: [][][]bool{{{true}}}, IsOptim: true}
	})
	defer server.Close()

	data, isOptim, err := NewClient(server.URL, 0, nil).Assign(context.Background(), users())
	require.NoError(t, err)

	assert.False(t, isOptim)
	for _, d := range data {
		assert.Equal(t, [][]bool{{false, false}}, d.Shifts)
	}
}

func TestClient_GetOptimizedShift(t *testing.T) {
	server := newServer(t, func(req OptimizeShiftRequest) any {
		assert.Equal(t, []string{"Ana", "Ben"}, req.Workers)
		return OptimizedShiftLabels{Result: [][]string{{"Ana", "Ben"}}, IsOptim: true}
	})
	defer server.Close()

	tensor := TensorFromUsers(users())
	resp, err := NewClient(server.URL, 0, nil).GetOptimizedShift(context.Background(), tensor, []string{"Ana", "Ben"})
	require.NoError(t, err)
	assert.True(t, resp.IsOptim)
	assert.Equal(t, [][]string{{"Ana", "Ben"}}, resp.Result)
}

func TestClient_Optimize(t *testing.T) {
	t.Run("optimal", func(t *testing.T) {
		server := newServer(t, func(OptimizeShiftRequest) any {
			return OptimizeShiftResponse{Result: [][][]bool{{{true, false}, {false, true}}}, IsOptim: true}
		})
		defer server.Close()

		outcome := NewClient(server.URL, 0, nil).Optimize(context.Background(), request())
		assert.True(t, outcome.IsOptim)
		assert.Equal(t, lpmodel.StatusOptimal, outcome.Status)
		assert.Equal(t, "legacy", outcome.Backend)
		assert.Equal(t, 0, outcome.Result.AssignedWorker(0, 0))
		assert.Equal(t, 1, outcome.Result.AssignedWorker(0, 1))
	})

	t.Run("not optimal", func(t *testing.T) {
		server := newServer(t, func(OptimizeShiftRequest) any {
			return OptimizeShiftResponse{Result: [][][]bool{{{true, false}, {false, true}}}, IsOptim: false}
		})
		defer server.Close()

		outcome := NewClient(server.URL, 0, nil).Optimize(context.Background(), request())
		assert.False(t, outcome.IsOptim)
		assert.Equal(t, lpmodel.StatusInfeasible, outcome.Status)
		assert.Equal(t, model.NewAssignmentResult(1, 2, 2), outcome.Result)
	})

	t.Run("wrong shape", func(t *testing.T) {
		server := newServer(t, func(OptimizeShiftRequest) any {
			return OptimizeShiftResponse{Result: [][][]bool{}, IsOptim: true}
		})
		defer server.Close()

		outcome := NewClient(server.URL, 0, nil).Optimize(context.Background(), request())
		assert.False(t, outcome.IsOptim)
		assert.Equal(t, model.NewAssignmentResult(1, 2, 2), outcome.Result)
	})

	t.Run("transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		outcome := NewClient(server.URL, 0, nil).Optimize(context.Background(), request())
		assert.False(t, outcome.IsOptim)
		assert.Equal(t, StatusTransportError, outcome.Status)
		assert.Error(t, outcome.Err)
		assert.True(t, outcome.Result.HasShape(1, 2, 2))
	})
}
