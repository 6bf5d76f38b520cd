package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/shift-optimizer/pkg/core/lpmodel"
	"github.com/jakechorley/shift-optimizer/pkg/core/model"
)

func TestBuildModel_OmitsUnavailableVariables(t *testing.T) {
	tensor := fullTensor(2, 1, 3)
	tensor[1][0][1] = false

	m, err := BuildModel(tensor, 1, 3)
	require.NoError(t, err)

	_, ok := m.Variable("x_1_0_1")
	assert.False(t, ok)

	v, ok := m.Variable("x_0_0_1")
	require.True(t, ok)
	assert.Equal(t, lpmodel.Binary, v.Kind)

	// 5 assignment binaries plus above/below per worker
	assert.Len(t, m.Variables, 5+4)
}

func TestBuildModel_Rows(t *testing.T) {
	tensor := fullTensor(2, 1, 3)
	tensor[1][0][1] = false

	m, err := BuildModel(tensor, 1, 3)
	require.NoError(t, err)

	cover, ok := m.Constraint("cover_0_1")
	require.True(t, ok)
	assert.Equal(t, []lpmodel.Term{{Coef: 1, Var: "x_0_0_1"}}, cover.Terms)
	assert.Equal(t, lpmodel.Equal, cover.Relation)
	assert.Equal(t, 1.0, cover.RHS)

	// Worker 1 is unavailable at hour 1 so has no adjacency rows
	_, ok = m.Constraint("adj_0_0_0")
	assert.True(t, ok)
	_, ok = m.Constraint("adj_0_0_1")
	assert.True(t, ok)
	_, ok = m.Constraint("adj_1_0_0")
	assert.False(t, ok)
	_, ok = m.Constraint("adj_1_0_1")
	assert.False(t, ok)

	fair, ok := m.Constraint("fair_1")
	require.True(t, ok)
	assert.Equal(t, 1.5, fair.RHS)
	assert.Equal(t, []lpmodel.Term{
		{Coef: 1, Var: "x_1_0_0"},
		{Coef: 1, Var: "x_1_0_2"},
		{Coef: -1, Var: "above_1"},
		{Coef: 1, Var: "below_1"},
	}, fair.Terms)

	assert.Equal(t, []lpmodel.Term{
		{Coef: 1, Var: "above_0"},
		{Coef: 1, Var: "below_0"},
		{Coef: 1, Var: "above_1"},
		{Coef: 1, Var: "below_1"},
	}, m.Objective)
}

func TestBuildModel_SurvivesLPRoundTrip(t *testing.T) {
	m, err := BuildModel(fullTensor(3, 2, 2), 2, 2)
	require.NoError(t, err)

	parsed, err := lpmodel.ParseString(m.String())
	require.NoError(t, err)
	assert.Equal(t, m.Constraints, parsed.Constraints)
	assert.Len(t, parsed.Variables, len(m.Variables))
}

func TestAssignVarNaming(t *testing.T) {
	name := AssignVar(3, 1, 12)
	assert.Equal(t, "x_3_1_12", name)

	w, p, h, ok := ParseAssignVar(name)
	require.True(t, ok)
	assert.Equal(t, []int{3, 1, 12}, []int{w, p, h})

	for _, bad := range []string{"above_1", "x_1_2", "x_a_1_2", "x_1_2_3_4", "x_-1_0_0"} {
		_, _, _, ok := ParseAssignVar(bad)
		assert.False(t, ok, bad)
	}
}

func TestExpectedAverage(t *testing.T) {
	tensor := fullTensor(3, 2, 2)
	tensor[0][0][0] = false
	tensor[1][0][0] = false
	tensor[2][0][0] = false

	assert.Equal(t, 1.0, ExpectedAverage(tensor, 2, 2))
	assert.Equal(t, 0.0, ExpectedAverage(model.AvailabilityTensor{}, 2, 2))
}

func TestBuildTensor(t *testing.T) {
	posts := []model.Post{{ID: "p1"}, {ID: "p2"}}
	hours := []model.Hour{{ID: "h1"}, {ID: "h2"}, {ID: "h3"}}

	workers := []model.WorkerConstraints{
		{
			// Matched by ID, out of order, with a stale entry for a removed hour
			Constraints: [][]model.Constraint{
				{
					{PostID: "p2", HourID: "h3", Availability: true},
					{PostID: "p1", HourID: "h1", Availability: true},
					{PostID: "p1", HourID: "gone", Availability: true},
				},
			},
		},
		{
			// Positional with a short hour row
			Constraints: [][]model.Constraint{
				{{Availability: true}, {Availability: true}},
				{{Availability: false}, {Availability: true}, {Availability: true}, {Availability: true}},
			},
		},
	}

	tensor := BuildTensor(posts, hours, workers)

	w, p, h := tensor.Dims()
	assert.Equal(t, []int{2, 2, 3}, []int{w, p, h})
	assert.Equal(t, [][]bool{{true, false, false}, {false, false, true}}, [][]bool(tensor[0]))
	assert.Equal(t, [][]bool{{true, true, false}, {false, true, true}}, [][]bool(tensor[1]))
}

func TestUncoverableSlots(t *testing.T) {
	tensor := fullTensor(1, 2, 2)
	tensor[0][0][1] = false

	assert.Equal(t, []model.SlotKey{{Post: 0, Hour: 1}}, UncoverableSlots(tensor, 2, 2))
	assert.Empty(t, UncoverableSlots(fullTensor(1, 2, 2), 2, 2))
}

func TestDecode(t *testing.T) {
	solution := &lpmodel.Solution{
		Status: lpmodel.StatusOptimal,
		Columns: map[string]lpmodel.Column{
			"x_1_0_0": {Primal: 1},
			"x_0_0_1": {Primal: 0.9999995},
			"x_0_0_0": {Primal: 0.4},
			"above_0": {Primal: 3},
		},
	}

	result, err := Decode(solution, 2, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AssignedWorker(0, 0))
	assert.Equal(t, 0, result.AssignedWorker(0, 1))

	solution.Columns["x_0_5_0"] = lpmodel.Column{Primal: 1}
	result, err = Decode(solution, 2, 1, 2)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.True(t, result.HasShape(1, 2, 2))
	assert.Equal(t, []int{0, 0}, result.AssignmentCounts(2))
}
