package health

import (
	"testing"
	"time"

	"studiodesk/pkg/config"
	"studiodesk/services/review"

	"github.com/stretchr/testify/require"
)

var evalAt = time.Date(2026, time.October, 12, 14, 0, 0, 0, time.UTC)

func defaultRubric() Rubric {
	return RubricFromConfig(config.Default())
}

func ptr[T any](v T) *T { return &v }

func done(deadline, completed time.Time) TaskFacts {
	return TaskFacts{Status: review.StatusDone, Deadline: deadline, CompletedAt: &completed}
}

func open(deadline time.Time, busy bool) TaskFacts {
	return TaskFacts{Status: review.StatusTodo, Deadline: deadline, OwnerAtCapacity: busy}
}

func TestEvaluateEmptySnapshotIsBaseline(t *testing.T) {
	res := Evaluate(Snapshot{}, defaultRubric(), evalAt)

	require.Equal(t, 100, res.Overall)
	require.Equal(t, "A", res.Grade)
	require.False(t, res.Factors.OnTimeRatio.Applicable)
	require.False(t, res.Factors.OverdueCount.Applicable)
	require.False(t, res.Factors.WorkloadBalance.Applicable)
	require.False(t, res.Factors.BudgetBurn.Applicable)
}

func TestGradeSteps(t *testing.T) {
	cases := map[int]string{100: "A", 90: "A", 89: "B", 75: "B", 74: "C", 60: "C", 59: "D", 40: "D", 39: "F", 0: "F"}
	for overall, grade := range cases {
		require.Equal(t, grade, Grade(overall), "overall %d", overall)
	}
}

func TestEvaluateRenormalisesMissingFactors(t *testing.T) {
	snap := Snapshot{Tasks: []TaskFacts{
		done(evalAt.Add(-24*time.Hour), evalAt.Add(-48*time.Hour)),
		done(evalAt.Add(-24*time.Hour), evalAt.Add(-12*time.Hour)),
	}}

	res := Evaluate(snap, defaultRubric(), evalAt)

	require.InDelta(t, 0.5, res.Factors.OnTimeRatio.Value, 1e-9)
	require.True(t, res.Factors.OverdueCount.Applicable)
	require.False(t, res.Factors.WorkloadBalance.Applicable)
	// (50*0.40 + 100*0.25) / 0.65
	require.Equal(t, 69, res.Overall)
	require.Equal(t, "C", res.Grade)
}

func TestEvaluateOverdueAndWorkload(t *testing.T) {
	snap := Snapshot{Tasks: []TaskFacts{
		open(evalAt.Add(-time.Hour), false),
		open(evalAt.Add(-2*time.Hour), false),
		open(evalAt.Add(time.Hour), false),
		open(evalAt.Add(time.Hour), true),
	}}

	res := Evaluate(snap, defaultRubric(), evalAt)

	require.Equal(t, 2.0, res.Factors.OverdueCount.Value)
	require.InDelta(t, 70, res.Factors.OverdueCount.Score, 1e-9)
	require.InDelta(t, 75, res.Factors.WorkloadBalance.Score, 1e-9)
	// (70*0.25 + 75*0.15) / 0.40
	require.Equal(t, 72, res.Overall)
}

func TestEvaluateOverduePenaltyFloorsAtZero(t *testing.T) {
	var tasks []TaskFacts
	for i := 0; i < 10; i++ {
		tasks = append(tasks, open(evalAt.Add(-time.Hour), false))
	}
	res := Evaluate(Snapshot{Tasks: tasks}, defaultRubric(), evalAt)
	require.Equal(t, 0.0, res.Factors.OverdueCount.Score)
}

func TestEvaluateBudgetBurn(t *testing.T) {
	cases := []struct {
		burn  float64
		score float64
	}{
		{0.5, 100},
		{0.9, 100},
		{1.0, 75},
		{1.2, 25},
		{2.0, 0},
	}
	for _, tc := range cases {
		snap := Snapshot{
			Tasks:            []TaskFacts{open(evalAt.Add(time.Hour), false)},
			BudgetHours:      ptr(10.0),
			BudgetedEstimate: 10 * tc.burn,
		}
		res := Evaluate(snap, defaultRubric(), evalAt)
		require.True(t, res.Factors.BudgetBurn.Applicable)
		require.InDelta(t, tc.score, res.Factors.BudgetBurn.Score, 1e-9, "burn %v", tc.burn)
	}
}

func TestEvaluateZeroBudgetIsNotApplicable(t *testing.T) {
	snap := Snapshot{Tasks: []TaskFacts{open(evalAt.Add(time.Hour), false)}, BudgetHours: ptr(0.0)}
	res := Evaluate(snap, defaultRubric(), evalAt)
	require.False(t, res.Factors.BudgetBurn.Applicable)
}

func TestEvaluateInvoicesShareBudgetWeight(t *testing.T) {
	snap := Snapshot{
		Tasks:            []TaskFacts{open(evalAt.Add(time.Hour), false)},
		BudgetHours:      ptr(10.0),
		BudgetedEstimate: 5,
		Invoices: []InvoiceFacts{
			{DueDate: evalAt.Add(-time.Hour), Paid: true},
			{DueDate: evalAt.Add(-time.Hour)},
		},
	}

	res := Evaluate(snap, defaultRubric(), evalAt)

	require.InDelta(t, 50, res.Factors.InvoiceHealth.Score, 1e-9)
	require.InDelta(t, 0.10, res.Factors.BudgetBurn.Weight, 1e-9)
	require.InDelta(t, 0.10, res.Factors.InvoiceHealth.Weight, 1e-9)
	// (100*0.25 + 100*0.15 + 100*0.10 + 50*0.10) / 0.60
	require.Equal(t, 92, res.Overall)
}

func TestEvaluateInvoicesWithoutTasks(t *testing.T) {
	snap := Snapshot{Invoices: []InvoiceFacts{
		{DueDate: evalAt.Add(time.Hour)},
		{DueDate: evalAt.Add(-time.Hour)},
	}}
	res := Evaluate(snap, defaultRubric(), evalAt)
	require.Equal(t, 50, res.Overall)
	require.Equal(t, "D", res.Grade)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	snap := Snapshot{Tasks: []TaskFacts{
		done(evalAt.Add(-time.Hour), evalAt.Add(-2*time.Hour)),
		open(evalAt.Add(-time.Hour), true),
	}}
	require.Equal(t, Evaluate(snap, defaultRubric(), evalAt), Evaluate(snap, defaultRubric(), evalAt))
}
