package review

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecideTransitionTable(t *testing.T) {
	tests := []struct {
		name      string
		current   Status
		requested Status
		reviewer  bool
		next      Status
		notify    bool
	}{
		{"done with reviewer routes to review", StatusInProgress, StatusDone, true, StatusInReview, true},
		{"done from todo with reviewer", StatusTodo, StatusDone, true, StatusInReview, true},
		{"done without reviewer closes", StatusInProgress, StatusDone, false, StatusDone, false},
		{"approved closes", StatusInReview, VerdictApproved, false, StatusDone, false},
		{"request changes reopens", StatusInReview, VerdictRequestChanges, true, StatusInProgress, false},
		{"direct todo", StatusInProgress, StatusTodo, false, StatusTodo, false},
		{"direct in progress", StatusTodo, StatusInProgress, true, StatusInProgress, false},
		{"direct in review", StatusInProgress, StatusInReview, false, StatusInReview, false},
		{"reopen done", StatusDone, StatusTodo, false, StatusTodo, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := Decide(tt.current, tt.requested, tt.reviewer)
			require.NoError(t, err)
			require.Equal(t, tt.current, tr.From)
			require.Equal(t, tt.next, tr.To)
			require.Equal(t, tt.notify, tr.Has(EffectNotifyReviewer))
			require.True(t, tr.Has(EffectWriteAudit))
		})
	}
}

func TestDecideReviewerNotifiedOnce(t *testing.T) {
	tr, err := Decide(StatusInProgress, StatusDone, true)
	require.NoError(t, err)

	var notifications int
	for _, e := range tr.Effects {
		if e.Kind == EffectNotifyReviewer {
			notifications++
			require.Equal(t, NotificationReviewRequested, e.Notification)
		}
	}
	require.Equal(t, 1, notifications)
}

func TestDecideDoneWhileInReviewIsNoop(t *testing.T) {
	tr, err := Decide(StatusInReview, StatusDone, true)
	require.NoError(t, err)
	require.False(t, tr.Changed())
	require.Empty(t, tr.Effects)
}

func TestDecideDoneWhenAlreadyDoneIsNoop(t *testing.T) {
	for _, reviewer := range []bool{true, false} {
		tr, err := Decide(StatusDone, StatusDone, reviewer)
		require.NoError(t, err)
		require.Equal(t, StatusDone, tr.To)
		require.False(t, tr.Changed())
		require.Empty(t, tr.Effects)
	}
}

func TestDecideSameStatusIsNoop(t *testing.T) {
	tr, err := Decide(StatusTodo, StatusTodo, false)
	require.NoError(t, err)
	require.False(t, tr.Changed())
	require.False(t, tr.Has(EffectStampTodoSince))
	require.False(t, tr.Has(EffectClearTodoSince))
}

func TestDecideVerdictOutsideReview(t *testing.T) {
	for _, current := range []Status{StatusTodo, StatusInProgress, StatusDone} {
		_, err := Decide(current, VerdictApproved, true)
		require.ErrorIs(t, err, ErrInvalidTransition)

		_, err = Decide(current, VerdictRequestChanges, true)
		require.ErrorIs(t, err, ErrInvalidTransition)
	}
}

func TestDecideUnknownStatus(t *testing.T) {
	_, err := Decide(StatusTodo, Status("ARCHIVED"), false)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Decide(VerdictApproved, StatusTodo, false)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTodoSinceCycle(t *testing.T) {
	out, err := Decide(StatusTodo, StatusInProgress, false)
	require.NoError(t, err)
	require.True(t, out.Has(EffectClearTodoSince))
	require.False(t, out.Has(EffectStampTodoSince))

	back, err := Decide(out.To, StatusTodo, false)
	require.NoError(t, err)
	require.True(t, back.Has(EffectStampTodoSince))
	require.False(t, back.Has(EffectClearTodoSince))
}

func TestRequestChangesFromReviewDoesNotTouchTodoSince(t *testing.T) {
	tr, err := Decide(StatusInReview, VerdictRequestChanges, true)
	require.NoError(t, err)
	require.False(t, tr.Has(EffectStampTodoSince))
	require.False(t, tr.Has(EffectClearTodoSince))
	require.True(t, tr.Has(EffectStampStatusTime))
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" approved ")
	require.NoError(t, err)
	require.Equal(t, VerdictApproved, s)
	require.False(t, s.IsStored())

	_, err = ParseStatus("blocked")
	require.Error(t, err)
}
