package review

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusInReview   Status = "IN_REVIEW"
	StatusDone       Status = "DONE"

	// Verdicts are requests, never stored statuses.
	VerdictApproved       Status = "APPROVED"
	VerdictRequestChanges Status = "REQUEST_CHANGES"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// ParseStatus normalises s and accepts stored statuses and verdicts.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusTodo, StatusInProgress, StatusInReview, StatusDone, VerdictApproved, VerdictRequestChanges:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// IsStored reports whether s can be persisted on a task.
func (s Status) IsStored() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusInReview, StatusDone:
		return true
	}
	return false
}

type EffectKind string

const (
	EffectNotifyReviewer  EffectKind = "notify_reviewer"
	EffectWriteAudit      EffectKind = "write_audit"
	EffectStampTodoSince  EffectKind = "stamp_todo_since"
	EffectClearTodoSince  EffectKind = "clear_todo_since"
	EffectStampStatusTime EffectKind = "stamp_status_since"
)

// Effect is an instruction the caller executes after persisting the transition.
type Effect struct {
	Kind EffectKind
	// Notification kind for EffectNotifyReviewer.
	Notification string
}

const NotificationReviewRequested = "review_requested"

type Transition struct {
	From    Status
	To      Status
	Effects []Effect
}

// Changed reports whether the stored status moves.
func (t Transition) Changed() bool {
	return t.From != t.To
}

func (t Transition) Has(kind EffectKind) bool {
	for _, e := range t.Effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Decide resolves a requested status against the current one. It performs no
// I/O; the caller persists To and runs Effects.
func Decide(current, requested Status, hasReviewer bool) (Transition, error) {
	if !current.IsStored() {
		return Transition{}, fmt.Errorf("%w: current status %q", ErrInvalidTransition, current)
	}

	var next Status
	var effects []Effect

	switch requested {
	case StatusDone:
		switch {
		case current == StatusDone, !hasReviewer:
			next = StatusDone
		case current == StatusInReview:
			// Already waiting on the reviewer.
			next = StatusInReview
		default:
			next = StatusInReview
			effects = append(effects, Effect{Kind: EffectNotifyReviewer, Notification: NotificationReviewRequested})
		}
	case VerdictApproved:
		if current != StatusInReview {
			return Transition{}, fmt.Errorf("%w: %s requires %s, task is %s", ErrInvalidTransition, requested, StatusInReview, current)
		}
		next = StatusDone
	case VerdictRequestChanges:
		if current != StatusInReview {
			return Transition{}, fmt.Errorf("%w: %s requires %s, task is %s", ErrInvalidTransition, requested, StatusInReview, current)
		}
		next = StatusInProgress
	case StatusTodo, StatusInProgress, StatusInReview:
		next = requested
	default:
		return Transition{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, requested)
	}

	t := Transition{From: current, To: next}
	if !t.Changed() {
		return t, nil
	}

	t.Effects = append(t.Effects, Effect{Kind: EffectWriteAudit}, Effect{Kind: EffectStampStatusTime})
	if next == StatusTodo {
		t.Effects = append(t.Effects, Effect{Kind: EffectStampTodoSince})
	}
	if current == StatusTodo {
		t.Effects = append(t.Effects, Effect{Kind: EffectClearTodoSince})
	}
	t.Effects = append(t.Effects, effects...)

	return t, nil
}
