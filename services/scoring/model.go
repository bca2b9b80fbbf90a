package scoring

import (
	"math"
	"time"

	"studiodesk/services/review"
)

// Input is everything the score model reads about one task.
type Input struct {
	Type            string
	Priority        string
	Status          review.Status
	Emergency       bool
	OwnerAtCapacity bool
	// AgingAnchor is todoSince while TODO, otherwise when the status last changed.
	AgingAnchor time.Time
	Frozen      bool
	// PreviousDisplay is nil when the task has never been scored.
	PreviousDisplay *float64
	// QualifiesForBoost marks the category that earns the weekly boost.
	QualifiesForBoost bool
}

// CalendarContext carries the time-of-week facts for one evaluation instant.
type CalendarContext struct {
	RemainingWorkingHours float64
	Overdue               bool
	OverdueWorkingHours   float64
	InBoostWindow         bool
}

type Boosts struct {
	InReview  float64 `json:"in_review"`
	Emergency float64 `json:"emergency"`
	SundayRD  float64 `json:"sunday_rd"`
}

func (b Boosts) Total() float64 {
	return b.InReview + b.Emergency + b.SundayRD
}

type Breakdown struct {
	BaseWeight            float64   `json:"base_weight"`
	UserPriority          float64   `json:"user_priority"`
	Aging                 float64   `json:"aging"`
	UrgencyMultiplier     float64   `json:"urgency_multiplier"`
	Subtotal              float64   `json:"subtotal"`
	Boosts                Boosts    `json:"boosts"`
	CapacityPenalty       float64   `json:"capacity_penalty"`
	RawScore              float64   `json:"raw_score"`
	DisplayScore          float64   `json:"display_score"`
	Frozen                bool      `json:"frozen"`
	RemainingWorkingHours float64   `json:"remaining_working_hours"`
	OverdueWorkingHours   float64   `json:"overdue_working_hours"`
	EvaluatedAt           time.Time `json:"evaluated_at"`
}

// Score is deterministic: identical arguments always give the identical breakdown.
func Score(in Input, cal CalendarContext, w Weights, now time.Time) Breakdown {
	b := Breakdown{
		BaseWeight:            w.TypeWeights[in.Type] * priorityFactor(w, in.Priority),
		UserPriority:          w.UserPriority[in.Priority],
		Aging:                 aging(w, in.AgingAnchor, now),
		UrgencyMultiplier:     urgency(w, cal),
		Frozen:                in.Frozen,
		RemainingWorkingHours: cal.RemainingWorkingHours,
		OverdueWorkingHours:   cal.OverdueWorkingHours,
		EvaluatedAt:           now,
	}
	b.Subtotal = (b.BaseWeight + b.UserPriority + b.Aging) * b.UrgencyMultiplier

	if in.Status == review.StatusInReview {
		b.Boosts.InReview = w.InReviewBoost
	}
	if in.Emergency {
		b.Boosts.Emergency = w.EmergencyBoost
	}
	if cal.InBoostWindow && in.QualifiesForBoost {
		b.Boosts.SundayRD = w.BoostWindowBonus
	}
	if in.OwnerAtCapacity && in.Type == "ADMIN" {
		b.CapacityPenalty = w.CapacityPenalty
	}

	b.RawScore = b.Subtotal + b.Boosts.Total() - b.CapacityPenalty
	b.DisplayScore = clamp(b.RawScore, w.DisplayFloor, w.DisplayCeiling)
	if in.Frozen && in.PreviousDisplay != nil {
		b.DisplayScore = *in.PreviousDisplay
	}
	return b
}

// An unknown priority leaves the base weight unscaled.
func priorityFactor(w Weights, priority string) float64 {
	if f, ok := w.PriorityFactors[priority]; ok {
		return f
	}
	return 1
}

// aging grows logarithmically with days spent in the current waiting state.
func aging(w Weights, anchor, now time.Time) float64 {
	if anchor.IsZero() || !now.After(anchor) {
		return 0
	}
	days := now.Sub(anchor).Hours() / 24
	return w.AgingScale * math.Log1p(days)
}

// urgency is 1 + scale/(h + horizon) for h remaining working hours. Past the
// deadline it adds a fixed step plus a per-overdue-hour slope, so an overdue
// task always outranks an on-time one with the same base.
func urgency(w Weights, cal CalendarContext) float64 {
	if cal.Overdue {
		return 1 + w.UrgencyScale/w.UrgencyHorizon + w.OverdueStep + w.OverduePerHour*math.Max(0, cal.OverdueWorkingHours)
	}
	h := math.Max(0, cal.RemainingWorkingHours)
	return 1 + w.UrgencyScale/(h+w.UrgencyHorizon)
}

// A non-positive hi leaves the upper end open.
func clamp(v, lo, hi float64) float64 {
	v = math.Max(v, lo)
	if hi > 0 {
		v = math.Min(v, hi)
	}
	return v
}
