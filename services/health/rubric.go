package health

import (
	"math"
	"time"

	"studiodesk/pkg/config"
	"studiodesk/services/review"
)

// baseline is the overall score of an entity with nothing to judge yet.
const baseline = 100

type Rubric struct {
	OnTimeWeight   float64
	OverdueWeight  float64
	WorkloadWeight float64
	BudgetWeight   float64
	OverduePenalty float64
}

func RubricFromConfig(cfg *config.Config) Rubric {
	h := cfg.Health
	return Rubric{
		OnTimeWeight:   h.OnTimeWeight,
		OverdueWeight:  h.OverdueWeight,
		WorkloadWeight: h.WorkloadWeight,
		BudgetWeight:   h.BudgetWeight,
		OverduePenalty: h.OverduePenalty,
	}
}

type TaskFacts struct {
	Status          review.Status
	Deadline        time.Time
	CompletedAt     *time.Time
	OwnerID         string
	EstimatedHours  *float64
	OwnerAtCapacity bool
}

type InvoiceFacts struct {
	DueDate time.Time
	Paid    bool
}

// Snapshot is the current state of one project or client.
type Snapshot struct {
	Tasks []TaskFacts
	// BudgetHours is the summed budget of the entity's budgeted projects, nil if none.
	BudgetHours *float64
	// BudgetedEstimate sums estimated hours of tasks in budgeted projects.
	BudgetedEstimate float64
	Invoices         []InvoiceFacts
}

// Factor is one rubric line. Applicable is false when the entity has no data
// for it; such factors are left out and the other weights renormalised.
type Factor struct {
	Applicable bool    `json:"applicable"`
	Value      float64 `json:"value"`
	Score      float64 `json:"score"`
	Weight     float64 `json:"weight"`
}

type Factors struct {
	OnTimeRatio     Factor `json:"on_time_ratio"`
	OverdueCount    Factor `json:"overdue_count"`
	WorkloadBalance Factor `json:"workload_balance"`
	BudgetBurn      Factor `json:"budget_burn"`
	InvoiceHealth   Factor `json:"invoice_health"`
}

type Result struct {
	Overall int     `json:"overall"`
	Grade   string  `json:"grade"`
	Factors Factors `json:"factors"`
}

// Grade maps an overall score to a letter.
func Grade(overall int) string {
	switch {
	case overall >= 90:
		return "A"
	case overall >= 75:
		return "B"
	case overall >= 60:
		return "C"
	case overall >= 40:
		return "D"
	default:
		return "F"
	}
}

// Evaluate folds a snapshot into an overall score. It is pure and is always
// recomputed from the whole snapshot.
func Evaluate(s Snapshot, r Rubric, now time.Time) Result {
	var f Factors
	var done, onTime, open, overdue, busy int

	for _, t := range s.Tasks {
		if t.Status == review.StatusDone {
			done++
			if t.CompletedAt == nil || !t.CompletedAt.After(t.Deadline) {
				onTime++
			}
			continue
		}
		open++
		if now.After(t.Deadline) {
			overdue++
		}
		if t.OwnerAtCapacity {
			busy++
		}
	}

	if done > 0 {
		ratio := float64(onTime) / float64(done)
		f.OnTimeRatio = Factor{Applicable: true, Value: ratio, Score: 100 * ratio, Weight: r.OnTimeWeight}
	}
	if len(s.Tasks) > 0 {
		f.OverdueCount = Factor{
			Applicable: true,
			Value:      float64(overdue),
			Score:      math.Max(0, 100-r.OverduePenalty*float64(overdue)),
			Weight:     r.OverdueWeight,
		}
	}
	if open > 0 {
		share := float64(busy) / float64(open)
		f.WorkloadBalance = Factor{Applicable: true, Value: share, Score: 100 * (1 - share), Weight: r.WorkloadWeight}
	}
	if s.BudgetHours != nil && *s.BudgetHours > 0 {
		burn := s.BudgetedEstimate / *s.BudgetHours
		f.BudgetBurn = Factor{Applicable: true, Value: burn, Score: burnScore(burn), Weight: r.BudgetWeight}
	}
	if len(s.Invoices) > 0 {
		late := 0
		for _, inv := range s.Invoices {
			if !inv.Paid && now.After(inv.DueDate) {
				late++
			}
		}
		share := float64(late) / float64(len(s.Invoices))
		f.InvoiceHealth = Factor{Applicable: true, Value: share, Score: 100 * (1 - share), Weight: r.BudgetWeight}
	}
	// Budget and invoices share the budget weight when both apply.
	if f.BudgetBurn.Applicable && f.InvoiceHealth.Applicable {
		f.BudgetBurn.Weight /= 2
		f.InvoiceHealth.Weight /= 2
	}

	var sum, weights float64
	for _, factor := range []Factor{f.OnTimeRatio, f.OverdueCount, f.WorkloadBalance, f.BudgetBurn, f.InvoiceHealth} {
		if !factor.Applicable || factor.Weight <= 0 {
			continue
		}
		sum += factor.Score * factor.Weight
		weights += factor.Weight
	}

	overall := baseline
	if weights > 0 {
		overall = int(math.Round(math.Min(100, math.Max(0, sum/weights))))
	}

	return Result{Overall: overall, Grade: Grade(overall), Factors: f}
}

// burnScore is full marks up to 90% of budget and reaches zero at 130%.
func burnScore(burn float64) float64 {
	if burn <= 0.9 {
		return 100
	}
	return math.Max(0, 100-(burn-0.9)*250)
}
