package scoring

import (
	"strings"

	"studiodesk/pkg/config"
)

// Weights are the tuning constants of the score model. Every value comes from
// the SCORING config section.
type Weights struct {
	TypeWeights      map[string]float64 `json:"type_weights"`
	PriorityFactors  map[string]float64 `json:"priority_factors"`
	UserPriority     map[string]float64 `json:"user_priority"`
	AgingScale       float64            `json:"aging_scale"`
	UrgencyScale     float64            `json:"urgency_scale"`
	UrgencyHorizon   float64            `json:"urgency_horizon"`
	OverdueStep      float64            `json:"overdue_step"`
	OverduePerHour   float64            `json:"overdue_per_hour"`
	InReviewBoost    float64            `json:"in_review_boost"`
	EmergencyBoost   float64            `json:"emergency_boost"`
	BoostWindowBonus float64            `json:"boost_window_bonus"`
	CapacityPenalty  float64            `json:"capacity_penalty"`
	DisplayFloor     float64            `json:"display_floor"`
	// DisplayCeiling <= 0 means no upper clamp.
	DisplayCeiling float64 `json:"display_ceiling"`
}

func WeightsFromConfig(cfg *config.Config) Weights {
	s := cfg.Scoring
	w := Weights{
		TypeWeights:      upperKeys(s.TypeWeights),
		PriorityFactors:  upperKeys(s.PriorityFactors),
		UserPriority:     upperKeys(s.UserPriority),
		AgingScale:       s.AgingScale,
		UrgencyScale:     s.UrgencyScale,
		UrgencyHorizon:   s.UrgencyHorizon,
		OverdueStep:      s.OverdueStep,
		OverduePerHour:   s.OverduePerHour,
		InReviewBoost:    s.InReviewBoost,
		EmergencyBoost:   s.EmergencyBoost,
		BoostWindowBonus: s.BoostWindowBonus,
		CapacityPenalty:  s.CapacityPenalty,
		DisplayFloor:     s.DisplayFloor,
		DisplayCeiling:   s.DisplayCeiling,
	}
	// A zero horizon would divide by zero at the deadline.
	if w.UrgencyHorizon <= 0 {
		w.UrgencyHorizon = 1
	}
	if w.DisplayCeiling > 0 && w.DisplayCeiling < w.DisplayFloor {
		w.DisplayCeiling = w.DisplayFloor
	}
	return w
}

// viper lowercases map keys.
func upperKeys(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[strings.ToUpper(k)] = v
	}
	return out
}
