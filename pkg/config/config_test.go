package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func lookup(m map[string]float64, key string) float64 {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return -1
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.Equal(t, "studiodesk", cfg.AppName)
	require.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	require.Len(t, cfg.WorkCalendar.WorkDays, 5)
	require.Equal(t, "09:00", cfg.WorkCalendar.DayStart)
	require.Equal(t, "MON", cfg.WorkCalendar.Freeze.StartDay)
	require.Equal(t, 500.0, cfg.Scoring.EmergencyBoost)
	require.Equal(t, 40.0, lookup(cfg.Scoring.TypeWeights, "CLIENT"))
	require.Equal(t, 2.0, lookup(cfg.Scoring.PriorityFactors, "URGENT_IMPORTANT"))
	require.Equal(t, 4, cfg.Health.SweepConcurrency)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SCORING_EMERGENCY_BOOST", "750")
	t.Setenv("SCHEDULER_SECRET", "s3cret")
	t.Setenv("WORK_CALENDAR_TIMEZONE", "Europe/London")

	cfg, err := LoadConfig(Params{})
	require.NoError(t, err)
	require.Equal(t, 750.0, cfg.Scoring.EmergencyBoost)
	require.Equal(t, "s3cret", cfg.Scheduler.Secret)
	require.Equal(t, "Europe/London", cfg.WorkCalendar.Timezone)
	require.Equal(t, 30.0, cfg.Scoring.CapacityPenalty)
}
