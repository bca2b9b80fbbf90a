package taskname

const (
	// Scoring tasks
	ScoringRecalculateAll = "scoring:recalculate:all"
	ScoringFreezeSync     = "scoring:freeze:sync"

	// Health tasks
	HealthSweep = "health:sweep"

	// Calendar sync tasks
	CalendarSyncTask = "calendar:sync:task"

	// Notification tasks
	NotifyDeliver = "notify:deliver"
)
