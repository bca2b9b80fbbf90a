package asynq

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)
