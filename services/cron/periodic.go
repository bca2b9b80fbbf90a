package cron

import (
	"studiodesk/pkg/asynq"
	"studiodesk/pkg/config"
	"studiodesk/pkg/taskname"

	hibiken "github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Scheduler is the part of asynq.Scheduler used to register cadences.
type Scheduler interface {
	Register(cronspec string, task *hibiken.Task, opts ...hibiken.Option) (string, error)
}

// RegisterPeriodic schedules the recurring recalculation and health sweep.
func RegisterPeriodic(s Scheduler, cfg *config.Config) error {
	entries := []struct {
		spec  string
		task  string
		queue string
	}{
		{cfg.Scheduler.RecalculateSpec, taskname.ScoringRecalculateAll, asynq.QueueDefault},
		{cfg.Scheduler.HealthSweepSpec, taskname.HealthSweep, asynq.QueueLow},
	}

	for _, e := range entries {
		if e.spec == "" {
			zap.L().Info("[Periodic] no cron spec configured, skipping", zap.String("task_type", e.task))
			continue
		}
		id, err := s.Register(e.spec, hibiken.NewTask(e.task, nil), hibiken.Queue(e.queue), hibiken.MaxRetry(3))
		if err != nil {
			return err
		}
		zap.L().Info("[Periodic] registered",
			zap.String("task_type", e.task),
			zap.String("spec", e.spec),
			zap.String("entry_id", id),
		)
	}
	return nil
}
