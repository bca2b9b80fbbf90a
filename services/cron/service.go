package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studiodesk/pkg/asynq"
	"studiodesk/pkg/errutil"
	"studiodesk/pkg/freeze"
	queue "studiodesk/pkg/task"
	"studiodesk/pkg/taskname"
	"studiodesk/services/task"

	"github.com/bwmarrin/snowflake"
	hibiken "github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// jobs maps background task types to the job name recorded for their runs.
var jobs = map[string]string{
	taskname.ScoringRecalculateAll: JobRecalculate,
	taskname.HealthSweep:           JobHealthSweep,
}

type Service struct {
	repo     Repository
	node     *snowflake.Node
	tasks    task.Repository
	freeze   freeze.Store
	enqueuer queue.Enqueuer
	now      func() time.Time
}

type Params struct {
	fx.In
	Repository Repository
	Node       *snowflake.Node
	Tasks      task.Repository
	Freeze     freeze.Store
	Enqueuer   queue.Enqueuer   `optional:"true"`
	Clock      func() time.Time `optional:"true"`
}

func NewService(p Params) *Service {
	now := p.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     p.Repository,
		node:     p.Node,
		tasks:    p.Tasks,
		freeze:   p.Freeze,
		enqueuer: p.Enqueuer,
		now:      now,
	}
}

func logger(ctx context.Context) *zap.Logger {
	span := trace.SpanContextFromContext(ctx)
	if !span.IsValid() {
		return zap.L()
	}
	return zap.L().With(
		zap.String("trace_id", span.TraceID().String()),
		zap.String("span_id", span.SpanID().String()),
	)
}

// Enqueue records a pending run and hands the job to the worker. The run id
// doubles as the asynq task id so the worker updates the same record.
func (s *Service) Enqueue(ctx context.Context, job string) (*JobRun, error) {
	var taskType, queueName string
	switch job {
	case JobRecalculate:
		taskType, queueName = taskname.ScoringRecalculateAll, asynq.QueueDefault
	case JobHealthSweep:
		taskType, queueName = taskname.HealthSweep, asynq.QueueLow
	default:
		return nil, errutil.BadRequest(fmt.Sprintf("unknown job %q", job), nil)
	}

	run := &JobRun{
		ID:      s.node.Generate().String(),
		Job:     job,
		Trigger: TriggerHTTP,
		Status:  StatusPending,
	}
	if err := s.repo.Create(ctx, run); err != nil {
		return nil, errutil.Internal("failed to record job run", err)
	}

	ok := queue.Submit(ctx, s.enqueuer, taskType, nil,
		hibiken.Queue(queueName),
		hibiken.MaxRetry(3),
		hibiken.TaskID(run.ID),
	)
	if !ok {
		_ = s.repo.Finish(ctx, run.ID, StatusFailed, "enqueue failed", nil, s.now())
		return nil, errutil.Internal("failed to enqueue job", nil)
	}

	logger(ctx).Info("enqueued scheduled job", zap.String("job", job), zap.String("job_id", run.ID))
	return run, nil
}

// SetFreeze flips the global freeze flag and stamps every live task with it.
// Lifting the freeze triggers a full recalculation.
func (s *Service) SetFreeze(ctx context.Context, frozen bool, trigger string) (*JobRun, error) {
	started := s.now()
	run := &JobRun{
		ID:        s.node.Generate().String(),
		Job:       JobFreeze,
		Trigger:   trigger,
		Status:    StatusRunning,
		StartedAt: &started,
	}
	if err := s.repo.Create(ctx, run); err != nil {
		return nil, errutil.Internal("failed to record job run", err)
	}

	meta, err := s.applyFreeze(ctx, frozen)
	body, _ := json.Marshal(meta)
	completed := s.now()
	run.CompletedAt = &completed
	run.Metadata = body
	if err != nil {
		run.Status, run.ErrorMsg = StatusFailed, err.Error()
		_ = s.repo.Finish(ctx, run.ID, run.Status, run.ErrorMsg, body, completed)
		logger(ctx).Error("freeze toggle failed", zap.Bool("frozen", frozen), zap.Error(err))
		return nil, errutil.Internal("failed to toggle freeze", err)
	}

	run.Status = StatusSuccess
	if err := s.repo.Finish(ctx, run.ID, run.Status, "", body, completed); err != nil {
		logger(ctx).Warn("failed to finish job run", zap.String("job_id", run.ID), zap.Error(err))
	}
	logger(ctx).Info("freeze toggled",
		zap.Bool("frozen", frozen),
		zap.Int64("tasks", meta.Tasks),
		zap.String("trigger", trigger),
	)
	return run, nil
}

type freezeMetadata struct {
	Frozen        bool  `json:"frozen"`
	Tasks         int64 `json:"tasks"`
	Recalculation bool  `json:"recalculation"`
}

func (s *Service) applyFreeze(ctx context.Context, frozen bool) (freezeMetadata, error) {
	meta := freezeMetadata{Frozen: frozen}
	if s.freeze == nil {
		return meta, errors.New("no freeze store configured")
	}
	if err := s.freeze.SetFrozen(ctx, frozen); err != nil {
		return meta, err
	}

	n, err := s.tasks.SetFrozenForLive(ctx, frozen)
	if err != nil {
		return meta, err
	}
	meta.Tasks = n

	if !frozen {
		meta.Recalculation = queue.Submit(ctx, s.enqueuer, taskname.ScoringRecalculateAll, nil,
			hibiken.Queue(asynq.QueueDefault),
			hibiken.MaxRetry(3),
		)
	}
	return meta, nil
}

func (s *Service) Frozen(ctx context.Context) (bool, error) {
	if s.freeze == nil {
		return false, nil
	}
	frozen, err := s.freeze.IsFrozen(ctx)
	if err != nil {
		return false, errutil.Internal("failed to read freeze flag", err)
	}
	return frozen, nil
}

func (s *Service) Runs(ctx context.Context, job string, limit int) ([]JobRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	runs, err := s.repo.ListRecent(ctx, job, limit)
	if err != nil {
		return nil, errutil.Internal("failed to list job runs", err)
	}
	return runs, nil
}

// HandleFreezeSyncTask applies a freeze edge emitted by the weekly loop.
func (s *Service) HandleFreezeSyncTask(ctx context.Context, t *hibiken.Task) error {
	var p FreezePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode freeze payload: %v: %w", err, hibiken.SkipRetry)
	}
	_, err := s.SetFreeze(ctx, p.Frozen, TriggerSchedule)
	return err
}

// RecordRuns keeps a JobRun for every execution of a tracked task type.
func (s *Service) RecordRuns(next hibiken.Handler) hibiken.Handler {
	return hibiken.HandlerFunc(func(ctx context.Context, t *hibiken.Task) error {
		job, ok := jobs[t.Type()]
		if !ok {
			return next.ProcessTask(ctx, t)
		}

		id, _ := hibiken.GetTaskID(ctx)
		if id == "" {
			id = s.node.Generate().String()
		}
		started := s.now()
		if err := s.repo.Start(ctx, &JobRun{
			ID:        id,
			Job:       job,
			Trigger:   TriggerSchedule,
			Status:    StatusRunning,
			StartedAt: &started,
		}); err != nil {
			logger(ctx).Warn("failed to record job start", zap.String("job", job), zap.Error(err))
		}

		err := next.ProcessTask(ctx, t)

		status, msg := StatusSuccess, ""
		if err != nil {
			status, msg = StatusFailed, err.Error()
		}
		if ferr := s.repo.Finish(ctx, id, status, msg, nil, s.now()); ferr != nil {
			logger(ctx).Warn("failed to record job finish", zap.String("job", job), zap.Error(ferr))
		}
		return err
	})
}
