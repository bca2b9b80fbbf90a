package scoring

import (
	"context"
	"encoding/json"
	"time"

	"studiodesk/pkg/celengine"
	"studiodesk/pkg/config"
	"studiodesk/pkg/errutil"
	"studiodesk/pkg/featureflags"
	"studiodesk/pkg/workcal"
	"studiodesk/services/task"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Report summarises one recalculation pass.
type Report struct {
	Total    int           `json:"total"`
	Scored   int           `json:"scored"`
	Failed   int           `json:"failed"`
	Frozen   int           `json:"frozen"`
	Duration time.Duration `json:"duration"`
}

type Service struct {
	repo      task.Repository
	calendar  *workcal.Calendar
	weights   Weights
	qualifier Qualifier
	flags     featureflags.FeatureFlag
	now       func() time.Time
}

type Params struct {
	fx.In
	Config     *config.Config
	Repository task.Repository
	Calendar   *workcal.Calendar
	Qualifier  Qualifier                `optional:"true"`
	Flags      featureflags.FeatureFlag `optional:"true"`
	Clock      func() time.Time         `optional:"true"`
}

func NewService(p Params) *Service {
	q := p.Qualifier
	if q == nil {
		q = NewQualifier(p.Config)
	}
	now := p.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      p.Repository,
		calendar:  p.Calendar,
		weights:   WeightsFromConfig(p.Config),
		qualifier: q,
		flags:     p.Flags,
		now:       now,
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

// RecalculateAll rescores every live task. Each task depends only on its own
// row and the current instant, so overlapping runs converge without locking.
// A failed write is logged and counted; it never stops the pass.
func (s *Service) RecalculateAll(ctx context.Context) (Report, error) {
	start := time.Now()
	now := s.now()

	tasks, err := s.repo.ListLive(ctx)
	if err != nil {
		recalcRuns.WithLabelValues("error").Inc()
		logger(ctx).Error("failed to load live tasks", zap.Error(err))
		return Report{}, errutil.Internal("failed to load tasks", err)
	}

	owners, err := s.owners(ctx, tasks)
	if err != nil {
		recalcRuns.WithLabelValues("error").Inc()
		logger(ctx).Error("failed to load task owners", zap.Error(err))
		return Report{}, errutil.Internal("failed to load owners", err)
	}

	env := s.passFlags(ctx)
	report := Report{Total: len(tasks)}
	for i := range tasks {
		t := &tasks[i]
		b, err := s.apply(ctx, t, owners[t.OwnerID].AtCapacity, env, now)
		if err != nil {
			report.Failed++
			tasksScored.WithLabelValues("failed").Inc()
			logger(ctx).Warn("failed to persist task score", zap.String("task_id", t.ID), zap.Error(err))
			continue
		}
		report.Scored++
		if b.Frozen {
			report.Frozen++
		}
		tasksScored.WithLabelValues("scored").Inc()
	}

	report.Duration = time.Since(start)
	recalcDuration.Observe(report.Duration.Seconds())
	outcome := "success"
	if report.Failed > 0 {
		outcome = "partial"
	}
	recalcRuns.WithLabelValues(outcome).Inc()

	logger(ctx).Info("recalculation finished",
		zap.Int("total", report.Total),
		zap.Int("scored", report.Scored),
		zap.Int("failed", report.Failed),
		zap.Int("frozen", report.Frozen),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// RecalculateTask rescores one task and waits for the write.
func (s *Service) RecalculateTask(ctx context.Context, id string) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	atCapacity := false
	owner, err := s.repo.GetUser(ctx, t.OwnerID)
	if err == nil {
		atCapacity = owner.AtCapacity
	} else {
		logger(ctx).Warn("owner lookup failed, scoring without capacity penalty", zap.String("task_id", id), zap.Error(err))
	}

	now := s.now()
	if _, err := s.apply(ctx, t, atCapacity, s.passFlags(ctx), now); err != nil {
		tasksScored.WithLabelValues("failed").Inc()
		return err
	}
	tasksScored.WithLabelValues("scored").Inc()
	return nil
}

// Evaluate computes a breakdown without persisting it.
func (s *Service) Evaluate(ctx context.Context, t *task.Task, ownerAtCapacity bool, now time.Time) Breakdown {
	return s.evaluate(t, ownerAtCapacity, s.passFlags(ctx), now)
}

// HandleRecalculateAllTask is the asynq entry point for background rescoring.
func (s *Service) HandleRecalculateAllTask(ctx context.Context, _ *asynq.Task) error {
	_, err := s.RecalculateAll(ctx)
	return err
}

// environment holds the per-pass switches read once before scoring.
type environment struct {
	boostEnabled  bool
	freezeEnabled bool
}

func (s *Service) passFlags(ctx context.Context) environment {
	env := environment{boostEnabled: true, freezeEnabled: true}
	if s.flags != nil {
		env.boostEnabled = s.flags.Enabled(ctx, featureflags.BoostWindow, true)
		env.freezeEnabled = s.flags.Enabled(ctx, featureflags.FreezeWindow, true)
	}
	return env
}

func (s *Service) evaluate(t *task.Task, ownerAtCapacity bool, env environment, now time.Time) Breakdown {
	in := Input{
		Type:            string(t.Type),
		Priority:        string(t.Priority),
		Status:          t.Status,
		Emergency:       t.Emergency,
		OwnerAtCapacity: ownerAtCapacity,
		AgingAnchor:     t.AgingAnchor(),
		Frozen:          t.IsFrozen,
	}
	if t.ScoredAt != nil {
		prev := t.DisplayScore
		in.PreviousDisplay = &prev
	}

	cal := CalendarContext{}
	if s.calendar != nil {
		if env.freezeEnabled && s.calendar.IsInWeeklyFreezeWindow(now) {
			in.Frozen = true
		}
		if now.After(t.Deadline) {
			cal.Overdue = true
			cal.OverdueWorkingHours = s.calendar.WorkingHoursBetween(t.Deadline, now)
		} else {
			cal.RemainingWorkingHours = s.calendar.WorkingHoursBetween(now, t.Deadline)
		}
		cal.InBoostWindow = env.boostEnabled && s.calendar.IsInBoostWindow(now)
	}
	if cal.InBoostWindow && s.qualifier != nil {
		in.QualifiesForBoost = s.qualifier.Qualifies(celengine.StructToMap(t))
	}

	return Score(in, cal, s.weights, now)
}

func (s *Service) apply(ctx context.Context, t *task.Task, ownerAtCapacity bool, env environment, now time.Time) (Breakdown, error) {
	b := s.evaluate(t, ownerAtCapacity, env, now)

	body, err := json.Marshal(b)
	if err != nil {
		return b, err
	}

	return b, s.repo.UpdateScore(ctx, t.ID, task.ScoreUpdate{
		RawScore:     b.RawScore,
		DisplayScore: b.DisplayScore,
		Breakdown:    body,
		ScoredAt:     now,
	})
}

func (s *Service) owners(ctx context.Context, tasks []task.Task) (map[string]task.User, error) {
	seen := make(map[string]struct{}, len(tasks))
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := seen[t.OwnerID]; ok {
			continue
		}
		seen[t.OwnerID] = struct{}{}
		ids = append(ids, t.OwnerID)
	}
	return s.repo.GetUsers(ctx, ids)
}

// Weights exposes the active tuning constants.
func (s *Service) Weights() Weights {
	return s.weights
}
