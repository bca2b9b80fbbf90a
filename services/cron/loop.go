package cron

import (
	"context"
	"time"

	"studiodesk/pkg/asynq"
	"studiodesk/pkg/featureflags"
	"studiodesk/pkg/freeze"
	queue "studiodesk/pkg/task"
	"studiodesk/pkg/taskname"
	"studiodesk/pkg/workcal"

	hibiken "github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// FreezeLoop emits a freeze sync task at every edge of the weekly freeze
// window. Edge task ids are derived from the edge instant, so several
// workers running the loop enqueue each edge once.
type FreezeLoop struct {
	calendar *workcal.Calendar
	store    freeze.Store
	flags    featureflags.FeatureFlag
	enqueuer queue.Enqueuer
	now      func() time.Time
}

type LoopParams struct {
	fx.In
	Calendar *workcal.Calendar
	Freeze   freeze.Store
	Enqueuer queue.Enqueuer
	Flags    featureflags.FeatureFlag `optional:"true"`
	Clock    func() time.Time         `optional:"true"`
}

func NewFreezeLoop(p LoopParams) *FreezeLoop {
	now := p.Clock
	if now == nil {
		now = time.Now
	}
	return &FreezeLoop{
		calendar: p.Calendar,
		store:    p.Freeze,
		flags:    p.Flags,
		enqueuer: p.Enqueuer,
		now:      now,
	}
}

// StartFreezeLoop runs the loop for the lifetime of the fx app.
func StartFreezeLoop(lc fx.Lifecycle, l *FreezeLoop) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go l.run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func (l *FreezeLoop) run(ctx context.Context) {
	zap.L().Info("[FreezeLoop] started")
	l.reconcile(ctx)

	for {
		now := l.now()
		at, opening, ok := l.calendar.NextFreezeEdge(now)
		if !ok {
			zap.L().Warn("[FreezeLoop] no freeze window configured, stopping")
			return
		}

		wait := at.Sub(now)
		zap.L().Info("[FreezeLoop] next edge scheduled",
			zap.Time("next_edge", at),
			zap.Bool("opening", opening),
			zap.Duration("sleep_for", wait),
		)
		select {
		case <-time.After(wait):
			l.fire(ctx, at, opening)
		case <-ctx.Done():
			zap.L().Warn("[FreezeLoop] stopped")
			return
		}
	}
}

// reconcile freezes on startup when the process came up inside the window.
// A flag set outside the window is left alone since it may be a manual freeze.
func (l *FreezeLoop) reconcile(ctx context.Context) bool {
	now := l.now()
	if !l.calendar.IsInWeeklyFreezeWindow(now) || freeze.Current(ctx, l.store) {
		return false
	}
	zap.L().Info("[FreezeLoop] inside freeze window with flag unset, freezing")
	return l.fire(ctx, now.Truncate(time.Minute), true)
}

func (l *FreezeLoop) fire(ctx context.Context, at time.Time, opening bool) bool {
	if l.flags != nil && !l.flags.Enabled(ctx, featureflags.FreezeWindow, true) {
		zap.L().Info("[FreezeLoop] freeze window disabled by feature flag, skipping edge", zap.Time("edge", at))
		return false
	}
	return queue.Submit(ctx, l.enqueuer, taskname.ScoringFreezeSync, FreezePayload{Frozen: opening},
		hibiken.Queue(asynq.QueueCritical),
		hibiken.MaxRetry(5),
		hibiken.TaskID(edgeTaskID(at, opening)),
	)
}

func edgeTaskID(at time.Time, opening bool) string {
	kind := "close"
	if opening {
		kind = "open"
	}
	return "freeze:" + kind + ":" + at.UTC().Format(time.RFC3339)
}
