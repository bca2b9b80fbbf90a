package cron

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"studiodesk/pkg/config"
	"studiodesk/pkg/featureflags"
	"studiodesk/pkg/freeze"
	"studiodesk/pkg/taskname"
	"studiodesk/pkg/workcal"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func newLoop(t *testing.T, at time.Time, store freeze.Store, flags featureflags.FeatureFlag) (*FreezeLoop, *fakeEnqueuer) {
	t.Helper()
	cal, err := workcal.New(config.Default().WorkCalendar)
	require.NoError(t, err)

	enq := &fakeEnqueuer{}
	return NewFreezeLoop(LoopParams{
		Calendar: cal,
		Freeze:   store,
		Enqueuer: enq,
		Flags:    flags,
		Clock:    func() time.Time { return at },
	}), enq
}

// Monday 10:15, inside the default 09:00-12:00 freeze window.
var inWindow = time.Date(2026, time.October, 12, 10, 15, 0, 0, time.UTC)

func TestReconcileFreezesInsideWindow(t *testing.T) {
	l, enq := newLoop(t, inWindow, &freeze.MemoryStore{}, nil)

	require.True(t, l.reconcile(context.Background()))
	require.Len(t, enq.items, 1)

	item := enq.items[0]
	require.Equal(t, taskname.ScoringFreezeSync, item.task.Type())
	require.Equal(t, "critical", item.opts[asynq.QueueOpt])
	require.Equal(t, "freeze:open:2026-10-12T10:15:00Z", item.opts[asynq.TaskIDOpt])

	var p FreezePayload
	require.NoError(t, json.Unmarshal(item.task.Payload(), &p))
	require.True(t, p.Frozen)
}

func TestReconcileLeavesFlagAlone(t *testing.T) {
	frozen := &freeze.MemoryStore{}
	require.NoError(t, frozen.SetFrozen(context.Background(), true))

	l, enq := newLoop(t, inWindow, frozen, nil)
	require.False(t, l.reconcile(context.Background()))

	l, enq2 := newLoop(t, now, &freeze.MemoryStore{}, nil)
	require.False(t, l.reconcile(context.Background()))

	require.Empty(t, enq.items)
	require.Empty(t, enq2.items)
}

func TestFireRespectsFeatureFlag(t *testing.T) {
	flags := featureflags.Static{featureflags.FreezeWindow: false}
	l, enq := newLoop(t, inWindow, &freeze.MemoryStore{}, flags)

	require.False(t, l.fire(context.Background(), inWindow, true))
	require.Empty(t, enq.items)
}

func TestEdgeTaskIDIsStable(t *testing.T) {
	cal, err := workcal.New(config.Default().WorkCalendar)
	require.NoError(t, err)

	at, opening, ok := cal.NextFreezeEdge(inWindow)
	require.True(t, ok)
	require.False(t, opening)
	require.Equal(t, "freeze:close:2026-10-12T12:00:00Z", edgeTaskID(at, opening))

	at, opening, _ = cal.NextFreezeEdge(at)
	require.True(t, opening)
	require.Equal(t, "freeze:open:2026-10-19T09:00:00Z", edgeTaskID(at, opening))
}
