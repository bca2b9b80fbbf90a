package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func observed(level gormlogger.LogLevel, slow time.Duration, verbose bool) (*QueryLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewQueryLogger(zap.New(core), level, slow, verbose), logs
}

func stmt() (string, int64) { return "SELECT 1", 1 }

func TestQueryLoggerTrace(t *testing.T) {
	ctx := context.Background()

	t.Run("error", func(t *testing.T) {
		l, logs := observed(gormlogger.Warn, time.Second, false)
		l.Trace(ctx, time.Now(), stmt, errors.New("boom"))
		require.Equal(t, 1, logs.FilterMessage("db.query_failed").Len())
	})

	t.Run("record not found is quiet", func(t *testing.T) {
		l, logs := observed(gormlogger.Warn, time.Second, false)
		l.Trace(ctx, time.Now(), stmt, gormlogger.ErrRecordNotFound)
		require.Zero(t, logs.Len())
	})

	t.Run("slow", func(t *testing.T) {
		l, logs := observed(gormlogger.Warn, time.Millisecond, false)
		l.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
		entries := logs.FilterMessage("db.slow_query").All()
		require.Len(t, entries, 1)
		require.Equal(t, "SELECT 1", entries[0].ContextMap()["sql"])
	})

	t.Run("zero threshold disables slow warnings", func(t *testing.T) {
		l, logs := observed(gormlogger.Warn, 0, false)
		l.Trace(ctx, time.Now().Add(-time.Hour), stmt, nil)
		require.Zero(t, logs.Len())
	})

	t.Run("verbose", func(t *testing.T) {
		l, logs := observed(gormlogger.Info, time.Second, true)
		l.Trace(ctx, time.Now(), stmt, nil)
		require.Equal(t, 1, logs.FilterMessage("db.query").Len())
	})

	t.Run("silent", func(t *testing.T) {
		l, logs := observed(gormlogger.Info, time.Second, true)
		l.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), stmt, errors.New("boom"))
		require.Zero(t, logs.Len())
	})
}
