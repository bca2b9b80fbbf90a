package main

import (
	"log"

	"go.uber.org/fx"

	"studiodesk/pkg/asynq"
	"studiodesk/pkg/config"
	"studiodesk/pkg/db"
	"studiodesk/pkg/featureflags"
	"studiodesk/pkg/freeze"
	"studiodesk/pkg/gen"
	"studiodesk/pkg/hashistack/secretmanager"
	"studiodesk/pkg/logger"
	"studiodesk/pkg/otelcol"
	"studiodesk/pkg/profiling"
	"studiodesk/pkg/redis"
	queue "studiodesk/pkg/task"
	"studiodesk/pkg/workcal"
	"studiodesk/services/calsync"
	"studiodesk/services/cron"
	"studiodesk/services/health"
	"studiodesk/services/notify"
	"studiodesk/services/portfolio"
	"studiodesk/services/scoring"
	"studiodesk/services/task"
)

// The worker runs background scoring, health sweeps, calendar sync,
// notification delivery and the weekly freeze loop. It serves no HTTP routes.
func main() {
	opts := []fx.Option{
		logger.FxLogger,
		secretmanager.Options(),
		config.Module,
		logger.Module,
		otelcol.Options(),
		profiling.Options(),
		db.Module,
		redis.Module,
		asynq.Client,
		asynq.Server,
		asynq.Periodic,
		queue.Module,
		gen.Module,
		freeze.Module,
		featureflags.Module,
		workcal.Module,

		task.Storage,
		portfolio.Storage,
		scoring.Worker,
		health.Worker,
		calsync.Worker,
		notify.Worker,
		cron.Worker,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	fx.New(opts...).Run()
}
