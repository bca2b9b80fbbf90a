package main

import (
	"log"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"studiodesk/pkg/asynq"
	"studiodesk/pkg/config"
	"studiodesk/pkg/db"
	"studiodesk/pkg/featureflags"
	"studiodesk/pkg/freeze"
	"studiodesk/pkg/gen"
	"studiodesk/pkg/hashistack/secretmanager"
	"studiodesk/pkg/hashistack/servicediscover"
	healthz "studiodesk/pkg/health"
	"studiodesk/pkg/logger"
	"studiodesk/pkg/otelcol"
	"studiodesk/pkg/profiling"
	"studiodesk/pkg/redis"
	"studiodesk/pkg/sequence"
	"studiodesk/pkg/server"
	queue "studiodesk/pkg/task"
	"studiodesk/pkg/workcal"
	"studiodesk/services/cron"
	"studiodesk/services/health"
	"studiodesk/services/notify"
	"studiodesk/services/portfolio"
	"studiodesk/services/review"
	"studiodesk/services/scoring"
	"studiodesk/services/task"
)

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
		queue.Module,
		gen.Module,
		sequence.Module,
		freeze.Module,
		featureflags.Module,
		workcal.Module,
		server.ProvideHTTPServer,
		healthz.Module,
		servicediscover.Options(),
		fx.Invoke(migrate),

		review.Module,
		notify.Module,
		portfolio.Module,
		task.Module,
		scoring.Module,
		health.Module,
		cron.Module,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	fx.New(opts...).Run()
}

func migrate(conn *gorm.DB) error {
	models := []any{&review.AuditEntry{}, &notify.Notification{}}
	models = append(models, portfolio.Models()...)
	models = append(models, task.Models()...)
	models = append(models, health.Models()...)
	models = append(models, cron.Models()...)
	return db.Migrate(conn, models...)
}
