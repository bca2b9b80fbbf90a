package cron

import (
	"studiodesk/pkg/config"
	"studiodesk/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("cron.service",
	fx.Provide(
		NewRepository,
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)

var Worker = fx.Module("cron.worker",
	fx.Provide(
		NewRepository,
		NewService,
		NewFreezeLoop,
	),
	fx.Invoke(registerWorker),
	fx.Invoke(StartFreezeLoop),
)

func registerWorker(mux *asynq.ServeMux, scheduler *asynq.Scheduler, cfg *config.Config, svc *Service) error {
	mux.Use(svc.RecordRuns)
	mux.HandleFunc(taskname.ScoringFreezeSync, svc.HandleFreezeSyncTask)
	return RegisterPeriodic(scheduler, cfg)
}

func Models() []any {
	return []any{&JobRun{}}
}
