package health

import (
	"studiodesk/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("health.service",
	fx.Provide(
		NewRepository,
		NewService,
	),
	fx.Invoke(RegisterRoutes),
)

var Worker = fx.Module("health.worker",
	fx.Provide(
		NewRepository,
		NewService,
	),
	fx.Invoke(registerHandlers),
)

func registerHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(taskname.HealthSweep, svc.HandleSweepTask)
}

func Models() []any {
	return []any{&HealthScore{}}
}
