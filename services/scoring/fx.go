package scoring

import (
	"studiodesk/pkg/taskname"
	"studiodesk/services/task"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("scoring.service",
	fx.Provide(
		NewService,
		func(s *Service) task.Recalculator { return s },
	),
	fx.Invoke(RegisterRoutes),
)

var Worker = fx.Module("scoring.worker",
	fx.Provide(NewService),
	fx.Invoke(registerHandlers),
)

func registerHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(taskname.ScoringRecalculateAll, svc.HandleRecalculateAllTask)
}
