package notify

import (
	"studiodesk/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("notify.service",
	fx.Provide(
		NewService,
		func(s *Service) Notifier { return s },
	),
	fx.Invoke(RegisterRoutes),
)

var Worker = fx.Module("notify.worker",
	fx.Provide(NewService),
	fx.Invoke(registerHandlers),
)

func registerHandlers(mux *asynq.ServeMux, s *Service) {
	mux.HandleFunc(taskname.NotifyDeliver, s.HandleDeliverTask)
}
