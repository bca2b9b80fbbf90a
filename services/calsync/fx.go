package calsync

import (
	"studiodesk/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Worker = fx.Module("calsync.worker",
	fx.Provide(NewSyncer),
	fx.Invoke(registerHandlers),
)

func registerHandlers(mux *asynq.ServeMux, s *Syncer) {
	mux.HandleFunc(taskname.CalendarSyncTask, s.HandleCalendarSyncTask)
}
