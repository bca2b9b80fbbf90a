package task

import (
	"go.uber.org/fx"
)

var Module = fx.Module("task.enqueuer",
	fx.Provide(NewEnqueuer),
)
