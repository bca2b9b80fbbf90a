package task

import (
	"go.uber.org/fx"
)

// Storage provides the repository alone, for processes that serve no routes.
var Storage = fx.Module("task.storage",
	fx.Provide(NewRepository),
)

var Module = fx.Module("task.service",
	Storage,
	fx.Provide(
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)

// Models lists the tables owned by this package.
func Models() []any {
	return []any{&Task{}, &User{}}
}
