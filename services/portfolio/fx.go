package portfolio

import (
	"go.uber.org/fx"
)

// Storage provides the repository alone, for processes that serve no routes.
var Storage = fx.Module("portfolio.storage",
	fx.Provide(NewRepository),
)

var Module = fx.Module("portfolio.service",
	Storage,
	fx.Provide(
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)

// Models lists the tables owned by this package.
func Models() []any {
	return []any{&Client{}, &Project{}, &Invoice{}}
}
