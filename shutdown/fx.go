package shutdown

import (
	"go.uber.org/fx"
)

// Module provides the shutdown manager with the default configuration.
var Module = fx.Module("shutdown",
	fx.Provide(
		NewManager,
		func() *Config {
			return DefaultConfig()
		},
	),
)
