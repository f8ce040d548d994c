package videohost

import "go.uber.org/fx"

var Module = fx.Module("videohost",
	fx.Provide(NewClient),
)
