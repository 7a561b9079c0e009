package document

import "go.uber.org/fx"

var Module = fx.Module("document.manager",
	fx.Provide(NewManager),
)
