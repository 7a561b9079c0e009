package lot

import (
	"github.com/ferrolab/certline/internal/lot/repository"
	"github.com/ferrolab/certline/internal/lot/service"
	"go.uber.org/fx"
)

var Module = fx.Module("lot",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
