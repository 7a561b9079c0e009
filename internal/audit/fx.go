package audit

import (
	"github.com/ferrolab/certline/internal/audit/repository"
	"github.com/ferrolab/certline/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
