package quota

import (
	"github.com/jadiazinf/condominio-core/internal/quota/repository"
	"github.com/jadiazinf/condominio-core/internal/quota/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quota.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideAdjustments),
	fx.Provide(service.NewService),
)
