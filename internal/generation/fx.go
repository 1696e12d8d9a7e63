package generation

import (
	"github.com/jadiazinf/condominio-core/internal/generation/repository"
	"github.com/jadiazinf/condominio-core/internal/generation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("generation.service",
	fx.Provide(repository.ProvideSchedules),
	fx.Provide(repository.ProvideLogs),
	fx.Provide(service.NewService),
)
