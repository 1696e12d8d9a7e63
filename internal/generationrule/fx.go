package generationrule

import (
	"github.com/jadiazinf/condominio-core/internal/generationrule/repository"
	"github.com/jadiazinf/condominio-core/internal/generationrule/service"
	"go.uber.org/fx"
)

var Module = fx.Module("generationrule.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
