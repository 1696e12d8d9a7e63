package audit

import (
	"github.com/jadiazinf/condominio-core/internal/audit/repository"
	"github.com/jadiazinf/condominio-core/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
