package unit

import (
	"github.com/jadiazinf/condominio-core/internal/unit/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("unit",
	fx.Provide(repository.Provide),
)
