package currency

import (
	"github.com/jadiazinf/condominio-core/internal/currency/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("currency",
	fx.Provide(repository.Provide),
)
