package condominium

import (
	"github.com/jadiazinf/condominio-core/internal/condominium/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("condominium",
	fx.Provide(repository.Provide),
)
