package formula

import (
	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/cache"
	"github.com/jadiazinf/condominio-core/internal/formula/domain"
	"github.com/jadiazinf/condominio-core/internal/formula/repository"
	"github.com/jadiazinf/condominio-core/internal/formula/service"
	"go.uber.org/fx"
)

var Module = fx.Module("formula.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() cache.Cache[snowflake.ID, domain.QuotaFormula] {
		return cache.NewTTLCache[snowflake.ID, domain.QuotaFormula]()
	}),
	fx.Provide(service.NewService),
)
