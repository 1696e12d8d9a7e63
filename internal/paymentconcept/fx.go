package paymentconcept

import (
	"github.com/jadiazinf/condominio-core/internal/paymentconcept/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("paymentconcept",
	fx.Provide(repository.Provide),
)
