package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/audit"
	"github.com/jadiazinf/condominio-core/internal/clock"
	"github.com/jadiazinf/condominio-core/internal/condominium"
	"github.com/jadiazinf/condominio-core/internal/config"
	"github.com/jadiazinf/condominio-core/internal/currency"
	"github.com/jadiazinf/condominio-core/internal/events"
	"github.com/jadiazinf/condominio-core/internal/formula"
	"github.com/jadiazinf/condominio-core/internal/generation"
	generationworker "github.com/jadiazinf/condominio-core/internal/generation/worker"
	"github.com/jadiazinf/condominio-core/internal/generationrule"
	"github.com/jadiazinf/condominio-core/internal/migration"
	"github.com/jadiazinf/condominio-core/internal/observability/logger"
	"github.com/jadiazinf/condominio-core/internal/observability/metrics"
	"github.com/jadiazinf/condominio-core/internal/observability/tracing"
	"github.com/jadiazinf/condominio-core/internal/paymentconcept"
	"github.com/jadiazinf/condominio-core/internal/quota"
	"github.com/jadiazinf/condominio-core/internal/seed"
	"github.com/jadiazinf/condominio-core/internal/server"
	"github.com/jadiazinf/condominio-core/internal/unit"
	"github.com/jadiazinf/condominio-core/pkg/db"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		fx.Provide(func(cfg config.Config) (*zap.Logger, error) {
			return logger.New(cfg.Environment)
		}),
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		clock.Module,
		fx.Provide(func(cfg config.Config) *metrics.BillingMetrics {
			return metrics.BillingWithConfig(metrics.Config{
				ServiceName: cfg.ServiceName,
				Environment: cfg.Environment,
			})
		}),
		fx.Provide(func(cfg config.Config) tracing.Config {
			return tracing.Config{
				Enabled:          cfg.Tracing.Enabled,
				ServiceName:      cfg.ServiceName,
				ServiceVersion:   version,
				Environment:      cfg.Environment,
				ExporterEndpoint: cfg.Tracing.ExporterEndpoint,
				ExporterProtocol: cfg.Tracing.ExporterProtocol,
				SamplingRatio:    cfg.Tracing.SamplingRatio,
			}
		}),
		fx.Provide(tracing.NewProvider),
		fx.Invoke(func(*sdktrace.TracerProvider) {}),
		db.Module,
		fx.Invoke(func(conn *gorm.DB) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			return seed.EnsureDefaultCurrencies(conn)
		}),
		events.Module,
		condominium.Module,
		currency.Module,
		unit.Module,
		paymentconcept.Module,
		formula.Module,
		generationrule.Module,
		quota.Module,
		generation.Module,
		generationworker.Module,
		audit.Module,
		server.Module,
	)
	app.Run()
}
