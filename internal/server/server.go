// Package server exposes the quota core over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/jadiazinf/condominio-core/internal/audit/domain"
	"github.com/jadiazinf/condominio-core/internal/auditcontext"
	"github.com/jadiazinf/condominio-core/internal/config"
	formuladomain "github.com/jadiazinf/condominio-core/internal/formula/domain"
	generationdomain "github.com/jadiazinf/condominio-core/internal/generation/domain"
	ruledomain "github.com/jadiazinf/condominio-core/internal/generationrule/domain"
	"github.com/jadiazinf/condominio-core/internal/observability/logger"
	"github.com/jadiazinf/condominio-core/internal/observability/metrics"
	quotadomain "github.com/jadiazinf/condominio-core/internal/quota/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg           config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	FormulaSvc    formuladomain.Service
	RuleSvc       ruledomain.Service
	QuotaSvc      quotadomain.Service
	GenerationSvc generationdomain.Service
	AuditSvc      auditdomain.Service `optional:"true"`
}

type Server struct {
	cfg           config.Config
	db            *gorm.DB
	log           *zap.Logger
	formulaSvc    formuladomain.Service
	ruleSvc       ruledomain.Service
	quotaSvc      quotadomain.Service
	generationSvc generationdomain.Service
	auditSvc      auditdomain.Service
	limiter       *rateLimiter
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:           p.Cfg,
		db:            p.DB,
		log:           p.Log.Named("server"),
		formulaSvc:    p.FormulaSvc,
		ruleSvc:       p.RuleSvc,
		quotaSvc:      p.QuotaSvc,
		generationSvc: p.GenerationSvc,
		auditSvc:      p.AuditSvc,
		limiter:       newRateLimiter(120, time.Minute),
	}
}

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	httpMetrics, err := metrics.NewHTTPMetrics(metrics.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	}, otel.GetMeterProvider())
	if err != nil {
		log.Warn("http metrics disabled", zap.Error(err))
	} else {
		engine.Use(metrics.GinMiddleware(httpMetrics))
	}
	return engine
}

func (s *Server) RegisterAPIRoutes(engine *gin.Engine) {
	engine.GET("/healthz", s.Healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/v1")
	v1.Use(s.rateLimit())
	v1.Use(s.auditContext())

	formulas := v1.Group("/formulas")
	formulas.POST("", s.CreateFormula)
	formulas.GET("", s.ListFormulas)
	formulas.POST("/evaluate", s.EvaluateFormula)
	formulas.GET("/:id", s.GetFormula)
	formulas.PATCH("/:id", s.UpdateFormula)

	rules := v1.Group("/generation-rules")
	rules.POST("", s.CreateGenerationRule)
	rules.GET("", s.ListGenerationRules)
	rules.GET("/resolve", s.ResolveGenerationRule)
	rules.GET("/:id", s.GetGenerationRule)
	rules.POST("/:id/deactivate", s.DeactivateGenerationRule)
	rules.GET("/:id/schedules", s.ListSchedulesByRule)
	rules.GET("/:id/generation-logs", s.ListGenerationLogsByRule)

	schedules := v1.Group("/generation-schedules")
	schedules.POST("", s.CreateGenerationSchedule)
	schedules.GET("/:id", s.GetGenerationSchedule)
	schedules.GET("/:id/generation-logs", s.ListGenerationLogsBySchedule)

	v1.POST("/generation/run", s.RunGeneration)

	quotas := v1.Group("/quotas")
	quotas.GET("", s.ListQuotas)
	quotas.POST("/mark-overdue", s.MarkQuotasOverdue)
	quotas.GET("/:id", s.GetQuota)
	quotas.POST("/:id/adjust", s.AdjustQuota)
	quotas.GET("/:id/adjustments", s.ListAdjustmentsByQuota)

	adjustments := v1.Group("/quota-adjustments")
	adjustments.GET("/user/:userId", s.ListAdjustmentsByUser)
	adjustments.GET("/type/:type", s.ListAdjustmentsByType)
	adjustments.GET("/:id", s.GetAdjustment)

	v1.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// auditContext captures who is acting and from where so audit entries can
// be written deep inside the services without threading request state.
func (s *Server) auditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if id := actorID(c); id != 0 {
			ctx = auditcontext.WithActor(ctx, "user", id.String())
		}
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"message": "Too many requests"},
			})
			return
		}
		c.Next()
	}
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, server *Server, cfg config.Config, log *zap.Logger) {
	server.RegisterAPIRoutes(engine)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.Int("port", cfg.Server.Port))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)
