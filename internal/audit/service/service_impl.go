package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/audit/domain"
	"github.com/jadiazinf/condominio-core/internal/auditcontext"
	"github.com/jadiazinf/condominio-core/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, entry domain.Entry) error {
	actorType, actorID := auditcontext.ActorFromContext(ctx)
	if actorType == "" {
		actorType = string(domain.ActorTypeSystem)
	}

	record := &domain.AuditLog{
		ID:            s.genID.Generate(),
		CondominiumID: entry.CondominiumID,
		ActorType:     actorType,
		Action:        entry.Action,
		TargetType:    entry.TargetType,
		Metadata:      entry.Metadata,
		CreatedAt:     s.clock.Now(),
	}
	if record.Metadata == nil {
		record.Metadata = datatypes.JSONMap{}
	}
	if actorID != "" {
		record.ActorID = &actorID
	}
	if entry.TargetID != "" {
		targetID := entry.TargetID
		record.TargetID = &targetID
	}
	if ip := auditcontext.IPAddressFromContext(ctx); ip != "" {
		record.IPAddress = &ip
	}
	if ua := auditcontext.UserAgentFromContext(ctx); ua != "" {
		record.UserAgent = &ua
	}

	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		s.log.Error("audit record failed",
			zap.String("action", entry.Action),
			zap.String("target_type", entry.TargetType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	return s.repo.List(ctx, s.db, filter)
}
