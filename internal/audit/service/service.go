package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/EquidnaMX/stag-herd/internal/audit/domain"
	"github.com/EquidnaMX/stag-herd/internal/auditcontext"
	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/config"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Cfg   config.Config
	Clock clock.Clock
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	clock   clock.Clock
	enabled bool
}

func NewService(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("audit.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   clk,
		enabled: p.Cfg.Audit.Enabled,
	}
}

func (s *Service) Record(ctx context.Context, entry domain.Entry) {
	if s == nil || !s.enabled {
		return
	}
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return
	}

	origin := auditcontext.OriginFromContext(ctx)
	actorType := origin.ActorType
	if actorType == "" {
		actorType = string(domain.ActorTypeSystem)
	}

	metadata := datatypes.JSONMap{}
	for key, value := range entry.Metadata {
		if strings.TrimSpace(key) == "" {
			continue
		}
		metadata[key] = value
	}

	log := &domain.AuditLog{
		ID:         s.genID.Generate(),
		ActorType:  actorType,
		ActorID:    optional(origin.ActorID),
		Action:     action,
		TargetType: entry.TargetType,
		TargetID:   optional(entry.TargetID),
		Metadata:   metadata,
		IPAddress:  optional(origin.IPAddress),
		UserAgent:  optional(origin.UserAgent),
		RequestID:  optional(origin.RequestID),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, log); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) Count(ctx context.Context, filter domain.ListFilter) (int64, error) {
	return s.repo.Count(ctx, s.db, filter)
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
