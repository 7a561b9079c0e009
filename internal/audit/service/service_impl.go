package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/ferrolab/certline/internal/audit/domain"
	"github.com/ferrolab/certline/internal/clock"
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
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Record writes a best-effort entry. Persistence failures are logged and
// swallowed; the caller's operation is never held hostage to the trail.
func (s *Service) Record(ctx context.Context, rec auditdomain.Record) {
	entry, err := s.buildEntry(rec)
	if err != nil {
		s.log.Warn("dropping audit record", zap.String("action", rec.Action), zap.Error(err))
		return
	}
	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		s.log.Warn("failed to write audit entry", zap.String("action", entry.Action), zap.Error(err))
	}
}

// RecordTx writes through the caller's transaction and propagates failure,
// so the entry commits or rolls back together with the state change.
func (s *Service) RecordTx(ctx context.Context, tx *gorm.DB, rec auditdomain.Record) error {
	entry, err := s.buildEntry(rec)
	if err != nil {
		return err
	}
	return s.repo.Insert(ctx, tx, entry)
}

func (s *Service) ByActor(ctx context.Context, actorID snowflake.ID, limit int) ([]auditdomain.AuditEntry, error) {
	return s.repo.List(ctx, s.db, auditdomain.ListFilter{
		ActorID: &actorID,
		Limit:   clampLimit(limit),
	})
}

func (s *Service) ByEntity(ctx context.Context, entityID string, limit int) ([]auditdomain.AuditEntry, error) {
	return s.repo.List(ctx, s.db, auditdomain.ListFilter{
		EntityID: entityID,
		Limit:    clampLimit(limit),
	})
}

func (s *Service) Recent(ctx context.Context, limit int) ([]auditdomain.AuditEntry, error) {
	return s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Limit: clampLimit(limit),
	})
}

func (s *Service) Search(ctx context.Context, text string, limit int) ([]auditdomain.AuditEntry, error) {
	return s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Search: text,
		Limit:  clampLimit(limit),
	})
}

func (s *Service) buildEntry(rec auditdomain.Record) (*auditdomain.AuditEntry, error) {
	action := strings.TrimSpace(rec.Action)
	if action == "" {
		return nil, auditdomain.ErrInvalidAction
	}

	entry := &auditdomain.AuditEntry{
		ID:         s.genID.Generate(),
		ActorID:    rec.ActorID,
		ActorRole:  strings.TrimSpace(rec.ActorRole),
		Action:     action,
		EntityType: strings.TrimSpace(rec.EntityType),
		Details:    strings.TrimSpace(rec.Details),
		CreatedAt:  s.clock.Now().UTC(),
	}
	if entityID := strings.TrimSpace(rec.EntityID); entityID != "" {
		entry.EntityID = &entityID
	}
	if len(rec.Metadata) > 0 {
		payload := map[string]any{}
		for key, value := range rec.Metadata {
			if key == "" {
				continue
			}
			payload[key] = value
		}
		entry.Metadata = datatypes.JSONMap(payload)
	}
	return entry, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return auditdomain.DefaultQueryLimit
	}
	if limit > auditdomain.MaxQueryLimit {
		return auditdomain.MaxQueryLimit
	}
	return limit
}
