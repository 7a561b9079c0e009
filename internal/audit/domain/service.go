package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	// DefaultQueryLimit applies when a caller passes limit <= 0.
	DefaultQueryLimit = 100
	// MaxQueryLimit bounds query cost regardless of the caller's wishes.
	MaxQueryLimit = 1000
)

var (
	ErrInvalidAction = errors.New("invalid_audit_action")
)

// Record captures one entry. Entry fields other than Action are optional.
type Record struct {
	ActorID    *snowflake.ID
	ActorRole  string
	Action     string
	EntityType string
	EntityID   string
	Details    string
	Metadata   map[string]any
}

// Service writes and queries the audit trail. Record is best-effort: a
// persistence failure is logged and swallowed so it can never fail the
// caller's main operation. RecordTx writes through the caller's transaction
// and does return the error, for use where the audit row must commit
// atomically with the state change it describes.
type Service interface {
	Record(ctx context.Context, rec Record)
	RecordTx(ctx context.Context, tx *gorm.DB, rec Record) error

	ByActor(ctx context.Context, actorID snowflake.ID, limit int) ([]AuditEntry, error)
	ByEntity(ctx context.Context, entityID string, limit int) ([]AuditEntry, error)
	Recent(ctx context.Context, limit int) ([]AuditEntry, error)
	Search(ctx context.Context, text string, limit int) ([]AuditEntry, error)
}

// ListFilter narrows audit queries; zero values mean "any".
type ListFilter struct {
	ActorID  *snowflake.ID
	EntityID string
	Search   string
	Limit    int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditEntry) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditEntry, error)
}
