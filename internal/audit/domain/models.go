// Package domain contains the append-only audit trail model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditEntry records one attempted or committed action. Entries are never
// mutated or deleted; the actor reference is a weak lookup and may point at
// a deleted actor without invalidating the entry.
type AuditEntry struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorID    *snowflake.ID     `gorm:"index" json:"actor_id,omitempty"`
	ActorRole  string            `gorm:"type:text" json:"actor_role,omitempty"`
	Action     string            `gorm:"type:text;not null;index" json:"action"`
	EntityType string            `gorm:"type:text" json:"entity_type,omitempty"`
	EntityID   *string           `gorm:"type:text;index" json:"entity_id,omitempty"`
	Details    string            `gorm:"type:text" json:"details,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

// TableName sets the database table name.
func (AuditEntry) TableName() string { return "audit_entries" }
