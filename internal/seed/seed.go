// Package seed bootstraps the minimum data a fresh install needs: the actor
// registry with one admin, so the HTTP surface can resolve callers before any
// real accounts exist.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ferrolab/certline/internal/workflow"
	"gorm.io/gorm"
)

const defaultAdminName = "Administrator"

// Actor is a registered caller. The front end owns authentication; this
// table only maps actor IDs to display names and roles.
type Actor struct {
	ID        snowflake.ID  `gorm:"primaryKey"`
	Name      string        `gorm:"type:text;not null"`
	Role      workflow.Role `gorm:"type:text;not null"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Actor) TableName() string { return "actors" }

// EnsureDefaultAdmin creates the bootstrap admin actor when no admin exists.
func EnsureDefaultAdmin(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM actors WHERE role = ?`,
			workflow.RoleAdmin,
		).Scan(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		return tx.WithContext(ctx).Exec(
			`INSERT INTO actors (id, name, role, created_at) VALUES (?, ?, ?, ?)`,
			node.Generate(),
			defaultAdminName,
			workflow.RoleAdmin,
			time.Now().UTC(),
		).Error
	})
}

// LookupActor resolves a registered actor by ID; returns nil when unknown.
func LookupActor(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Actor, error) {
	var actor Actor
	if err := db.WithContext(ctx).Raw(
		`SELECT id, name, role, created_at FROM actors WHERE id = ?`,
		id,
	).Scan(&actor).Error; err != nil {
		return nil, err
	}
	if actor.ID == 0 {
		return nil, nil
	}
	return &actor, nil
}
