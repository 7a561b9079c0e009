package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository covers the lot queries the orchestrator needs beyond the generic
// store. All methods take the caller's db handle so they compose with
// transactions.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, lot *Lot) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Lot, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Lot, error)
	UpdateTransition(ctx context.Context, db *gorm.DB, lot *Lot) error
	UpdateEditRequest(ctx context.Context, db *gorm.DB, lot *Lot) error
	UpdateCertificatePath(ctx context.Context, db *gorm.DB, id snowflake.ID, path string, updatedAt time.Time) error
	SetRequiresLab(ctx context.Context, db *gorm.DB, id snowflake.ID, requires bool, updatedAt time.Time) error
	SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID, deletedAt time.Time) error

	SaveQCCheck(ctx context.Context, db *gorm.DB, check *QCCheck) error
	FindQCCheck(ctx context.Context, db *gorm.DB, lotID snowflake.ID) (*QCCheck, error)
}
