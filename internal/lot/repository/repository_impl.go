package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	lotdomain "github.com/ferrolab/certline/internal/lot/domain"
	pkgdb "github.com/ferrolab/certline/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() lotdomain.Repository {
	return &repo{}
}

const lotColumns = `id, grade, shape, size, quantity, unit, certificate_number, certificate_date,
	 batch_number, melt_number, order_number, supplier, status, certificate_path,
	 requires_lab_verification, no_melt_number, edit_requested, edit_reason, deleted, deleted_at,
	 status_changed_at, status_changed_by, comment_log, rejection_reasons, lab_issues,
	 created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, lot *lotdomain.Lot) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO lots (`+lotColumns+`
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lot.ID,
		lot.Grade,
		lot.Shape,
		lot.Size,
		lot.Quantity,
		lot.Unit,
		lot.CertificateNumber,
		lot.CertificateDate,
		lot.BatchNumber,
		lot.MeltNumber,
		lot.OrderNumber,
		lot.Supplier,
		lot.Status,
		lot.CertificatePath,
		lot.RequiresLabVerification,
		lot.NoMeltNumber,
		lot.EditRequested,
		lot.EditReason,
		lot.Deleted,
		lot.DeletedAt,
		lot.StatusChangedAt,
		lot.StatusChangedBy,
		lot.CommentLog,
		lot.RejectionReasons,
		lot.LabIssues,
		lot.CreatedAt,
		lot.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*lotdomain.Lot, error) {
	return r.findByID(ctx, db, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*lotdomain.Lot, error) {
	return r.findByID(ctx, db, id, true)
}

func (r *repo) findByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*lotdomain.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE id = ?`
	// sqlite serializes writers inside a transaction; the row lock clause
	// only exists on the server dialects.
	if forUpdate && db.Dialector.Name() != "sqlite" {
		query += ` FOR UPDATE`
	}

	var lot lotdomain.Lot
	if err := db.WithContext(ctx).Raw(query, id).Scan(&lot).Error; err != nil {
		return nil, err
	}
	if lot.ID == 0 {
		return nil, nil
	}
	return &lot, nil
}

func (r *repo) UpdateTransition(ctx context.Context, db *gorm.DB, lot *lotdomain.Lot) error {
	return db.WithContext(ctx).Exec(
		`UPDATE lots
		 SET status = ?, status_changed_at = ?, status_changed_by = ?, comment_log = ?,
		     rejection_reasons = ?, lab_issues = ?, requires_lab_verification = ?,
		     edit_requested = ?, edit_reason = ?, updated_at = ?
		 WHERE id = ?`,
		lot.Status,
		lot.StatusChangedAt,
		lot.StatusChangedBy,
		lot.CommentLog,
		lot.RejectionReasons,
		lot.LabIssues,
		lot.RequiresLabVerification,
		lot.EditRequested,
		lot.EditReason,
		lot.UpdatedAt,
		lot.ID,
	).Error
}

func (r *repo) UpdateEditRequest(ctx context.Context, db *gorm.DB, lot *lotdomain.Lot) error {
	return db.WithContext(ctx).Exec(
		`UPDATE lots SET edit_requested = ?, edit_reason = ?, updated_at = ? WHERE id = ?`,
		lot.EditRequested,
		lot.EditReason,
		lot.UpdatedAt,
		lot.ID,
	).Error
}

func (r *repo) UpdateCertificatePath(ctx context.Context, db *gorm.DB, id snowflake.ID, path string, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE lots SET certificate_path = ?, updated_at = ? WHERE id = ?`,
		path,
		updatedAt,
		id,
	).Error
}

func (r *repo) SetRequiresLab(ctx context.Context, db *gorm.DB, id snowflake.ID, requires bool, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE lots SET requires_lab_verification = ?, updated_at = ? WHERE id = ?`,
		requires,
		updatedAt,
		id,
	).Error
}

func (r *repo) SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID, deletedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE lots SET deleted = ?, deleted_at = ?, updated_at = ? WHERE id = ?`,
		true,
		deletedAt,
		deletedAt,
		id,
	).Error
}

func (r *repo) SaveQCCheck(ctx context.Context, db *gorm.DB, check *lotdomain.QCCheck) error {
	affected, err := r.updateQCCheck(ctx, db, check)
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	err = r.insertQCCheck(ctx, db, check)
	if pkgdb.IsDuplicateKeyErr(err) {
		// Lost the first-insert race on lot_id; the row exists now.
		_, err = r.updateQCCheck(ctx, db, check)
	}
	return err
}

func (r *repo) updateQCCheck(ctx context.Context, db *gorm.DB, check *lotdomain.QCCheck) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE qc_checks
		 SET certificate_readable = ?, material_matches = ?, dimensions_match = ?, certificate_data_correct = ?,
		     repurchase = ?, poor_quality = ?, no_stamp = ?, diameter_deviation = ?,
		     cracks = ?, no_melt_stamp = ?, no_certificate = ?, certificate_copy = ?,
		     chemistry = ?, notes = ?, checked_by = ?, checked_by_id = ?, checked_at = ?, updated_at = ?
		 WHERE lot_id = ?`,
		check.CertificateReadable,
		check.MaterialMatches,
		check.DimensionsMatch,
		check.CertificateDataCorrect,
		check.Repurchase,
		check.PoorQuality,
		check.NoStamp,
		check.DiameterDeviation,
		check.Cracks,
		check.NoMeltStamp,
		check.NoCertificate,
		check.CertificateCopy,
		check.Chemistry,
		check.Notes,
		check.CheckedBy,
		check.CheckedByID,
		check.CheckedAt,
		check.UpdatedAt,
		check.LotID,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) insertQCCheck(ctx context.Context, db *gorm.DB, check *lotdomain.QCCheck) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO qc_checks (
			id, lot_id, certificate_readable, material_matches, dimensions_match, certificate_data_correct,
			repurchase, poor_quality, no_stamp, diameter_deviation,
			cracks, no_melt_stamp, no_certificate, certificate_copy,
			chemistry, notes, checked_by, checked_by_id, checked_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		check.ID,
		check.LotID,
		check.CertificateReadable,
		check.MaterialMatches,
		check.DimensionsMatch,
		check.CertificateDataCorrect,
		check.Repurchase,
		check.PoorQuality,
		check.NoStamp,
		check.DiameterDeviation,
		check.Cracks,
		check.NoMeltStamp,
		check.NoCertificate,
		check.CertificateCopy,
		check.Chemistry,
		check.Notes,
		check.CheckedBy,
		check.CheckedByID,
		check.CheckedAt,
		check.CreatedAt,
		check.UpdatedAt,
	).Error
}

func (r *repo) FindQCCheck(ctx context.Context, db *gorm.DB, lotID snowflake.ID) (*lotdomain.QCCheck, error) {
	var check lotdomain.QCCheck
	err := db.WithContext(ctx).Raw(
		`SELECT id, lot_id, certificate_readable, material_matches, dimensions_match, certificate_data_correct,
		 repurchase, poor_quality, no_stamp, diameter_deviation,
		 cracks, no_melt_stamp, no_certificate, certificate_copy,
		 chemistry, notes, checked_by, checked_by_id, checked_at, created_at, updated_at
		 FROM qc_checks WHERE lot_id = ?`,
		lotID,
	).Scan(&check).Error
	if err != nil {
		return nil, err
	}
	if check.ID == 0 {
		return nil, nil
	}
	return &check, nil
}
