// Package domain contains persistence models for material lots and their QC
// check rounds.
package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ferrolab/certline/internal/workflow"
	"gorm.io/datatypes"
)

// Lot is one received batch of metal under certification. Status mutations go
// through the orchestrator only; the comment log is append-only.
type Lot struct {
	ID snowflake.ID `gorm:"primaryKey" json:"id"`

	Grade    string  `gorm:"type:text;not null" json:"grade"`
	Shape    string  `gorm:"type:text;not null" json:"shape"`
	Size     string  `gorm:"type:text" json:"size"`
	Quantity float64 `gorm:"not null" json:"quantity"`
	Unit     string  `gorm:"type:text;not null" json:"unit"`

	CertificateNumber string `gorm:"type:text" json:"certificate_number"`
	CertificateDate   string `gorm:"type:text" json:"certificate_date"`
	BatchNumber       string `gorm:"type:text" json:"batch_number"`
	MeltNumber        string `gorm:"type:text" json:"melt_number"`
	OrderNumber       string `gorm:"type:text" json:"order_number"`
	Supplier          string `gorm:"type:text" json:"supplier"`

	Status          workflow.Status `gorm:"type:text;not null" json:"status"`
	CertificatePath string          `gorm:"type:text" json:"certificate_path,omitempty"`

	RequiresLabVerification bool   `gorm:"not null;default:false" json:"requires_lab_verification"`
	NoMeltNumber            bool   `gorm:"not null;default:false" json:"no_melt_number"`
	EditRequested           bool   `gorm:"not null;default:false" json:"edit_requested"`
	EditReason              string `gorm:"type:text" json:"edit_reason,omitempty"`
	Deleted                 bool   `gorm:"not null;default:false;index" json:"-"`
	DeletedAt               *time.Time `gorm:"" json:"-"`

	StatusChangedAt *time.Time `gorm:"" json:"status_changed_at,omitempty"`
	StatusChangedBy string     `gorm:"type:text" json:"status_changed_by,omitempty"`

	CommentLog       datatypes.JSON `gorm:"type:jsonb" json:"comment_log,omitempty"`
	RejectionReasons datatypes.JSON `gorm:"type:jsonb" json:"rejection_reasons,omitempty"`
	LabIssues        datatypes.JSON `gorm:"type:jsonb" json:"lab_issues,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Lot) TableName() string { return "lots" }

// CommentEntry is one line of the append-only comment log.
type CommentEntry struct {
	At    time.Time `json:"at"`
	Actor string    `json:"actor"`
	Text  string    `json:"text"`
}

// Comments decodes the comment log. A corrupt log yields an empty slice
// rather than an error; the raw column is still the source of truth.
func (l *Lot) Comments() []CommentEntry {
	if len(l.CommentLog) == 0 {
		return nil
	}
	var entries []CommentEntry
	if err := json.Unmarshal(l.CommentLog, &entries); err != nil {
		return nil
	}
	return entries
}

// AppendComment adds one entry to the log without touching prior entries.
func (l *Lot) AppendComment(entry CommentEntry) {
	entries := append(l.Comments(), entry)
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	l.CommentLog = raw
}

func (l *Lot) SetRejectionReasons(reasons []string) {
	l.RejectionReasons = marshalStrings(reasons)
}

func (l *Lot) GetRejectionReasons() []string {
	return unmarshalStrings(l.RejectionReasons)
}

func (l *Lot) SetLabIssues(issues []string) {
	l.LabIssues = marshalStrings(issues)
}

func (l *Lot) GetLabIssues() []string {
	return unmarshalStrings(l.LabIssues)
}

func marshalStrings(values []string) datatypes.JSON {
	trimmed := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			trimmed = append(trimmed, v)
		}
	}
	if len(trimmed) == 0 {
		return nil
	}
	raw, err := json.Marshal(trimmed)
	if err != nil {
		return nil
	}
	return raw
}

func unmarshalStrings(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	return values
}

// QCCheck holds the latest incoming-inspection round for a lot, one row per
// lot. Resubmission replaces the previous round.
type QCCheck struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	LotID snowflake.ID `gorm:"not null;uniqueIndex" json:"lot_id"`

	CertificateReadable    bool `gorm:"not null;default:false" json:"certificate_readable"`
	MaterialMatches        bool `gorm:"not null;default:false" json:"material_matches"`
	DimensionsMatch        bool `gorm:"not null;default:false" json:"dimensions_match"`
	CertificateDataCorrect bool `gorm:"not null;default:false" json:"certificate_data_correct"`

	Repurchase        bool `gorm:"not null;default:false" json:"repurchase"`
	PoorQuality       bool `gorm:"not null;default:false" json:"poor_quality"`
	NoStamp           bool `gorm:"not null;default:false" json:"no_stamp"`
	DiameterDeviation bool `gorm:"not null;default:false" json:"diameter_deviation"`
	Cracks            bool `gorm:"not null;default:false" json:"cracks"`
	NoMeltStamp       bool `gorm:"not null;default:false" json:"no_melt_stamp"`
	NoCertificate     bool `gorm:"not null;default:false" json:"no_certificate"`
	CertificateCopy   bool `gorm:"not null;default:false" json:"certificate_copy"`

	Chemistry datatypes.JSONMap `gorm:"type:jsonb" json:"chemistry,omitempty"`
	Notes     string            `gorm:"type:text" json:"notes,omitempty"`

	CheckedBy   string        `gorm:"type:text;not null" json:"checked_by"`
	CheckedByID *snowflake.ID `gorm:"index" json:"checked_by_id,omitempty"`
	CheckedAt   time.Time     `gorm:"not null" json:"checked_at"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (QCCheck) TableName() string { return "qc_checks" }

// IssueFlags lists the set flags in a stable order, for notifications and
// audit details.
func (c *QCCheck) IssueFlags() []string {
	flags := []struct {
		set  bool
		name string
	}{
		{c.Repurchase, "repurchase"},
		{c.PoorQuality, "poor_quality"},
		{c.NoStamp, "no_stamp"},
		{c.DiameterDeviation, "diameter_deviation"},
		{c.Cracks, "cracks"},
		{c.NoMeltStamp, "no_melt_stamp"},
		{c.NoCertificate, "no_certificate"},
		{c.CertificateCopy, "certificate_copy"},
	}
	var out []string
	for _, f := range flags {
		if f.set {
			out = append(out, f.name)
		}
	}
	return out
}
