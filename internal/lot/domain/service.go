package domain

import (
	"context"
	"errors"

	"github.com/ferrolab/certline/internal/workflow"
	"github.com/ferrolab/certline/pkg/db/pagination"
)

var (
	ErrInvalidLotID      = errors.New("invalid_lot_id")
	ErrLotNotFound       = errors.New("lot_not_found")
	ErrConflict          = errors.New("lot_status_conflict")
	ErrMissingActor      = errors.New("missing_actor")
	ErrMissingGrade      = errors.New("missing_grade")
	ErrMissingShape      = errors.New("missing_shape")
	ErrMissingMelt       = errors.New("missing_melt_number")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrInvalidTarget     = errors.New("invalid_target_status")
	ErrLabFlagBlocked    = errors.New("lab_flag_not_permitted")
	ErrInvalidChemistry  = errors.New("invalid_chemistry_value")
	ErrMissingEditReason = errors.New("missing_edit_reason")
	ErrQCCheckNotFound   = errors.New("qc_check_not_found")
)

// LabOutcome is the structured result of a completed lab round. It replaces
// free-text sniffing of operator comments.
type LabOutcome string

const (
	LabOutcomeNone   LabOutcome = ""
	LabOutcomePassed LabOutcome = "passed"
	LabOutcomeFailed LabOutcome = "failed"
)

type CreateLotRequest struct {
	Grade             string  `json:"grade"`
	Shape             string  `json:"shape"`
	Size              string  `json:"size"`
	Quantity          float64 `json:"quantity"`
	Unit              string  `json:"unit"`
	CertificateNumber string  `json:"certificate_number"`
	CertificateDate   string  `json:"certificate_date"`
	BatchNumber       string  `json:"batch_number"`
	MeltNumber        string  `json:"melt_number"`
	NoMeltNumber      bool    `json:"no_melt_number"`
	OrderNumber       string  `json:"order_number"`
	Supplier          string  `json:"supplier"`

	// CertificateSourcePath points at the uploaded scan; when set the
	// artifact is filed into the intake tree during creation.
	CertificateSourcePath string `json:"certificate_source_path,omitempty"`
}

type TransitionRequest struct {
	LotID  string          `json:"-"`
	Target workflow.Status `json:"target"`

	// ExpectedStatus makes the request conditional: when set and the lot has
	// moved on since the caller last read it, the transition fails with
	// ErrConflict and the caller must reload.
	ExpectedStatus workflow.Status `json:"expected_status,omitempty"`

	Comment          string     `json:"comment,omitempty"`
	RejectionReasons []string   `json:"rejection_reasons,omitempty"`
	LabIssues        []string   `json:"lab_issues,omitempty"`
	LabOutcome       LabOutcome `json:"lab_outcome,omitempty"`
}

// TransitionResult carries the committed snapshot plus non-fatal warnings,
// such as a certificate artifact that could not be archived.
type TransitionResult struct {
	Lot      *Lot     `json:"lot"`
	Warnings []string `json:"warnings,omitempty"`
}

type SubmitQCCheckRequest struct {
	LotID string `json:"-"`

	CertificateReadable    bool `json:"certificate_readable"`
	MaterialMatches        bool `json:"material_matches"`
	DimensionsMatch        bool `json:"dimensions_match"`
	CertificateDataCorrect bool `json:"certificate_data_correct"`

	Repurchase        bool `json:"repurchase"`
	PoorQuality       bool `json:"poor_quality"`
	NoStamp           bool `json:"no_stamp"`
	DiameterDeviation bool `json:"diameter_deviation"`
	Cracks            bool `json:"cracks"`
	NoMeltStamp       bool `json:"no_melt_stamp"`
	NoCertificate     bool `json:"no_certificate"`
	CertificateCopy   bool `json:"certificate_copy"`

	// Chemistry values arrive as strings; both comma and point decimal
	// separators are accepted.
	Chemistry map[string]string `json:"chemistry,omitempty"`
	Notes     string            `json:"notes,omitempty"`

	RequiresLabVerification bool `json:"requires_lab_verification"`
}

type RequestEditRequest struct {
	LotID  string `json:"-"`
	Reason string `json:"reason"`
}

type ListLotsRequest struct {
	Status      string `form:"status"`
	Grade       string `form:"grade"`
	MeltNumber  string `form:"melt_number"`
	Supplier    string `form:"supplier"`
	OrderNumber string `form:"order_number"`
	pagination.Pagination
}

type ListLotsResponse struct {
	pagination.PageInfo
	Lots []Lot `json:"lots"`
}

type Service interface {
	Create(ctx context.Context, req CreateLotRequest) (*Lot, error)
	Get(ctx context.Context, id string) (*Lot, error)
	List(ctx context.Context, req ListLotsRequest) (ListLotsResponse, error)
	Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error)
	SubmitQCCheck(ctx context.Context, req SubmitQCCheckRequest) (*QCCheck, error)
	GetQCCheck(ctx context.Context, lotID string) (*QCCheck, error)
	RequestEdit(ctx context.Context, req RequestEditRequest) (*Lot, error)
	SoftDelete(ctx context.Context, id string) error
}
