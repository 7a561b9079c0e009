package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ferrolab/certline/internal/actorcontext"
	auditdomain "github.com/ferrolab/certline/internal/audit/domain"
	"github.com/ferrolab/certline/internal/clock"
	"github.com/ferrolab/certline/internal/document"
	lotdomain "github.com/ferrolab/certline/internal/lot/domain"
	"github.com/ferrolab/certline/internal/notification"
	"github.com/ferrolab/certline/internal/observability/metrics"
	"github.com/ferrolab/certline/internal/workflow"
	"github.com/ferrolab/certline/pkg/db/option"
	"github.com/ferrolab/certline/pkg/db/pagination"
	"github.com/ferrolab/certline/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service is the workflow orchestrator: the single write path for lot status.
// It validates against the transition graph, persists lot and audit row in
// one transaction, then runs the post-commit side effects (certificate
// archival, notifications) without being able to fail the committed change.
type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  lotdomain.Repository
	store repository.Repository[lotdomain.Lot]

	validator  *workflow.Validator
	graph      *workflow.Graph
	docs       *document.Manager
	audit      auditdomain.Service
	dispatcher *notification.Dispatcher
	metrics    *metrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  lotdomain.Repository

	Validator  *workflow.Validator
	Graph      *workflow.Graph
	Docs       *document.Manager
	Audit      auditdomain.Service
	Dispatcher *notification.Dispatcher
	Metrics    *metrics.Metrics `optional:"true"`
}

func NewService(p ServiceParam) lotdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("lot.service"),

		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		store: repository.ProvideStore[lotdomain.Lot](p.DB),

		validator:  p.Validator,
		graph:      p.Graph,
		docs:       p.Docs,
		audit:      p.Audit,
		dispatcher: p.Dispatcher,
		metrics:    p.Metrics,
	}
}

// Create implements domain.Service.
func (s *Service) Create(ctx context.Context, req lotdomain.CreateLotRequest) (*lotdomain.Lot, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return nil, lotdomain.ErrMissingActor
	}
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	lot := &lotdomain.Lot{
		ID:                s.genID.Generate(),
		Grade:             strings.TrimSpace(req.Grade),
		Shape:             strings.TrimSpace(req.Shape),
		Size:              strings.TrimSpace(req.Size),
		Quantity:          req.Quantity,
		Unit:              strings.TrimSpace(req.Unit),
		CertificateNumber: strings.TrimSpace(req.CertificateNumber),
		CertificateDate:   strings.TrimSpace(req.CertificateDate),
		BatchNumber:       strings.TrimSpace(req.BatchNumber),
		MeltNumber:        strings.TrimSpace(req.MeltNumber),
		OrderNumber:       strings.TrimSpace(req.OrderNumber),
		Supplier:          strings.TrimSpace(req.Supplier),
		Status:            workflow.StatusReceived,
		NoMeltNumber:      req.NoMeltNumber,
		StatusChangedAt:   &now,
		StatusChangedBy:   actor.Name,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if source := strings.TrimSpace(req.CertificateSourcePath); source != "" {
		path, err := s.docs.FileIntake(ctx, source, s.docInfo(lot))
		if err != nil {
			return nil, err
		}
		lot.CertificatePath = path
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, lot); err != nil {
			return err
		}
		return s.audit.RecordTx(ctx, tx, auditdomain.Record{
			ActorID:    &actor.ID,
			ActorRole:  string(actor.Role),
			Action:     "lot.created",
			EntityType: "lot",
			EntityID:   lot.ID.String(),
			Details:    lot.Grade + " " + lot.Shape,
			Metadata: map[string]any{
				"melt_number":  lot.MeltNumber,
				"order_number": lot.OrderNumber,
				"supplier":     lot.Supplier,
			},
		})
	})
	if err != nil {
		s.metrics.RecordDBError(err)
		return nil, err
	}
	return lot, nil
}

// Transition implements domain.Service. It is the only operation that moves a
// lot between statuses.
func (s *Service) Transition(ctx context.Context, req lotdomain.TransitionRequest) (*lotdomain.TransitionResult, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return nil, lotdomain.ErrMissingActor
	}
	id, err := s.parseID(req.LotID)
	if err != nil {
		return nil, err
	}
	if !s.graph.Contains(req.Target) {
		return nil, lotdomain.ErrInvalidTarget
	}

	started := s.clock.Now()
	var (
		lot  *lotdomain.Lot
		from workflow.Status
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		lot, txErr = s.repo.FindByIDForUpdate(ctx, tx, id)
		if txErr != nil {
			return txErr
		}
		if lot == nil || lot.Deleted {
			return lotdomain.ErrLotNotFound
		}
		if req.ExpectedStatus != "" && lot.Status != req.ExpectedStatus {
			return lotdomain.ErrConflict
		}

		kind, txErr := s.validator.Validate(lot.Status, req.Target, actor.Role)
		if txErr != nil {
			return txErr
		}
		payload := req.RejectionReasons
		if kind == workflow.KindToLabTesting {
			payload = req.LabIssues
		}
		if txErr = s.validator.RequirePayload(kind, payload, req.Comment); txErr != nil {
			return txErr
		}

		from = lot.Status
		now := s.clock.Now().UTC()

		switch kind {
		case workflow.KindToRejected:
			lot.SetRejectionReasons(req.RejectionReasons)
		case workflow.KindToLabTesting:
			lot.SetLabIssues(req.LabIssues)
			lot.RequiresLabVerification = true
		}
		if comment := strings.TrimSpace(req.Comment); comment != "" {
			lot.AppendComment(lotdomain.CommentEntry{At: now, Actor: actor.Name, Text: comment})
		}
		if req.Target == workflow.StatusReceived && lot.EditRequested {
			lot.EditRequested = false
			lot.EditReason = ""
		}

		lot.Status = req.Target
		lot.StatusChangedAt = &now
		lot.StatusChangedBy = actor.Name
		lot.UpdatedAt = now

		if txErr = s.repo.UpdateTransition(ctx, tx, lot); txErr != nil {
			return txErr
		}
		return s.audit.RecordTx(ctx, tx, auditdomain.Record{
			ActorID:    &actor.ID,
			ActorRole:  string(actor.Role),
			Action:     "lot.transition",
			EntityType: "lot",
			EntityID:   lot.ID.String(),
			Details:    string(from) + " -> " + string(req.Target),
			Metadata: map[string]any{
				"from":    string(from),
				"to":      string(req.Target),
				"comment": strings.TrimSpace(req.Comment),
			},
		})
	})
	if err != nil {
		s.observeTransition(from, req.Target, err, started)
		return nil, err
	}

	result := &lotdomain.TransitionResult{Lot: lot}

	// Post-commit: the transition stands regardless of what happens below.
	if req.Target == workflow.StatusApproved && lot.CertificatePath != "" {
		s.archiveCertificate(ctx, lot, result)
	}
	s.notify(lot, from, req)
	s.observeTransition(from, req.Target, nil, started)

	return result, nil
}

// archiveCertificate moves the certificate into the archive trees and records
// the new canonical path. Failures become snapshot warnings, never errors.
func (s *Service) archiveCertificate(ctx context.Context, lot *lotdomain.Lot, result *lotdomain.TransitionResult) {
	path, err := s.docs.Archive(ctx, s.docInfo(lot))
	if err != nil {
		warning := "certificate archive failed"
		if errors.Is(err, document.ErrArtifactMissing) {
			warning = "certificate artifact missing"
		}
		result.Warnings = append(result.Warnings, warning)
		s.log.Warn("certificate archive failed",
			zap.String("lot_id", lot.ID.String()),
			zap.Error(err),
		)
		s.audit.Record(ctx, auditdomain.Record{
			Action:     "document.archive_failed",
			EntityType: "lot",
			EntityID:   lot.ID.String(),
			Details:    err.Error(),
		})
		return
	}

	lot.CertificatePath = path
	now := s.clock.Now().UTC()
	if err := s.repo.UpdateCertificatePath(ctx, s.db, lot.ID, path, now); err != nil {
		result.Warnings = append(result.Warnings, "certificate path not persisted")
		s.log.Warn("certificate path update failed",
			zap.String("lot_id", lot.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) notify(lot *lotdomain.Lot, from workflow.Status, req lotdomain.TransitionRequest) {
	ref := notification.LotRef{
		ID:         lot.ID.String(),
		Grade:      lot.Grade,
		MeltNumber: lot.MeltNumber,
		Supplier:   lot.Supplier,
		OrderNo:    lot.OrderNumber,
	}

	var event notification.Event
	switch {
	case req.Target == workflow.StatusApproved:
		event = notification.QCApproved{Lot: ref}
	case req.Target == workflow.StatusQCFailed || req.Target == workflow.StatusRejected:
		event = notification.QCRejected{Lot: ref, Reasons: req.RejectionReasons}
	case req.Target == workflow.StatusTestingCompleted && req.LabOutcome == lotdomain.LabOutcomeFailed:
		event = notification.LabTestFailed{Lot: ref, Discrepancies: req.LabIssues}
	case req.Target == workflow.StatusInUse:
		event = notification.FinalAcceptance{Lot: ref}
	default:
		event = notification.StatusChanged{Lot: ref, From: string(from), To: string(req.Target), Actor: lot.StatusChangedBy}
	}
	s.dispatcher.Dispatch(event)
}

func (s *Service) observeTransition(from, to workflow.Status, err error, started time.Time) {
	outcome := "committed"
	switch {
	case err == nil:
	case errors.Is(err, lotdomain.ErrConflict):
		outcome = "conflict"
	case errors.Is(err, workflow.ErrForbidden),
		errors.Is(err, workflow.ErrTerminalStatus),
		errors.Is(err, workflow.ErrUnknownStatus),
		errors.Is(err, workflow.ErrMissingReasons):
		outcome = "denied"
	default:
		outcome = "error"
		s.metrics.RecordDBError(err)
	}
	s.metrics.ObserveTransition(string(from), string(to), outcome, s.clock.Now().Sub(started))
}

// Get implements domain.Service.
func (s *Service) Get(ctx context.Context, id string) (*lotdomain.Lot, error) {
	lotID, err := s.parseID(id)
	if err != nil {
		return nil, err
	}
	lot, err := s.repo.FindByID(ctx, s.db, lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil || lot.Deleted {
		return nil, lotdomain.ErrLotNotFound
	}
	return lot, nil
}

// List implements domain.Service.
func (s *Service) List(ctx context.Context, req lotdomain.ListLotsRequest) (lotdomain.ListLotsResponse, error) {
	query := &lotdomain.Lot{
		Grade:       strings.TrimSpace(req.Grade),
		MeltNumber:  strings.TrimSpace(req.MeltNumber),
		Supplier:    strings.TrimSpace(req.Supplier),
		OrderNumber: strings.TrimSpace(req.OrderNumber),
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := workflow.ParseStatus(raw)
		if !ok {
			return lotdomain.ListLotsResponse{}, lotdomain.ErrInvalidTarget
		}
		query.Status = status
	}

	size := req.PageSize
	if size <= 0 {
		size = 50
	}
	if size > 250 {
		size = 250
	}

	rows, err := s.store.Find(ctx, query,
		option.ApplyOperator(option.Condition{Field: "deleted", Operator: option.EQ, Value: false}),
		option.WithSortBy(option.QuerySortBy{Field: "created_at", Order: "desc"}),
		option.ApplyPagination(pagination.Pagination{PageToken: req.PageToken, PageSize: size}),
	)
	if err != nil {
		return lotdomain.ListLotsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(rows, size, func(l *lotdomain.Lot) string {
		token, encErr := pagination.EncodeCursor(pagination.Cursor{
			ID:        l.ID.String(),
			CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
		})
		if encErr != nil {
			return ""
		}
		return token
	})
	if len(rows) > int(size) {
		rows = rows[:size]
	}

	lots := make([]lotdomain.Lot, 0, len(rows))
	for _, row := range rows {
		lots = append(lots, *row)
	}
	return lotdomain.ListLotsResponse{PageInfo: *pageInfo, Lots: lots}, nil
}

// SubmitQCCheck implements domain.Service. Resubmission replaces the prior
// round for the lot.
func (s *Service) SubmitQCCheck(ctx context.Context, req lotdomain.SubmitQCCheckRequest) (*lotdomain.QCCheck, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return nil, lotdomain.ErrMissingActor
	}
	id, err := s.parseID(req.LotID)
	if err != nil {
		return nil, err
	}
	chemistry, err := parseChemistry(req.Chemistry)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	check := &lotdomain.QCCheck{
		ID:    s.genID.Generate(),
		LotID: id,

		CertificateReadable:    req.CertificateReadable,
		MaterialMatches:        req.MaterialMatches,
		DimensionsMatch:        req.DimensionsMatch,
		CertificateDataCorrect: req.CertificateDataCorrect,

		Repurchase:        req.Repurchase,
		PoorQuality:       req.PoorQuality,
		NoStamp:           req.NoStamp,
		DiameterDeviation: req.DiameterDeviation,
		Cracks:            req.Cracks,
		NoMeltStamp:       req.NoMeltStamp,
		NoCertificate:     req.NoCertificate,
		CertificateCopy:   req.CertificateCopy,

		Chemistry: chemistry,
		Notes:     strings.TrimSpace(req.Notes),

		CheckedBy:   actor.Name,
		CheckedByID: &actor.ID,
		CheckedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lot, txErr := s.repo.FindByIDForUpdate(ctx, tx, id)
		if txErr != nil {
			return txErr
		}
		if lot == nil || lot.Deleted {
			return lotdomain.ErrLotNotFound
		}

		// The lab flag is only meaningful where the graph can actually route
		// the lot into lab testing.
		if req.RequiresLabVerification && !statusIn(s.graph.Allowed(lot.Status, workflow.RoleAdmin), workflow.StatusLabTesting) {
			return lotdomain.ErrLabFlagBlocked
		}

		if txErr = s.repo.SaveQCCheck(ctx, tx, check); txErr != nil {
			return txErr
		}
		if lot.RequiresLabVerification != req.RequiresLabVerification {
			if txErr = s.repo.SetRequiresLab(ctx, tx, id, req.RequiresLabVerification, now); txErr != nil {
				return txErr
			}
		}
		return s.audit.RecordTx(ctx, tx, auditdomain.Record{
			ActorID:    &actor.ID,
			ActorRole:  string(actor.Role),
			Action:     "qc_check.submitted",
			EntityType: "lot",
			EntityID:   id.String(),
			Details:    strings.Join(check.IssueFlags(), ", "),
			Metadata: map[string]any{
				"requires_lab_verification": req.RequiresLabVerification,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return check, nil
}

// GetQCCheck implements domain.Service.
func (s *Service) GetQCCheck(ctx context.Context, lotID string) (*lotdomain.QCCheck, error) {
	id, err := s.parseID(lotID)
	if err != nil {
		return nil, err
	}
	check, err := s.repo.FindQCCheck(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if check == nil {
		return nil, lotdomain.ErrQCCheckNotFound
	}
	return check, nil
}

// RequestEdit implements domain.Service. It flags the lot; the status move to
// EDIT_REQUESTED still goes through Transition.
func (s *Service) RequestEdit(ctx context.Context, req lotdomain.RequestEditRequest) (*lotdomain.Lot, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return nil, lotdomain.ErrMissingActor
	}
	id, err := s.parseID(req.LotID)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, lotdomain.ErrMissingEditReason
	}

	var lot *lotdomain.Lot
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		lot, txErr = s.repo.FindByIDForUpdate(ctx, tx, id)
		if txErr != nil {
			return txErr
		}
		if lot == nil || lot.Deleted {
			return lotdomain.ErrLotNotFound
		}

		lot.EditRequested = true
		lot.EditReason = reason
		lot.UpdatedAt = s.clock.Now().UTC()
		if txErr = s.repo.UpdateEditRequest(ctx, tx, lot); txErr != nil {
			return txErr
		}
		return s.audit.RecordTx(ctx, tx, auditdomain.Record{
			ActorID:    &actor.ID,
			ActorRole:  string(actor.Role),
			Action:     "lot.edit_requested",
			EntityType: "lot",
			EntityID:   id.String(),
			Details:    reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// SoftDelete implements domain.Service.
func (s *Service) SoftDelete(ctx context.Context, id string) error {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return lotdomain.ErrMissingActor
	}
	if actor.Role != workflow.RoleAdmin {
		return workflow.ErrForbidden
	}
	lotID, err := s.parseID(id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lot, txErr := s.repo.FindByIDForUpdate(ctx, tx, lotID)
		if txErr != nil {
			return txErr
		}
		if lot == nil || lot.Deleted {
			return lotdomain.ErrLotNotFound
		}

		now := s.clock.Now().UTC()
		if txErr = s.repo.SoftDelete(ctx, tx, lotID, now); txErr != nil {
			return txErr
		}
		return s.audit.RecordTx(ctx, tx, auditdomain.Record{
			ActorID:    &actor.ID,
			ActorRole:  string(actor.Role),
			Action:     "lot.deleted",
			EntityType: "lot",
			EntityID:   lotID.String(),
		})
	})
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, lotdomain.ErrInvalidLotID
	}
	return id, nil
}

func (s *Service) docInfo(lot *lotdomain.Lot) document.LotInfo {
	return document.LotInfo{
		Grade:             lot.Grade,
		Shape:             lot.Shape,
		Size:              lot.Size,
		MeltNumber:        lot.MeltNumber,
		CertificateNumber: lot.CertificateNumber,
		CertificateDate:   lot.CertificateDate,
		Supplier:          lot.Supplier,
		OrderNumber:       lot.OrderNumber,
		CertificatePath:   lot.CertificatePath,
	}
}

func validateCreate(req lotdomain.CreateLotRequest) error {
	if strings.TrimSpace(req.Grade) == "" {
		return lotdomain.ErrMissingGrade
	}
	if strings.TrimSpace(req.Shape) == "" {
		return lotdomain.ErrMissingShape
	}
	if req.Quantity <= 0 {
		return lotdomain.ErrInvalidQuantity
	}
	if strings.TrimSpace(req.MeltNumber) == "" && !req.NoMeltNumber {
		return lotdomain.ErrMissingMelt
	}
	return nil
}

// parseChemistry converts element values to numbers, accepting both decimal
// comma and decimal point input.
func parseChemistry(values map[string]string) (datatypes.JSONMap, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := datatypes.JSONMap{}
	for element, raw := range values {
		raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, lotdomain.ErrInvalidChemistry
		}
		out[element] = value
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func statusIn(set []workflow.Status, status workflow.Status) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}
