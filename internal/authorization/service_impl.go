package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/ferrolab/certline/internal/actorcontext"
	auditdomain "github.com/ferrolab/certline/internal/audit/domain"
	"github.com/ferrolab/certline/internal/workflow"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectLot      = "lot"
	ObjectQCCheck  = "qc_check"
	ObjectAuditLog = "audit_log"
	ObjectDocument = "document"
)

const (
	ActionLotView        = "lot.view"
	ActionLotCreate      = "lot.create"
	ActionLotTransition  = "lot.transition"
	ActionLotDelete      = "lot.delete"
	ActionLotEditRequest = "lot.edit_request"

	ActionQCCheckSubmit = "qc_check.submit"
	ActionQCCheckView   = "qc_check.view"

	ActionAuditLogView = "audit_log.view"

	ActionDocumentSearch = "document.search"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor actorcontext.Actor, object, action string) error {
	if actor.ID == 0 || actor.Role == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := "user:" + actor.ID.String()
	roleName := "role:" + string(actor.Role)
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actor, object, action)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link per subject so a role change on
// the next request supersedes the previous one.
func (s *ServiceImpl) ensureGrouping(subject, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actor actorcontext.Actor, object, action string) {
	if s.auditSvc == nil {
		return
	}
	s.auditSvc.Record(ctx, auditdomain.Record{
		ActorID:    &actor.ID,
		ActorRole:  string(actor.Role),
		Action:     "authorization.denied",
		EntityType: "capability",
		EntityID:   object,
		Details:    action,
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	warehouse := "role:" + string(workflow.RoleWarehouse)
	qc := "role:" + string(workflow.RoleQC)
	lab := "role:" + string(workflow.RoleLab)
	admin := "role:" + string(workflow.RoleAdmin)

	policies := [][]string{
		{warehouse, ObjectLot, ActionLotView},
		{warehouse, ObjectLot, ActionLotCreate},
		{warehouse, ObjectLot, ActionLotTransition},
		{warehouse, ObjectQCCheck, ActionQCCheckView},
		{warehouse, ObjectDocument, ActionDocumentSearch},

		{qc, ObjectLot, ActionLotView},
		{qc, ObjectLot, ActionLotTransition},
		{qc, ObjectLot, ActionLotEditRequest},
		{qc, ObjectQCCheck, ActionQCCheckSubmit},
		{qc, ObjectQCCheck, ActionQCCheckView},
		{qc, ObjectDocument, ActionDocumentSearch},
		{qc, ObjectAuditLog, ActionAuditLogView},

		{lab, ObjectLot, ActionLotView},
		{lab, ObjectLot, ActionLotTransition},
		{lab, ObjectQCCheck, ActionQCCheckView},
		{lab, ObjectDocument, ActionDocumentSearch},

		{admin, ObjectLot, ActionLotView},
		{admin, ObjectLot, ActionLotCreate},
		{admin, ObjectLot, ActionLotTransition},
		{admin, ObjectLot, ActionLotDelete},
		{admin, ObjectLot, ActionLotEditRequest},
		{admin, ObjectQCCheck, ActionQCCheckSubmit},
		{admin, ObjectQCCheck, ActionQCCheckView},
		{admin, ObjectAuditLog, ActionAuditLogView},
		{admin, ObjectDocument, ActionDocumentSearch},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
