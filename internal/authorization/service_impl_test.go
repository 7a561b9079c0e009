package authorization

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/ferrolab/certline/internal/actorcontext"
	"github.com/ferrolab/certline/internal/workflow"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func actorWith(role workflow.Role) actorcontext.Actor {
	return actorcontext.Actor{ID: snowflake.ID(99), Name: "tester", Role: role}
}

func TestRoleCapabilities(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		role    workflow.Role
		object  string
		action  string
		allowed bool
	}{
		{workflow.RoleWarehouse, ObjectLot, ActionLotCreate, true},
		{workflow.RoleWarehouse, ObjectLot, ActionLotDelete, false},
		{workflow.RoleWarehouse, ObjectQCCheck, ActionQCCheckSubmit, false},
		{workflow.RoleQC, ObjectQCCheck, ActionQCCheckSubmit, true},
		{workflow.RoleQC, ObjectLot, ActionLotDelete, false},
		{workflow.RoleQC, ObjectAuditLog, ActionAuditLogView, true},
		{workflow.RoleLab, ObjectLot, ActionLotTransition, true},
		{workflow.RoleLab, ObjectLot, ActionLotCreate, false},
		{workflow.RoleAdmin, ObjectLot, ActionLotDelete, true},
		{workflow.RoleAdmin, ObjectDocument, ActionDocumentSearch, true},
	}
	for _, tt := range tests {
		err := svc.Authorize(ctx, actorWith(tt.role), tt.object, tt.action)
		if tt.allowed {
			assert.NoError(t, err, "%s %s %s", tt.role, tt.object, tt.action)
		} else {
			assert.ErrorIs(t, err, ErrForbidden, "%s %s %s", tt.role, tt.object, tt.action)
		}
	}
}

func TestRoleChangeSupersedesGrouping(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	actor := actorWith(workflow.RoleAdmin)
	require.NoError(t, svc.Authorize(ctx, actor, ObjectLot, ActionLotDelete))

	// Same subject demoted to warehouse loses the admin capability.
	actor.Role = workflow.RoleWarehouse
	assert.ErrorIs(t, svc.Authorize(ctx, actor, ObjectLot, ActionLotDelete), ErrForbidden)
}

func TestAuthorizeRejectsIncompleteInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, actorcontext.Actor{}, ObjectLot, ActionLotView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, actorWith(workflow.RoleQC), "", ActionLotView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, actorWith(workflow.RoleQC), ObjectLot, ""), ErrInvalidAction)
}
