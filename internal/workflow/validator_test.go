package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHappyPath(t *testing.T) {
	v := NewValidator(NewGraph())

	kind, err := v.Validate(StatusReceived, StatusPendingQC, RoleWarehouse)
	require.NoError(t, err)
	assert.Equal(t, KindNormal, kind)

	kind, err = v.Validate(StatusPendingQC, StatusQCFailed, RoleQC)
	require.NoError(t, err)
	assert.Equal(t, KindToRejected, kind)

	kind, err = v.Validate(StatusQCChecked, StatusLabTesting, RoleQC)
	require.NoError(t, err)
	assert.Equal(t, KindToLabTesting, kind)
}

func TestValidateUnknownStatus(t *testing.T) {
	v := NewValidator(NewGraph())

	_, err := v.Validate(Status("SOMETHING"), StatusPendingQC, RoleQC)
	assert.ErrorIs(t, err, ErrUnknownStatus)

	_, err = v.Validate(StatusReceived, Status("ELSEWHERE"), RoleWarehouse)
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestValidateTerminalStatus(t *testing.T) {
	v := NewValidator(NewGraph())

	for _, terminal := range []Status{StatusInUse, StatusArchived} {
		_, err := v.Validate(terminal, StatusPendingQC, RoleAdmin)
		assert.ErrorIs(t, err, ErrTerminalStatus, "status %s", terminal)
	}
}

// Every (status, role, target) triple absent from the graph must be rejected;
// a permitted triple must validate. This sweeps the full cartesian product.
func TestValidateFullSweep(t *testing.T) {
	g := NewGraph()
	v := NewValidator(g)

	for _, current := range AllStatuses() {
		for _, role := range AllRoles() {
			allowed := g.Allowed(current, role)
			for _, target := range AllStatuses() {
				kind, err := v.Validate(current, target, role)
				if g.IsTerminal(current) {
					assert.ErrorIs(t, err, ErrTerminalStatus)
					continue
				}
				if containsStatus(allowed, target) {
					assert.NoError(t, err, "%s -> %s as %s", current, target, role)
					assert.NotEmpty(t, kind)
				} else {
					assert.ErrorIs(t, err, ErrForbidden, "%s -> %s as %s", current, target, role)
				}
			}
		}
	}
}

func TestAdminInheritsAllEdges(t *testing.T) {
	g := NewGraph()

	for _, current := range AllStatuses() {
		for _, role := range []Role{RoleWarehouse, RoleQC, RoleLab} {
			for _, target := range g.Allowed(current, role) {
				assert.True(t, containsStatus(g.Allowed(current, RoleAdmin), target),
					"admin missing %s -> %s (held by %s)", current, target, role)
			}
		}
	}
}

func TestRequirePayload(t *testing.T) {
	v := NewValidator(NewGraph())

	tests := []struct {
		name    string
		kind    Kind
		reasons []string
		comment string
		wantErr error
	}{
		{"normal needs nothing", KindNormal, nil, "", nil},
		{"rejection with no data", KindToRejected, nil, "", ErrMissingReasons},
		{"rejection with blank data", KindToRejected, []string{"  "}, "   ", ErrMissingReasons},
		{"rejection with reason", KindToRejected, []string{"no_stamp"}, "", nil},
		{"rejection with comment", KindToRejected, nil, "cracks visible", nil},
		{"lab with no data", KindToLabTesting, nil, "", ErrMissingReasons},
		{"lab with issue flag", KindToLabTesting, []string{"diameter_deviation"}, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.RequirePayload(tt.kind, tt.reasons, tt.comment)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseStatusAndRole(t *testing.T) {
	status, ok := ParseStatus(" pending_qc ")
	require.True(t, ok)
	assert.Equal(t, StatusPendingQC, status)

	_, ok = ParseStatus("NOT_A_STATUS")
	assert.False(t, ok)

	role, ok := ParseRole("QC")
	require.True(t, ok)
	assert.Equal(t, RoleQC, role)

	_, ok = ParseRole("intern")
	assert.False(t, ok)
}
