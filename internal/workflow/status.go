// Package workflow defines the certification state machine: the closed set of
// lot statuses, the actor roles, and the role-gated transition graph that
// every status change must pass through.
package workflow

import "strings"

// Status is a vertex of the certification graph. Lots never hold a status
// outside this set.
type Status string

const (
	StatusReceived         Status = "RECEIVED"
	StatusPendingQC        Status = "PENDING_QC"
	StatusQCChecked        Status = "QC_CHECKED"
	StatusQCPassed         Status = "QC_PASSED"
	StatusQCFailed         Status = "QC_FAILED"
	StatusLabTesting       Status = "LAB_TESTING"
	StatusSamplesRequested Status = "SAMPLES_REQUESTED"
	StatusSamplesCollected Status = "SAMPLES_COLLECTED"
	StatusTesting          Status = "TESTING"
	StatusTestingCompleted Status = "TESTING_COMPLETED"
	StatusApproved         Status = "APPROVED"
	StatusReadyForUse      Status = "READY_FOR_USE"
	StatusInUse            Status = "IN_USE"
	StatusRejected         Status = "REJECTED"
	StatusArchived         Status = "ARCHIVED"
	StatusEditRequested    Status = "EDIT_REQUESTED"
)

// Role categorizes actors; the graph grants edges per role.
type Role string

const (
	RoleWarehouse Role = "warehouse"
	RoleQC        Role = "qc"
	RoleLab       Role = "lab"
	RoleAdmin     Role = "admin"
)

// AllStatuses lists every vertex of the graph.
func AllStatuses() []Status {
	return []Status{
		StatusReceived,
		StatusPendingQC,
		StatusQCChecked,
		StatusQCPassed,
		StatusQCFailed,
		StatusLabTesting,
		StatusSamplesRequested,
		StatusSamplesCollected,
		StatusTesting,
		StatusTestingCompleted,
		StatusApproved,
		StatusReadyForUse,
		StatusInUse,
		StatusRejected,
		StatusArchived,
		StatusEditRequested,
	}
}

// AllRoles lists every actor role.
func AllRoles() []Role {
	return []Role{RoleWarehouse, RoleQC, RoleLab, RoleAdmin}
}

// ParseStatus parses a caller-supplied status string.
func ParseStatus(raw string) (Status, bool) {
	status := Status(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range AllStatuses() {
		if status == known {
			return status, true
		}
	}
	return "", false
}

// ParseRole parses a caller-supplied role string.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllRoles() {
		if role == known {
			return role, true
		}
	}
	return "", false
}
