package workflow

import (
	"errors"
	"strings"
)

// Kind classifies a permitted transition so the orchestrator knows which
// side-effect payload is mandatory.
type Kind string

const (
	// KindNormal requires no extra payload.
	KindNormal Kind = "normal"
	// KindToRejected requires at least one rejection reason or a comment.
	KindToRejected Kind = "to_rejected"
	// KindToLabTesting requires at least one issue flag or a comment.
	KindToLabTesting Kind = "to_lab_testing"
)

var (
	ErrUnknownStatus  = errors.New("unknown_status")
	ErrTerminalStatus = errors.New("terminal_status")
	ErrForbidden      = errors.New("transition_forbidden")
	ErrMissingReasons = errors.New("missing_transition_reasons")
)

// Validator answers whether a transition is permitted for a role and
// classifies its side-effect requirements.
type Validator struct {
	graph *Graph
}

func NewValidator(graph *Graph) *Validator {
	return &Validator{graph: graph}
}

// Validate checks (current, target, role) against the graph.
func (v *Validator) Validate(current, target Status, role Role) (Kind, error) {
	if !v.graph.Contains(current) || !v.graph.Contains(target) {
		return "", ErrUnknownStatus
	}
	if v.graph.IsTerminal(current) {
		return "", ErrTerminalStatus
	}
	if !containsStatus(v.graph.Allowed(current, role), target) {
		return "", ErrForbidden
	}
	return classify(target), nil
}

// RequirePayload enforces the side-effect data rule: a rejection- or
// lab-class transition needs at least one reason flag or a non-empty comment.
func (v *Validator) RequirePayload(kind Kind, reasons []string, comment string) error {
	switch kind {
	case KindToRejected, KindToLabTesting:
		if countNonEmpty(reasons) == 0 && strings.TrimSpace(comment) == "" {
			return ErrMissingReasons
		}
	}
	return nil
}

func classify(target Status) Kind {
	switch target {
	case StatusQCFailed, StatusRejected:
		return KindToRejected
	case StatusLabTesting:
		return KindToLabTesting
	default:
		return KindNormal
	}
}

func countNonEmpty(values []string) int {
	n := 0
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}
