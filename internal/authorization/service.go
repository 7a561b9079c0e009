package authorization

import (
	"context"
	"errors"

	"github.com/ferrolab/certline/internal/actorcontext"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

// Service answers whether an actor may perform an action on an object class.
// Object-level checks (ownership, status) stay in the domain services; this
// layer only gates capabilities per role.
type Service interface {
	Authorize(ctx context.Context, actor actorcontext.Actor, object, action string) error
}
