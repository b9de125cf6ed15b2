package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic   = fmt.Errorf("worker panic")
	ErrPersistence   = fmt.Errorf("persistence failure")
	ErrValidation    = fmt.Errorf("validation failure")
	ErrBadCursor     = fmt.Errorf("invalid cursor")
	ErrUnknownDriver = fmt.Errorf("unknown store driver")
	ErrEmptyName     = fmt.Errorf("nickname is empty")
	ErrUnnamed       = fmt.Errorf("session has no nickname yet")
	ErrEmptyMessage  = fmt.Errorf("message is empty")
)

// Kind is the machine-readable class of an error, exposed in the HTTP error envelope.
type Kind string

const (
	KindPersistence Kind = "persistence"
	KindValidation  Kind = "validation"
	KindBadRequest  Kind = "bad_request"
	KindInternal    Kind = "internal"
)

// Persistence marks err as a store failure. A nil err stays nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

func KindOf(err error) Kind {
	switch {
	case stderrors.Is(err, ErrPersistence):
		return KindPersistence
	case stderrors.Is(err, ErrValidation):
		return KindValidation
	case stderrors.Is(err, ErrBadCursor):
		return KindBadRequest
	default:
		return KindInternal
	}
}
