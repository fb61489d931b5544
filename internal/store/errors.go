package store

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeDestroyed indicates an operation on a destroyed store.
	ErrCodeDestroyed ErrorCode = "STORE_DESTROYED"

	// ErrCodeUnknownEffect indicates an effect kind the engine cannot schedule.
	// The effect is skipped; bookkeeping is left untouched.
	ErrCodeUnknownEffect ErrorCode = "UNKNOWN_EFFECT"
)

// Error is a store error with structured fields for diagnostics.
type Error struct {
	Code     ErrorCode
	Message  string
	StoreID  string
	EffectID string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.EffectID != "" {
		return fmt.Sprintf("%s: %s (store=%s, effect=%s)", e.Code, e.Message, e.StoreID, e.EffectID)
	}
	if e.StoreID != "" {
		return fmt.Sprintf("%s: %s (store=%s)", e.Code, e.Message, e.StoreID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsDestroyed reports whether err is a destroyed-store error.
// Uses errors.As to handle wrapped errors.
func IsDestroyed(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == ErrCodeDestroyed
	}
	return false
}

func newDestroyedError(storeID string) *Error {
	return &Error{
		Code:    ErrCodeDestroyed,
		Message: "store has been destroyed",
		StoreID: storeID,
	}
}
