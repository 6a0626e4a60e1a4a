// Package apperr holds the error kinds shared by the order engine, the stores and the
// HTTP layer. Callers wrap them with fmt.Errorf("%w") and inspect them with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrItemUnavailable = errors.New("item unavailable")
	ErrValidation      = errors.New("validation failed")
	ErrUnauthorized    = errors.New("not authorized")

	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotCancellable    = errors.New("order cannot be cancelled")
	ErrNotDeliverable    = errors.New("order has not been delivered")
	ErrAlreadyRated      = errors.New("order already rated")
	ErrInvalidRating     = errors.New("invalid rating")
	ErrAlreadyRefunded   = errors.New("order already refunded")

	ErrConflict  = errors.New("concurrent update conflict")
	ErrTransient = errors.New("temporary storage failure")
	ErrDuplicate = errors.New("already exists")
)

// IsGuard reports whether err is a state-machine guard violation.
func IsGuard(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrNotCancellable) ||
		errors.Is(err, ErrNotDeliverable) ||
		errors.Is(err, ErrAlreadyRated) ||
		errors.Is(err, ErrAlreadyRefunded)
}
