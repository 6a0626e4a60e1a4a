package ordering

import (
	"fmt"

	"github.com/ray-remotestate/foodie/apperr"
	"github.com/ray-remotestate/foodie/models"
)

// CheckTransition allows any strictly later status on the forward path, or cancelled,
// from a non-terminal status.
func CheckTransition(from, to models.OrderStatus) error {
	if from.IsTerminal() {
		return fmt.Errorf("%w: order is already %s", apperr.ErrInvalidTransition, from)
	}
	if to == models.StatusCancelled {
		return nil
	}
	if to.Rank() <= from.Rank() {
		return fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, from, to)
	}
	return nil
}

// CheckCancellable rejects cancellation of delivered and already cancelled orders.
func CheckCancellable(status models.OrderStatus) error {
	if status.IsTerminal() {
		return fmt.Errorf("%w: order is %s", apperr.ErrNotCancellable, status)
	}
	return nil
}
