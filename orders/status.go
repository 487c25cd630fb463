package orders

import "merx/models"

// StatusPolicy decides which status transitions UpdateOrderStatus accepts.
// The default (Strict false) allows any status to move to any other,
// matching the behaviour the API has always had; Strict makes Completed and
// Cancelled terminal.
type StatusPolicy struct {
	Strict bool
}

func (p StatusPolicy) Allowed(from, to models.OrderStatus) bool {
	if !p.Strict {
		return true
	}
	switch from {
	case models.StatusCompleted, models.StatusCancelled:
		return from == to
	}
	return true
}
