package service

import "farmart/internal/domain"

// Notifier dispatches best-effort emails.
// Implementations must not block the caller and must not report delivery failures.
type Notifier interface {
	Welcome(user *domain.User)
	// OrderPlaced skips the customer confirmation when customer is nil
	OrderPlaced(order *domain.Order, customer *domain.User, farmers []*domain.User)
}
