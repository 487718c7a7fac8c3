package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"farmart/internal/domain"
	"farmart/internal/pagination"
	"farmart/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService defines the interface for order business logic
type OrderService interface {
	Create(ctx context.Context, actor domain.Actor, details domain.CheckoutDetails) (*domain.Order, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, error)
	ListMine(ctx context.Context, actor domain.Actor, page pagination.Params) (pagination.Page[*domain.Order], error)
	ListForFarmer(ctx context.Context, actor domain.Actor, page pagination.Params) (pagination.Page[*domain.Order], error)
	UpdateStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, status string) (*domain.Order, error)
}

type orderService struct {
	orderRepo repository.OrderRepository
	userRepo  repository.UserRepository
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		userRepo:  userRepo,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// Create checks out the customer's cart.
// Notifications are dispatched only after the order transaction has committed.
func (s *orderService) Create(ctx context.Context, actor domain.Actor, details domain.CheckoutDetails) (*domain.Order, error) {
	if !actor.IsCustomer() {
		return nil, domain.ErrCustomerOnly
	}

	details.PaymentMethod = strings.TrimSpace(details.PaymentMethod)
	details.Notes = strings.TrimSpace(details.Notes)

	order, err := s.orderRepo.CreateFromCart(ctx, actor.UserID, details, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", actor.UserID.String()),
		zap.Float64("total_amount", order.TotalAmount),
	)

	s.notifyOrderPlaced(ctx, order)

	return order, nil
}

// notifyOrderPlaced loads the recipients and hands them to the notifier.
// A customer that cannot be loaded is passed as nil so farmers are still told.
func (s *orderService) notifyOrderPlaced(ctx context.Context, order *domain.Order) {
	customer, err := s.userRepo.FindByID(ctx, order.CustomerID)
	if err != nil {
		s.logger.Error("Failed to load customer for order notification",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		customer = nil
	}

	farmers := make([]*domain.User, 0)
	for _, farmerID := range order.FarmerIDs() {
		farmer, err := s.userRepo.FindByID(ctx, farmerID)
		if err != nil {
			s.logger.Error("Failed to load farmer for order notification",
				zap.String("order_id", order.ID.String()),
				zap.String("farmer_id", farmerID.String()),
				zap.Error(err),
			)
			continue
		}
		farmers = append(farmers, farmer)
	}

	s.notifier.OrderPlaced(order, customer, farmers)
}

// Get returns the order to its customer, a farmer with an item in it, or an admin
func (s *orderService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	switch {
	case actor.IsAdmin():
	case actor.IsCustomer() && order.CustomerID == actor.UserID:
	case actor.IsFarmer() && order.HasFarmer(actor.UserID):
	default:
		return nil, domain.ErrOrderForbidden
	}
	return order, nil
}

func (s *orderService) ListMine(ctx context.Context, actor domain.Actor, page pagination.Params) (pagination.Page[*domain.Order], error) {
	if !actor.IsCustomer() {
		return pagination.Page[*domain.Order]{}, domain.ErrCustomerOnly
	}

	orders, total, err := s.orderRepo.ListByCustomer(ctx, actor.UserID, page)
	if err != nil {
		return pagination.Page[*domain.Order]{}, fmt.Errorf("failed to list orders: %w", err)
	}
	return pagination.NewPage(orders, page, total), nil
}

func (s *orderService) ListForFarmer(ctx context.Context, actor domain.Actor, page pagination.Params) (pagination.Page[*domain.Order], error) {
	if !actor.IsFarmer() {
		return pagination.Page[*domain.Order]{}, domain.ErrFarmerOnly
	}

	orders, total, err := s.orderRepo.ListByFarmer(ctx, actor.UserID, page)
	if err != nil {
		return pagination.Page[*domain.Order]{}, fmt.Errorf("failed to list farmer orders: %w", err)
	}
	return pagination.NewPage(orders, page, total), nil
}

func (s *orderService) UpdateStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, status string) (*domain.Order, error) {
	if !actor.IsFarmer() {
		return nil, domain.ErrFarmerOnly
	}

	next, ok := domain.ParseOrderStatus(status)
	if !ok {
		return nil, domain.ErrInvalidStatus.WithMessage("invalid status %q", status)
	}

	order, err := s.orderRepo.UpdateStatus(ctx, id, actor.UserID, next)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", actor.UserID.String()),
		zap.String("status", order.Status.String()),
	)
	return order, nil
}
