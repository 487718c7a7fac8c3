package transport

import (
	"net/http"

	"farmart/internal/domain"
	"farmart/internal/middleware"
	"farmart/internal/pagination"
	"farmart/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateOrderRequest is the checkout payload
type CreateOrderRequest struct {
	ShippingAddress *domain.ShippingAddress `json:"shipping_address" validate:"required"`
	PaymentMethod   string                  `json:"payment_method" validate:"omitempty,max=50"`
	Notes           string                  `json:"notes" validate:"max=500"`
}

type OrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderHandler handles HTTP requests for orders
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

func (h *OrderHandler) RegisterRoutes(r chi.Router, routes Routes) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(routes.Auth)
		r.Post("/", h.Create)
		r.Get("/", h.ListMine)
		r.Get("/farmer-orders", h.ListForFarmer)
		r.Get("/{id}", h.Get)
		r.Put("/{id}/status", h.UpdateStatus)
	})
}

// Create checks out the caller's cart
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	actor := actorFrom(r)
	order, err := h.orderService.Create(r.Context(), actor, domain.CheckoutDetails{
		ShippingAddress: *req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		h.logger.Info("Order creation failed", zap.String("user_id", actor.UserID.String()), zap.Error(err))
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "Order created successfully",
		"order":   order,
	})
}

func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	page, err := h.orderService.ListMine(r.Context(), actorFrom(r), pagination.FromRequest(r))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, pageBody("orders", page))
}

// ListForFarmer lists orders containing at least one of the caller's animals
func (h *OrderHandler) ListForFarmer(w http.ResponseWriter, r *http.Request) {
	page, err := h.orderService.ListForFarmer(r.Context(), actorFrom(r), pagination.FromRequest(r))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, pageBody("orders", page))
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	order, err := h.orderService.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	var req OrderStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	actor := actorFrom(r)
	order, err := h.orderService.UpdateStatus(r.Context(), actor, id, req.Status)
	if err != nil {
		h.logger.Info("Order status update failed",
			zap.String("order_id", id.String()),
			zap.String("user_id", actor.UserID.String()),
			zap.Error(err),
		)
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "Order " + order.Status.String() + " successfully",
		"order":   order,
	})
}
