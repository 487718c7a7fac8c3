package transport

import (
	"net/http"

	"farmart/internal/domain"
	"farmart/internal/middleware"
	"farmart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AddToCartRequest struct {
	AnimalID string `json:"animal_id" validate:"required,uuid"`
	Quantity *int   `json:"quantity" validate:"omitempty,max=1000"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"max=1000"`
}

// CartHandler handles HTTP requests for the customer cart
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

func (h *CartHandler) RegisterRoutes(r chi.Router, routes Routes) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(routes.Auth)
		r.Get("/", h.Get)
		r.Post("/add", h.AddItem)
		r.Put("/items/{id}", h.UpdateItem)
		r.Delete("/items/{id}", h.RemoveItem)
		r.Delete("/clear", h.Clear)
	})
}

func (h *CartHandler) respond(w http.ResponseWriter, message string, cart *domain.Cart) {
	body := map[string]any{"cart": cart}
	if message != "" {
		body["message"] = message
	}
	middleware.RespondWithJSON(w, http.StatusOK, body)
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cartService.Get(r.Context(), actorFrom(r))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	h.respond(w, "", cart)
}

// AddItem adds an animal to the cart; quantity defaults to 1
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	actor := actorFrom(r)
	cart, err := h.cartService.AddItem(r.Context(), actor, uuid.MustParse(req.AnimalID), quantity)
	if err != nil {
		h.logger.Info("Add to cart failed",
			zap.String("user_id", actor.UserID.String()),
			zap.String("animal_id", req.AnimalID),
			zap.Error(err),
		)
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.respond(w, "Item added to cart successfully", cart)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	var req UpdateCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	cart, err := h.cartService.UpdateItem(r.Context(), actorFrom(r), itemID, req.Quantity)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.respond(w, "Cart item updated successfully", cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	cart, err := h.cartService.RemoveItem(r.Context(), actorFrom(r), itemID)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.respond(w, "Item removed from cart successfully", cart)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cartService.Clear(r.Context(), actorFrom(r))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.respond(w, "Cart cleared successfully", cart)
}
