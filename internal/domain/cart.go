package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxQuantity caps a single cart or order line
const MaxQuantity = 1000

// ValidateQuantity accepts quantities in [1, MaxQuantity]
func ValidateQuantity(quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if quantity > MaxQuantity {
		return ErrQuantityTooLarge
	}
	return nil
}

// Cart is the single pending-purchase basket of a customer
type Cart struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Items       []CartItem `json:"items"`
	TotalAmount float64    `json:"total_amount"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CartItem is one (animal, quantity) line of a cart
type CartItem struct {
	ID        uuid.UUID `json:"id"`
	CartID    uuid.UUID `json:"cart_id"`
	AnimalID  uuid.UUID `json:"animal_id"`
	Animal    *Animal   `json:"animal,omitempty"`
	Quantity  int       `json:"quantity"`
	Subtotal  float64   `json:"subtotal"`
	CreatedAt time.Time `json:"created_at"`
}

// Recalculate refreshes line subtotals and the cart total from current animal prices
func (c *Cart) Recalculate() {
	total := 0.0
	for i := range c.Items {
		item := &c.Items[i]
		if item.Animal == nil {
			item.Subtotal = 0
			continue
		}
		item.Subtotal = LineSubtotal(item.Quantity, item.Animal.Price)
		total += item.Subtotal
	}
	c.TotalAmount = roundCents(total)
}

// ItemFor returns the line holding the animal, if any
func (c *Cart) ItemFor(animalID uuid.UUID) (*CartItem, bool) {
	for i := range c.Items {
		if c.Items[i].AnimalID == animalID {
			return &c.Items[i], true
		}
	}
	return nil, false
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
