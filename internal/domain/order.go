package domain

import (
	"crypto/rand"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the closed set of order states
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderRejected  OrderStatus = "rejected"
	OrderDelivered OrderStatus = "delivered"
	// OrderCancelled is kept for stored data; no transition reaches it.
	OrderCancelled OrderStatus = "cancelled"
)

// transitions lists, for every state, the states it may move to
var transitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderRejected},
	OrderConfirmed: {OrderDelivered},
	OrderRejected:  nil,
	OrderDelivered: nil,
	OrderCancelled: nil,
}

// ParseOrderStatus converts a raw string into an OrderStatus
func ParseOrderStatus(s string) (OrderStatus, bool) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := transitions[status]; !ok {
		return "", false
	}
	return status, true
}

// IsTerminal reports whether no transition leaves the status
func (s OrderStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsOpen reports whether animals referenced by an order in this status stay reserved
func (s OrderStatus) IsOpen() bool {
	return s == OrderPending || s == OrderConfirmed
}

func (s OrderStatus) String() string {
	return string(s)
}

// CanTransition reports whether from -> to is an allowed move
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition for disallowed moves
func ValidateTransition(from, to OrderStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return ErrInvalidTransition.WithMessage("cannot change order status from %s to %s", from, to)
}

// PaymentPending is the payment status of a freshly placed order
const PaymentPending = "pending"

// DefaultPaymentMethod is used when the customer does not pick one
const DefaultPaymentMethod = "credit_card"

// ShippingAddress is the structured delivery address snapshot
type ShippingAddress struct {
	FirstName  string `json:"first_name" validate:"required,max=80"`
	LastName   string `json:"last_name" validate:"required,max=80"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,phone"`
	Street     string `json:"street" validate:"required,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=100"`
}

// Order is the immutable record of a checkout; only Status and UpdatedAt change
type Order struct {
	ID              uuid.UUID       `json:"id"`
	OrderNumber     string          `json:"order_number"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	Status          OrderStatus     `json:"status"`
	TotalAmount     float64         `json:"total_amount"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentStatus   string          `json:"payment_status"`
	Notes           string          `json:"notes,omitempty"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem snapshots an animal line at purchase time.
// AnimalID is nil once the listing has been deleted.
type OrderItem struct {
	ID         uuid.UUID  `json:"id"`
	OrderID    uuid.UUID  `json:"order_id"`
	AnimalID   *uuid.UUID `json:"animal_id"`
	AnimalName string     `json:"animal_name"`
	FarmerID   uuid.UUID  `json:"farmer_id"`
	Quantity   int        `json:"quantity"`
	Price      float64    `json:"price"`
	Subtotal   float64    `json:"subtotal"`
	CreatedAt  time.Time  `json:"created_at"`
}

// HasFarmer reports whether the farmer owns at least one line
func (o *Order) HasFarmer(farmerID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.FarmerID == farmerID {
			return true
		}
	}
	return false
}

// ItemsForFarmer returns the lines owned by one farmer
func (o *Order) ItemsForFarmer(farmerID uuid.UUID) []OrderItem {
	var items []OrderItem
	for _, item := range o.Items {
		if item.FarmerID == farmerID {
			items = append(items, item)
		}
	}
	return items
}

// FarmerIDs returns the distinct farmers of the order in line order
func (o *Order) FarmerIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, item := range o.Items {
		if !seen[item.FarmerID] {
			seen[item.FarmerID] = true
			ids = append(ids, item.FarmerID)
		}
	}
	return ids
}

// CheckoutLine is a cart line resolved against the locked animal row
type CheckoutLine struct {
	Animal   *Animal
	Quantity int
}

// CheckoutDetails is what the customer supplies when placing an order
type CheckoutDetails struct {
	ShippingAddress ShippingAddress
	PaymentMethod   string
	Notes           string
}

const (
	orderNumberAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderNumberSuffixLen = 8
)

// MaxOrderTotal is the largest amount an order total column can hold
const MaxOrderTotal = 9_999_999_999.99

// NewOrderNumber builds ORD-<YYYYMMDD>-<8 uppercase alphanumerics>
func NewOrderNumber(now time.Time) string {
	suffix := make([]byte, orderNumberSuffixLen)
	limit := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic("crypto/rand unavailable: " + err.Error())
		}
		suffix[i] = orderNumberAlphabet[n.Int64()]
	}
	return "ORD-" + now.UTC().Format("20060102") + "-" + string(suffix)
}

// NewOrder builds a pending order from resolved cart lines.
// Prices are pinned to the animals' current prices.
func NewOrder(customerID uuid.UUID, lines []CheckoutLine, details CheckoutDetails, now time.Time) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrCartEmpty
	}

	paymentMethod := details.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = DefaultPaymentMethod
	}

	order := &Order{
		ID:              uuid.New(),
		OrderNumber:     NewOrderNumber(now),
		CustomerID:      customerID,
		Status:          OrderPending,
		ShippingAddress: details.ShippingAddress,
		PaymentMethod:   paymentMethod,
		PaymentStatus:   PaymentPending,
		Notes:           details.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	total := 0.0
	for _, line := range lines {
		if err := ValidateQuantity(line.Quantity); err != nil {
			return nil, err
		}
		if !line.Animal.IsAvailable {
			return nil, ErrAnimalUnavailable.WithMessage("animal %s is no longer available", line.Animal.Name)
		}
		animalID := line.Animal.ID
		item := OrderItem{
			ID:         uuid.New(),
			OrderID:    order.ID,
			AnimalID:   &animalID,
			AnimalName: line.Animal.Name,
			FarmerID:   line.Animal.FarmerID,
			Quantity:   line.Quantity,
			Price:      line.Animal.Price,
			Subtotal:   LineSubtotal(line.Quantity, line.Animal.Price),
			CreatedAt:  now,
		}
		total += item.Subtotal
		order.Items = append(order.Items, item)
	}
	order.TotalAmount = roundCents(total)
	if order.TotalAmount > MaxOrderTotal {
		return nil, ErrOrderTooLarge
	}

	return order, nil
}

// LineSubtotal is quantity x unit price rounded to cents
func LineSubtotal(quantity int, price float64) float64 {
	return roundCents(float64(quantity) * price)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
