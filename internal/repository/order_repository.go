package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"farmart/internal/database"
	"farmart/internal/domain"
	"farmart/internal/pagination"

	"github.com/google/uuid"
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// CreateFromCart converts the customer's cart into a pending order in one transaction
	CreateFromCart(ctx context.Context, customerID uuid.UUID, details domain.CheckoutDetails, now time.Time) (*domain.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, page pagination.Params) ([]*domain.Order, int, error)
	ListByFarmer(ctx context.Context, farmerID uuid.UUID, page pagination.Params) ([]*domain.Order, int, error)
	// UpdateStatus moves the order on behalf of a farmer owning at least one of its items
	UpdateStatus(ctx context.Context, id, farmerID uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `o.id, o.order_number, o.customer_id, o.status, o.total_amount, o.shipping_address,
	o.payment_method, o.payment_status, o.notes, o.created_at, o.updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	order := &domain.Order{}
	var address []byte
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerID,
		&order.Status,
		&order.TotalAmount,
		&address,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&order.Notes,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(address, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to decode shipping address: %w", err)
	}
	return order, nil
}

type cartLine struct {
	id       uuid.UUID
	animalID uuid.UUID
	quantity int
}

func (r *orderRepository) CreateFromCart(ctx context.Context, customerID uuid.UUID, details domain.CheckoutDetails, now time.Time) (*domain.Order, error) {
	var order *domain.Order

	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var cartID uuid.UUID
		err := tx.QueryRowContext(ctx, `SELECT id FROM carts WHERE user_id = $1`, customerID).Scan(&cartID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrCartEmpty
			}
			return fmt.Errorf("failed to find cart: %w", err)
		}

		lines, err := readCartLines(ctx, tx, cartID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return domain.ErrCartEmpty
		}

		animals, err := lockAnimals(ctx, tx, lines)
		if err != nil {
			return err
		}

		checkout := make([]domain.CheckoutLine, 0, len(lines))
		for _, line := range lines {
			animal, ok := animals[line.animalID]
			if !ok {
				return domain.ErrAnimalUnavailable.WithMessage("animal %s is no longer available", line.animalID)
			}
			checkout = append(checkout, domain.CheckoutLine{Animal: animal, Quantity: line.quantity})
		}

		order, err = domain.NewOrder(customerID, checkout, details, now)
		if err != nil {
			return err
		}

		if err := insertOrder(ctx, tx, order); err != nil {
			return err
		}

		reserved := make([]string, 0, len(lines))
		consumed := make([]string, 0, len(lines))
		for _, line := range lines {
			reserved = append(reserved, line.animalID.String())
			consumed = append(consumed, line.id.String())
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE animals SET is_available = FALSE WHERE id = ANY($1::uuid[])`, reserved,
		); err != nil {
			return fmt.Errorf("failed to reserve animals: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM cart_items WHERE id = ANY($1::uuid[])`, consumed,
		); err != nil {
			return fmt.Errorf("failed to empty cart: %w", err)
		}

		return touchCart(ctx, tx, cartID)
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func readCartLines(ctx context.Context, tx *sql.Tx, cartID uuid.UUID) ([]cartLine, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, animal_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY created_at, id`, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart lines: %w", err)
	}
	defer rows.Close()

	var lines []cartLine
	for rows.Next() {
		var line cartLine
		if err := rows.Scan(&line.id, &line.animalID, &line.quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}
	return lines, nil
}

// lockAnimals row-locks every animal referenced by the lines in id order.
// A concurrent checkout for the same animal blocks here until the first commits.
func lockAnimals(ctx context.Context, tx *sql.Tx, lines []cartLine) (map[uuid.UUID]*domain.Animal, error) {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.animalID.String())
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT `+animalColumns+animalFrom+` WHERE a.id = ANY($1::uuid[]) ORDER BY a.id FOR UPDATE OF a`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock animals: %w", err)
	}
	defer rows.Close()

	animals := make(map[uuid.UUID]*domain.Animal, len(ids))
	for rows.Next() {
		animal, err := scanAnimal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan animal: %w", err)
		}
		animals[animal.ID] = animal
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locked animals: %w", err)
	}
	return animals, nil
}

func insertOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to encode shipping address: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, customer_id, status, total_amount, shipping_address,
			payment_method, payment_status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		order.ID,
		order.OrderNumber,
		order.CustomerID,
		order.Status,
		order.TotalAmount,
		address,
		order.PaymentMethod,
		order.PaymentStatus,
		order.Notes,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "uq_orders_order_number") {
			return domain.ErrOrderNumberTaken
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range order.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, animal_id, animal_name, farmer_id, quantity, price, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, item.ID, item.OrderID, item.AnimalID, item.AnimalName, item.FarmerID, item.Quantity, item.Price, item.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return nil
}

// FindByID retrieves an order with its items
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return findOrder(ctx, r.db, id)
}

func findOrder(ctx context.Context, q database.DBTX, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	if err := attachItems(ctx, q, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// ListByCustomer returns the customer's orders, newest first
func (r *orderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, page pagination.Params) ([]*domain.Order, int, error) {
	w := newWhere()
	w.add("o.customer_id = ?", customerID)
	return r.list(ctx, w, page)
}

// ListByFarmer returns the distinct orders containing at least one of the farmer's items
func (r *orderRepository) ListByFarmer(ctx context.Context, farmerID uuid.UUID, page pagination.Params) ([]*domain.Order, int, error) {
	w := newWhere()
	w.add("EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.farmer_id = ?)", farmerID)
	return r.list(ctx, w, page)
}

func (r *orderRepository) list(ctx context.Context, w *where, page pagination.Params) ([]*domain.Order, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders o`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query, args := w.paged(`SELECT `+orderColumns+` FROM orders o`, "o.created_at DESC, o.id", page)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0, page.Limit())
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}
	rows.Close()

	if err := attachItems(ctx, r.db, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func attachItems(ctx context.Context, q database.DBTX, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orders))
	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID.String())
		byID[order.ID] = order
		order.Items = []domain.OrderItem{}
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, animal_id, animal_name, farmer_id, quantity, price, created_at
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY created_at, id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.AnimalID,
			&item.AnimalName,
			&item.FarmerID,
			&item.Quantity,
			&item.Price,
			&item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		item.Subtotal = domain.LineSubtotal(item.Quantity, item.Price)
		order := byID[item.OrderID]
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}

	return nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id, farmerID uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	var order *domain.Order

	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var current domain.OrderStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrOrderNotFound
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}

		var owns bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM order_items WHERE order_id = $1 AND farmer_id = $2)`, id, farmerID,
		).Scan(&owns)
		if err != nil {
			return fmt.Errorf("failed to check order ownership: %w", err)
		}
		if !owns {
			return domain.ErrOrderForbidden
		}

		if err := domain.ValidateTransition(current, status); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, status); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		if status == domain.OrderRejected {
			_, err := tx.ExecContext(ctx, `
				UPDATE animals SET is_available = TRUE
				WHERE id IN (
					SELECT animal_id FROM order_items
					WHERE order_id = $1 AND farmer_id = $2 AND animal_id IS NOT NULL
				)
			`, id, farmerID)
			if err != nil {
				return fmt.Errorf("failed to release rejected animals: %w", err)
			}
		}

		order, err = findOrder(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}
