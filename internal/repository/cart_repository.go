package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"farmart/internal/database"
	"farmart/internal/domain"

	"github.com/google/uuid"
)

// CartRepository defines the interface for cart data access
type CartRepository interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID, animalID uuid.UUID, quantity int) (*domain.CartItem, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*domain.CartItem, uuid.UUID, error)
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, itemID uuid.UUID) error
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

// prefixScanner scans leading columns into fixed destinations
// before handing the rest of the row to an entity scanner.
type prefixScanner struct {
	row    interface{ Scan(...any) error }
	prefix []any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.row.Scan(append(append([]any{}, p.prefix...), dest...)...)
}

// GetOrCreate returns the user's cart with its lines, creating the cart on first access
func (r *cartRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO carts (id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.New(), userID, now)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	cart := &domain.Cart{}
	err = r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`, userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}

	if cart.Items, err = r.items(ctx, cart.ID); err != nil {
		return nil, err
	}
	cart.Recalculate()

	return cart, nil
}

func (r *cartRepository) items(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.quantity, ci.created_at, ` + animalColumns + `
		FROM cart_items ci
		JOIN animals a ON a.id = ci.animal_id
		JOIN users u ON u.id = a.farmer_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id
	`

	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		animal, err := scanAnimal(prefixScanner{
			row:    rows,
			prefix: []any{&item.ID, &item.CartID, &item.Quantity, &item.CreatedAt},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		item.AnimalID = animal.ID
		item.Animal = animal
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// AddItem inserts a line or merges the quantity into the existing line for the animal
func (r *cartRepository) AddItem(ctx context.Context, cartID, animalID uuid.UUID, quantity int) (*domain.CartItem, error) {
	item := &domain.CartItem{}

	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO cart_items (id, cart_id, animal_id, quantity, created_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (cart_id, animal_id)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
			RETURNING id, cart_id, animal_id, quantity, created_at
		`, uuid.New(), cartID, animalID, quantity).Scan(
			&item.ID, &item.CartID, &item.AnimalID, &item.Quantity, &item.CreatedAt,
		)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return domain.ErrAnimalNotFound
			}
			if database.IsCheckViolation(err) {
				return domain.ErrQuantityTooLarge
			}
			return fmt.Errorf("failed to add cart item: %w", err)
		}

		return touchCart(ctx, tx, cartID)
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// FindItem returns a cart line together with the id of the user owning its cart
func (r *cartRepository) FindItem(ctx context.Context, itemID uuid.UUID) (*domain.CartItem, uuid.UUID, error) {
	item := &domain.CartItem{}
	var ownerID uuid.UUID

	err := r.db.QueryRowContext(ctx, `
		SELECT ci.id, ci.cart_id, ci.animal_id, ci.quantity, ci.created_at, c.user_id
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE ci.id = $1
	`, itemID).Scan(&item.ID, &item.CartID, &item.AnimalID, &item.Quantity, &item.CreatedAt, &ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, uuid.Nil, domain.ErrCartItemNotFound
		}
		return nil, uuid.Nil, fmt.Errorf("failed to find cart item: %w", err)
	}

	return item, ownerID, nil
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var cartID uuid.UUID
		err := tx.QueryRowContext(ctx,
			`UPDATE cart_items SET quantity = $2 WHERE id = $1 RETURNING cart_id`, itemID, quantity,
		).Scan(&cartID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrCartItemNotFound
			}
			if database.IsCheckViolation(err) {
				return domain.ErrQuantityTooLarge
			}
			return fmt.Errorf("failed to update cart item: %w", err)
		}
		return touchCart(ctx, tx, cartID)
	})
}

func (r *cartRepository) RemoveItem(ctx context.Context, itemID uuid.UUID) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var cartID uuid.UUID
		err := tx.QueryRowContext(ctx,
			`DELETE FROM cart_items WHERE id = $1 RETURNING cart_id`, itemID,
		).Scan(&cartID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrCartItemNotFound
			}
			return fmt.Errorf("failed to remove cart item: %w", err)
		}
		return touchCart(ctx, tx, cartID)
	})
}

// Clear deletes every line of the cart; clearing an empty cart succeeds
func (r *cartRepository) Clear(ctx context.Context, cartID uuid.UUID) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return touchCart(ctx, tx, cartID)
	})
}

func touchCart(ctx context.Context, q database.DBTX, cartID uuid.UUID) error {
	result, err := q.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}
	return expectOneRow(result, domain.ErrCartNotFound)
}
