package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"farmart/internal/database"
	"farmart/internal/domain"
	"farmart/internal/pagination"

	"github.com/google/uuid"
)

// AnimalRepository defines the interface for animal data access
type AnimalRepository interface {
	Create(ctx context.Context, animal *domain.Animal) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Animal, error)
	Update(ctx context.Context, animal *domain.Animal) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter domain.AnimalFilter, page pagination.Params) ([]*domain.Animal, int, error)
	ListByFarmer(ctx context.Context, farmerID uuid.UUID, page pagination.Params) ([]*domain.Animal, int, error)
	AppendImages(ctx context.Context, id uuid.UUID, urls []string) ([]string, error)
}

type animalRepository struct {
	db *sql.DB
}

// NewAnimalRepository creates a new instance of AnimalRepository
func NewAnimalRepository(db *sql.DB) AnimalRepository {
	return &animalRepository{db: db}
}

const animalColumns = `a.id, a.name, a.animal_type, a.breed, a.age, a.weight, a.price, a.description,
	a.images, a.is_available, a.health_status, a.vaccination_status, a.farmer_id, a.created_at, a.updated_at,
	u.first_name, u.last_name, u.farm_name, u.farm_location, u.profile_image, u.created_at`

const animalFrom = ` FROM animals a JOIN users u ON u.id = a.farmer_id`

func scanAnimal(row interface{ Scan(...any) error }) (*domain.Animal, error) {
	animal := &domain.Animal{Farmer: &domain.FarmerSummary{}}
	var images []byte
	err := row.Scan(
		&animal.ID,
		&animal.Name,
		&animal.Type,
		&animal.Breed,
		&animal.Age,
		&animal.Weight,
		&animal.Price,
		&animal.Description,
		&images,
		&animal.IsAvailable,
		&animal.HealthStatus,
		&animal.VaccinationStatus,
		&animal.FarmerID,
		&animal.CreatedAt,
		&animal.UpdatedAt,
		&animal.Farmer.FirstName,
		&animal.Farmer.LastName,
		&animal.Farmer.FarmName,
		&animal.Farmer.FarmLocation,
		&animal.Farmer.ProfileImage,
		&animal.Farmer.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	animal.Farmer.ID = animal.FarmerID
	if animal.Images, err = decodeImages(images); err != nil {
		return nil, err
	}
	return animal, nil
}

func encodeImages(images []string) ([]byte, error) {
	if images == nil {
		images = []string{}
	}
	return json.Marshal(images)
}

func decodeImages(raw []byte) ([]string, error) {
	images := []string{}
	if len(raw) == 0 {
		return images, nil
	}
	if err := json.Unmarshal(raw, &images); err != nil {
		return nil, fmt.Errorf("failed to decode animal images: %w", err)
	}
	return images, nil
}

// Create inserts a new animal listing
func (r *animalRepository) Create(ctx context.Context, animal *domain.Animal) error {
	images, err := encodeImages(animal.Images)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO animals (id, name, animal_type, breed, age, weight, price, description, images,
			is_available, health_status, vaccination_status, farmer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		animal.ID,
		animal.Name,
		animal.Type,
		animal.Breed,
		animal.Age,
		animal.Weight,
		animal.Price,
		animal.Description,
		images,
		animal.IsAvailable,
		animal.HealthStatus,
		animal.VaccinationStatus,
		animal.FarmerID,
		animal.CreatedAt,
		animal.UpdatedAt,
	)

	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to create animal: %w", err)
	}

	return nil
}

// FindByID retrieves an animal with its farmer summary
func (r *animalRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Animal, error) {
	query := `SELECT ` + animalColumns + animalFrom + ` WHERE a.id = $1`

	animal, err := scanAnimal(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAnimalNotFound
		}
		return nil, fmt.Errorf("failed to find animal by ID: %w", err)
	}

	return animal, nil
}

// Update persists the editable fields.
// Making an animal available again fails with ErrAnimalReserved while an open order references it.
func (r *animalRepository) Update(ctx context.Context, animal *domain.Animal) error {
	images, err := encodeImages(animal.Images)
	if err != nil {
		return err
	}

	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var available bool
		err := tx.QueryRowContext(ctx, `SELECT is_available FROM animals WHERE id = $1 FOR UPDATE`, animal.ID).Scan(&available)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrAnimalNotFound
			}
			return fmt.Errorf("failed to lock animal: %w", err)
		}

		if animal.IsAvailable && !available {
			reserved, err := hasOpenOrders(ctx, tx, animal.ID)
			if err != nil {
				return err
			}
			if reserved {
				return domain.ErrAnimalReserved
			}
		}

		query := `
			UPDATE animals
			SET name = $2, breed = $3, age = $4, weight = $5, price = $6, description = $7,
			    images = $8, is_available = $9, health_status = $10, vaccination_status = $11
			WHERE id = $1
			RETURNING updated_at
		`

		err = tx.QueryRowContext(
			ctx,
			query,
			animal.ID,
			animal.Name,
			animal.Breed,
			animal.Age,
			animal.Weight,
			animal.Price,
			animal.Description,
			images,
			animal.IsAvailable,
			animal.HealthStatus,
			animal.VaccinationStatus,
		).Scan(&animal.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update animal: %w", err)
		}

		return nil
	})
}

// Delete removes an animal unless an open order references it.
// Cart lines cascade; order items keep their snapshot with a NULL animal reference.
func (r *animalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRowContext(ctx, `SELECT id FROM animals WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrAnimalNotFound
			}
			return fmt.Errorf("failed to lock animal: %w", err)
		}

		reserved, err := hasOpenOrders(ctx, tx, id)
		if err != nil {
			return err
		}
		if reserved {
			return domain.ErrAnimalReserved
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM animals WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete animal: %w", err)
		}
		return nil
	})
}

func hasOpenOrders(ctx context.Context, q database.DBTX, animalID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE oi.animal_id = $1 AND o.status IN ($2, $3)
		)
	`

	var exists bool
	if err := q.QueryRowContext(ctx, query, animalID, domain.OrderPending, domain.OrderConfirmed).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check open orders: %w", err)
	}
	return exists, nil
}

// List returns available animals matching the filter, newest first
func (r *animalRepository) List(ctx context.Context, filter domain.AnimalFilter, page pagination.Params) ([]*domain.Animal, int, error) {
	w := newWhere()
	w.add("a.is_available = ?", true)
	if filter.Type != nil {
		w.add("a.animal_type = ?", *filter.Type)
	}
	if b := strings.TrimSpace(filter.Breed); b != "" {
		w.add("a.breed ILIKE ?", like(b))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		w.add("(a.name ILIKE ? OR a.breed ILIKE ? OR a.description ILIKE ?)", like(s), like(s), like(s))
	}
	if filter.MinAge != nil {
		w.add("a.age >= ?", *filter.MinAge)
	}
	if filter.MaxAge != nil {
		w.add("a.age <= ?", *filter.MaxAge)
	}
	if filter.MinWeight != nil {
		w.add("a.weight >= ?", *filter.MinWeight)
	}
	if filter.MaxWeight != nil {
		w.add("a.weight <= ?", *filter.MaxWeight)
	}
	if filter.MinPrice != nil {
		w.add("a.price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		w.add("a.price <= ?", *filter.MaxPrice)
	}

	return r.list(ctx, w, page)
}

// ListByFarmer returns every animal of a farmer regardless of availability
func (r *animalRepository) ListByFarmer(ctx context.Context, farmerID uuid.UUID, page pagination.Params) ([]*domain.Animal, int, error) {
	w := newWhere()
	w.add("a.farmer_id = ?", farmerID)
	return r.list(ctx, w, page)
}

func (r *animalRepository) list(ctx context.Context, w *where, page pagination.Params) ([]*domain.Animal, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM animals a`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count animals: %w", err)
	}

	query, args := w.paged(`SELECT `+animalColumns+animalFrom, "a.created_at DESC, a.id", page)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list animals: %w", err)
	}
	defer rows.Close()

	animals := make([]*domain.Animal, 0, page.Limit())
	for rows.Next() {
		animal, err := scanAnimal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan animal: %w", err)
		}
		animals = append(animals, animal)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating animals: %w", err)
	}

	return animals, total, nil
}

// AppendImages adds image URLs to the listing and returns the full list
func (r *animalRepository) AppendImages(ctx context.Context, id uuid.UUID, urls []string) ([]string, error) {
	added, err := encodeImages(urls)
	if err != nil {
		return nil, err
	}

	var raw []byte
	err = r.db.QueryRowContext(ctx,
		`UPDATE animals SET images = images || $2::jsonb WHERE id = $1 RETURNING images`,
		id, added,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAnimalNotFound
		}
		return nil, fmt.Errorf("failed to append animal images: %w", err)
	}

	return decodeImages(raw)
}
