package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"farmart/internal/database"
	"farmart/internal/domain"
	"farmart/internal/pagination"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	List(ctx context.Context, filter domain.UserFilter, page pagination.Params) ([]*domain.User, int, error)
	ListFarmers(ctx context.Context, location string, page pagination.Params) ([]*domain.User, int, error)
	Stats(ctx context.Context, since time.Time) (*domain.UserStats, error)
}

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, phone, role, is_active,
	is_email_verified, farm_name, farm_location, profile_image, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.Role,
		&user.IsActive,
		&user.IsEmailVerified,
		&user.FarmName,
		&user.FarmLocation,
		&user.ProfileImage,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

// Create inserts a new user; a duplicate email yields ErrUserAlreadyExists
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone, role, is_active,
			is_email_verified, farm_name, farm_location, profile_image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Role,
		user.IsActive,
		user.IsEmailVerified,
		user.FarmName,
		user.FarmLocation,
		user.ProfileImage,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return domain.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// FindByEmail retrieves a user by email, case-insensitively
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return user, nil
}

// FindByID retrieves a user by ID
func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// Update persists the editable profile fields
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET first_name = $2, last_name = $3, phone = $4, farm_name = $5,
		    farm_location = $6, profile_image = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.FarmName,
		user.FarmLocation,
		user.ProfileImage,
	).Scan(&user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return expectOneRow(result, domain.ErrUserNotFound)
}

func (r *userRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	return expectOneRow(result, domain.ErrUserNotFound)
}

// List returns users matching the filter, newest first
func (r *userRepository) List(ctx context.Context, filter domain.UserFilter, page pagination.Params) ([]*domain.User, int, error) {
	w := newWhere()
	if filter.Role != nil {
		w.add("role = ?", *filter.Role)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		w.add("(first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?)", like(s), like(s), like(s))
	}

	return r.list(ctx, w, page)
}

// ListFarmers returns active farmers, optionally narrowed by farm location
func (r *userRepository) ListFarmers(ctx context.Context, location string, page pagination.Params) ([]*domain.User, int, error) {
	w := newWhere()
	w.add("role = ?", domain.RoleFarmer)
	w.add("is_active = ?", true)
	if l := strings.TrimSpace(location); l != "" {
		w.add("farm_location ILIKE ?", like(l))
	}

	return r.list(ctx, w, page)
}

func (r *userRepository) list(ctx context.Context, w *where, page pagination.Params) ([]*domain.User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query, args := w.paged(`SELECT `+userColumns+` FROM users`, "created_at DESC, id", page)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0, page.Limit())
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating users: %w", err)
	}

	return users, total, nil
}

// Stats aggregates account counters; recent registrations are counted from since
func (r *userRepository) Stats(ctx context.Context, since time.Time) (*domain.UserStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE role = 'farmer'),
			COUNT(*) FILTER (WHERE role = 'customer'),
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE NOT is_active),
			COUNT(*) FILTER (WHERE created_at >= $1)
		FROM users
	`

	stats := &domain.UserStats{}
	err := r.db.QueryRowContext(ctx, query, since).Scan(
		&stats.TotalUsers,
		&stats.TotalFarmers,
		&stats.TotalCustomers,
		&stats.ActiveUsers,
		&stats.InactiveUsers,
		&stats.RecentRegistrations,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute user stats: %w", err)
	}

	return stats, nil
}
