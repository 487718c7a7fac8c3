package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"farmart/internal/domain"
	"farmart/internal/pagination"
	"farmart/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost = 10

	// RecentRegistrationWindow bounds the "recent registrations" counter of user stats
	RecentRegistrationWindow = 30 * 24 * time.Hour
)

// RegisterInput carries a self-registration request
type RegisterInput struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	Role         domain.Role
	Phone        string
	FarmName     string
	FarmLocation string
}

// ProfileUpdate carries a partial profile update; nil fields are left untouched
type ProfileUpdate struct {
	FirstName    *string
	LastName     *string
	Phone        *string
	FarmName     *string
	FarmLocation *string
}

// UserService defines the interface for user business logic
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (accessToken string, user *domain.User, err error)
	ValidateToken(tokenString string) (*Claims, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
	GetUser(ctx context.Context, actor domain.Actor, userID uuid.UUID) (*domain.User, error)
	ListUsers(ctx context.Context, actor domain.Actor, filter domain.UserFilter, page pagination.Params) (pagination.Page[*domain.User], error)
	SetUserActive(ctx context.Context, actor domain.Actor, userID uuid.UUID, active bool) (*domain.User, error)
	Stats(ctx context.Context, actor domain.Actor) (*domain.UserStats, error)
	ListFarmers(ctx context.Context, location string, page pagination.Params) (pagination.Page[domain.FarmerSummary], error)
}

// Claims represents the JWT claims
type Claims struct {
	UserID uuid.UUID   `json:"user_id"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor returns the caller identity carried by the token
func (c *Claims) Actor() domain.Actor {
	return domain.Actor{UserID: c.UserID, Role: c.Role}
}

type userService struct {
	userRepo     repository.UserRepository
	notifier     Notifier
	jwtSecret    string
	accessExpiry time.Duration
	now          func() time.Time
}

// NewUserService creates a new instance of UserService
func NewUserService(
	userRepo repository.UserRepository,
	notifier Notifier,
	jwtSecret string,
	accessExpiry time.Duration,
) UserService {
	return &userService{
		userRepo:     userRepo,
		notifier:     notifier,
		jwtSecret:    jwtSecret,
		accessExpiry: accessExpiry,
		now:          time.Now,
	}
}

// Register creates a farmer or customer account with a hashed password
func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if in.Role != domain.RoleFarmer && in.Role != domain.RoleCustomer {
		return nil, domain.Validation("role must be farmer or customer")
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))

	existingUser, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, domain.ErrUserAlreadyExists
	}

	hashedPassword, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         in.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.IsFarmer() {
		user.FarmName = strings.TrimSpace(in.FarmName)
		user.FarmLocation = strings.TrimSpace(in.FarmLocation)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.notifier.Welcome(user)

	return user, nil
}

// Login authenticates a user and returns a signed access token
func (s *userService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := verifyPassword(user.PasswordHash, password); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive {
		return "", nil, domain.ErrAccountDeactivated
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return accessToken, user, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *userService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}

func (s *userService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies a partial update; farm fields only apply to farmers
func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if update.FirstName != nil {
		user.FirstName = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		user.LastName = strings.TrimSpace(*update.LastName)
	}
	if update.Phone != nil {
		user.Phone = strings.TrimSpace(*update.Phone)
	}
	if user.IsFarmer() {
		if update.FarmName != nil {
			user.FarmName = strings.TrimSpace(*update.FarmName)
		}
		if update.FarmLocation != nil {
			user.FarmLocation = strings.TrimSpace(*update.FarmLocation)
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

func (s *userService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := verifyPassword(user.PasswordHash, currentPassword); err != nil {
		return domain.ErrWrongPassword
	}

	hashedPassword, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, hashedPassword); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}
	return nil
}

// GetUser returns a user to themselves or to an admin
func (s *userService) GetUser(ctx context.Context, actor domain.Actor, userID uuid.UUID) (*domain.User, error) {
	if actor.UserID != userID && !actor.IsAdmin() {
		return nil, domain.ErrAdminRequired
	}
	return s.GetUserByID(ctx, userID)
}

func (s *userService) ListUsers(ctx context.Context, actor domain.Actor, filter domain.UserFilter, page pagination.Params) (pagination.Page[*domain.User], error) {
	if !actor.IsAdmin() {
		return pagination.Page[*domain.User]{}, domain.ErrAdminRequired
	}

	users, total, err := s.userRepo.List(ctx, filter, page)
	if err != nil {
		return pagination.Page[*domain.User]{}, fmt.Errorf("failed to list users: %w", err)
	}
	return pagination.NewPage(users, page, total), nil
}

func (s *userService) SetUserActive(ctx context.Context, actor domain.Actor, userID uuid.UUID, active bool) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrAdminRequired
	}
	if actor.UserID == userID && !active {
		return nil, domain.Validation("admins cannot deactivate their own account")
	}

	if err := s.userRepo.SetActive(ctx, userID, active); err != nil {
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}
	return s.GetUserByID(ctx, userID)
}

func (s *userService) Stats(ctx context.Context, actor domain.Actor) (*domain.UserStats, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrAdminRequired
	}

	stats, err := s.userRepo.Stats(ctx, s.now().Add(-RecentRegistrationWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return stats, nil
}

// ListFarmers returns the public view of active farmers
func (s *userService) ListFarmers(ctx context.Context, location string, page pagination.Params) (pagination.Page[domain.FarmerSummary], error) {
	users, total, err := s.userRepo.ListFarmers(ctx, location, page)
	if err != nil {
		return pagination.Page[domain.FarmerSummary]{}, fmt.Errorf("failed to list farmers: %w", err)
	}

	farmers := make([]domain.FarmerSummary, 0, len(users))
	for _, u := range users {
		farmers = append(farmers, u.Summary())
	}
	return pagination.NewPage(farmers, page, total), nil
}

func hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// generateAccessToken signs an HS256 token carrying user id and role
func (s *userService) generateAccessToken(user *domain.User) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
