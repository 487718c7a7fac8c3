package transport

import (
	"net/http"
	"strings"

	"farmart/internal/domain"
	"farmart/internal/middleware"
	"farmart/internal/pagination"
	"farmart/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email,max=120"`
	Password     string `json:"password" validate:"required,password"`
	FirstName    string `json:"first_name" validate:"required,max=50"`
	LastName     string `json:"last_name" validate:"required,max=50"`
	Role         string `json:"role" validate:"required,role"`
	Phone        string `json:"phone" validate:"omitempty,phone"`
	FarmName     string `json:"farm_name" validate:"omitempty,max=100"`
	FarmLocation string `json:"farm_location" validate:"omitempty,max=200"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Message     string       `json:"message"`
	AccessToken string       `json:"access_token"`
	User        *domain.User `json:"user"`
}

// UpdateProfileRequest carries the editable profile fields
type UpdateProfileRequest struct {
	FirstName    *string `json:"first_name" validate:"omitempty,min=1,max=50"`
	LastName     *string `json:"last_name" validate:"omitempty,min=1,max=50"`
	Phone        *string `json:"phone" validate:"omitempty,phone"`
	FarmName     *string `json:"farm_name" validate:"omitempty,max=100"`
	FarmLocation *string `json:"farm_location" validate:"omitempty,max=200"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,password"`
}

type UserStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers auth and user routes
func (h *UserHandler) RegisterRoutes(r chi.Router, routes Routes) {
	r.Route("/api/auth", func(r chi.Router) {
		r.With(routes.RateLimit).Post("/register", h.Register)
		r.With(routes.RateLimit).Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(routes.Auth)
			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
			r.Post("/change-password", h.ChangePassword)
		})
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/farmers", h.ListFarmers)

		r.Group(func(r chi.Router) {
			r.Use(routes.Auth)
			r.Get("/{id}", h.GetUser)

			r.Group(func(r chi.Router) {
				r.Use(routes.RequireRole(domain.RoleAdmin))
				r.Get("/", h.ListUsers)
				r.Get("/stats", h.Stats)
				r.Put("/{id}/status", h.SetStatus)
			})
		})
	})
}

// Register handles user registration
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Registration validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	user, err := h.userService.Register(r.Context(), service.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         domain.Role(req.Role),
		Phone:        req.Phone,
		FarmName:     strings.TrimSpace(req.FarmName),
		FarmLocation: strings.TrimSpace(req.FarmLocation),
	})
	if err != nil {
		h.logger.Info("Registration failed", zap.Error(err))
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("User registered successfully",
		zap.String("user_id", user.ID.String()),
		zap.String("role", user.Role.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    user,
	})
}

// Login handles user authentication
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	accessToken, user, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Debug("Login failed", zap.Error(err))
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("User logged in successfully", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, LoginResponse{
		Message:     "Login successful",
		AccessToken: accessToken,
		User:        user,
	})
}

// GetProfile returns the caller's account
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	user, err := h.userService.GetUserByID(r.Context(), actor.UserID)
	if err != nil {
		h.logger.Error("Failed to get user profile", zap.String("user_id", actor.UserID.String()), zap.Error(err))
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	var req UpdateProfileRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), actor.UserID, service.ProfileUpdate{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		FarmName:     req.FarmName,
		FarmLocation: req.FarmLocation,
	})
	if err != nil {
		h.logger.Error("Failed to update profile", zap.String("user_id", actor.UserID.String()), zap.Error(err))
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	var req ChangePasswordRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	if err := h.userService.ChangePassword(r.Context(), actor.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		h.logger.Info("Password change failed", zap.String("user_id", actor.UserID.String()), zap.Error(err))
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, Message{Message: "Password changed successfully"})
}

// GetUser returns an account to its owner or an admin
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	user, err := h.userService.GetUser(r.Context(), actorFrom(r), id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	filter := domain.UserFilter{Search: strings.TrimSpace(r.URL.Query().Get("search"))}
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, ok := domain.ParseRole(raw)
		if !ok {
			middleware.RespondWithDomainError(w, h.logger, domain.Validation("invalid role %q", raw))
			return
		}
		filter.Role = &role
	}

	page, err := h.userService.ListUsers(r.Context(), actorFrom(r), filter, pagination.FromRequest(r))
	if err != nil {
		h.logger.Error("Failed to list users", zap.Error(err))
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, pageBody("users", page))
}

func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.userService.Stats(r.Context(), actorFrom(r))
	if err != nil {
		h.logger.Error("Failed to compute user stats", zap.Error(err))
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, stats)
}

// SetStatus activates or deactivates an account
func (h *UserHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	var req UserStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	actor := actorFrom(r)
	user, err := h.userService.SetUserActive(r.Context(), actor, id, *req.IsActive)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("User status updated",
		zap.String("user_id", user.ID.String()),
		zap.String("admin_id", actor.UserID.String()),
		zap.Bool("is_active", user.IsActive),
	)
	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "User status updated successfully",
		"user":    user,
	})
}

// ListFarmers is the public farmer directory
func (h *UserHandler) ListFarmers(w http.ResponseWriter, r *http.Request) {
	location := strings.TrimSpace(r.URL.Query().Get("location"))

	page, err := h.userService.ListFarmers(r.Context(), location, pagination.FromRequest(r))
	if err != nil {
		h.logger.Error("Failed to list farmers", zap.Error(err))
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, pageBody("farmers", page))
}
