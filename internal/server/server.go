package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"farmart/internal/config"
	"farmart/internal/database"
	"farmart/internal/domain"
	custommiddleware "farmart/internal/middleware"
	"farmart/internal/notification"
	"farmart/internal/repository"
	"farmart/internal/service"
	"farmart/internal/storage"
	"farmart/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const notificationDrainTimeout = 10 * time.Second

type Server struct {
	*http.Server
	config   *config.Config
	logger   *zap.Logger
	db       database.Service
	redis    *redis.Client
	notifier *notification.Notifier
}

func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service) (*Server, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	notifier, err := notification.New(
		notification.NewBreakerSender(notification.NewSender(cfg.Email, logger), logger),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifier: %w", err)
	}
	if !cfg.Email.Enabled() {
		logger.Warn("SendGrid API key not configured, emails will only be logged")
	}

	images, err := storage.New(cfg.Cloudinary)
	if err != nil {
		return nil, fmt.Errorf("failed to create image storage: %w", err)
	}
	if !cfg.Cloudinary.Enabled() {
		logger.Warn("Cloudinary not configured, image uploads are disabled")
	}

	router := chi.NewRouter()
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))

	router.Get("/health", healthHandler(db, redisClient))

	sqlDB := db.DB()
	userRepo := repository.NewUserRepository(sqlDB)
	animalRepo := repository.NewAnimalRepository(sqlDB)
	cartRepo := repository.NewCartRepository(sqlDB)
	orderRepo := repository.NewOrderRepository(sqlDB)

	userService := service.NewUserService(userRepo, notifier, cfg.JWT.Secret, cfg.JWT.AccessExpiry())
	animalService := service.NewAnimalService(animalRepo, images, logger)
	cartService := service.NewCartService(cartRepo, animalRepo)
	orderService := service.NewOrderService(orderRepo, userRepo, notifier, logger)

	routes := transport.Routes{
		Auth: custommiddleware.AuthMiddleware(userService, logger),
		RateLimit: custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "rate_limit:auth",
		}, logger),
		RequireRole: func(roles ...domain.Role) func(http.Handler) http.Handler {
			return custommiddleware.RequireRole(roles, logger)
		},
	}

	transport.NewUserHandler(userService, logger).RegisterRoutes(router, routes)
	transport.NewAnimalHandler(animalService, logger).RegisterRoutes(router, routes)
	transport.NewCartHandler(cartService, logger).RegisterRoutes(router, routes)
	transport.NewOrderHandler(orderService, logger).RegisterRoutes(router, routes)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusNotFound, "resource not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		config:   cfg,
		logger:   logger,
		db:       db,
		redis:    redisClient,
		notifier: notifier,
	}

	return server, nil
}

func healthHandler(db database.Service, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbHealth := db.Health()

		redisStatus := "up"
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisStatus = "down"
		}

		status, code := "ok", http.StatusOK
		if dbHealth["status"] != "up" {
			status, code = "degraded", http.StatusServiceUnavailable
		}

		custommiddleware.RespondWithJSON(w, code, map[string]any{
			"status":   status,
			"database": dbHealth,
			"redis":    redisStatus,
		})
	}
}

// Close drains pending emails and releases the database and redis connections
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	ctx, cancel := context.WithTimeout(context.Background(), notificationDrainTimeout)
	defer cancel()
	if err := s.notifier.Wait(ctx); err != nil {
		s.logger.Warn("Pending notifications not drained", zap.Error(err))
	}

	if err := s.redis.Close(); err != nil {
		s.logger.Error("Failed to close redis connection", zap.Error(err))
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database connection", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}
