package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/Aphatheology/future-stack-assessment/internal/config"
	custommiddleware "github.com/Aphatheology/future-stack-assessment/internal/middleware"
	"github.com/Aphatheology/future-stack-assessment/internal/repository"
	"github.com/Aphatheology/future-stack-assessment/internal/service"
	"github.com/Aphatheology/future-stack-assessment/internal/sku"
	"github.com/Aphatheology/future-stack-assessment/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.IsDevelopment()))
	router.Use(custommiddleware.RequestLogger(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	cartRepo := repository.NewCartRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	// Initialize services
	blacklist := service.NewTokenBlacklist(redisClient, logger)
	authService := service.NewAuthService(
		userRepo,
		sessionRepo,
		blacklist,
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessExpiry)*time.Minute,
		time.Duration(cfg.JWT.RefreshExpiry)*24*time.Hour,
	)
	categoryService := service.NewCategoryService(categoryRepo)
	skuGenerator := sku.NewGenerator(categoryRepo, productRepo, logger)
	productService := service.NewProductService(productRepo, categoryRepo, idempotencyRepo, skuGenerator)
	cartService := service.NewCartService(cartRepo, productRepo)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(authService, logger)
	adminMiddleware := custommiddleware.RequireAdmin(logger)

	// Rate limiting
	window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
	router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow:      cfg.RateLimit.RequestsPerWindow,
		AuthenticatedPerWindow: cfg.RateLimit.AuthenticatedPerWindow,
		Window:                 window,
		KeyPrefix:              "rate_limit:api",
	}, logger))
	authLimiter := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.AuthRequestsPerWindow,
		Window:            window,
		KeyPrefix:         "rate_limit:auth",
	}, logger)

	// Initialize handlers
	authHandler := transport.NewAuthHandler(authService, logger)
	categoryHandler := transport.NewCategoryHandler(categoryService, logger)
	productHandler := transport.NewProductHandler(productService, logger)
	cartHandler := transport.NewCartHandler(cartService, logger)

	// Register routes
	authHandler.RegisterRoutes(router, authMiddleware, authLimiter)
	categoryHandler.RegisterRoutes(router, authMiddleware, adminMiddleware)
	productHandler.RegisterRoutes(router, authMiddleware)
	cartHandler.RegisterRoutes(router, authMiddleware)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
