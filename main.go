package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/khabaroff/accounts-selfhosted/src/config"
	"github.com/khabaroff/accounts-selfhosted/src/database"
	"github.com/khabaroff/accounts-selfhosted/src/handlers"
	"github.com/khabaroff/accounts-selfhosted/src/logging"
	"github.com/khabaroff/accounts-selfhosted/src/middleware"
	"github.com/khabaroff/accounts-selfhosted/src/services"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize structured logging
	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	log.Info().
		Int("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Msg("starting server")

	// Initialize database
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.New(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	log.Info().Msg("database connected")

	// Initialize services
	userService := services.NewUserService(db.GetPool())
	authService := services.NewAuthService(db.GetPool(), userService, cfg.JWTSecret, cfg.SessionTTLHours, cfg.ResetTokenExpiry)
	cleanupService := services.NewCleanupService(db.GetPool(), cfg.EnableTokenCleanup)
	fixtureService := services.NewFixtureService(userService)

	// Seed initial accounts on first run
	hasUsers, err := userService.HasUsers(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("failed to check for existing users")
	} else if !hasUsers {
		seedInitialUsers(cfg, userService, fixtureService)
	}

	// Start background services
	go cleanupService.Start(context.Background())

	// Create Gin router
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.Recovery())

	// Add CORS middleware for browser clients
	corsConfig := cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if origin == "http://localhost" || origin == "http://localhost:8080" || origin == "http://localhost:3000" {
				return true
			}
			return origin == cfg.AllowedOrigins
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Setup routes
	setupRoutes(router, db, userService, authService)

	// Create HTTP server with timeouts (protect from Slowloris attack)
	srv := &http.Server{
		Addr:              ":" + fmt.Sprintf("%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Stop cleanup service
	cleanupService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server shut down successfully")
}

// seedInitialUsers bootstraps the first superuser from SUPERUSER_* env vars
// and optionally loads a YAML fixtures file. Runs only when the users table
// is empty.
func seedInitialUsers(cfg *config.Config, userService *services.UserService, fixtureService *services.FixtureService) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.SuperuserEmail != "" && cfg.SuperuserPassword != "" {
		_, err := userService.CreateSuperuser(ctx, services.CreateUserParams{
			Email:    cfg.SuperuserEmail,
			Username: cfg.SuperuserUsername,
			Password: cfg.SuperuserPassword,
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to create initial superuser")
		} else {
			log.Info().Str("email", services.NormalizeEmail(cfg.SuperuserEmail)).Msg("initial superuser created")
		}
	}

	if cfg.FixturesPath != "" {
		created, err := fixtureService.LoadFromFile(ctx, cfg.FixturesPath)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.FixturesPath).Msg("failed to load fixtures")
		} else {
			log.Info().Int("created", created).Str("path", cfg.FixturesPath).Msg("fixtures loaded")
		}
	}
}

func setupRoutes(router *gin.Engine, db *database.Database, userService *services.UserService, authService *services.AuthService) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	authHandler := handlers.NewAuthHandler(authService, userService)
	usersHandler := handlers.NewUsersHandler(userService)

	// Health check endpoints
	router.GET("/health", healthHandler.HandleHealth)
	router.GET("/ready", healthHandler.HandleReady)
	router.GET("/info", healthHandler.HandleInfo)

	// Authentication endpoints: credential endpoints are rate limited per IP
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", middleware.LoginRateLimitMiddleware(), authHandler.HandleLogin)
		authGroup.POST("/logout", authHandler.HandleLogout)
		authGroup.GET("/me", middleware.SessionAuthMiddleware(authService), authHandler.HandleMe)
		authGroup.POST("/password-reset/request", middleware.LoginRateLimitMiddleware(), authHandler.HandleRequestPasswordReset)
		authGroup.POST("/password-reset/confirm", middleware.LoginRateLimitMiddleware(), authHandler.HandleConfirmPasswordReset)
	}

	// Admin panel endpoints: all require a staff session; destructive
	// operations additionally require a superuser session
	adminGroup := router.Group("/admin")
	adminGroup.Use(middleware.SessionAuthMiddleware(authService), middleware.RequireStaff())
	{
		adminGroup.GET("/users", usersHandler.HandleListUsers)
		adminGroup.POST("/users", usersHandler.HandleCreateUser)
		adminGroup.GET("/users/:id", usersHandler.HandleGetUser)
		adminGroup.PUT("/users/:id", usersHandler.HandleUpdateUser)
		adminGroup.POST("/users/:id/set-password", usersHandler.HandleSetPassword)

		superuserOnly := adminGroup.Group("")
		superuserOnly.Use(middleware.RequireSuperuser())
		{
			superuserOnly.POST("/users/:id/activate", usersHandler.HandleActivateUser)
			superuserOnly.POST("/users/:id/deactivate", usersHandler.HandleDeactivateUser)
			superuserOnly.DELETE("/users/:id", usersHandler.HandleDeleteUser)
		}
	}
}
