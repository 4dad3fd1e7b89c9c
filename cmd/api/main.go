package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"quality-backend/internal/auth"
	"quality-backend/internal/config"
	"quality-backend/internal/database"
	"quality-backend/internal/email"
	"quality-backend/internal/handlers"
	"quality-backend/internal/logger"
	"quality-backend/internal/middleware"
	"quality-backend/internal/repository"
	"quality-backend/internal/scheduler"
	"quality-backend/internal/service"
	"quality-backend/internal/storage"
)

// @title Quality Revision API
// @version 1.0
// @description Backend API for inspection revision tracking on production orders

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	logger.Setup(logger.Config{
		Level: cfg.Log.Level,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"log_level", cfg.Log.Level,
	)

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func(db *database.Database) {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}(db)

	slog.Info("Database connection established")

	// Run database migrations
	migrator := database.NewMigrationExecutor(db.DB)
	if err := migrator.RunMigrations("./migrations"); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed")

	// Initialize repositories
	revisionRepo := repository.NewRevisionRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	defectRepo := repository.NewDefectRepository(db.DB)
	inspectorRepo := repository.NewInspectorAssignmentRepository(db.DB)
	referenceRepo := repository.NewReferenceRepository(db.DB)

	// Initialize services
	authService := auth.NewService(&cfg.JWT)
	emailService := email.NewService(&cfg.Email)
	photoStore := storage.NewHTTPPhotoStore(&cfg.Storage)
	revisionService := service.NewRevisionService(db.DB, revisionRepo, sessionRepo, defectRepo, inspectorRepo, photoStore)
	reportService := service.NewReportService(revisionRepo, sessionRepo, defectRepo, revisionService)

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(authService)
	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit)

	// Initialize handlers
	revisionHandler := handlers.NewRevisionHandler(revisionService)
	reportHandler := handlers.NewReportHandler(reportService, emailService)
	referenceHandler := handlers.NewReferenceHandler(referenceRepo)

	// Start scheduler
	schedulerService := scheduler.NewScheduler(reportService, emailService, &cfg.Scheduler)
	schedulerService.Start()
	defer schedulerService.Stop()

	// Setup router
	mux := http.NewServeMux()

	// Revision endpoints
	mux.Handle("GET /api/v1/quality/revisions", authMw.Authenticate(http.HandlerFunc(revisionHandler.ListRevisions)))
	mux.Handle("GET /api/v1/quality/revisions/open", authMw.Authenticate(http.HandlerFunc(revisionHandler.GetOpenRevision)))
	mux.Handle("POST /api/v1/quality/revisions/progress", authMw.Authenticate(http.HandlerFunc(revisionHandler.SaveProgress)))
	mux.Handle("GET /api/v1/quality/revisions/{id}", authMw.Authenticate(http.HandlerFunc(revisionHandler.GetRevision)))
	mux.Handle("POST /api/v1/quality/revisions/{id}/reopen", authMw.Authenticate(http.HandlerFunc(revisionHandler.ReopenRevision)))
	mux.Handle("DELETE /api/v1/quality/revisions/{id}", authMw.Authenticate(http.HandlerFunc(revisionHandler.DeleteRevision)))

	// Reference table endpoints
	mux.Handle("GET /api/v1/quality/references/{kind}", authMw.Authenticate(http.HandlerFunc(referenceHandler.ListReferences)))
	mux.Handle("POST /api/v1/quality/references/{kind}", authMw.Authenticate(http.HandlerFunc(referenceHandler.CreateReference)))
	mux.Handle("PUT /api/v1/quality/references/{kind}/{id}", authMw.Authenticate(http.HandlerFunc(referenceHandler.UpdateReference)))
	mux.Handle("DELETE /api/v1/quality/references/{kind}/{id}", authMw.Authenticate(http.HandlerFunc(referenceHandler.DeleteReference)))

	// Report endpoints
	mux.Handle("GET /api/v1/quality/reports", authMw.Authenticate(http.HandlerFunc(reportHandler.GetPeriodReport)))
	mux.Handle("POST /api/v1/quality/reports/email", authMw.Authenticate(http.HandlerFunc(reportHandler.EmailPeriodReport)))
	mux.Handle("GET /api/v1/quality/dashboard", authMw.Authenticate(http.HandlerFunc(reportHandler.GetDashboard)))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := w.Write([]byte(`{"status":"unhealthy","database":"error"}`)); err != nil {
				slog.Error("Failed to write health check response", "error", err)
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"healthy","version":"` + cfg.App.Version + `"}`)); err != nil {
			slog.Error("Failed to write health check response", "error", err)
		}
	})

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Apply global middleware
	handler := middleware.LoggingMiddleware(
		middleware.SecurityHeaders(
			corsMw.Handler(
				rateLimiter.Limit(mux),
			),
		),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}
