package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/byggkalk/quotation-api/docs"
	"github.com/byggkalk/quotation-api/internal/analysis"
	"github.com/byggkalk/quotation-api/internal/config"
	"github.com/byggkalk/quotation-api/internal/database"
	"github.com/byggkalk/quotation-api/internal/http/handler"
	"github.com/byggkalk/quotation-api/internal/http/middleware"
	"github.com/byggkalk/quotation-api/internal/http/router"
	"github.com/byggkalk/quotation-api/internal/jobs"
	"github.com/byggkalk/quotation-api/internal/logger"
	"github.com/byggkalk/quotation-api/internal/render"
	"github.com/byggkalk/quotation-api/internal/repository"
	"github.com/byggkalk/quotation-api/internal/service"
	"github.com/byggkalk/quotation-api/internal/storage"
)

// quoteExpiryCron sweeps sent quotes for passed expiry dates at the top
// of every hour.
const quoteExpiryCron = "0 0 * * * *"

// @title Byggkalk Quotation API
// @version 1.0
// @description Document analysis and quotation workflow engine for construction projects

// @contact.name API Support
// @contact.email support@byggkalk.no

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Configure Swagger host based on environment
	if basicCfg.App.Environment == "development" || basicCfg.App.Environment == "local" {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	// Connect to database
	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Initialize document storage
	documentStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Initialize the analysis collaborator (optional). Without it,
	// uploaded documents are recorded as failed until analysis results
	// arrive through the callback endpoints.
	analyzerClient, err := analysis.NewClient(&cfg.Analysis, log)
	if err != nil {
		return fmt.Errorf("failed to initialize analysis client: %w", err)
	}
	var analyzer analysis.Analyzer
	if analyzerClient != nil {
		analyzer = analyzerClient
	}

	// Initialize repositories
	projectRepo := repository.NewProjectRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	elementRepo := repository.NewElementRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	quoteActivityRepo := repository.NewQuoteActivityRepository(db)

	// Initialize services
	projectService := service.NewProjectService(projectRepo, log)
	documentService := service.NewDocumentService(documentRepo, elementRepo, log)
	elementService := service.NewElementService(elementRepo, documentRepo, projectRepo, log)
	quoteService := service.NewQuoteService(quoteRepo, quoteActivityRepo, projectRepo, log)
	estimationService := service.NewEstimationService(projectRepo, documentRepo, elementRepo, log)
	workflowService := service.NewWorkflowService(documentService, quoteService, elementRepo, projectRepo, documentStorage, analyzer, log)

	// Initialize middleware
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	projectHandler := handler.NewProjectHandler(projectService, estimationService, log)
	documentHandler := handler.NewDocumentHandler(documentService, workflowService, cfg.Storage.MaxUploadSizeMB, log)
	elementHandler := handler.NewElementHandler(elementService, log)
	quoteHandler := handler.NewQuoteHandler(quoteService, workflowService, render.NewJSONRenderer(), log)

	// Setup router
	rt := router.NewRouter(
		cfg,
		log,
		db,
		rateLimiter,
		projectHandler,
		documentHandler,
		elementHandler,
		quoteHandler,
	)

	// Initialize and start scheduler for the quote expiry sweep
	scheduler := jobs.NewScheduler(log)
	if err := jobs.RegisterQuoteExpiryJob(
		scheduler,
		quoteService,
		log,
		quoteExpiryCron,
		cfg.Server.RequestTimeoutDuration(),
		true, // sweep once at startup so a restarted instance catches up
	); err != nil {
		log.Error("Failed to register quote expiry job", zap.Error(err))
	} else {
		scheduler.Start()
		log.Info("Scheduler started with quote expiry job",
			zap.String("cron_expr", quoteExpiryCron),
		)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Stop scheduler; running jobs complete first
		schedulerCtx := scheduler.Stop()
		<-schedulerCtx.Done()
		log.Info("Scheduler stopped")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
