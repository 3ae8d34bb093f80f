package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/byggkalk/quotation-api/internal/auth"
	"github.com/byggkalk/quotation-api/internal/config"
	"github.com/byggkalk/quotation-api/internal/database"
	"github.com/byggkalk/quotation-api/internal/http/handler"
	"github.com/byggkalk/quotation-api/internal/http/middleware"

	_ "github.com/byggkalk/quotation-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg             *config.Config
	logger          *zap.Logger
	db              *gorm.DB
	rateLimiter     *middleware.RateLimiter
	projectHandler  *handler.ProjectHandler
	documentHandler *handler.DocumentHandler
	elementHandler  *handler.ElementHandler
	quoteHandler    *handler.QuoteHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	rateLimiter *middleware.RateLimiter,
	projectHandler *handler.ProjectHandler,
	documentHandler *handler.DocumentHandler,
	elementHandler *handler.ElementHandler,
	quoteHandler *handler.QuoteHandler,
) *Router {
	return &Router{
		cfg:             cfg,
		logger:          logger,
		db:              db,
		rateLimiter:     rateLimiter,
		projectHandler:  projectHandler,
		documentHandler: documentHandler,
		elementHandler:  elementHandler,
		quoteHandler:    quoteHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(auth.Middleware(rt.logger))
	r.Use(rt.rateLimiter.Limit)

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with detailed stats)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(rt.db)
		if err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
				"max_idle_closed":      stats.MaxIdleClosed,
				"max_lifetime_closed":  stats.MaxLifetimeClosed,
			},
		})
	})

	// Combined readiness check (checks all dependencies)
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		// Check database
		if err := database.HealthCheck(rt.db); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{
				"status": "healthy",
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if allHealthy {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "healthy",
				"checks": checks,
			})
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "unhealthy",
				"checks": checks,
			})
		}
	})

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Projects
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", rt.projectHandler.List)
			r.Post("/", rt.projectHandler.Create)
			r.Get("/{id}", rt.projectHandler.GetByID)
			r.Put("/{id}", rt.projectHandler.Update)
			r.Delete("/{id}", rt.projectHandler.Delete)

			// Aggregated elements of the project
			r.Get("/{id}/elements", rt.elementHandler.ListByProject)
			r.Get("/{id}/elements/groups", rt.elementHandler.Group)
			r.Get("/{id}/elements/statistics", rt.elementHandler.Statistics)
			r.Get("/{id}/elements/types", rt.elementHandler.Types)

			// Cost estimate over the analyzed element pool
			r.Post("/{id}/estimate", rt.projectHandler.Estimate)

			// Quote generation from selected elements
			r.Post("/{id}/quotes/generate", rt.quoteHandler.GenerateFromElements)
		})

		// Documents
		r.Route("/documents", func(r chi.Router) {
			r.Get("/", rt.documentHandler.List)
			r.Post("/upload", rt.documentHandler.Upload)
			r.Get("/{id}", rt.documentHandler.GetByID)
			r.Get("/{id}/download", rt.documentHandler.Download)
			r.Get("/{id}/elements", rt.elementHandler.ListByDocument)

			// Analysis lifecycle
			r.Post("/{id}/retry", rt.documentHandler.Retry)
			r.Post("/{id}/analysis/complete", rt.documentHandler.CompleteAnalysis)
			r.Post("/{id}/analysis/fail", rt.documentHandler.FailAnalysis)
		})

		// Elements
		r.Route("/elements", func(r chi.Router) {
			r.Put("/{id}", rt.elementHandler.Update)
			r.Delete("/{id}", rt.elementHandler.Delete)
		})

		// Quotes
		r.Route("/quotes", func(r chi.Router) {
			r.Get("/", rt.quoteHandler.List)
			r.Post("/", rt.quoteHandler.Create)
			r.Get("/{id}", rt.quoteHandler.GetByID)
			r.Put("/{id}", rt.quoteHandler.Update)
			r.Delete("/{id}", rt.quoteHandler.Delete)

			// Lifecycle endpoints
			r.Post("/{id}/send", rt.quoteHandler.Send)
			r.Post("/{id}/accept", rt.quoteHandler.Accept)
			r.Post("/{id}/decline", rt.quoteHandler.Decline)
			r.Post("/{id}/status", rt.quoteHandler.AdvanceStatus)

			// Sub-resources
			r.Put("/{id}/items", rt.quoteHandler.UpdateItems)
			r.Post("/{id}/items", rt.quoteHandler.AddItems)
			r.Delete("/{id}/items/{itemId}", rt.quoteHandler.RemoveItem)
			r.Get("/{id}/activities", rt.quoteHandler.Activities)
			r.Get("/{id}/export", rt.quoteHandler.Export)
		})
	})

	return r
}
