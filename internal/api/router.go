package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/credence-core/credence/internal/api/handlers"
	mw "github.com/credence-core/credence/internal/api/middleware"
	"github.com/credence-core/credence/internal/config"
	"github.com/credence-core/credence/internal/domain"
	"github.com/credence-core/credence/internal/service"
	"github.com/credence-core/credence/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and request metrics for lifecycle management.
type App struct {
	Router    *chi.Mux
	startTime time.Time
	metrics   *mw.MetricsCollector
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	st := store.New(db)

	// Services
	projector := service.NewProjector(st, logger)
	trustSvc := service.NewTrustService(st, projector, logger)
	claimSvc := service.NewClaimService(st, trustSvc, logger)
	retractionSvc := service.NewRetractionService(st, projector, logger)
	calibrationSvc := service.NewCalibrationService(st, trustSvc, logger)
	graphSvc := service.NewGraphService(st, logger)

	// Handlers
	verificationHandler := handlers.NewVerificationHandler(trustSvc)
	claimHandler := handlers.NewClaimHandler(claimSvc)
	retractionHandler := handlers.NewRetractionHandler(retractionSvc)
	trustHandler := handlers.NewTrustHandler(trustSvc)
	calibrationHandler := handlers.NewCalibrationHandler(calibrationSvc)
	graphHandler := handlers.NewGraphHandler(graphSvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		startTime: time.Now(),
		metrics:   mw.NewMetricsCollector(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.metrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		// Evidence writes
		r.Post("/verifications", verificationHandler.Create)
		r.Post("/claims", claimHandler.Create)
		r.Post("/retractions", retractionHandler.Create)

		// Derived reads
		r.Route("/people/{personID}", func(r chi.Router) {
			r.Get("/trust", trustHandler.List)
			r.Get("/trust/{conceptID}", trustHandler.Get)
			r.Get("/calibration", calibrationHandler.Get)
		})

		// Graph administration
		r.Route("/concepts", func(r chi.Router) {
			r.Get("/", graphHandler.ListConcepts)
			r.Post("/", graphHandler.CreateConcept)
			r.Get("/{conceptID}", graphHandler.GetConcept)
		})
		r.Route("/edges", func(r chi.Router) {
			r.Get("/", graphHandler.ListEdges)
			r.Post("/", graphHandler.CreateEdge)
		})
	})

	return app
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.metrics.Requests(),
			"error_count":    app.metrics.Errors(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": float64(memStats.Alloc) / 1024 / 1024,
				"sys_mb":   float64(memStats.Sys) / 1024 / 1024,
				"num_gc":   memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure the pgx store satisfies the domain contract at compile time.
var _ domain.Store = (*store.Store)(nil)
