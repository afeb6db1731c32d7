package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/observability"
	"github.com/leaderforge/leaderforge-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups what the router serves. Nil services leave their
// routes unmounted.
type Services struct {
	Aggregator *service.Aggregator
	Activity   *service.ActivityService
	Company    *service.CompanyService
	Catalog    *service.TrainingCatalog
	Sessions   *service.SessionResolver
	Store      Pinger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, allowedOrigins []string, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Store, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if svc.Company != nil {
			// Join flow, before the user has an account.
			r.Get("/companies/by-code/{code}", companyByCodeHandler(svc.Company, logger))
		}

		if svc.Sessions == nil {
			logger.Warn("session resolver not configured, authenticated routes unavailable")
			return
		}

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(svc.Sessions, logger))

			r.Get("/metrics/dashboard", dashboardMetricsHandler(metrics))

			if svc.Aggregator != nil {
				r.Get("/dashboard/executive", executiveDashboardHandler(svc.Aggregator, logger))
				r.Get("/users/{userId}/weeks/{weekIndex}", memberWeekHandler(svc.Aggregator, logger))
				r.Get("/users/{userId}/four-week", memberFourWeekHandler(svc.Aggregator, logger))
			}

			if svc.Catalog != nil {
				r.Get("/trainings", listTrainingsHandler(svc.Catalog, logger))
			}

			if svc.Activity != nil {
				r.Post("/trainings/{trainingId}/video", markVideoHandler(svc.Activity, logger))
				r.Post("/trainings/{trainingId}/worksheet", markWorksheetHandler(svc.Activity, logger))

				r.Get("/bold-actions", listBoldActionsHandler(svc.Activity, logger))
				r.Post("/bold-actions", createBoldActionHandler(svc.Activity, logger))
				r.Post("/bold-actions/{actionId}/complete", completeBoldActionHandler(svc.Activity, logger))

				r.Get("/standups/upcoming", upcomingStandupsHandler(svc.Activity, logger))
				r.Post("/team/{memberId}/standups", scheduleStandupHandler(svc.Activity, logger))
				r.Post("/team/{memberId}/standups/{standupId}/complete", completeStandupHandler(svc.Activity, logger))
			}

			if svc.Company != nil {
				r.Get("/team", listTeamHandler(svc.Company, logger))
				r.Get("/company/users", listDirectoryHandler(svc.Company, logger))
				r.Put("/company/users/{userId}/role", updateRoleHandler(svc.Company, logger))
				r.Put("/company/users/{userId}/supervisor", assignSupervisorHandler(svc.Company, logger))
				r.Post("/company/users/batch", batchUpdateHandler(svc.Company, logger))
			}
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(store Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if store != nil {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			start := time.Now()
			err := store.Ping(ctx)
			cancel()
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				logger.Warn("health: store ping failed", zap.Error(err))
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "document-store", Status: status, LatencyMs: latency, LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func dashboardMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
