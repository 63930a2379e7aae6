package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nniahq/portal-api/internal/appointments"
	"github.com/nniahq/portal-api/internal/billing"
	"github.com/nniahq/portal-api/internal/dashboard"
	httpmiddleware "github.com/nniahq/portal-api/internal/http/middleware"
	"github.com/nniahq/portal-api/internal/notifications"
	"github.com/nniahq/portal-api/internal/realtime"
	"github.com/nniahq/portal-api/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger *logging.Logger

	Appointments  *appointments.Handler
	Notifications *notifications.Handler
	Dashboard     *dashboard.Handler
	Billing       *billing.Handler
	RealTime      *realtime.Handler

	MetricsHandler http.Handler

	CORSAllowedOrigins []string
	PortalJWTSecret    string

	// BillingRateLimit is requests/sec per IP on billing mutations; zero
	// disables the limiter.
	BillingRateLimit float64
	BillingRateBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/nnia", func(nnia chi.Router) {
		if cfg.RealTime != nil {
			nnia.Get("/real-time", cfg.RealTime.GetRealTime)
		}

		if cfg.Appointments != nil {
			nnia.Route("/appointments", func(r chi.Router) {
				r.Get("/", cfg.Appointments.List)
				r.Post("/", cfg.Appointments.Create)
				r.Put("/{id}", cfg.Appointments.Update)
				r.Delete("/{id}", cfg.Appointments.Delete)
			})
		}

		if cfg.Notifications != nil {
			nnia.Route("/notifications", func(r chi.Router) {
				r.Get("/", cfg.Notifications.List)
				r.Post("/", cfg.Notifications.Create)
				r.Post("/{id}/read", cfg.Notifications.MarkRead)
			})
		}

		if cfg.Dashboard != nil {
			nnia.Get("/dashboard", cfg.Dashboard.Overview)
			nnia.Get("/dashboard/refresh-latency", cfg.Dashboard.RefreshLatency)
		}

		if cfg.Billing != nil {
			nnia.Route("/billing", func(r chi.Router) {
				r.Get("/catalog", cfg.Billing.Catalog)
				r.Get("/subscription", cfg.Billing.Subscription)
				r.Get("/payments", cfg.Billing.Payments)

				// Mutations require a portal JWT when a secret is configured.
				r.Group(func(protected chi.Router) {
					if cfg.PortalJWTSecret != "" {
						protected.Use(httpmiddleware.PortalJWT(cfg.PortalJWTSecret))
					}
					if cfg.BillingRateLimit > 0 {
						protected.Use(httpmiddleware.RateLimit(cfg.BillingRateLimit, cfg.BillingRateBurst))
					}
					protected.Post("/checkout", cfg.Billing.Checkout)
					protected.Post("/subscription/change", cfg.Billing.ChangePlan)
					protected.Post("/subscription/cancel", cfg.Billing.Cancel)
					protected.Post("/consume", cfg.Billing.Consume)
				})
			})
		}
	})

	return r
}
