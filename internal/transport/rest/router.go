package rest

import (
	"log/slog"

	"github.com/frahmantamala/instrumentalist-payouts/internal/auth"
	"github.com/frahmantamala/instrumentalist-payouts/internal/balance"
	"github.com/frahmantamala/instrumentalist-payouts/internal/batch"
	"github.com/frahmantamala/instrumentalist-payouts/internal/payment"
	"github.com/frahmantamala/instrumentalist-payouts/internal/serviceevent"
	"github.com/frahmantamala/instrumentalist-payouts/internal/transfer"
	"github.com/frahmantamala/instrumentalist-payouts/internal/transport/middleware"
	"github.com/frahmantamala/instrumentalist-payouts/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes bundles the handlers mounted by RegisterAllRoutes. Nil handlers are skipped.
type Routes struct {
	Health      *HealthHandler
	Auth        *auth.Handler
	Payments    *payment.Handler
	Processing  *transfer.Handler
	Batch       *batch.Handler
	Balance     *balance.Handler
	Services    *serviceevent.Handler
	Metrics     prometheus.Gatherer
	MetricsPath string
}

func RegisterAllRoutes(router *chi.Mux, routes Routes, logger *slog.Logger) {
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.TraceID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", swagger.SpecHandler)
	router.Handle("/swagger/*", swagger.Handler())

	if routes.Metrics != nil {
		path := routes.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, promhttp.HandlerFor(routes.Metrics, promhttp.HandlerOpts{}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		if routes.Health != nil {
			r.Get("/health", routes.Health.healthCheckHandler)
			r.Get("/ping", routes.Health.pingHandler)
		}

		if routes.Auth == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(routes.Auth.AuthMiddleware)

			pr.Route("/payments", func(pm chi.Router) {
				if routes.Batch != nil {
					pm.Post("/batch", routes.Batch.RunBatch)
				}
				if routes.Payments != nil {
					pm.Post("/", routes.Payments.CreatePayment)
					pm.Get("/", routes.Payments.ListPayments)
					pm.Get("/{id}", routes.Payments.GetPayment)
					pm.Post("/{id}/approve", routes.Payments.ApprovePayment)
					pm.Post("/{id}/retry", routes.Payments.RetryPayment)
					pm.Post("/{id}/cancel", routes.Payments.CancelPayment)
				}
				if routes.Processing != nil {
					pm.Post("/{id}/process", routes.Processing.ProcessPayment)
				}
			})

			if routes.Balance != nil {
				pr.Get("/payouts/balance", routes.Balance.GetBalance)
			}

			if routes.Services != nil {
				pr.Get("/service-events", routes.Services.ListServiceEvents)
				pr.Get("/service-events/{id}", routes.Services.GetServiceEvent)
			}
		})
	})
}
