/**
 * @description
 * This file sets up the HTTP router for the billing-service using the
 * go-chi/chi router. It defines the API routes, applies middleware for
 * logging, CORS, timeouts and authentication, and maps the routes to their
 * corresponding handler functions.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers the billing-service routes.
func NewRouter(h *Handler, jwksURL string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Bounds the total handling time of a delivery; a timeout surfaces as a
	// 5xx so Polar retries instead of assuming success.
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Billing service is healthy"))
	})

	// Webhook and paywall routes: no session auth. The webhook authenticates
	// via its HMAC signature instead.
	r.Post("/webhooks/polar", h.handleWebhook)
	r.Get("/products", h.handleListProducts)

	// Protected routes that require an authenticated user session.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwksURL))

		r.Get("/entitlement", h.handleGetEntitlement)
		r.Post("/checkout", h.handleCreateCheckout)
		r.Post("/credits/spend", h.handleSpendCredit)
		r.Post("/credits/refund", h.handleRefundCredit)
	})

	return r
}
