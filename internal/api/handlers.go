/**
 * @description
 * This file contains the HTTP handler functions for the billing-service.
 * The webhook handler is the only side-effecting entry point for Polar
 * events: it authenticates the delivery, hands the body to the normalizer
 * and the reconciliation engine, and maps each outcome of the error taxonomy
 * to the status code Polar's retry logic expects. The remaining handlers
 * serve the authenticated dashboard (entitlement, checkout, credits) and the
 * public paywall product list.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tradedeck/billing-service/internal/app"
	"github.com/tradedeck/billing-service/internal/catalog"
	"github.com/tradedeck/billing-service/internal/store"
)

// maxWebhookBody caps how much of a delivery we are willing to read.
const maxWebhookBody = 1 << 20

// CheckoutCreator creates a hosted checkout session and returns its URL.
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, productID, customerEmail, externalCustomerID string) (string, error)
}

// Handler holds the collaborators the HTTP handlers need.
type Handler struct {
	service       app.Service
	checkouts     CheckoutCreator
	products      *app.ProductCache
	webhookSecret string
}

// NewHandler creates a new Handler.
func NewHandler(service app.Service, checkouts CheckoutCreator, products *app.ProductCache, webhookSecret string) *Handler {
	return &Handler{
		service:       service,
		checkouts:     checkouts,
		products:      products,
		webhookSecret: webhookSecret,
	}
}

// handleWebhook processes a subscription lifecycle delivery from Polar.
//
// Status codes drive Polar's redelivery: 200 means handled (or intentionally
// ignored), 4xx means retrying cannot help (malformed payload, unknown
// product), 5xx means a transient fault that should be retried.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		log.Printf("[%s] Error reading webhook body: %v", requestID, err)
		http.Error(w, "Cannot read request body", http.StatusBadRequest)
		return
	}

	// Authenticate the delivery before parsing a single byte of it.
	if err := verifyWebhookSignature(h.webhookSecret, r.Header, body, time.Now()); err != nil {
		log.Printf("[%s] Rejected webhook: %v", requestID, err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	ev, err := app.NormalizeEvent(body)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnhandledEvent):
			// Not ours to process; acknowledge so Polar stops retrying.
			log.Printf("[%s] %v", requestID, err)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK (unhandled event type)"))
		case errors.Is(err, app.ErrMissingSubject):
			log.Printf("[%s] Webhook rejected: %v", requestID, err)
			http.Error(w, "Webhook missing user identifier", http.StatusBadRequest)
		default:
			log.Printf("[%s] Webhook rejected: %v", requestID, err)
			http.Error(w, "Malformed webhook payload", http.StatusBadRequest)
		}
		return
	}

	ent, err := h.service.Reconcile(r.Context(), ev)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownProduct) {
			// A catalog gap is a deployment problem; retrying cannot fix it.
			log.Printf("[%s] Reconciliation rejected: %v (type=%s user=%s product=%s)",
				requestID, err, ev.Type, ev.UserID, ev.ProductID)
			http.Error(w, "Unknown product id", http.StatusBadRequest)
			return
		}
		log.Printf("[%s] Reconciliation failed: %v (type=%s user=%s product=%s)",
			requestID, err, ev.Type, ev.UserID, ev.ProductID)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	log.Printf("[%s] Updated entitlement for user %s to %s (%s)",
		requestID, ent.UserID, ent.SubscriptionStatus, ev.Type)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Webhook received successfully"))
}

// handleGetEntitlement returns the caller's entitlement, creating it with the
// sign-up credit grant on first access.
func (h *Handler) handleGetEntitlement(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ent, err := h.service.GetEntitlement(r.Context(), userID)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	respondWithJSON(w, http.StatusOK, ent)
}

// handleCreateCheckout creates a Polar checkout session for the caller.
func (h *Handler) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		http.Error(w, "A product_id is required", http.StatusBadRequest)
		return
	}

	email, _ := EmailFromContext(r.Context())
	url, err := h.checkouts.CreateCheckout(r.Context(), req.ProductID, email, userID)
	if err != nil {
		log.Printf("Failed to create checkout session for user %s: %v", userID, err)
		http.Error(w, "Failed to create checkout session", http.StatusBadGateway)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"url": url})
}

// handleSpendCredit debits one credit from the caller's balance.
func (h *Handler) handleSpendCredit(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	remaining, err := h.service.SpendCredit(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientCredits) {
			http.Error(w, "Insufficient credits", http.StatusPaymentRequired)
			return
		}
		log.Printf("Failed to spend credit for user %s: %v", userID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"credits": remaining})
}

// handleRefundCredit returns one credit to the caller's balance after a
// failed generation.
func (h *Handler) handleRefundCredit(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	remaining, err := h.service.RefundCredit(r.Context(), userID)
	if err != nil {
		log.Printf("Failed to refund credit for user %s: %v", userID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"credits": remaining})
}

// handleListProducts serves the cached paywall product list.
func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"items": h.products.Products(),
	})
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
