/**
 * @description
 * This file contains the core business logic for the billing-service.
 * The Service layer owns the reconciliation engine (the state machine that
 * merges normalized subscription events into stored entitlements) and the
 * entitlement/credit operations used by the authenticated API.
 */
package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/tradedeck/billing-service/internal/catalog"
	"github.com/tradedeck/billing-service/internal/domain"
	"github.com/tradedeck/billing-service/internal/store"
)

// signupCredits is the starting balance granted when an entitlement record is
// first created for a user, before they have ever subscribed.
const signupCredits = 15

// Repository defines the interface for database operations that the service needs.
type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Entitlement, error)
	MergeSubscriptionState(ctx context.Context, ent *domain.Entitlement) (*domain.Entitlement, error)
	CreateIfAbsent(ctx context.Context, userID string, credits int) (*domain.Entitlement, error)
	SpendCredit(ctx context.Context, userID string) (int, error)
	RefundCredit(ctx context.Context, userID string) (int, error)
}

// Publisher defines the interface for fanning internal events out to other
// services. A nil Publisher disables publishing.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body any) error
}

// EntitlementUpdatedEvent is the message published after a successful
// reconciliation so downstream services can react to billing changes.
type EntitlementUpdatedEvent struct {
	UserID             string `json:"user_id"`
	SubscriptionStatus string `json:"subscription_status"`
	CurrentPlan        string `json:"current_plan,omitempty"`
	Credits            int    `json:"credits"`
	EventType          string `json:"event_type"`
}

// Service provides the business logic for entitlement management.
type Service struct {
	repo      Repository
	catalog   *catalog.Catalog
	publisher Publisher
	now       func() time.Time
}

// NewService creates a new billing service.
func NewService(repo Repository, cat *catalog.Catalog, publisher Publisher) Service {
	return Service{
		repo:      repo,
		catalog:   cat,
		publisher: publisher,
		now:       time.Now,
	}
}

// Reconcile applies a normalized subscription event to the stored entitlement
// for its user, in a single merge write.
//
// Each event carries the complete target state for its product, so redundant
// or re-ordered delivery of the same event converges to the same row; no
// dedup bookkeeping is needed. Credits are overwritten to the plan's
// allotment, not incremented: a subscription event resets the balance to the
// plan allowance regardless of what has been spent since the last one.
func (s Service) Reconcile(ctx context.Context, ev domain.NormalizedEvent) (*domain.Entitlement, error) {
	plan, err := s.catalog.Resolve(ev.ProductID)
	if err != nil {
		// No partial merge on a catalog miss: surfacing the gap beats
		// recording a wrong entitlement.
		return nil, err
	}

	now := s.now().UTC()
	status := domain.MapSubscriptionStatus(ev.RawStatus)
	target := &domain.Entitlement{
		UserID:             ev.UserID,
		SubscriptionStatus: status,
		SubscriptionID:     nullableString(ev.SubscriptionID),
		PolarCustomerID:    nullableString(ev.CustomerID),
		CurrentPlan:        nullableString(plan.Name),
		Credits:            plan.Credits,
		LastCreditReset:    &now,
	}

	merged, err := s.repo.MergeSubscriptionState(ctx, target)
	if err != nil {
		return nil, err
	}

	s.publishUpdate(ctx, merged, ev.Type)
	return merged, nil
}

// publishUpdate emits an entitlement.updated event. Publishing is best
// effort: the store write already succeeded, so a broker fault must not turn
// the webhook response into a retryable failure.
func (s Service) publishUpdate(ctx context.Context, ent *domain.Entitlement, eventType string) {
	if s.publisher == nil {
		return
	}
	msg := EntitlementUpdatedEvent{
		UserID:             ent.UserID,
		SubscriptionStatus: string(ent.SubscriptionStatus),
		Credits:            ent.Credits,
		EventType:          eventType,
	}
	if ent.CurrentPlan != nil {
		msg.CurrentPlan = *ent.CurrentPlan
	}
	if err := s.publisher.Publish(ctx, "billing_events", "entitlement.updated", msg); err != nil {
		log.Printf("WARN: failed to publish entitlement.updated for user %s: %v", ent.UserID, err)
	}
}

// GetEntitlement returns the entitlement for a user, lazily creating the
// record with the sign-up credit grant if the user has none yet.
func (s Service) GetEntitlement(ctx context.Context, userID string) (*domain.Entitlement, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	ent, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrEntitlementNotFound) {
			log.Printf("No entitlement found for user %s, creating sign-up record", userID)
			return s.repo.CreateIfAbsent(ctx, userID, signupCredits)
		}
		return nil, err
	}
	return ent, nil
}

// SpendCredit debits one credit from the user's balance and returns the
// remaining balance. The user's record is created on demand so a freshly
// signed-up user can spend their sign-up grant immediately.
func (s Service) SpendCredit(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, errors.New("user ID cannot be empty")
	}

	remaining, err := s.repo.SpendCredit(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrEntitlementNotFound) {
			if _, createErr := s.repo.CreateIfAbsent(ctx, userID, signupCredits); createErr != nil {
				return 0, createErr
			}
			return s.repo.SpendCredit(ctx, userID)
		}
		return 0, err
	}
	return remaining, nil
}

// RefundCredit hands one credit back after a failed downstream operation.
func (s Service) RefundCredit(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, errors.New("user ID cannot be empty")
	}
	return s.repo.RefundCredit(ctx, userID)
}

func nullableString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
