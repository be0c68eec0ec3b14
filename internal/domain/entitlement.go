/**
 * @description
 * This file defines the core domain models for the billing-service.
 * It includes the Entitlement struct that maps to the database table and the
 * subscription status taxonomy used by the reconciliation engine.
 */
package domain

import "time"

// SubscriptionStatus is the internal billing state of a user. Every external
// status collapses into one of these four values.
type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
	StatusInactive SubscriptionStatus = "inactive"
)

// statusMapping translates Polar's subscription status values into the
// internal taxonomy. Anything not listed here maps to StatusInactive.
var statusMapping = map[string]SubscriptionStatus{
	"active":             StatusActive,
	"trialing":           StatusActive,
	"past_due":           StatusPastDue,
	"canceled":           StatusCanceled,
	"incomplete":         StatusInactive,
	"incomplete_expired": StatusInactive,
	"unpaid":             StatusInactive,
}

// MapSubscriptionStatus resolves an external status string to the internal
// taxonomy. The fallback to StatusInactive is deliberate, not an omission:
// an unrecognized provider status must never leave a user in a paid state.
func MapSubscriptionStatus(raw string) SubscriptionStatus {
	if status, ok := statusMapping[raw]; ok {
		return status
	}
	return StatusInactive
}

// Entitlement represents what a user is allowed to consume: their billing
// state plus the spendable credit balance. One row per user, keyed by the
// stable identity-provider user id.
type Entitlement struct {
	UserID             string             `json:"user_id"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	SubscriptionID     *string            `json:"subscription_id,omitempty"`
	PolarCustomerID    *string            `json:"polar_customer_id,omitempty"`
	CurrentPlan        *string            `json:"current_plan,omitempty"`
	Credits            int                `json:"credits"`
	LastCreditReset    *time.Time         `json:"last_credit_reset,omitempty"`
}

// IsActive reports whether the user currently holds a paid subscription.
func (e *Entitlement) IsActive() bool {
	return e.SubscriptionStatus == StatusActive
}
