/**
 * @description
 * This file defines the normalized webhook event: the canonical, internal
 * representation of a Polar subscription lifecycle event after parsing.
 * It is constructed fresh for every delivery and discarded once the
 * reconciliation engine has applied it; it is never persisted.
 */
package domain

// Event types this service reconciles. Everything else is acknowledged and
// ignored so the provider does not keep retrying it.
const (
	EventSubscriptionCreated = "subscription.created"
	EventSubscriptionUpdated = "subscription.updated"
)

// NormalizedEvent is a subscription lifecycle event reduced to the fields the
// reconciliation engine needs. RawStatus keeps the provider's original status
// string; mapping to the internal taxonomy happens during reconciliation.
type NormalizedEvent struct {
	Type           string
	UserID         string
	ProductID      string
	SubscriptionID string
	CustomerID     string
	RawStatus      string
}
