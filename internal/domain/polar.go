/**
 * @description
 * This file defines the shapes of the payloads the billing-service exchanges
 * with Polar: the inbound webhook envelope and the product objects returned
 * by the Polar catalog API.
 *
 * The webhook envelope is decoded in two steps. The outer envelope carries
 * the `type` discriminator and the payload as raw JSON; only once the type is
 * recognized is the payload decoded into the subscription shape. Fields that
 * are absent simply decode to their zero value, which the normalizer treats
 * as missing rather than passing through silently.
 */
package domain

import "encoding/json"

// WebhookEnvelope is the outer shape of every Polar webhook delivery.
type WebhookEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubscriptionPayload is the payload shape for subscription.created and
// subscription.updated events.
type SubscriptionPayload struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"`
	Customer PayloadCustomer `json:"customer"`
	Product  PayloadProduct  `json:"product"`
}

// PayloadCustomer is the Polar-side customer record embedded in a
// subscription payload. ExternalID carries our own user id, set when the
// checkout session was created.
type PayloadCustomer struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
}

// PayloadProduct identifies which product the subscription is for.
type PayloadProduct struct {
	ID string `json:"id"`
}

// Product is a purchasable product as listed by the Polar catalog API.
// Only the fields the paywall page needs are retained.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsRecurring bool   `json:"is_recurring"`
}
