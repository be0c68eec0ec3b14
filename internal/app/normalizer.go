/**
 * @description
 * This file implements the event normalizer: the pure transformation from a
 * raw Polar webhook body into the canonical internal event consumed by the
 * reconciliation engine.
 *
 * Outcomes are expressed as sentinel errors so the webhook handler can map
 * each one to the HTTP status Polar's retry logic expects. ErrUnhandledEvent
 * in particular is an acknowledgement, not a failure: the handler answers
 * 200 so Polar stops redelivering event types we intentionally ignore.
 */
package app

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tradedeck/billing-service/internal/domain"
)

var (
	// ErrUnhandledEvent marks an event type outside this service's concern.
	ErrUnhandledEvent = errors.New("unhandled event type")

	// ErrMissingSubject marks a recognized event that carries no external
	// user id, so there is no way to tell whose entitlement it affects.
	ErrMissingSubject = errors.New("event missing user identifier")

	// ErrMalformedPayload marks a body that does not decode into the
	// expected envelope at all.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// NormalizeEvent parses a raw webhook body into a NormalizedEvent. It is a
// pure function: no I/O, no clock, no store access.
func NormalizeEvent(body []byte) (domain.NormalizedEvent, error) {
	var envelope domain.WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return domain.NormalizedEvent{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if envelope.Type == "" {
		return domain.NormalizedEvent{}, fmt.Errorf("%w: missing type field", ErrMalformedPayload)
	}

	switch envelope.Type {
	case domain.EventSubscriptionCreated, domain.EventSubscriptionUpdated:
	default:
		return domain.NormalizedEvent{}, fmt.Errorf("%w: %s", ErrUnhandledEvent, envelope.Type)
	}

	var payload domain.SubscriptionPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return domain.NormalizedEvent{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.Customer.ExternalID == "" {
		return domain.NormalizedEvent{}, fmt.Errorf("%w: type %s", ErrMissingSubject, envelope.Type)
	}

	return domain.NormalizedEvent{
		Type:           envelope.Type,
		UserID:         payload.Customer.ExternalID,
		ProductID:      payload.Product.ID,
		SubscriptionID: payload.ID,
		CustomerID:     payload.Customer.ID,
		RawStatus:      payload.Status,
	}, nil
}
