package app

import (
	"errors"
	"testing"

	"github.com/tradedeck/billing-service/internal/domain"
)

func TestNormalizeEventExtractsAllFields(t *testing.T) {
	body := []byte(`{
        "type": "subscription.created",
        "payload": {
            "id": "sub_123",
            "status": "active",
            "customer": {"id": "cus_456", "external_id": "user_789"},
            "product": {"id": "PRODUCT_ID_PRO"}
        }
    }`)

	ev, err := NormalizeEvent(body)
	if err != nil {
		t.Fatalf("NormalizeEvent returned error: %v", err)
	}

	want := domain.NormalizedEvent{
		Type:           "subscription.created",
		UserID:         "user_789",
		ProductID:      "PRODUCT_ID_PRO",
		SubscriptionID: "sub_123",
		CustomerID:     "cus_456",
		RawStatus:      "active",
	}
	if ev != want {
		t.Fatalf("normalized event mismatch:\n got %+v\nwant %+v", ev, want)
	}
}

func TestNormalizeEventUnhandledType(t *testing.T) {
	body := []byte(`{"type": "invoice.paid", "payload": {"id": "inv_1"}}`)

	_, err := NormalizeEvent(body)
	if !errors.Is(err, ErrUnhandledEvent) {
		t.Fatalf("expected ErrUnhandledEvent, got %v", err)
	}
}

func TestNormalizeEventMissingSubject(t *testing.T) {
	body := []byte(`{
        "type": "subscription.updated",
        "payload": {
            "id": "sub_123",
            "status": "active",
            "customer": {"id": "cus_456"},
            "product": {"id": "PRODUCT_ID_PRO"}
        }
    }`)

	_, err := NormalizeEvent(body)
	if !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("expected ErrMissingSubject, got %v", err)
	}
}

func TestNormalizeEventMalformedBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `not json at all`},
		{name: "missing type", body: `{"payload": {"id": "sub_1"}}`},
		{name: "payload wrong shape", body: `{"type": "subscription.created", "payload": ["array"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeEvent([]byte(tt.body))
			if !errors.Is(err, ErrMalformedPayload) {
				t.Fatalf("expected ErrMalformedPayload, got %v", err)
			}
		})
	}
}
