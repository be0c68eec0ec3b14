package polar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateCheckoutReturnsURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/checkouts" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Fatalf("unexpected authorization header: %q", got)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body["product_id"] != "PRODUCT_ID_PRO" || body["external_customer_id"] != "user_1" {
			t.Fatalf("unexpected request body: %+v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"url": "https://polar.sh/checkout/abc"})
	}))
	defer srv.Close()

	client := NewClientWithBaseURL("test-token", "org_1", srv.URL)
	url, err := client.CreateCheckout(context.Background(), "PRODUCT_ID_PRO", "user@example.com", "user_1")
	if err != nil {
		t.Fatalf("CreateCheckout returned error: %v", err)
	}
	if url != "https://polar.sh/checkout/abc" {
		t.Fatalf("unexpected checkout url: %q", url)
	}
}

func TestCreateCheckoutSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "product not found"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewClientWithBaseURL("test-token", "org_1", srv.URL)
	if _, err := client.CreateCheckout(context.Background(), "bad", "", "user_1"); err == nil {
		t.Fatalf("expected error for non-2xx response, got nil")
	}
}

func TestListRecurringProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/products" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("organization_id") != "org_1" || q.Get("is_recurring") != "true" {
			t.Fatalf("unexpected query: %s", r.URL.RawQuery)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": "p1", "name": "Starter", "is_recurring": true},
				{"id": "p2", "name": "Pro", "is_recurring": true},
			},
		})
	}))
	defer srv.Close()

	client := NewClientWithBaseURL("test-token", "org_1", srv.URL)
	products, err := client.ListRecurringProducts(context.Background())
	if err != nil {
		t.Fatalf("ListRecurringProducts returned error: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if products[0].ID != "p1" || products[1].Name != "Pro" {
		t.Fatalf("unexpected products: %+v", products)
	}
}
