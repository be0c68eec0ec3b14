/**
 * @description
 * This file implements the outbound HTTP client for the Polar API. The
 * billing-service uses two calls: creating a checkout session when a user
 * picks a plan, and listing the organization's recurring products for the
 * paywall page.
 */
package polar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tradedeck/billing-service/internal/domain"
)

const defaultBaseURL = "https://api.polar.sh"

// Client talks to the Polar REST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	accessToken    string
	organizationID string
}

// NewClient creates a Polar API client.
func NewClient(accessToken, organizationID string) *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		baseURL:        defaultBaseURL,
		accessToken:    accessToken,
		organizationID: organizationID,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a test server.
func NewClientWithBaseURL(accessToken, organizationID, baseURL string) *Client {
	c := NewClient(accessToken, organizationID)
	c.baseURL = baseURL
	return c
}

// CreateCheckout creates a checkout session for the given product and returns
// the URL the user should be redirected to. The external customer id links
// the resulting Polar customer back to our own user record, which is how
// webhook events later find their subject.
func (c *Client) CreateCheckout(ctx context.Context, productID, customerEmail, externalCustomerID string) (string, error) {
	reqBody := map[string]string{
		"product_id":           productID,
		"customer_email":       customerEmail,
		"external_customer_id": externalCustomerID,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkouts", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("polar checkout request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("polar checkout returned status %d: %s", resp.StatusCode, string(body))
	}

	var checkout struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&checkout); err != nil {
		return "", fmt.Errorf("decoding polar checkout response: %w", err)
	}
	if checkout.URL == "" {
		return "", fmt.Errorf("polar checkout response contained no url")
	}
	return checkout.URL, nil
}

// ListRecurringProducts fetches the organization's recurring products.
func (c *Client) ListRecurringProducts(ctx context.Context) ([]domain.Product, error) {
	endpoint := fmt.Sprintf("%s/v1/products?organization_id=%s&is_recurring=true",
		c.baseURL, url.QueryEscape(c.organizationID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polar products request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("polar products returned status %d: %s", resp.StatusCode, string(body))
	}

	var listing struct {
		Items []domain.Product `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decoding polar products response: %w", err)
	}
	return listing.Items, nil
}
