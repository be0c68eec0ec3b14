/**
 * @description
 * This file implements the in-process cache of purchasable products shown on
 * the paywall page. The product list comes from the Polar catalog API and
 * changes rarely, so it is fetched once at startup and refreshed on a timer
 * rather than on every request.
 */
package app

import (
	"context"
	"sync"
	"time"

	"github.com/tradedeck/billing-service/internal/domain"
)

// ProductLister fetches the current recurring products from the billing
// provider.
type ProductLister interface {
	ListRecurringProducts(ctx context.Context) ([]domain.Product, error)
}

// ProductCache holds the last successfully fetched product list. Reads never
// block on the provider: a failed refresh keeps the previous list.
type ProductCache struct {
	lister ProductLister

	mu          sync.RWMutex
	products    []domain.Product
	refreshedAt time.Time
}

// NewProductCache creates an empty cache backed by the given lister.
func NewProductCache(lister ProductLister) *ProductCache {
	return &ProductCache{lister: lister}
}

// Refresh fetches the product list from the provider and swaps it in.
func (c *ProductCache) Refresh(ctx context.Context) error {
	products, err := c.lister.ListRecurringProducts(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.products = products
	c.refreshedAt = time.Now()
	c.mu.Unlock()
	return nil
}

// Products returns the cached product list. The returned slice is a copy so
// callers cannot race with a concurrent refresh.
func (c *ProductCache) Products() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

// RefreshedAt reports when the cache last succeeded, zero if never.
func (c *ProductCache) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}
