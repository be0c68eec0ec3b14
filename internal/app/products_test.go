package app

import (
	"context"
	"errors"
	"testing"

	"github.com/tradedeck/billing-service/internal/domain"
)

type fakeLister struct {
	products []domain.Product
	err      error
}

func (f *fakeLister) ListRecurringProducts(ctx context.Context) ([]domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func TestProductCacheRefreshAndRead(t *testing.T) {
	lister := &fakeLister{products: []domain.Product{
		{ID: "p1", Name: "Starter", IsRecurring: true},
		{ID: "p2", Name: "Pro", IsRecurring: true},
	}}
	cache := NewProductCache(lister)

	if got := cache.Products(); len(got) != 0 {
		t.Fatalf("expected empty cache before refresh, got %d items", len(got))
	}

	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	got := cache.Products()
	if len(got) != 2 || got[0].ID != "p1" {
		t.Fatalf("unexpected cached products: %+v", got)
	}
	if cache.RefreshedAt().IsZero() {
		t.Fatalf("expected RefreshedAt to be set after refresh")
	}
}

func TestProductCacheKeepsLastGoodListOnFailure(t *testing.T) {
	lister := &fakeLister{products: []domain.Product{{ID: "p1", Name: "Starter"}}}
	cache := NewProductCache(lister)

	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	lister.err = errors.New("provider unavailable")
	if err := cache.Refresh(context.Background()); err == nil {
		t.Fatalf("expected refresh failure to surface")
	}
	if got := cache.Products(); len(got) != 1 {
		t.Fatalf("failed refresh dropped the cached list: %+v", got)
	}
}
