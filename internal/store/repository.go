/**
 * @description
 * This file implements the data access layer for the billing-service.
 * It contains all the SQL for the entitlements table: reads keyed by user id,
 * the merge-style upsert the reconciliation engine relies on, and the atomic
 * credit spend/refund operations used by the idea-generation flow.
 */
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradedeck/billing-service/internal/domain"
)

var (
	// ErrEntitlementNotFound is returned when no entitlement row exists for
	// the requested user.
	ErrEntitlementNotFound = errors.New("entitlement not found")

	// ErrInsufficientCredits is returned when a spend would take the credit
	// balance below zero.
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// Repository handles database operations for entitlements.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the entitlements table if it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
        CREATE TABLE IF NOT EXISTS entitlements (
            user_id             TEXT PRIMARY KEY,
            subscription_status TEXT NOT NULL DEFAULT 'inactive',
            subscription_id     TEXT,
            polar_customer_id   TEXT,
            current_plan        TEXT,
            credits             INTEGER NOT NULL DEFAULT 0 CHECK (credits >= 0),
            last_credit_reset   TIMESTAMPTZ,
            created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )
    `
	_, err := r.db.Exec(ctx, query)
	return err
}

// GetByUserID retrieves the entitlement for a given user id.
func (r *Repository) GetByUserID(ctx context.Context, userID string) (*domain.Entitlement, error) {
	var ent domain.Entitlement
	query := `
        SELECT user_id, subscription_status, subscription_id, polar_customer_id,
               current_plan, credits, last_credit_reset
        FROM entitlements
        WHERE user_id = $1
    `
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&ent.UserID,
		&ent.SubscriptionStatus,
		&ent.SubscriptionID,
		&ent.PolarCustomerID,
		&ent.CurrentPlan,
		&ent.Credits,
		&ent.LastCreditReset,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntitlementNotFound
		}
		return nil, err
	}
	return &ent, nil
}

// MergeSubscriptionState writes the subscription-driven fields of an
// entitlement, creating the row if it does not exist. Only the fields a
// subscription event carries are touched; everything else on an existing row
// is preserved. One statement, so concurrent events for the same user resolve
// to last-write-wins at the database.
func (r *Repository) MergeSubscriptionState(ctx context.Context, ent *domain.Entitlement) (*domain.Entitlement, error) {
	var merged domain.Entitlement
	query := `
        INSERT INTO entitlements (user_id, subscription_status, subscription_id,
                                  polar_customer_id, current_plan, credits, last_credit_reset)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (user_id) DO UPDATE SET
            subscription_status = EXCLUDED.subscription_status,
            subscription_id     = EXCLUDED.subscription_id,
            polar_customer_id   = EXCLUDED.polar_customer_id,
            current_plan        = EXCLUDED.current_plan,
            credits             = EXCLUDED.credits,
            last_credit_reset   = EXCLUDED.last_credit_reset,
            updated_at          = NOW()
        RETURNING user_id, subscription_status, subscription_id, polar_customer_id,
                  current_plan, credits, last_credit_reset
    `
	err := r.db.QueryRow(ctx, query,
		ent.UserID,
		ent.SubscriptionStatus,
		ent.SubscriptionID,
		ent.PolarCustomerID,
		ent.CurrentPlan,
		ent.Credits,
		ent.LastCreditReset,
	).Scan(
		&merged.UserID,
		&merged.SubscriptionStatus,
		&merged.SubscriptionID,
		&merged.PolarCustomerID,
		&merged.CurrentPlan,
		&merged.Credits,
		&merged.LastCreditReset,
	)
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

// CreateIfAbsent inserts a fresh inactive entitlement with the given starting
// credits, unless the user already has one. Returns the row either way.
func (r *Repository) CreateIfAbsent(ctx context.Context, userID string, credits int) (*domain.Entitlement, error) {
	query := `
        INSERT INTO entitlements (user_id, subscription_status, credits)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id) DO NOTHING
    `
	if _, err := r.db.Exec(ctx, query, userID, domain.StatusInactive, credits); err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, userID)
}

// SpendCredit atomically decrements the user's credit balance by one and
// returns the remaining balance. The WHERE guard keeps the balance from ever
// going negative.
func (r *Repository) SpendCredit(ctx context.Context, userID string) (int, error) {
	var remaining int
	query := `
        UPDATE entitlements
        SET credits = credits - 1, updated_at = NOW()
        WHERE user_id = $1 AND credits > 0
        RETURNING credits
    `
	err := r.db.QueryRow(ctx, query, userID).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the row is missing or the balance is already zero.
			if _, getErr := r.GetByUserID(ctx, userID); getErr != nil {
				return 0, getErr
			}
			return 0, ErrInsufficientCredits
		}
		return 0, err
	}
	return remaining, nil
}

// RefundCredit atomically increments the user's credit balance by one. Used
// to hand a debited credit back when idea generation fails downstream.
func (r *Repository) RefundCredit(ctx context.Context, userID string) (int, error) {
	var remaining int
	query := `
        UPDATE entitlements
        SET credits = credits + 1, updated_at = NOW()
        WHERE user_id = $1
        RETURNING credits
    `
	err := r.db.QueryRow(ctx, query, userID).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrEntitlementNotFound
		}
		return 0, err
	}
	return remaining, nil
}
