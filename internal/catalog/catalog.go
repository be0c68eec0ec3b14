/**
 * @description
 * This file implements the plan catalog: the static mapping from Polar
 * product ids to the entitlement effect of subscribing to that product
 * (a credit grant and a human-readable plan name).
 *
 * The catalog is built once at startup from configuration and never mutated
 * afterwards. An unknown product id is a hard error, never a default: a
 * missing catalog entry is a deployment gap that must surface loudly instead
 * of granting the wrong entitlement.
 */
package catalog

import (
	"errors"
	"fmt"
)

// ErrUnknownProduct is returned when a product id has no catalog entry.
var ErrUnknownProduct = errors.New("unknown product id")

// Plan describes the entitlement effect of one product: the credits granted
// on each subscription event and the plan label shown to the user.
type Plan struct {
	Credits int    `json:"credits"`
	Name    string `json:"name"`
}

// Catalog is an immutable product-id -> plan lookup table.
type Catalog struct {
	plans map[string]Plan
}

// New validates the given plan table and returns a catalog backed by a
// private copy of it, so later mutation of the input map cannot leak in.
func New(plans map[string]Plan) (*Catalog, error) {
	if len(plans) == 0 {
		return nil, errors.New("plan catalog is empty")
	}
	copied := make(map[string]Plan, len(plans))
	for productID, plan := range plans {
		if productID == "" {
			return nil, errors.New("plan catalog contains an empty product id")
		}
		if plan.Name == "" {
			return nil, fmt.Errorf("plan for product %s has no name", productID)
		}
		if plan.Credits < 0 {
			return nil, fmt.Errorf("plan %s has a negative credit grant", plan.Name)
		}
		copied[productID] = plan
	}
	return &Catalog{plans: copied}, nil
}

// Resolve looks up the plan for a product id.
func (c *Catalog) Resolve(productID string) (Plan, error) {
	plan, ok := c.plans[productID]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	return plan, nil
}
