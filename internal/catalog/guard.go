package catalog

import (
	"context"
	"fmt"

	"github.com/epsum/epsumstock/internal/tenant"
)

// ensureNameFree rejects a name another entity of the same kind and owner uses.
// excludeID lets an entity keep its own name on rename.
func ensureNameFree(ctx context.Context, tx tenant.Tx, owner int64, kind tenant.EntityKind, name string, excludeID int64) error {
	taken, err := tx.NameTaken(ctx, owner, kind, name, excludeID)
	if err != nil {
		return fmt.Errorf("catalog: check %s name: %w", kind, err)
	}
	if taken {
		return tenant.NameTaken(kind, name)
	}
	return nil
}

// ensureCustomerDeletable refuses to drop a customer any order still names.
func ensureCustomerDeletable(ctx context.Context, tx tenant.Tx, owner, id int64) error {
	referenced, err := tx.CustomerReferenced(ctx, owner, id)
	if err != nil {
		return fmt.Errorf("catalog: check customer references: %w", err)
	}
	if referenced {
		return fmt.Errorf("customer %d has orders: %w", id, tenant.ErrDeletionNotAllowed)
	}
	return nil
}

// ensureProductDeletable refuses to drop a product any order item still names.
func ensureProductDeletable(ctx context.Context, tx tenant.Tx, owner, id int64) error {
	referenced, err := tx.ProductReferenced(ctx, owner, id)
	if err != nil {
		return fmt.Errorf("catalog: check product references: %w", err)
	}
	if referenced {
		return fmt.Errorf("product %d is ordered: %w", id, tenant.ErrDeletionNotAllowed)
	}
	return nil
}

// ensureCategoryOwned checks an optional category reference.
func ensureCategoryOwned(ctx context.Context, tx tenant.Tx, owner int64, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	_, err := tx.GetCategory(ctx, owner, *categoryID)
	return err
}
