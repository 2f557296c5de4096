package repository

import (
	"context"
	"time"

	"promo-batch/internal/model"

	"github.com/google/uuid"
)

// DiscountRepository defines the interface for discount-set and discount
// data access. It is the only source of truth for batch progress.
type DiscountRepository interface {
	// CreateSet inserts a new discount set.
	CreateSet(ctx context.Context, set *model.DiscountSet) error

	// CreateItems bulk-inserts the set's items, all PENDING.
	CreateItems(ctx context.Context, items []model.Discount) error

	// GetSet retrieves a set by id. Returns (nil, nil) when absent.
	GetSet(ctx context.Context, id uuid.UUID) (*model.DiscountSet, error)

	// ListSets retrieves all sets for a shop with their items.
	ListSets(ctx context.Context, shop string) ([]model.SetWithItems, error)

	// GetItem retrieves a single item by id. Returns (nil, nil) when absent.
	GetItem(ctx context.Context, id uuid.UUID) (*model.Discount, error)

	// ClaimPending atomically transitions up to limit PENDING items of the
	// set to IN_PROGRESS and returns them in stable creation order.
	// Concurrent claimers never receive the same item.
	ClaimPending(ctx context.Context, setID uuid.UUID, limit int) ([]model.Discount, error)

	// ReleaseClaims returns the given IN_PROGRESS items to PENDING, used
	// when a batch aborts before resolving its claims.
	ReleaseClaims(ctx context.Context, itemIDs []uuid.UUID) error

	// ReleaseStaleClaims returns items stuck IN_PROGRESS since before the
	// cutoff back to PENDING and reports how many were released.
	ReleaseStaleClaims(ctx context.Context, setID uuid.UUID, cutoff time.Time) (int64, error)

	// MarkCreated resolves an IN_PROGRESS item to CREATED with its remote id.
	MarkCreated(ctx context.Context, itemID uuid.UUID, remoteID string) error

	// MarkFailed resolves an IN_PROGRESS item to FAILED with an error message.
	MarkFailed(ctx context.Context, itemID uuid.UUID, message string) error

	// CountByStatus returns per-status item counts for a set.
	CountByStatus(ctx context.Context, setID uuid.UUID) (model.StatusCounts, error)

	// ResetFailedToPending transitions all FAILED items of the set back to
	// PENDING, clearing their error messages. Returns the number reset.
	ResetFailedToPending(ctx context.Context, setID uuid.UUID) (int64, error)

	// CreatedItems returns the set's CREATED items (for remote deletion).
	CreatedItems(ctx context.Context, setID uuid.UUID) ([]model.Discount, error)

	// DeleteSet removes a set, cascading to its items. Returns the number
	// of sets removed (0 or 1).
	DeleteSet(ctx context.Context, id uuid.UUID) (int64, error)

	// DeleteItem removes a single item. Returns the number removed (0 or 1).
	DeleteItem(ctx context.Context, id uuid.UUID) (int64, error)
}
