package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"promo-batch/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// discountRepository implements the DiscountRepository interface using PostgreSQL.
type discountRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDiscountRepository creates a new PostgreSQL-backed discount repository.
func NewDiscountRepository(pool *pgxpool.Pool, logger zerolog.Logger) DiscountRepository {
	return &discountRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "discount").Logger(),
	}
}

const itemColumns = `id, shop, code, template_ref, set_id, status, remote_id, error_message, claimed_at, created_at, updated_at`

func scanItem(row pgx.Row) (*model.Discount, error) {
	var item model.Discount
	err := row.Scan(
		&item.ID,
		&item.Shop,
		&item.Code,
		&item.TemplateRef,
		&item.SetID,
		&item.Status,
		&item.RemoteID,
		&item.ErrorMessage,
		&item.ClaimedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func collectItems(rows pgx.Rows) ([]model.Discount, error) {
	defer rows.Close()

	var items []model.Discount
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan discount: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating discounts: %w", err)
	}

	return items, nil
}

// CreateSet inserts a new discount set.
func (r *discountRepository) CreateSet(ctx context.Context, set *model.DiscountSet) error {
	query := `
		INSERT INTO discount_sets (id, name, shop, template_ref, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query, set.ID, set.Name, set.Shop, set.TemplateRef, set.CreatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("set_id", set.ID.String()).
			Msg("failed to create discount set")
		return fmt.Errorf("failed to create discount set: %w", err)
	}

	r.logger.Debug().
		Str("set_id", set.ID.String()).
		Str("shop", set.Shop).
		Msg("discount set created")

	return nil
}

// CreateItems bulk-inserts the set's items.
func (r *discountRepository) CreateItems(ctx context.Context, items []model.Discount) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO discounts (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.ID, item.Shop, item.Code, item.TemplateRef, item.SetID,
			item.Status, item.RemoteID, item.ErrorMessage, item.ClaimedAt,
			item.CreatedAt, item.UpdatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("code", items[i].Code).
				Msg("failed to insert discount")
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return model.NewDomainError(model.ErrCodeDuplicateCode,
					fmt.Sprintf("Discount code %q already exists for this shop", items[i].Code))
			}
			return fmt.Errorf("failed to insert discount %q: %w", items[i].Code, err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("discounts inserted")

	return nil
}

// GetSet retrieves a set by id.
func (r *discountRepository) GetSet(ctx context.Context, id uuid.UUID) (*model.DiscountSet, error) {
	query := `
		SELECT id, name, shop, template_ref, created_at
		FROM discount_sets
		WHERE id = $1
	`

	var set model.DiscountSet
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&set.ID,
		&set.Name,
		&set.Shop,
		&set.TemplateRef,
		&set.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("set_id", id.String()).Msg("failed to query discount set")
		return nil, fmt.Errorf("failed to query discount set: %w", err)
	}

	return &set, nil
}

// ListSets retrieves all sets for a shop with their items.
func (r *discountRepository) ListSets(ctx context.Context, shop string) ([]model.SetWithItems, error) {
	setsQuery := `
		SELECT id, name, shop, template_ref, created_at
		FROM discount_sets
		WHERE shop = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, setsQuery, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to query discount sets: %w", err)
	}

	var sets []model.SetWithItems
	for rows.Next() {
		var set model.DiscountSet
		if err := rows.Scan(&set.ID, &set.Name, &set.Shop, &set.TemplateRef, &set.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan discount set: %w", err)
		}
		sets = append(sets, model.SetWithItems{DiscountSet: set})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating discount sets: %w", err)
	}

	itemsQuery := `
		SELECT ` + itemColumns + `
		FROM discounts
		WHERE set_id = $1
		ORDER BY created_at, id
	`

	for i := range sets {
		itemRows, err := r.pool.Query(ctx, itemsQuery, sets[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to query discounts for set: %w", err)
		}
		items, err := collectItems(itemRows)
		if err != nil {
			return nil, err
		}
		sets[i].Items = items

		counts := model.StatusCounts{}
		for _, item := range items {
			counts[item.Status]++
		}
		sets[i].Counts = counts
	}

	return sets, nil
}

// GetItem retrieves a single item by id.
func (r *discountRepository) GetItem(ctx context.Context, id uuid.UUID) (*model.Discount, error) {
	query := `SELECT ` + itemColumns + ` FROM discounts WHERE id = $1`

	item, err := scanItem(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("item_id", id.String()).Msg("failed to query discount")
		return nil, fmt.Errorf("failed to query discount: %w", err)
	}

	return item, nil
}

// ClaimPending atomically transitions up to limit PENDING items to
// IN_PROGRESS. SKIP LOCKED keeps two overlapping claimers from receiving
// the same rows.
func (r *discountRepository) ClaimPending(ctx context.Context, setID uuid.UUID, limit int) ([]model.Discount, error) {
	query := `
		UPDATE discounts
		SET status = $1, claimed_at = NOW(), updated_at = NOW()
		WHERE id IN (
			SELECT id FROM discounts
			WHERE set_id = $2 AND status = $3
			ORDER BY created_at, id
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + itemColumns

	rows, err := r.pool.Query(ctx, query, model.StatusInProgress, setID, model.StatusPending, limit)
	if err != nil {
		r.logger.Error().Err(err).Str("set_id", setID.String()).Msg("failed to claim pending discounts")
		return nil, fmt.Errorf("failed to claim pending discounts: %w", err)
	}

	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Str("set_id", setID.String()).
		Int("claimed", len(items)).
		Msg("pending discounts claimed")

	return items, nil
}

// ReleaseClaims returns the given IN_PROGRESS items to PENDING.
func (r *discountRepository) ReleaseClaims(ctx context.Context, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}

	query := `
		UPDATE discounts
		SET status = $1, claimed_at = NULL, updated_at = NOW()
		WHERE id = ANY($2) AND status = $3
	`

	_, err := r.pool.Exec(ctx, query, model.StatusPending, itemIDs, model.StatusInProgress)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(itemIDs)).Msg("failed to release claims")
		return fmt.Errorf("failed to release claims: %w", err)
	}

	return nil
}

// ReleaseStaleClaims returns items claimed before the cutoff to PENDING.
func (r *discountRepository) ReleaseStaleClaims(ctx context.Context, setID uuid.UUID, cutoff time.Time) (int64, error) {
	query := `
		UPDATE discounts
		SET status = $1, claimed_at = NULL, updated_at = NOW()
		WHERE set_id = $2 AND status = $3 AND claimed_at < $4
	`

	tag, err := r.pool.Exec(ctx, query, model.StatusPending, setID, model.StatusInProgress, cutoff)
	if err != nil {
		r.logger.Error().Err(err).Str("set_id", setID.String()).Msg("failed to release stale claims")
		return 0, fmt.Errorf("failed to release stale claims: %w", err)
	}

	if tag.RowsAffected() > 0 {
		r.logger.Warn().
			Str("set_id", setID.String()).
			Int64("released", tag.RowsAffected()).
			Msg("stale claims released back to pending")
	}

	return tag.RowsAffected(), nil
}

// MarkCreated resolves an IN_PROGRESS item to CREATED.
func (r *discountRepository) MarkCreated(ctx context.Context, itemID uuid.UUID, remoteID string) error {
	query := `
		UPDATE discounts
		SET status = $1, remote_id = $2, error_message = NULL, claimed_at = NULL, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`

	tag, err := r.pool.Exec(ctx, query, model.StatusCreated, remoteID, itemID, model.StatusInProgress)
	if err != nil {
		r.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("failed to mark discount created")
		return fmt.Errorf("failed to mark discount created: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("discount %s is not in progress", itemID)
	}

	return nil
}

// MarkFailed resolves an IN_PROGRESS item to FAILED.
func (r *discountRepository) MarkFailed(ctx context.Context, itemID uuid.UUID, message string) error {
	query := `
		UPDATE discounts
		SET status = $1, error_message = $2, remote_id = NULL, claimed_at = NULL, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`

	tag, err := r.pool.Exec(ctx, query, model.StatusFailed, message, itemID, model.StatusInProgress)
	if err != nil {
		r.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("failed to mark discount failed")
		return fmt.Errorf("failed to mark discount failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("discount %s is not in progress", itemID)
	}

	return nil
}

// CountByStatus returns per-status item counts for a set.
func (r *discountRepository) CountByStatus(ctx context.Context, setID uuid.UUID) (model.StatusCounts, error) {
	query := `
		SELECT status, COUNT(*)
		FROM discounts
		WHERE set_id = $1
		GROUP BY status
	`

	rows, err := r.pool.Query(ctx, query, setID)
	if err != nil {
		return nil, fmt.Errorf("failed to count discounts: %w", err)
	}
	defer rows.Close()

	counts := model.StatusCounts{}
	for rows.Next() {
		var status model.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}

	return counts, nil
}

// ResetFailedToPending transitions all FAILED items back to PENDING.
func (r *discountRepository) ResetFailedToPending(ctx context.Context, setID uuid.UUID) (int64, error) {
	query := `
		UPDATE discounts
		SET status = $1, error_message = NULL, updated_at = NOW()
		WHERE set_id = $2 AND status = $3
	`

	tag, err := r.pool.Exec(ctx, query, model.StatusPending, setID, model.StatusFailed)
	if err != nil {
		r.logger.Error().Err(err).Str("set_id", setID.String()).Msg("failed to reset failed discounts")
		return 0, fmt.Errorf("failed to reset failed discounts: %w", err)
	}

	r.logger.Debug().
		Str("set_id", setID.String()).
		Int64("reset", tag.RowsAffected()).
		Msg("failed discounts reset to pending")

	return tag.RowsAffected(), nil
}

// CreatedItems returns the set's CREATED items.
func (r *discountRepository) CreatedItems(ctx context.Context, setID uuid.UUID) ([]model.Discount, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM discounts
		WHERE set_id = $1 AND status = $2
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, setID, model.StatusCreated)
	if err != nil {
		return nil, fmt.Errorf("failed to query created discounts: %w", err)
	}

	return collectItems(rows)
}

// DeleteSet removes a set; the schema cascades the delete to its items.
func (r *discountRepository) DeleteSet(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM discount_sets WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("set_id", id.String()).Msg("failed to delete discount set")
		return 0, fmt.Errorf("failed to delete discount set: %w", err)
	}

	r.logger.Debug().
		Str("set_id", id.String()).
		Int64("deleted", tag.RowsAffected()).
		Msg("discount set deleted")

	return tag.RowsAffected(), nil
}

// DeleteItem removes a single item.
func (r *discountRepository) DeleteItem(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM discounts WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("item_id", id.String()).Msg("failed to delete discount")
		return 0, fmt.Errorf("failed to delete discount: %w", err)
	}

	return tag.RowsAffected(), nil
}
