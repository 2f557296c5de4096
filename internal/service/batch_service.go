package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"promo-batch/internal/config"
	"promo-batch/internal/gateway"
	"promo-batch/internal/model"
	"promo-batch/internal/replicator"
	"promo-batch/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// batchService implements BatchService.
type batchService struct {
	repo    repository.DiscountRepository
	gateway gateway.DiscountGateway
	cfg     config.BatchConfig
	logger  zerolog.Logger
	now     func() time.Time
}

// NewBatchService creates a new batch service.
func NewBatchService(
	repo repository.DiscountRepository,
	gw gateway.DiscountGateway,
	cfg config.BatchConfig,
	logger zerolog.Logger,
) BatchService {
	return &batchService{
		repo:    repo,
		gateway: gw,
		cfg:     cfg,
		logger:  logger.With().Str("service", "batch").Logger(),
		now:     time.Now,
	}
}

// Submit validates the template, then persists the set and its items.
func (s *batchService) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("submit request is nil")
	}
	if req.Shop == "" {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "Shop is required")
	}
	if req.TemplateRef == "" {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "Template reference is required")
	}

	codes := normalizeCodes(req.Codes)
	if len(codes) == 0 {
		return nil, model.ErrEmptyCodeList
	}

	// Template existence is validated up front: a bad reference rejects
	// the whole submission before anything is persisted.
	if _, err := s.gateway.FetchTemplate(ctx, req.TemplateRef); err != nil {
		if errors.Is(err, gateway.ErrTemplateNotFound) {
			s.logger.Warn().
				Str("template_ref", req.TemplateRef).
				Str("shop", req.Shop).
				Msg("submission rejected: template not found")
			return nil, model.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to validate template: %w", err)
	}

	now := s.now().UTC()
	set := &model.DiscountSet{
		ID:          uuid.New(),
		Name:        req.SetName,
		Shop:        req.Shop,
		TemplateRef: req.TemplateRef,
		CreatedAt:   now,
	}

	if err := s.repo.CreateSet(ctx, set); err != nil {
		return nil, fmt.Errorf("failed to persist discount set: %w", err)
	}

	items := make([]model.Discount, len(codes))
	for i, code := range codes {
		setID := set.ID
		items[i] = model.Discount{
			ID:          uuid.New(),
			Shop:        req.Shop,
			Code:        code,
			TemplateRef: req.TemplateRef,
			SetID:       &setID,
			Status:      model.StatusPending,
			CreatedAt:   now.Add(time.Duration(i) * time.Microsecond),
			UpdatedAt:   now.Add(time.Duration(i) * time.Microsecond),
		}
	}

	if err := s.repo.CreateItems(ctx, items); err != nil {
		// Roll the half-created submission back; the cascade removes any
		// items that made it in before the failure.
		if _, delErr := s.repo.DeleteSet(ctx, set.ID); delErr != nil {
			s.logger.Error().
				Err(delErr).
				Str("set_id", set.ID.String()).
				Msg("failed to clean up set after item insert failure")
		}
		var domainErr *model.DomainError
		if errors.As(err, &domainErr) {
			return nil, domainErr
		}
		return nil, fmt.Errorf("failed to persist discounts: %w", err)
	}

	s.logger.Info().
		Str("set_id", set.ID.String()).
		Str("shop", req.Shop).
		Int("total_codes", len(items)).
		Msg("discount set submitted")

	return &SubmitResponse{SetID: set.ID, TotalCodes: len(items)}, nil
}

// ProcessBatch claims one bounded batch and processes it sequentially
// against the remote service. The remote service is rate-limited, so items
// are created one at a time; each outcome is recorded independently.
func (s *batchService) ProcessBatch(ctx context.Context, setID uuid.UUID) (*BatchResult, error) {
	set, err := s.repo.GetSet(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("failed to load discount set: %w", err)
	}
	if set == nil {
		return nil, model.ErrSetNotFound
	}

	// Claims abandoned by a dead poller come back to PENDING once their
	// TTL lapses, keeping the set resumable.
	cutoff := s.now().Add(-s.cfg.ClaimTTL)
	if _, err := s.repo.ReleaseStaleClaims(ctx, setID, cutoff); err != nil {
		return nil, err
	}

	claimed, err := s.repo.ClaimPending(ctx, setID, s.cfg.Size)
	if err != nil {
		return nil, err
	}

	if len(claimed) == 0 {
		return s.finishBatch(ctx, setID, 0)
	}

	// One template fetch serves the whole batch. A fetch failure is a
	// batch-level error: no item may be marked FAILED for it, so the
	// claims go back to PENDING.
	tpl, err := s.gateway.FetchTemplate(ctx, set.TemplateRef)
	if err != nil {
		ids := make([]uuid.UUID, len(claimed))
		for i, item := range claimed {
			ids[i] = item.ID
		}
		if relErr := s.repo.ReleaseClaims(ctx, ids); relErr != nil {
			s.logger.Error().
				Err(relErr).
				Str("set_id", setID.String()).
				Msg("failed to release claims after template fetch failure")
		}
		if errors.Is(err, gateway.ErrTemplateNotFound) {
			return nil, model.ErrTemplateNotFound
		}
		return nil, model.NewDomainError(model.ErrCodeTemplateFetch,
			fmt.Sprintf("failed to fetch template: %v", err))
	}

	for _, item := range claimed {
		s.processItem(ctx, tpl, item)
	}

	return s.finishBatch(ctx, setID, len(claimed))
}

// processItem creates one code remotely and records the outcome. Failures
// are absorbed into item state and never abort the batch.
func (s *batchService) processItem(ctx context.Context, tpl *gateway.Template, item model.Discount) {
	req := replicator.Build(tpl, item.Code)

	remoteID, err := s.gateway.CreateCode(ctx, req)
	if err != nil {
		var rejected *gateway.RejectedError
		if errors.As(err, &rejected) {
			s.logger.Warn().
				Str("code", item.Code).
				Str("reason", rejected.Error()).
				Msg("discount code rejected")
		} else {
			s.logger.Error().
				Err(err).
				Str("code", item.Code).
				Msg("discount code creation failed")
		}
		if markErr := s.repo.MarkFailed(ctx, item.ID, err.Error()); markErr != nil {
			s.logger.Error().
				Err(markErr).
				Str("item_id", item.ID.String()).
				Msg("failed to record failure outcome")
		}
		return
	}

	if markErr := s.repo.MarkCreated(ctx, item.ID, remoteID); markErr != nil {
		s.logger.Error().
			Err(markErr).
			Str("item_id", item.ID.String()).
			Str("remote_id", remoteID).
			Msg("failed to record creation outcome")
	}
}

// finishBatch computes the result reported to the polling client.
func (s *batchService) finishBatch(ctx context.Context, setID uuid.UUID, processed int) (*BatchResult, error) {
	counts, err := s.repo.CountByStatus(ctx, setID)
	if err != nil {
		return nil, err
	}

	remaining := counts.Pending()
	result := &BatchResult{
		Processed: processed,
		Remaining: remaining,
		Complete:  remaining == 0,
		Counts:    counts,
	}

	if result.Complete {
		result.Message = fmt.Sprintf("all %d discounts processed: %d created, %d failed",
			counts.Total(), counts[model.StatusCreated], counts[model.StatusFailed])
	} else {
		result.Message = fmt.Sprintf("processed %d discounts, %d remaining", processed, remaining)
		result.RetryAfter = s.cfg.PollDelay
	}

	s.logger.Info().
		Str("set_id", setID.String()).
		Int("processed", processed).
		Int("remaining", remaining).
		Bool("complete", result.Complete).
		Msg("batch processed")

	return result, nil
}

// RetryFailed transitions the set's FAILED items back to PENDING.
func (s *batchService) RetryFailed(ctx context.Context, setID uuid.UUID) (*RetryResponse, error) {
	set, err := s.repo.GetSet(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("failed to load discount set: %w", err)
	}
	if set == nil {
		return nil, model.ErrSetNotFound
	}

	reset, err := s.repo.ResetFailedToPending(ctx, setID)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.CountByStatus(ctx, setID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("set_id", setID.String()).
		Int64("reset", reset).
		Msg("failed discounts queued for retry")

	return &RetryResponse{PendingCount: counts.Pending()}, nil
}

// DeleteSet removes the set and its items. Remote deletion of created
// codes is best effort: failures are logged and never block the local
// delete, since the local store is authoritative.
func (s *batchService) DeleteSet(ctx context.Context, setID uuid.UUID) error {
	set, err := s.repo.GetSet(ctx, setID)
	if err != nil {
		return fmt.Errorf("failed to load discount set: %w", err)
	}
	if set == nil {
		return model.ErrSetNotFound
	}

	created, err := s.repo.CreatedItems(ctx, setID)
	if err != nil {
		return err
	}

	for _, item := range created {
		if item.RemoteID == nil {
			continue
		}
		if err := s.gateway.DeleteCode(ctx, *item.RemoteID); err != nil {
			s.logger.Warn().
				Err(err).
				Str("code", item.Code).
				Str("remote_id", *item.RemoteID).
				Msg("remote discount deletion failed")
		}
	}

	if _, err := s.repo.DeleteSet(ctx, setID); err != nil {
		return err
	}

	s.logger.Info().
		Str("set_id", setID.String()).
		Int("remote_deletes", len(created)).
		Msg("discount set deleted")

	return nil
}

// DeleteItem removes a single item, deleting it remotely first if it was
// ever created. PENDING and FAILED items need no remote call.
func (s *batchService) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to load discount: %w", err)
	}
	if item == nil {
		return model.ErrItemNotFound
	}

	if item.Status == model.StatusCreated && item.RemoteID != nil {
		if err := s.gateway.DeleteCode(ctx, *item.RemoteID); err != nil {
			s.logger.Warn().
				Err(err).
				Str("code", item.Code).
				Str("remote_id", *item.RemoteID).
				Msg("remote discount deletion failed")
		}
	}

	if _, err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return err
	}

	return nil
}

// ListSets returns the shop's sets with their items and status counts.
func (s *batchService) ListSets(ctx context.Context, shop string) ([]model.SetWithItems, error) {
	if shop == "" {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "Shop is required")
	}
	return s.repo.ListSets(ctx, shop)
}

// ListTemplates returns up to limit remote templates for discovery.
func (s *batchService) ListTemplates(ctx context.Context, limit int) ([]gateway.Template, error) {
	if limit < 1 {
		limit = 10
	}
	return s.gateway.ListTemplates(ctx, limit)
}

// normalizeCodes trims whitespace, drops empties, and removes duplicates
// while preserving submission order.
func normalizeCodes(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	result := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		result = append(result, code)
	}
	return result
}
