package service

import (
	"context"
	"time"

	"promo-batch/internal/gateway"
	"promo-batch/internal/model"

	"github.com/google/uuid"
)

// SubmitRequest is a request to create a discount set from a code list.
type SubmitRequest struct {
	Shop        string   `json:"shop"`
	SetName     string   `json:"setName"`
	TemplateRef string   `json:"templateRef"`
	Codes       []string `json:"codes"`
}

// SubmitResponse reports a persisted submission.
type SubmitResponse struct {
	SetID      uuid.UUID `json:"setId"`
	TotalCodes int       `json:"totalCodes"`
}

// BatchResult reports the outcome of one process-batch call. Clients poll
// until Complete is true, waiting RetryAfter between calls.
type BatchResult struct {
	Processed  int                `json:"processed"`
	Remaining  int                `json:"remaining"`
	Complete   bool               `json:"complete"`
	Counts     model.StatusCounts `json:"counts"`
	Message    string             `json:"message"`
	RetryAfter time.Duration      `json:"-"`
}

// RetryResponse reports the pending count after a retry action.
type RetryResponse struct {
	PendingCount int `json:"pendingCount"`
}

// BatchService defines the client-facing operations of the batch pipeline.
type BatchService interface {
	// Submit validates the template, persists a set and its PENDING items,
	// and returns the set id. Nothing is persisted on validation failure.
	Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error)

	// ProcessBatch claims and processes one bounded batch of pending items
	// for the set, recording per-item outcomes. Callers invoke it
	// repeatedly until the result reports Complete.
	ProcessBatch(ctx context.Context, setID uuid.UUID) (*BatchResult, error)

	// RetryFailed transitions the set's FAILED items back to PENDING and
	// returns the resulting pending count.
	RetryFailed(ctx context.Context, setID uuid.UUID) (*RetryResponse, error)

	// DeleteSet best-effort deletes the set's created codes remotely, then
	// removes the set and its items locally.
	DeleteSet(ctx context.Context, setID uuid.UUID) error

	// DeleteItem best-effort deletes a single created code remotely, then
	// removes the item locally.
	DeleteItem(ctx context.Context, itemID uuid.UUID) error

	// ListSets returns the shop's sets with their items and status counts.
	ListSets(ctx context.Context, shop string) ([]model.SetWithItems, error)

	// ListTemplates returns up to limit remote templates for discovery.
	ListTemplates(ctx context.Context, limit int) ([]gateway.Template, error)
}
