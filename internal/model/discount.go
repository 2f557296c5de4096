package model

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks a discount item through its processing lifecycle.
type Status string

const (
	// StatusPending marks an item waiting to be processed.
	StatusPending Status = "PENDING"
	// StatusInProgress marks an item claimed by a running batch; the
	// remote create call is in flight.
	StatusInProgress Status = "IN_PROGRESS"
	// StatusCreated marks an item successfully created on the remote service.
	StatusCreated Status = "CREATED"
	// StatusFailed marks an item whose remote creation was rejected or errored.
	StatusFailed Status = "FAILED"
)

// DiscountSet is a named batch of codes submitted together against one
// master template. Sets are immutable after creation; deleting a set
// cascades to its items.
type DiscountSet struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Shop        string    `json:"shop" db:"shop"`
	TemplateRef string    `json:"templateRef" db:"template_ref"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Discount is one code's creation attempt and its outcome.
//
// Exactly one of RemoteID and ErrorMessage is set once the item has been
// processed: CREATED items carry the remote id, FAILED items carry the
// error message. PENDING and IN_PROGRESS items carry neither.
type Discount struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Shop         string     `json:"shop" db:"shop"`
	Code         string     `json:"code" db:"code"`
	TemplateRef  string     `json:"templateRef" db:"template_ref"`
	SetID        *uuid.UUID `json:"setId,omitempty" db:"set_id"`
	Status       Status     `json:"status" db:"status"`
	RemoteID     *string    `json:"remoteId,omitempty" db:"remote_id"`
	ErrorMessage *string    `json:"errorMessage,omitempty" db:"error_message"`
	ClaimedAt    *time.Time `json:"-" db:"claimed_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// StatusCounts holds per-status item counts for a set.
type StatusCounts map[Status]int

// Pending returns the number of items still awaiting processing, counting
// claimed-but-unresolved items as pending since they have no outcome yet.
func (c StatusCounts) Pending() int {
	return c[StatusPending] + c[StatusInProgress]
}

// Total returns the total item count across all statuses.
func (c StatusCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// SetWithItems pairs a set with its items for listing responses.
type SetWithItems struct {
	DiscountSet
	Items  []Discount   `json:"items"`
	Counts StatusCounts `json:"counts"`
}
