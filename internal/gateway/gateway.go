package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrTemplateNotFound is returned by FetchTemplate when the referenced
// template does not exist on the remote service.
var ErrTemplateNotFound = errors.New("template not found")

// FieldError is a single field-level rejection from the remote service.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RejectedError is returned by CreateCode when the remote service rejects
// the request with field-level errors. It is an expected business outcome,
// distinct from transport failures.
type RejectedError struct {
	FieldErrors []FieldError
}

func (e *RejectedError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, fe := range e.FieldErrors {
		if fe.Field != "" {
			msgs[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
		} else {
			msgs[i] = fe.Message
		}
	}
	return strings.Join(msgs, "; ")
}

// ValueKind discriminates the discount value variant.
type ValueKind string

const (
	ValuePercentage  ValueKind = "percentage"
	ValueFixedAmount ValueKind = "fixed_amount"
)

// Value is the discount value carried by a template. Exactly one variant
// applies, selected by Kind.
type Value struct {
	Kind         ValueKind `json:"kind"`
	Percentage   float64   `json:"percentage,omitempty"`
	Amount       float64   `json:"amount,omitempty"`
	CurrencyCode string    `json:"currencyCode,omitempty"`
}

// ItemScopeKind discriminates which items a discount applies to.
type ItemScopeKind string

const (
	ItemsAll         ItemScopeKind = "all"
	ItemsProducts    ItemScopeKind = "products"
	ItemsCollections ItemScopeKind = "collections"
)

// ItemScope is the target-item scope of a discount. IDs is populated only
// for the products and collections variants.
type ItemScope struct {
	Kind ItemScopeKind `json:"kind"`
	IDs  []string      `json:"ids,omitempty"`
}

// AudienceKind discriminates which customers may use a discount.
type AudienceKind string

const (
	AudienceAll       AudienceKind = "all"
	AudienceCustomers AudienceKind = "customers"
)

// Audience is the customer scope of a discount.
type Audience struct {
	Kind        AudienceKind `json:"kind"`
	CustomerIDs []string     `json:"customerIds,omitempty"`
}

// MinimumRequirementKind discriminates the minimum-requirement clause.
type MinimumRequirementKind string

const (
	MinimumSubtotal MinimumRequirementKind = "subtotal"
	MinimumQuantity MinimumRequirementKind = "quantity"
)

// MinimumRequirement is an optional purchase threshold clause.
type MinimumRequirement struct {
	Kind     MinimumRequirementKind `json:"kind"`
	Subtotal float64                `json:"subtotal,omitempty"`
	Quantity int                    `json:"quantity,omitempty"`
}

// Template is a master discount definition on the remote service, used as
// the pattern for generating many single-use codes.
type Template struct {
	Ref                string              `json:"ref"`
	Title              string              `json:"title"`
	Value              Value               `json:"value"`
	ItemScope          ItemScope           `json:"itemScope"`
	Audience           Audience            `json:"audience"`
	MinimumRequirement *MinimumRequirement `json:"minimumRequirement,omitempty"`
	StartsAt           time.Time           `json:"startsAt"`
	EndsAt             *time.Time          `json:"endsAt,omitempty"`
	UsageLimit         *int                `json:"usageLimit,omitempty"`
	OncePerCustomer    bool                `json:"oncePerCustomer"`
}

// CreateRequest is one code's creation request derived from a template.
type CreateRequest struct {
	Code               string              `json:"code"`
	Title              string              `json:"title"`
	Value              Value               `json:"value"`
	ItemScope          ItemScope           `json:"itemScope"`
	Audience           Audience            `json:"audience"`
	MinimumRequirement *MinimumRequirement `json:"minimumRequirement,omitempty"`
	StartsAt           time.Time           `json:"startsAt"`
	EndsAt             *time.Time          `json:"endsAt,omitempty"`
	UsageLimit         int                 `json:"usageLimit"`
	OncePerCustomer    bool                `json:"oncePerCustomer"`
}

// DiscountGateway is the boundary to the remote discount-creation service.
type DiscountGateway interface {
	// FetchTemplate retrieves a master template by its opaque remote
	// reference. Returns ErrTemplateNotFound if it does not exist.
	FetchTemplate(ctx context.Context, ref string) (*Template, error)

	// CreateCode creates one discount code and returns its remote id.
	// Field-level rejections are returned as *RejectedError; any other
	// error is a transport failure.
	CreateCode(ctx context.Context, req CreateRequest) (string, error)

	// DeleteCode removes a previously created code by its remote id.
	DeleteCode(ctx context.Context, remoteID string) error

	// ListTemplates returns up to limit templates for discovery.
	ListTemplates(ctx context.Context, limit int) ([]Template, error)
}
