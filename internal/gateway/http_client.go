package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"promo-batch/internal/config"

	"github.com/rs/zerolog"
)

// wireTemplate is the remote service's template shape. The value, item
// scope, and audience fields are polymorphic one-ofs on the wire: at most
// one of each group is present.
type wireTemplate struct {
	Ref             string     `json:"ref"`
	Title           string     `json:"title"`
	Percentage      *float64   `json:"percentage,omitempty"`
	Amount          *float64   `json:"amount,omitempty"`
	CurrencyCode    string     `json:"currencyCode,omitempty"`
	AllItems        bool       `json:"allItems,omitempty"`
	ProductIDs      []string   `json:"productIds,omitempty"`
	CollectionIDs   []string   `json:"collectionIds,omitempty"`
	AllCustomers    bool       `json:"allCustomers,omitempty"`
	CustomerIDs     []string   `json:"customerIds,omitempty"`
	MinSubtotal     *float64   `json:"minSubtotal,omitempty"`
	MinQuantity     *int       `json:"minQuantity,omitempty"`
	StartsAt        time.Time  `json:"startsAt"`
	EndsAt          *time.Time `json:"endsAt,omitempty"`
	UsageLimit      *int       `json:"usageLimit,omitempty"`
	OncePerCustomer bool       `json:"oncePerCustomer"`
}

// toTemplate resolves the wire one-of groups into tagged variants. Missing
// groups fall back to the widest scope rather than erroring.
func (w *wireTemplate) toTemplate() *Template {
	tpl := &Template{
		Ref:             w.Ref,
		Title:           w.Title,
		StartsAt:        w.StartsAt,
		EndsAt:          w.EndsAt,
		UsageLimit:      w.UsageLimit,
		OncePerCustomer: w.OncePerCustomer,
	}

	switch {
	case w.Percentage != nil:
		tpl.Value = Value{Kind: ValuePercentage, Percentage: *w.Percentage}
	case w.Amount != nil:
		tpl.Value = Value{Kind: ValueFixedAmount, Amount: *w.Amount, CurrencyCode: w.CurrencyCode}
	}

	switch {
	case len(w.ProductIDs) > 0:
		tpl.ItemScope = ItemScope{Kind: ItemsProducts, IDs: w.ProductIDs}
	case len(w.CollectionIDs) > 0:
		tpl.ItemScope = ItemScope{Kind: ItemsCollections, IDs: w.CollectionIDs}
	default:
		tpl.ItemScope = ItemScope{Kind: ItemsAll}
	}

	if len(w.CustomerIDs) > 0 {
		tpl.Audience = Audience{Kind: AudienceCustomers, CustomerIDs: w.CustomerIDs}
	} else {
		tpl.Audience = Audience{Kind: AudienceAll}
	}

	switch {
	case w.MinSubtotal != nil:
		tpl.MinimumRequirement = &MinimumRequirement{Kind: MinimumSubtotal, Subtotal: *w.MinSubtotal}
	case w.MinQuantity != nil:
		tpl.MinimumRequirement = &MinimumRequirement{Kind: MinimumQuantity, Quantity: *w.MinQuantity}
	}

	return tpl
}

// httpGateway implements DiscountGateway against the remote discount
// service's JSON API.
type httpGateway struct {
	baseURL string
	token   string
	client  *http.Client
	logger  zerolog.Logger
}

// NewHTTPGateway creates a DiscountGateway backed by the remote service's
// HTTP API.
func NewHTTPGateway(cfg config.GatewayConfig, logger zerolog.Logger) DiscountGateway {
	return &httpGateway{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With().Str("gateway", "discount").Logger(),
	}
}

// FetchTemplate retrieves a master template by its remote reference.
func (g *httpGateway) FetchTemplate(ctx context.Context, ref string) (*Template, error) {
	endpoint := fmt.Sprintf("%s/templates/%s", g.baseURL, url.PathEscape(ref))

	resp, err := g.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var wire wireTemplate
		if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
			return nil, fmt.Errorf("failed to decode template response: %w", err)
		}
		return wire.toTemplate(), nil
	case http.StatusNotFound:
		return nil, ErrTemplateNotFound
	default:
		return nil, unexpectedStatus(resp)
	}
}

// createResponse is the remote service's success payload for code creation.
type createResponse struct {
	ID string `json:"id"`
}

// rejectionResponse is the remote service's field-level rejection payload.
type rejectionResponse struct {
	Errors []FieldError `json:"errors"`
}

// CreateCode creates one discount code on the remote service.
func (g *httpGateway) CreateCode(ctx context.Context, req CreateRequest) (string, error) {
	endpoint := g.baseURL + "/discount_codes"

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode create request: %w", err)
	}

	resp, err := g.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var created createResponse
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			return "", fmt.Errorf("failed to decode create response: %w", err)
		}
		g.logger.Debug().
			Str("code", req.Code).
			Str("remote_id", created.ID).
			Msg("discount code created")
		return created.ID, nil
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		var rejection rejectionResponse
		if err := json.NewDecoder(resp.Body).Decode(&rejection); err != nil || len(rejection.Errors) == 0 {
			return "", unexpectedStatus(resp)
		}
		return "", &RejectedError{FieldErrors: rejection.Errors}
	default:
		return "", unexpectedStatus(resp)
	}
}

// DeleteCode removes a discount code by its remote id.
func (g *httpGateway) DeleteCode(ctx context.Context, remoteID string) error {
	endpoint := fmt.Sprintf("%s/discount_codes/%s", g.baseURL, url.PathEscape(remoteID))

	resp, err := g.do(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		// A code already gone remotely counts as deleted.
		return nil
	default:
		return unexpectedStatus(resp)
	}
}

// ListTemplates returns up to limit templates for discovery.
func (g *httpGateway) ListTemplates(ctx context.Context, limit int) ([]Template, error) {
	endpoint := g.baseURL + "/templates?limit=" + strconv.Itoa(limit)

	resp, err := g.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus(resp)
	}

	var wires []wireTemplate
	if err := json.NewDecoder(resp.Body).Decode(&wires); err != nil {
		return nil, fmt.Errorf("failed to decode template list: %w", err)
	}

	templates := make([]Template, len(wires))
	for i := range wires {
		templates[i] = *wires[i].toTemplate()
	}
	return templates, nil
}

// do issues an authenticated JSON request against the remote service.
func (g *httpGateway) do(ctx context.Context, method, endpoint string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error().
			Err(err).
			Str("method", method).
			Str("endpoint", endpoint).
			Msg("gateway request failed")
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}

	return resp, nil
}

// unexpectedStatus drains the body into a transport error.
func unexpectedStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
}
