package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"promo-batch/internal/model"
	"promo-batch/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BatchHandler handles discount-set HTTP requests.
type BatchHandler struct {
	service service.BatchService
	logger  zerolog.Logger
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(service service.BatchService, logger zerolog.Logger) *BatchHandler {
	return &BatchHandler{
		service: service,
		logger:  logger.With().Str("handler", "batch").Logger(),
	}
}

// processResponse is the polling protocol payload. RetryAfterMs tells the
// client how long to wait before the next processBatch call.
type processResponse struct {
	Processed    int                `json:"processed"`
	Remaining    int                `json:"remaining"`
	Complete     bool               `json:"complete"`
	Counts       model.StatusCounts `json:"counts"`
	Message      string             `json:"message"`
	RetryAfterMs int64              `json:"retryAfterMs,omitempty"`
}

// Submit handles POST /api/sets requests.
func (h *BatchHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	resp, err := h.service.Submit(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// ProcessBatch handles POST /api/sets/{setID}/process requests.
func (h *BatchHandler) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	setID, ok := h.parseID(w, chi.URLParam(r, "setID"), "set ID")
	if !ok {
		return
	}

	result, err := h.service.ProcessBatch(r.Context(), setID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		Processed:    result.Processed,
		Remaining:    result.Remaining,
		Complete:     result.Complete,
		Counts:       result.Counts,
		Message:      result.Message,
		RetryAfterMs: result.RetryAfter.Milliseconds(),
	})
}

// RetryFailed handles POST /api/sets/{setID}/retry requests.
func (h *BatchHandler) RetryFailed(w http.ResponseWriter, r *http.Request) {
	setID, ok := h.parseID(w, chi.URLParam(r, "setID"), "set ID")
	if !ok {
		return
	}

	resp, err := h.service.RetryFailed(r.Context(), setID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// DeleteSet handles DELETE /api/sets/{setID} requests.
func (h *BatchHandler) DeleteSet(w http.ResponseWriter, r *http.Request) {
	setID, ok := h.parseID(w, chi.URLParam(r, "setID"), "set ID")
	if !ok {
		return
	}

	if err := h.service.DeleteSet(r.Context(), setID); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteItem handles DELETE /api/items/{itemID} requests.
func (h *BatchHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.parseID(w, chi.URLParam(r, "itemID"), "item ID")
	if !ok {
		return
	}

	if err := h.service.DeleteItem(r.Context(), itemID); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSets handles GET /api/sets?shop=... requests.
func (h *BatchHandler) ListSets(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")

	sets, err := h.service.ListSets(r.Context(), shop)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	if sets == nil {
		sets = []model.SetWithItems{}
	}
	writeJSON(w, http.StatusOK, sets)
}

// ListTemplates handles GET /api/templates?limit=... requests.
func (h *BatchHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "limit must be a positive integer", h.logger)
			return
		}
		limit = parsed
	}

	templates, err := h.service.ListTemplates(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, model.ErrCodeTemplateFetch, "failed to list templates", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, templates)
}

// parseID parses a UUID path parameter, writing a 400 response when invalid.
func (h *BatchHandler) parseID(w http.ResponseWriter, raw, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "invalid "+label+" format", h.logger)
		return uuid.Nil, false
	}
	return id, true
}
