package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"promo-batch/internal/model"

	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	logger.Error().Str("code", code).Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeServiceError maps a service-layer error to an HTTP response.
func writeServiceError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		writeError(w, statusForCode(domainErr.Code), domainErr.Code, domainErr.Message, logger)
		return
	}

	writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
}

// statusForCode maps stable domain error codes to HTTP status codes.
func statusForCode(code string) int {
	switch code {
	case model.ErrCodeSetNotFound, model.ErrCodeItemNotFound:
		return http.StatusNotFound
	case model.ErrCodeTemplateNotFound, model.ErrCodeEmptyCodeList,
		model.ErrCodeMissingField, model.ErrCodeInvalidJSON:
		return http.StatusBadRequest
	case model.ErrCodeDuplicateCode:
		return http.StatusUnprocessableEntity
	case model.ErrCodeTemplateFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
