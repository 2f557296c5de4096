package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON      = "INVALID_JSON"
	ErrCodeMissingField     = "MISSING_FIELD"
	ErrCodeSetNotFound      = "SET_NOT_FOUND"
	ErrCodeItemNotFound     = "ITEM_NOT_FOUND"
	ErrCodeTemplateNotFound = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateFetch    = "TEMPLATE_FETCH_FAILED"
	ErrCodeEmptyCodeList    = "EMPTY_CODE_LIST"
	ErrCodeDuplicateCode    = "DUPLICATE_CODE"
	ErrCodeUnauthorised     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// DomainError carries a stable error code alongside a human-readable message.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrSetNotFound      = NewDomainError(ErrCodeSetNotFound, "Discount set not found")
	ErrItemNotFound     = NewDomainError(ErrCodeItemNotFound, "Discount not found")
	ErrTemplateNotFound = NewDomainError(ErrCodeTemplateNotFound, "Master template does not exist")
	ErrEmptyCodeList    = NewDomainError(ErrCodeEmptyCodeList, "At least one discount code is required")
)
