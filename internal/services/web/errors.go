package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/LeonardoBeccarini/harvestify/internal/services/community"
	"github.com/LeonardoBeccarini/harvestify/internal/services/fertilizer"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

const (
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeResourceNotFound  ErrorCode = "resource_not_found"
	CodeInvalidFormat     ErrorCode = "invalid_format"
	CodeTooLarge          ErrorCode = "payload_too_large"
	CodeRateLimited       ErrorCode = "rate_limited"
	CodeInternalServerErr ErrorCode = "internal_server_error"
)

// GenericError is the only text a client sees for unexpected failures.
const GenericError = "An unexpected error occurred"

type APIError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    any       `json:"details,omitempty"`
	StatusCode int       `json:"-"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details any, statusCode int) APIError {
	return APIError{Code: code, Message: message, Details: details, StatusCode: statusCode}
}

// classify maps an error to what the client may see. Anything not
// recognised becomes a generic 500.
func classify(err error) APIError {
	var ve *ValidationError
	var nf *fertilizer.CropNotFound
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &ve):
		return NewAPIError(CodeValidationFailed, ve.Error(), map[string]string{"field": ve.Field}, http.StatusBadRequest)
	case errors.As(err, &nf):
		return NewAPIError(CodeResourceNotFound, "Error: "+nf.Error(), nil, http.StatusBadRequest)
	case errors.Is(err, fertilizer.ErrAdvisoryNotFound):
		return NewAPIError(CodeResourceNotFound, "Error: no advice available for this nutrient balance.", nil, http.StatusBadRequest)
	case errors.Is(err, community.ErrInvalidJSON):
		return NewAPIError(CodeInvalidFormat, "Invalid JSON body.", nil, http.StatusBadRequest)
	case errors.As(err, &tooBig):
		return NewAPIError(CodeTooLarge, fmt.Sprintf("Request body larger than %d bytes.", tooBig.Limit), nil, http.StatusRequestEntityTooLarge)
	default:
		return NewAPIError(CodeInternalServerErr, GenericError, nil, http.StatusInternalServerError)
	}
}

// respondText writes the classified error as plain text and logs the detail
// of anything unexpected.
func respondText(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := classify(err)
	if apiErr.StatusCode >= 500 {
		log.Printf("web: %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(apiErr.StatusCode)
	_, _ = w.Write([]byte(apiErr.Message))
}

// RespondWithError writes the APIError as JSON.
func RespondWithError(w http.ResponseWriter, apiErr APIError) {
	RespondWithJSON(w, apiErr.StatusCode, apiErr)
}

func RespondWithJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("web: failed to encode JSON response: %v", err)
	}
}
