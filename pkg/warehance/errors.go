package warehance

import (
	"fmt"
	"strings"
)

// ErrorCode is the fixed set of codes the API reports in errors[].
type ErrorCode string

const (
	CodeInvalidAPIKey       ErrorCode = "INVALID_API_KEY"
	CodeRateLimitExceeded   ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeInternalError       ErrorCode = "INTERNAL_ERROR"
	CodePermissionDenied    ErrorCode = "PERMISSION_DENIED"
	CodeInvalidRequestField ErrorCode = "INVALID_REQUEST_FIELD"
)

// APIError is one entry of an envelope's errors[].
type APIError struct {
	Code             ErrorCode `json:"code"`
	Message          string    `json:"message"`
	Suggestion       string    `json:"suggestion,omitempty"`
	DocumentationURL string    `json:"documentation_url,omitempty"`
}

func (e APIError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Error is returned when a call fails with an error envelope. The entries are passed through
// as the API sent them.
type Error struct {
	StatusCode int
	RequestID  string
	Errors     []APIError
}

func (e *Error) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("warehance: status %d", e.StatusCode)
	}
	parts := make([]string, 0, len(e.Errors))
	for _, ae := range e.Errors {
		parts = append(parts, ae.Error())
	}
	return fmt.Sprintf("warehance: status %d: %s", e.StatusCode, strings.Join(parts, "; "))
}

// Has reports whether any entry carries one of codes.
func (e *Error) Has(codes ...ErrorCode) bool {
	for _, ae := range e.Errors {
		for _, c := range codes {
			if ae.Code == c {
				return true
			}
		}
	}
	return false
}
