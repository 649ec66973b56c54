package app

import (
	"fmt"
	"net/http"
)

// DomainError is a request-scoped failure that already knows the HTTP
// status it maps to. Everything else falling out of the service layer
// is treated as a 500 by mapError.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// validationError rejects malformed input before any state is touched.
func validationError(format string, args ...any) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION", fmt.Sprintf(format, args...), nil)
}
