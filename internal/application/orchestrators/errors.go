package orchestrators

import (
	"errors"

	"mastery/internal/adapters/functions"
)

// ExternalServiceError is a failed call to the checkout or email function.
// Message is safe to show the user.
type ExternalServiceError struct {
	Service string
	// Status is the HTTP status the service answered with; 0 when it could not be reached.
	Status  int
	Message string
}

// Error implements error.
func (e *ExternalServiceError) Error() string {
	return e.Service + ": " + e.Message
}

// externalError converts a function client error. Transport failures and responses
// without a message use fallback.
func externalError(service string, err error, fallback string) *ExternalServiceError {
	var ese *ExternalServiceError
	if errors.As(err, &ese) {
		return ese
	}
	var re *functions.ResponseError
	if errors.As(err, &re) {
		msg := re.Message
		if msg == "" {
			msg = fallback
		}
		return &ExternalServiceError{Service: service, Status: re.Status, Message: msg}
	}
	return &ExternalServiceError{Service: service, Message: fallback}
}
