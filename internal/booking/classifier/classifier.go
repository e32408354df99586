// Package classifier normalises booking failures into a single outward shape.
package classifier

import (
	"errors"
	"net/http"

	bookingdomain "github.com/smallbiznis/bookingrelay/internal/booking/domain"
)

// ClassifiedError is the only failure shape returned to callers.
type ClassifiedError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func (e *ClassifiedError) Error() string { return e.Message }

// HTTPStatus is StatusCode when it can be written as an HTTP status, else 500.
func (e *ClassifiedError) HTTPStatus() int {
	return writableStatus(e.StatusCode)
}

func writableStatus(code int) int {
	if code < 100 || code > 599 {
		return http.StatusInternalServerError
	}
	return code
}

// Classify maps failure to a ClassifiedError. failure may be an error or any
// recovered panic value; fallback is the operation's default message.
//
// Engine errors keep their status and message; statuses outside 100-599 become 500. Other errors keep their message
// with status 500. Everything else becomes 500 with fallback.
func Classify(failure any, fallback string) *ClassifiedError {
	err, ok := failure.(error)
	if !ok || err == nil {
		return &ClassifiedError{StatusCode: http.StatusInternalServerError, Message: fallback}
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		if classified.StatusCode != classified.HTTPStatus() {
			return &ClassifiedError{StatusCode: classified.HTTPStatus(), Message: classified.Message}
		}
		return classified
	}

	var domainErr *bookingdomain.Error
	if errors.As(err, &domainErr) {
		out := &ClassifiedError{StatusCode: writableStatus(domainErr.StatusCode), Message: domainErr.Message}
		if out.Message == "" {
			out.Message = fallback
		}
		return out
	}

	if msg := err.Error(); msg != "" {
		return &ClassifiedError{StatusCode: http.StatusInternalServerError, Message: msg}
	}
	return &ClassifiedError{StatusCode: http.StatusInternalServerError, Message: fallback}
}
