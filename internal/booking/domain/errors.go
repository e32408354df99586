package domain

import "net/http"

// Error is a failure reported by the booking engine with its own status and message.
type Error struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.StatusCode)
}

func NewError(statusCode int, message string) *Error {
	return &Error{StatusCode: statusCode, Message: message}
}

func NotFound(message string) *Error {
	return NewError(http.StatusNotFound, message)
}

func BadRequest(message string) *Error {
	return NewError(http.StatusBadRequest, message)
}
