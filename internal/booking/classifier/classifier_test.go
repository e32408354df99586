package classifier

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	bookingdomain "github.com/smallbiznis/bookingrelay/internal/booking/domain"
	"github.com/stretchr/testify/assert"
)

const fallback = "Error while creating booking."

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		failure any
		want    ClassifiedError
	}{
		{
			name:    "engine error is propagated verbatim",
			failure: bookingdomain.NewError(http.StatusConflict, "slot taken"),
			want:    ClassifiedError{StatusCode: 409, Message: "slot taken"},
		},
		{
			name:    "wrapped engine error is found",
			failure: fmt.Errorf("create: %w", bookingdomain.NewError(http.StatusBadRequest, "invalid start")),
			want:    ClassifiedError{StatusCode: 400, Message: "invalid start"},
		},
		{
			name:    "engine error without message uses fallback",
			failure: bookingdomain.NewError(http.StatusBadGateway, ""),
			want:    ClassifiedError{StatusCode: 502, Message: fallback},
		},
		{
			name:    "engine error without status defaults to 500",
			failure: &bookingdomain.Error{Message: "odd"},
			want:    ClassifiedError{StatusCode: 500, Message: "odd"},
		},
		{
			name:    "engine status outside the http range becomes 500",
			failure: bookingdomain.NewError(4090, "slot taken"),
			want:    ClassifiedError{StatusCode: 500, Message: "slot taken"},
		},
		{
			name:    "classified status outside the http range becomes 500",
			failure: &ClassifiedError{StatusCode: 42, Message: "odd"},
			want:    ClassifiedError{StatusCode: 500, Message: "odd"},
		},
		{
			name:    "generic error keeps its message",
			failure: errors.New("db down"),
			want:    ClassifiedError{StatusCode: 500, Message: "db down"},
		},
		{
			name:    "generic error without message uses fallback",
			failure: errors.New(""),
			want:    ClassifiedError{StatusCode: 500, Message: fallback},
		},
		{
			name:    "non-error panic value uses fallback",
			failure: "boom",
			want:    ClassifiedError{StatusCode: 500, Message: fallback},
		},
		{
			name:    "nil uses fallback",
			failure: nil,
			want:    ClassifiedError{StatusCode: 500, Message: fallback},
		},
		{
			name:    "already classified passes through",
			failure: &ClassifiedError{StatusCode: 404, Message: "Booking ID is required."},
			want:    ClassifiedError{StatusCode: 404, Message: "Booking ID is required."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.failure, fallback)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestClassifyNilInterface(t *testing.T) {
	var err error
	got := Classify(err, "Error while marking no-show.")
	assert.Equal(t, ClassifiedError{StatusCode: 500, Message: "Error while marking no-show."}, *got)
}
