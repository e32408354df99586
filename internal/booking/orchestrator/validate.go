package orchestrator

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	bookingdomain "github.com/smallbiznis/bookingrelay/internal/booking/domain"
)

func requireObjectPayload(req Request) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(req.Payload, &obj); err != nil || obj == nil {
		return bookingdomain.BadRequest("Request body must be a JSON object.")
	}
	return nil
}

func requireArrayPayload(req Request) error {
	var items []json.RawMessage
	if err := json.Unmarshal(req.Payload, &items); err != nil {
		return bookingdomain.BadRequest("Request body must be a JSON array.")
	}
	if len(items) == 0 {
		return bookingdomain.BadRequest("At least one booking is required.")
	}
	for _, item := range items {
		if t := bytes.TrimSpace(item); len(t) == 0 || t[0] != '{' {
			return bookingdomain.BadRequest("Each booking must be a JSON object.")
		}
	}
	return nil
}

func requireBookingID(req Request) error {
	id := strings.TrimSpace(req.BookingID)
	if id == "" {
		return bookingdomain.NotFound("Booking ID is required.")
	}
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return bookingdomain.BadRequest("Booking ID must be numeric.")
	}
	if len(bytes.TrimSpace(req.Payload)) == 0 {
		return nil
	}
	return requireObjectPayload(req)
}

func requireBookingUID(req Request) error {
	if strings.TrimSpace(req.BookingUID) == "" {
		return bookingdomain.NotFound("Booking UID is required.")
	}
	return nil
}

// withBookingID returns payload with its numeric id field set to id.
func withBookingID(payload json.RawMessage, id int64) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, &fields); err != nil {
			return nil, err
		}
	}
	fields["id"] = json.RawMessage(strconv.FormatInt(id, 10))
	return json.Marshal(fields)
}
