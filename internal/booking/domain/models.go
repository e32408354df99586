// Package domain defines the booking engine contract.
package domain

import (
	"encoding/json"
	"time"
)

// Booking is the subset of an engine booking the gateway acts on. Raw keeps
// the engine's full response object and is what callers receive.
type Booking struct {
	ID             int64      `json:"id"`
	UID            string     `json:"uid"`
	UserID         *int64     `json:"userId,omitempty"`
	StartTime      *time.Time `json:"startTime,omitempty"`
	EndTime        *time.Time `json:"endTime,omitempty"`
	Status         string     `json:"status,omitempty"`
	FromReschedule *bool      `json:"fromReschedule,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// CancelResult reports whether the whole booking or only one attendee was removed.
type CancelResult struct {
	BookingID           int64  `json:"bookingId"`
	BookingUID          string `json:"bookingUid"`
	OnlyAttendeeRemoved bool   `json:"onlyAttendeeRemoved"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON also accepts the older "onlyRemovedAttendee" spelling.
// "onlyAttendeeRemoved" wins when both are present.
func (r *CancelResult) UnmarshalJSON(data []byte) error {
	type plain CancelResult
	var aux struct {
		plain
		OnlyAttendeeRemoved *bool `json:"onlyAttendeeRemoved"`
		OnlyRemovedAttendee *bool `json:"onlyRemovedAttendee"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*r = CancelResult(aux.plain)
	switch {
	case aux.OnlyAttendeeRemoved != nil:
		r.OnlyAttendeeRemoved = *aux.OnlyAttendeeRemoved
	case aux.OnlyRemovedAttendee != nil:
		r.OnlyAttendeeRemoved = *aux.OnlyRemovedAttendee
	}
	return nil
}

type NoShowAttendee struct {
	Email  string `json:"email" binding:"required,email"`
	Absent bool   `json:"absent"`
}

type MarkNoShowInput struct {
	BookingUID string           `json:"bookingUid"`
	Attendees  []NoShowAttendee `json:"attendees,omitempty"`
	NoShowHost *bool            `json:"noShowHost,omitempty"`
	UserID     *int64           `json:"userId,omitempty"`
}

type NoShowResult struct {
	Message    string           `json:"message,omitempty"`
	Attendees  []NoShowAttendee `json:"attendees,omitempty"`
	NoShowHost *bool            `json:"noShowHost,omitempty"`

	Raw json.RawMessage `json:"-"`
}

type ListFilter struct {
	Status        []string   `json:"status,omitempty"`
	AttendeeEmail string     `json:"attendeeEmail,omitempty"`
	EventTypeID   *int64     `json:"eventTypeId,omitempty"`
	AfterStart    *time.Time `json:"afterStart,omitempty"`
	BeforeEnd     *time.Time `json:"beforeEnd,omitempty"`
	PageToken     string     `json:"pageToken,omitempty"`
	PageSize      int        `json:"pageSize"`
}

type BookingList struct {
	Bookings      []Booking `json:"bookings"`
	NextPageToken string    `json:"nextPageToken,omitempty"`
	HasMore       bool      `json:"hasMore"`

	Raw json.RawMessage `json:"-"`
}
