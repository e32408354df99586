package domain

import (
	"context"

	"github.com/smallbiznis/bookingrelay/internal/requestcontext"
)

// Engine is the external scheduling system. Implementations return *Error for
// failures that carry a status; anything else is treated as a generic failure.
type Engine interface {
	CreateBooking(ctx context.Context, rc requestcontext.RequestContext) (*Booking, error)
	CreateRecurringBooking(ctx context.Context, rc requestcontext.RequestContext) ([]Booking, error)
	CreateInstantMeeting(ctx context.Context, rc requestcontext.RequestContext) (*Booking, error)
	CancelBooking(ctx context.Context, rc requestcontext.RequestContext) (*CancelResult, error)
	MarkNoShow(ctx context.Context, in MarkNoShowInput) (*NoShowResult, error)

	ListBookings(ctx context.Context, rc requestcontext.RequestContext, filter ListFilter) (*BookingList, error)
	GetBooking(ctx context.Context, rc requestcontext.RequestContext, bookingUID string) (*Booking, error)
	GetBookingForReschedule(ctx context.Context, rc requestcontext.RequestContext, bookingUID string) (*Booking, error)
}
