package domain

import (
	"context"
	"errors"
)

type Repository interface {
	// Insert stores record unless one already exists for its booking uid.
	// It reports whether a row was written.
	Insert(ctx context.Context, record *UsageRecord) (bool, error)
	MarkCancelled(ctx context.Context, bookingUID string, record UsageRecord) (bool, error)
	FindByBookingUID(ctx context.Context, bookingUID string) (*UsageRecord, error)
}

type Service interface {
	IncreaseUsage(ctx context.Context, ownerID int64, event UsageEvent) error
	CancelUsage(ctx context.Context, bookingUID string) error
	FindByBookingUID(ctx context.Context, bookingUID string) (*UsageRecord, error)
}

var (
	ErrInvalidOwner      = errors.New("invalid_owner")
	ErrInvalidBookingUID = errors.New("invalid_booking_uid")
	ErrInvalidTime       = errors.New("invalid_effective_time")
)
