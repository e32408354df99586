// Package domain contains the booking usage ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

// UsageRecord is one billable booking. BookingUID is unique so repeated
// emissions for the same booking are absorbed.
type UsageRecord struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	OwnerID        int64        `gorm:"column:owner_id;not null;index"`
	BookingUID     string       `gorm:"column:booking_uid;type:text;not null;uniqueIndex"`
	EffectiveTime  time.Time    `gorm:"column:effective_time;not null"`
	FromReschedule *bool        `gorm:"column:from_reschedule"`
	Status         string       `gorm:"type:text;not null"`
	CancelledAt    *time.Time   `gorm:"column:cancelled_at"`
	CreatedAt      time.Time    `gorm:"not null"`
	UpdatedAt      time.Time    `gorm:"not null"`
}

func (UsageRecord) TableName() string { return "usage_records" }

// UsageEvent is the accounting intent raised after a successful booking.
type UsageEvent struct {
	OwnerID        int64
	BookingUID     string
	EffectiveTime  time.Time
	FromReschedule *bool
}
