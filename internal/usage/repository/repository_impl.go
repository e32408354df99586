package repository

import (
	"context"
	"errors"

	usagedomain "github.com/smallbiznis/bookingrelay/internal/usage/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) usagedomain.Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, record *usagedomain.UsageRecord) (bool, error) {
	tx := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "booking_uid"}}, DoNothing: true}).
		Create(record)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *repository) MarkCancelled(ctx context.Context, bookingUID string, record usagedomain.UsageRecord) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&usagedomain.UsageRecord{}).
		Where("booking_uid = ? AND status = ?", bookingUID, usagedomain.StatusActive).
		Updates(map[string]any{
			"status":       usagedomain.StatusCancelled,
			"cancelled_at": record.CancelledAt,
			"updated_at":   record.UpdatedAt,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *repository) FindByBookingUID(ctx context.Context, bookingUID string) (*usagedomain.UsageRecord, error) {
	var record usagedomain.UsageRecord
	err := r.db.WithContext(ctx).Where("booking_uid = ?", bookingUID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
