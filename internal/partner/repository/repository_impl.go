package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/bookingrelay/internal/partner/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id string) (*domain.Partner, error) {
	var partner domain.Partner
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&partner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &partner, nil
}

func (r *repository) Upsert(ctx context.Context, partner *domain.Partner) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"cancel_redirect_url",
			"reschedule_redirect_url",
			"booking_redirect_url",
			"emails_enabled",
			"default_booking_location",
			"metadata",
			"updated_at",
		}),
	}).Create(partner).Error
}
