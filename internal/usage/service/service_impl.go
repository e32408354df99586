package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookingrelay/internal/clock"
	"github.com/smallbiznis/bookingrelay/internal/config"
	"github.com/smallbiznis/bookingrelay/internal/observability/logger"
	"github.com/smallbiznis/bookingrelay/internal/redislock"
	usagedomain "github.com/smallbiznis/bookingrelay/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const lockKeyPrefix = "usage:booking:lock:"

type ServiceParam struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   usagedomain.Repository
	Locker *redislock.Locker `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    usagedomain.Repository
	locker  *redislock.Locker
	lockTTL time.Duration
}

func NewService(p ServiceParam) usagedomain.Service {
	ttl := p.Config.Redis.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Service{
		log:     p.Log.Named("usage.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		locker:  p.Locker,
		lockTTL: ttl,
	}
}

// IncreaseUsage records one billable booking. Repeating the call for the same
// booking uid is a no-op.
func (s *Service) IncreaseUsage(ctx context.Context, ownerID int64, event usagedomain.UsageEvent) error {
	if ownerID <= 0 {
		return usagedomain.ErrInvalidOwner
	}
	uid := strings.TrimSpace(event.BookingUID)
	if uid == "" {
		return usagedomain.ErrInvalidBookingUID
	}
	if event.EffectiveTime.IsZero() {
		return usagedomain.ErrInvalidTime
	}

	return s.withBookingLock(ctx, uid, func() error {
		now := s.clock.Now()
		record := &usagedomain.UsageRecord{
			ID:             s.genID.Generate(),
			OwnerID:        ownerID,
			BookingUID:     uid,
			EffectiveTime:  event.EffectiveTime.UTC(),
			FromReschedule: event.FromReschedule,
			Status:         usagedomain.StatusActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		inserted, err := s.repo.Insert(ctx, record)
		if err != nil {
			return err
		}

		log := logger.WithContext(ctx, s.log).With(zap.String("booking_uid", uid), zap.Int64("owner_id", ownerID))
		if !inserted {
			log.Debug("usage already recorded")
			return nil
		}
		log.Info("usage recorded", zap.Time("effective_time", record.EffectiveTime))
		return nil
	})
}

// CancelUsage marks the booking's usage as cancelled. Unknown uids are ignored.
func (s *Service) CancelUsage(ctx context.Context, bookingUID string) error {
	uid := strings.TrimSpace(bookingUID)
	if uid == "" {
		return usagedomain.ErrInvalidBookingUID
	}

	return s.withBookingLock(ctx, uid, func() error {
		now := s.clock.Now()
		updated, err := s.repo.MarkCancelled(ctx, uid, usagedomain.UsageRecord{CancelledAt: &now, UpdatedAt: now})
		if err != nil {
			return err
		}

		log := logger.WithContext(ctx, s.log).With(zap.String("booking_uid", uid))
		if !updated {
			log.Debug("no active usage to cancel")
			return nil
		}
		log.Info("usage cancelled")
		return nil
	})
}

func (s *Service) FindByBookingUID(ctx context.Context, bookingUID string) (*usagedomain.UsageRecord, error) {
	return s.repo.FindByBookingUID(ctx, strings.TrimSpace(bookingUID))
}

func (s *Service) withBookingLock(ctx context.Context, uid string, fn func() error) error {
	if s.locker == nil {
		return fn()
	}

	key := lockKeyPrefix + uid
	token, err := s.locker.Lock(ctx, key, s.lockTTL)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			logger.WithContext(ctx, s.log).Warn("failed to release usage lock", zap.String("key", key), zap.Error(err))
		}
	}()
	return fn()
}
