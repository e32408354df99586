// Package accounting forwards booking usage to the billing ledger after the
// engine has accepted a booking.
package accounting

import (
	"context"
	"sync"

	"github.com/smallbiznis/bookingrelay/internal/config"
	"github.com/smallbiznis/bookingrelay/internal/observability/logger"
	"github.com/smallbiznis/bookingrelay/internal/observability/metrics"
	usagedomain "github.com/smallbiznis/bookingrelay/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	kindIncrease = "increase"
	kindCancel   = "cancel"
)

// Ledger is the billing collaborator.
type Ledger interface {
	IncreaseUsage(ctx context.Context, ownerID int64, event usagedomain.UsageEvent) error
	CancelUsage(ctx context.Context, bookingUID string) error
}

type Params struct {
	fx.In

	Ledger  Ledger
	Gateway *config.GatewayConfigHolder
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

// Coordinator issues accounting calls. It never retries and never compensates.
type Coordinator struct {
	ledger  Ledger
	gateway *config.GatewayConfigHolder
	log     *zap.Logger
	metrics *metrics.Metrics

	inflight sync.WaitGroup
}

func NewCoordinator(p Params) *Coordinator {
	return &Coordinator{
		ledger:  p.Ledger,
		gateway: p.Gateway,
		log:     p.Log.Named("accounting.coordinator"),
		metrics: p.Metrics,
	}
}

// EmitUsage records one usage event and waits for the ledger.
func (c *Coordinator) EmitUsage(ctx context.Context, event usagedomain.UsageEvent) error {
	if !c.enabled() {
		return nil
	}
	err := c.ledger.IncreaseUsage(ctx, event.OwnerID, event)
	c.record(ctx, kindIncrease, err)
	return err
}

// EmitCancellation cancels the usage for a booking and waits for the ledger.
func (c *Coordinator) EmitCancellation(ctx context.Context, bookingUID string) error {
	if !c.enabled() {
		return nil
	}
	err := c.ledger.CancelUsage(ctx, bookingUID)
	c.record(ctx, kindCancel, err)
	return err
}

// EmitDetached records each event on its own goroutine and returns at once.
// Emissions are unordered and fail independently; failures are only logged.
// The goroutines outlive ctx cancellation and are awaited by Drain.
func (c *Coordinator) EmitDetached(ctx context.Context, events []usagedomain.UsageEvent) {
	if !c.enabled() || len(events) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	for _, event := range events {
		c.inflight.Add(1)
		go func(event usagedomain.UsageEvent) {
			defer c.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.WithContext(detached, c.log).Error("detached usage emission panicked",
						zap.String("booking_uid", event.BookingUID),
						zap.Any("panic", r),
					)
				}
			}()
			if err := c.EmitUsage(detached, event); err != nil {
				logger.WithContext(detached, c.log).Warn("detached usage emission failed",
					zap.String("booking_uid", event.BookingUID),
					zap.Int64("owner_id", event.OwnerID),
					zap.Error(err),
				)
			}
		}(event)
	}
}

// Drain waits for detached emissions until ctx ends.
func (c *Coordinator) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		c.log.Warn("shutdown before detached usage emissions finished")
		return ctx.Err()
	}
}

func (c *Coordinator) enabled() bool {
	return c.gateway == nil || c.gateway.Get().BillingEnabled
}

func (c *Coordinator) record(ctx context.Context, kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.metrics.RecordUsageEvent(ctx, kind, result)
}
