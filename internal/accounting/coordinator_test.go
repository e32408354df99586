package accounting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/bookingrelay/internal/config"
	usagedomain "github.com/smallbiznis/bookingrelay/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingLedger struct {
	mu        sync.Mutex
	increases []usagedomain.UsageEvent
	cancels   []string
	failUIDs  map[string]bool
	panicUIDs map[string]bool
	block     chan struct{}
}

func (l *recordingLedger) IncreaseUsage(ctx context.Context, ownerID int64, event usagedomain.UsageEvent) error {
	if l.block != nil {
		<-l.block
	}
	if l.panicUIDs[event.BookingUID] {
		panic("ledger exploded")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failUIDs[event.BookingUID] {
		return errors.New("ledger unavailable")
	}
	l.increases = append(l.increases, event)
	return nil
}

func (l *recordingLedger) CancelUsage(ctx context.Context, bookingUID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancels = append(l.cancels, bookingUID)
	return nil
}

func (l *recordingLedger) snapshot() ([]usagedomain.UsageEvent, []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]usagedomain.UsageEvent(nil), l.increases...), append([]string(nil), l.cancels...)
}

func newCoordinator(ledger Ledger, billingEnabled bool) *Coordinator {
	return NewCoordinator(Params{
		Ledger:  ledger,
		Gateway: config.NewStaticGatewayConfigHolder(config.GatewayConfig{APIKeyPrefix: "cal_", BillingEnabled: billingEnabled}),
		Log:     zap.NewNop(),
	})
}

func TestEmitUsageAndCancellation(t *testing.T) {
	ledger := &recordingLedger{}
	c := newCoordinator(ledger, true)
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, c.EmitUsage(context.Background(), usagedomain.UsageEvent{OwnerID: 7, BookingUID: "abc", EffectiveTime: start}))
	require.NoError(t, c.EmitCancellation(context.Background(), "abc"))

	increases, cancels := ledger.snapshot()
	assert.Equal(t, []usagedomain.UsageEvent{{OwnerID: 7, BookingUID: "abc", EffectiveTime: start}}, increases)
	assert.Equal(t, []string{"abc"}, cancels)
}

func TestEmitUsageReturnsLedgerFailure(t *testing.T) {
	ledger := &recordingLedger{failUIDs: map[string]bool{"bad": true}}
	c := newCoordinator(ledger, true)

	err := c.EmitUsage(context.Background(), usagedomain.UsageEvent{OwnerID: 1, BookingUID: "bad", EffectiveTime: time.Now()})
	assert.EqualError(t, err, "ledger unavailable")
}

func TestBillingDisabledSkipsLedger(t *testing.T) {
	ledger := &recordingLedger{}
	c := newCoordinator(ledger, false)

	require.NoError(t, c.EmitUsage(context.Background(), usagedomain.UsageEvent{OwnerID: 1, BookingUID: "a", EffectiveTime: time.Now()}))
	require.NoError(t, c.EmitCancellation(context.Background(), "a"))
	c.EmitDetached(context.Background(), []usagedomain.UsageEvent{{OwnerID: 1, BookingUID: "b", EffectiveTime: time.Now()}})
	require.NoError(t, c.Drain(context.Background()))

	increases, cancels := ledger.snapshot()
	assert.Empty(t, increases)
	assert.Empty(t, cancels)
}

func TestEmitDetachedIsIndependentAndSurvivesCancellation(t *testing.T) {
	ledger := &recordingLedger{failUIDs: map[string]bool{"b": true}, block: make(chan struct{})}
	c := newCoordinator(ledger, true)

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	c.EmitDetached(ctx, []usagedomain.UsageEvent{
		{OwnerID: 1, BookingUID: "a", EffectiveTime: now},
		{OwnerID: 1, BookingUID: "b", EffectiveTime: now},
		{OwnerID: 1, BookingUID: "c", EffectiveTime: now},
	})
	cancel()
	close(ledger.block)

	require.NoError(t, c.Drain(context.Background()))

	increases, _ := ledger.snapshot()
	uids := make([]string, 0, len(increases))
	for _, e := range increases {
		uids = append(uids, e.BookingUID)
	}
	assert.ElementsMatch(t, []string{"a", "c"}, uids)
}

func TestDrainHonoursDeadline(t *testing.T) {
	ledger := &recordingLedger{block: make(chan struct{})}
	c := newCoordinator(ledger, true)
	c.EmitDetached(context.Background(), []usagedomain.UsageEvent{{OwnerID: 1, BookingUID: "slow", EffectiveTime: time.Now()}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Drain(ctx), context.DeadlineExceeded)

	close(ledger.block)
	require.NoError(t, c.Drain(context.Background()))
}

func TestEmitDetachedRecoversLedgerPanic(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	ledger := &recordingLedger{panicUIDs: map[string]bool{"boom": true}}
	c := NewCoordinator(Params{
		Ledger:  ledger,
		Gateway: config.NewStaticGatewayConfigHolder(config.GatewayConfig{APIKeyPrefix: "cal_", BillingEnabled: true}),
		Log:     zap.New(core),
	})

	now := time.Now()
	c.EmitDetached(context.Background(), []usagedomain.UsageEvent{
		{OwnerID: 1, BookingUID: "boom", EffectiveTime: now},
		{OwnerID: 1, BookingUID: "ok", EffectiveTime: now},
	})
	require.NoError(t, c.Drain(context.Background()))

	increases, _ := ledger.snapshot()
	require.Len(t, increases, 1)
	assert.Equal(t, "ok", increases[0].BookingUID)

	entries := logs.FilterMessage("detached usage emission panicked").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].ContextMap()["booking_uid"])
}
