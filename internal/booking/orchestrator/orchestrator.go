// Package orchestrator dispatches exactly one booking engine call per request
// and triggers accounting once the engine has accepted it.
package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	bookingdomain "github.com/smallbiznis/bookingrelay/internal/booking/domain"
	"github.com/smallbiznis/bookingrelay/internal/booking/classifier"
	"github.com/smallbiznis/bookingrelay/internal/clock"
	obscontext "github.com/smallbiznis/bookingrelay/internal/observability/context"
	"github.com/smallbiznis/bookingrelay/internal/observability/logger"
	"github.com/smallbiznis/bookingrelay/internal/observability/metrics"
	"github.com/smallbiznis/bookingrelay/internal/observability/tracing"
	"github.com/smallbiznis/bookingrelay/internal/requestcontext"
	usagedomain "github.com/smallbiznis/bookingrelay/internal/usage/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// InstantGracePeriod is added to the current time to form the effective time
// of an instant meeting's usage event.
const InstantGracePeriod = 10 * time.Second

const StatusSuccess = "success"

type ContextAssembler interface {
	Assemble(ctx context.Context, in requestcontext.Input) requestcontext.RequestContext
}

// SideEffects is the accounting surface the orchestrator drives.
type SideEffects interface {
	EmitUsage(ctx context.Context, event usagedomain.UsageEvent) error
	EmitCancellation(ctx context.Context, bookingUID string) error
	EmitDetached(ctx context.Context, events []usagedomain.UsageEvent)
}

// Request carries one inbound booking operation.
type Request struct {
	Operation Operation

	Payload          json.RawMessage
	Credential       string
	PartnerID        string
	IsEmbed          bool
	LocationOverride string

	// BookingID is the numeric path id of a cancellation.
	BookingID string
	// BookingUID addresses no-show marking and reads.
	BookingUID string

	Attendees  []bookingdomain.NoShowAttendee
	NoShowHost *bool

	Filter bookingdomain.ListFilter
}

// Response is the success envelope.
type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

type Params struct {
	fx.In

	Assembler   ContextAssembler
	Engine      bookingdomain.Engine
	SideEffects SideEffects
	Clock       clock.Clock
	Log         *zap.Logger
	Metrics     *metrics.Metrics `optional:"true"`
}

type Orchestrator struct {
	assembler   ContextAssembler
	engine      bookingdomain.Engine
	sideEffects SideEffects
	clock       clock.Clock
	log         *zap.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

func NewOrchestrator(p Params) *Orchestrator {
	return &Orchestrator{
		assembler:   p.Assembler,
		engine:      p.Engine,
		sideEffects: p.SideEffects,
		clock:       p.Clock,
		log:         p.Log.Named("booking.orchestrator"),
		metrics:     p.Metrics,
		tracer:      otel.Tracer("bookingrelay/booking"),
	}
}

// Dispatch runs req and returns either a success envelope or a classified
// error, never both. Panics inside the operation are classified as failures.
func (o *Orchestrator) Dispatch(ctx context.Context, req Request) (resp *Response, cerr *classifier.ClassifiedError) {
	h, ok := handlers[req.Operation]
	if !ok {
		return nil, &classifier.ClassifiedError{StatusCode: http.StatusBadRequest, Message: "Unsupported booking operation."}
	}

	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "booking."+req.Operation.String(), trace.WithAttributes(
		tracing.SafeAttributes(attribute.String("booking.operation", req.Operation.String()))...,
	))
	defer func() {
		if r := recover(); r != nil {
			logger.WithContext(ctx, o.log).Error("booking operation panicked",
				zap.String("operation", req.Operation.String()),
				zap.Any("panic", r),
			)
			resp, cerr = nil, classifier.Classify(r, h.failure)
		}
		o.finish(ctx, span, req.Operation, cerr, time.Since(start))
	}()

	if h.validate != nil {
		if err := h.validate(req); err != nil {
			return nil, classifier.Classify(err, h.failure)
		}
	}

	rc := o.assembler.Assemble(ctx, requestcontext.Input{
		Payload:          req.Payload,
		Credential:       req.Credential,
		PartnerID:        req.PartnerID,
		IsEmbed:          req.IsEmbed,
		LocationOverride: req.LocationOverride,
		Policy:           h.policy,
	})
	if pid := strings.TrimSpace(req.PartnerID); pid != "" {
		ctx = obscontext.WithPartnerID(ctx, pid)
	}
	if id, ok := rc.Principal().ID(); ok {
		ctx = obscontext.WithPrincipal(ctx, id)
	}

	data, err := h.run(o, ctx, req, rc)
	if err != nil {
		logger.WithContext(ctx, o.log).Warn("booking operation failed",
			zap.String("operation", req.Operation.String()),
			zap.Error(err),
		)
		return nil, classifier.Classify(err, h.failure)
	}
	if data == nil {
		return nil, &classifier.ClassifiedError{StatusCode: http.StatusInternalServerError, Message: h.noResult}
	}
	return &Response{Status: StatusSuccess, Data: data}, nil
}

func (o *Orchestrator) finish(ctx context.Context, span trace.Span, op Operation, cerr *classifier.ClassifiedError, elapsed time.Duration) {
	status := http.StatusOK
	if cerr != nil {
		status = cerr.StatusCode
		span.RecordError(tracing.SafeError(cerr))
		span.SetStatus(codes.Error, cerr.Message)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(attribute.Int("booking.status_code", status))
	span.End()
	o.metrics.RecordOperation(ctx, op.String(), status, elapsed)
}

func (o *Orchestrator) create(ctx context.Context, _ Request, rc requestcontext.RequestContext) (any, error) {
	booking, err := o.engine.CreateBooking(ctx, rc)
	if err != nil || booking == nil {
		return nil, err
	}

	if event, ok := usageEventOf(*booking); ok {
		if err := o.sideEffects.EmitUsage(ctx, event); err != nil {
			return nil, err
		}
	}
	return dataOf(booking.Raw, booking), nil
}

func (o *Orchestrator) createRecurring(ctx context.Context, _ Request, rc requestcontext.RequestContext) (any, error) {
	bookings, err := o.engine.CreateRecurringBooking(ctx, rc)
	if err != nil || bookings == nil {
		return nil, err
	}

	events := make([]usagedomain.UsageEvent, 0, len(bookings))
	data := make([]any, 0, len(bookings))
	for i := range bookings {
		if event, ok := usageEventOf(bookings[i]); ok {
			events = append(events, event)
		}
		data = append(data, dataOf(bookings[i].Raw, bookings[i]))
	}
	if len(events) > 0 {
		o.sideEffects.EmitDetached(ctx, events)
	}
	return data, nil
}

func (o *Orchestrator) createInstant(ctx context.Context, _ Request, rc requestcontext.RequestContext) (any, error) {
	booking, err := o.engine.CreateInstantMeeting(ctx, rc)
	if err != nil || booking == nil {
		return nil, err
	}

	if booking.UserID != nil && booking.UID != "" {
		event := usagedomain.UsageEvent{
			OwnerID:       *booking.UserID,
			BookingUID:    booking.UID,
			EffectiveTime: o.clock.Now().Add(InstantGracePeriod),
		}
		if err := o.sideEffects.EmitUsage(ctx, event); err != nil {
			return nil, err
		}
	}
	return dataOf(booking.Raw, booking), nil
}

func (o *Orchestrator) cancel(ctx context.Context, req Request, rc requestcontext.RequestContext) (any, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(req.BookingID), 10, 64)
	if err != nil {
		return nil, bookingdomain.BadRequest("Booking ID must be numeric.")
	}
	payload, err := withBookingID(rc.Payload(), id)
	if err != nil {
		return nil, bookingdomain.BadRequest("Request body must be a JSON object.")
	}
	rc = rc.WithPayload(payload)

	result, err := o.engine.CancelBooking(ctx, rc)
	if err != nil || result == nil {
		return nil, err
	}

	if !result.OnlyAttendeeRemoved {
		if result.BookingUID == "" {
			logger.WithContext(ctx, o.log).Warn("cancelled booking has no uid, skipping usage cancellation",
				zap.Int64("booking_id", id),
			)
		} else if err := o.sideEffects.EmitCancellation(ctx, result.BookingUID); err != nil {
			return nil, err
		}
	}
	return dataOf(result.Raw, result), nil
}

func (o *Orchestrator) markNoShow(ctx context.Context, req Request, rc requestcontext.RequestContext) (any, error) {
	result, err := o.engine.MarkNoShow(ctx, bookingdomain.MarkNoShowInput{
		BookingUID: req.BookingUID,
		Attendees:  req.Attendees,
		NoShowHost: req.NoShowHost,
		UserID:     rc.Principal().Ptr(),
	})
	if err != nil || result == nil {
		return nil, err
	}
	return dataOf(result.Raw, result), nil
}

func (o *Orchestrator) list(ctx context.Context, req Request, rc requestcontext.RequestContext) (any, error) {
	result, err := o.engine.ListBookings(ctx, rc, req.Filter)
	if err != nil || result == nil {
		return nil, err
	}
	return dataOf(result.Raw, result), nil
}

func (o *Orchestrator) get(ctx context.Context, req Request, rc requestcontext.RequestContext) (any, error) {
	booking, err := o.engine.GetBooking(ctx, rc, req.BookingUID)
	if err != nil || booking == nil {
		return nil, err
	}
	return dataOf(booking.Raw, booking), nil
}

func (o *Orchestrator) getReschedule(ctx context.Context, req Request, rc requestcontext.RequestContext) (any, error) {
	booking, err := o.engine.GetBookingForReschedule(ctx, rc, req.BookingUID)
	if err != nil || booking == nil {
		return nil, err
	}
	return dataOf(booking.Raw, booking), nil
}

// usageEventOf builds the usage event for a created booking when owner, uid
// and start time are all known.
func usageEventOf(b bookingdomain.Booking) (usagedomain.UsageEvent, bool) {
	if b.UserID == nil || b.UID == "" || b.StartTime == nil {
		return usagedomain.UsageEvent{}, false
	}
	return usagedomain.UsageEvent{
		OwnerID:        *b.UserID,
		BookingUID:     b.UID,
		EffectiveTime:  *b.StartTime,
		FromReschedule: b.FromReschedule,
	}, true
}

func dataOf(raw json.RawMessage, typed any) any {
	if len(raw) > 0 {
		return raw
	}
	return typed
}
