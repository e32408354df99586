// Package engine talks to the remote booking engine over HTTP+JSON.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	bookingdomain "github.com/smallbiznis/bookingrelay/internal/booking/domain"
	"github.com/smallbiznis/bookingrelay/internal/config"
	obscontext "github.com/smallbiznis/bookingrelay/internal/observability/context"
	"github.com/smallbiznis/bookingrelay/internal/observability/logger"
	"github.com/smallbiznis/bookingrelay/internal/requestcontext"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 300

	headerRequestID   = "X-Request-Id"
	headerForceSlug   = "X-Force-Org-Slug"
	headerEngineToken = "X-Engine-Api-Key"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	timeout := cfg.Engine.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.Engine.BaseURL, "/"),
		apiKey:     cfg.Engine.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.Named("booking.engine"),
	}
}

// envelope is the body sent for context-carrying calls.
type envelope struct {
	Payload json.RawMessage `json:"payload,omitempty"`
	Context wireContext     `json:"context"`
	Filter  any             `json:"filter,omitempty"`
}

type wireContext struct {
	UserID                *int64 `json:"userId,omitempty"`
	PlatformClientID      string `json:"platformClientId,omitempty"`
	PlatformCancelURL     string `json:"platformCancelUrl"`
	PlatformRescheduleURL string `json:"platformRescheduleUrl"`
	PlatformBookingURL    string `json:"platformBookingUrl"`
	NoEmail               bool   `json:"noEmail"`
	BookingLocation       string `json:"bookingLocation,omitempty"`
	IsEmbed               bool   `json:"isEmbed"`
}

func contextOf(rc requestcontext.RequestContext) wireContext {
	partner := rc.Partner()
	return wireContext{
		UserID:                rc.Principal().Ptr(),
		PlatformClientID:      partner.PartnerID,
		PlatformCancelURL:     partner.CancelRedirectURL,
		PlatformRescheduleURL: partner.RescheduleRedirectURL,
		PlatformBookingURL:    partner.BookingRedirectURL,
		NoEmail:               rc.SuppressEmail(),
		BookingLocation:       rc.BookingLocation(),
		IsEmbed:               rc.Embedded(),
	}
}

func (c *Client) CreateBooking(ctx context.Context, rc requestcontext.RequestContext) (*bookingdomain.Booking, error) {
	var out bookingdomain.Booking
	raw, err := c.send(ctx, http.MethodPost, "/bookings", rc, envelope{Payload: rc.Payload(), Context: contextOf(rc)}, &out)
	if err != nil || raw == nil {
		return nil, err
	}
	out.Raw = raw
	return &out, nil
}

func (c *Client) CreateRecurringBooking(ctx context.Context, rc requestcontext.RequestContext) ([]bookingdomain.Booking, error) {
	var items []json.RawMessage
	raw, err := c.send(ctx, http.MethodPost, "/bookings/recurring", rc, envelope{Payload: rc.Payload(), Context: contextOf(rc)}, &items)
	if err != nil || raw == nil {
		return nil, err
	}

	out := make([]bookingdomain.Booking, 0, len(items))
	for _, item := range items {
		var b bookingdomain.Booking
		if err := json.Unmarshal(item, &b); err != nil {
			// The booking exists upstream; return it without usage fields.
			logger.WithContext(ctx, c.log).Warn("recurring booking item not decodable, skipping usage fields",
				zap.Error(err),
			)
			b = bookingdomain.Booking{}
		}
		b.Raw = item
		out = append(out, b)
	}
	return out, nil
}

func (c *Client) CreateInstantMeeting(ctx context.Context, rc requestcontext.RequestContext) (*bookingdomain.Booking, error) {
	var out bookingdomain.Booking
	raw, err := c.send(ctx, http.MethodPost, "/bookings/instant", rc, envelope{Payload: rc.Payload(), Context: contextOf(rc)}, &out)
	if err != nil || raw == nil {
		return nil, err
	}
	out.Raw = raw
	return &out, nil
}

func (c *Client) CancelBooking(ctx context.Context, rc requestcontext.RequestContext) (*bookingdomain.CancelResult, error) {
	var out bookingdomain.CancelResult
	raw, err := c.send(ctx, http.MethodPost, "/bookings/cancel", rc, envelope{Payload: rc.Payload(), Context: contextOf(rc)}, &out)
	if err != nil || raw == nil {
		return nil, err
	}
	out.Raw = raw
	return &out, nil
}

func (c *Client) MarkNoShow(ctx context.Context, in bookingdomain.MarkNoShowInput) (*bookingdomain.NoShowResult, error) {
	var out bookingdomain.NoShowResult
	path := "/bookings/" + url.PathEscape(in.BookingUID) + "/no-show"
	raw, err := c.send(ctx, http.MethodPost, path, requestcontext.RequestContext{}, in, &out)
	if err != nil || raw == nil {
		return nil, err
	}
	out.Raw = raw
	return &out, nil
}

func (c *Client) ListBookings(ctx context.Context, rc requestcontext.RequestContext, filter bookingdomain.ListFilter) (*bookingdomain.BookingList, error) {
	q := url.Values{}
	for _, status := range filter.Status {
		q.Add("status", status)
	}
	if filter.AttendeeEmail != "" {
		q.Set("attendeeEmail", filter.AttendeeEmail)
	}
	if filter.EventTypeID != nil {
		q.Set("eventTypeId", strconv.FormatInt(*filter.EventTypeID, 10))
	}
	if filter.AfterStart != nil {
		q.Set("afterStart", filter.AfterStart.UTC().Format(time.RFC3339))
	}
	if filter.BeforeEnd != nil {
		q.Set("beforeEnd", filter.BeforeEnd.UTC().Format(time.RFC3339))
	}
	if filter.PageToken != "" {
		q.Set("pageToken", filter.PageToken)
	}
	if filter.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(filter.PageSize))
	}
	if id, ok := rc.Principal().ID(); ok {
		q.Set("userId", strconv.FormatInt(id, 10))
	}

	path := "/bookings"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var out bookingdomain.BookingList
	raw, err := c.send(ctx, http.MethodGet, path, rc, nil, &out)
	if err != nil || raw == nil {
		return nil, err
	}
	out.Raw = raw
	return &out, nil
}

func (c *Client) GetBooking(ctx context.Context, rc requestcontext.RequestContext, bookingUID string) (*bookingdomain.Booking, error) {
	return c.getBooking(ctx, rc, "/bookings/"+url.PathEscape(bookingUID))
}

func (c *Client) GetBookingForReschedule(ctx context.Context, rc requestcontext.RequestContext, bookingUID string) (*bookingdomain.Booking, error) {
	return c.getBooking(ctx, rc, "/bookings/"+url.PathEscape(bookingUID)+"/reschedule")
}

func (c *Client) getBooking(ctx context.Context, rc requestcontext.RequestContext, path string) (*bookingdomain.Booking, error) {
	var out bookingdomain.Booking
	raw, err := c.send(ctx, http.MethodGet, path, rc, nil, &out)
	if err != nil || raw == nil {
		return nil, err
	}
	out.Raw = raw
	return &out, nil
}

// send performs one request and decodes a 2xx body into out. It returns the
// raw body, or nil when the engine answered with an empty body or JSON null.
func (c *Client) send(ctx context.Context, method, path string, rc requestcontext.RequestContext, body any, out any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("engine: marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("engine: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(headerEngineToken, c.apiKey)
	}
	requestID := rc.RequestID()
	if requestID == "" {
		requestID = obscontext.RequestIDFromContext(ctx)
	}
	if requestID != "" {
		req.Header.Set(headerRequestID, requestID)
	}
	if slug := rc.OrgSlugOverride(); slug != "" {
		req.Header.Set(headerForceSlug, slug)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("engine: read response: %w", err)
	}

	logger.WithContext(ctx, c.log).Debug("engine call",
		zap.String("method", method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, respBody)
	}

	trimmed := bytes.TrimSpace(respBody)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return nil, fmt.Errorf("engine: unmarshal response: %w", err)
	}
	return json.RawMessage(trimmed), nil
}

// decodeError trusts the body's statusCode only when it is a 4xx or 5xx.
// Non-error HTTP statuses are reported as 502.
func decodeError(status int, body []byte) *bookingdomain.Error {
	if !isErrorStatus(status) {
		status = http.StatusBadGateway
	}

	var payload struct {
		StatusCode int    `json:"statusCode"`
		Message    string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		if !isErrorStatus(payload.StatusCode) {
			payload.StatusCode = status
		}
		return bookingdomain.NewError(payload.StatusCode, payload.Message)
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return bookingdomain.NewError(status, msg)
}

func isErrorStatus(code int) bool {
	return code >= 400 && code <= 599
}

var _ bookingdomain.Engine = (*Client)(nil)
