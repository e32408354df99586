package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	bookingdomain "github.com/smallbiznis/bookingrelay/internal/booking/domain"
	"github.com/smallbiznis/bookingrelay/internal/config"
	obscontext "github.com/smallbiznis/bookingrelay/internal/observability/context"
	partnerdomain "github.com/smallbiznis/bookingrelay/internal/partner/domain"
	"github.com/smallbiznis/bookingrelay/internal/requestcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCredentials struct{ owner *int64 }

func (s stubCredentials) ResolveOwner(context.Context, string, string) *int64 { return s.owner }

type stubPartners struct{ cfg partnerdomain.PartnerConfig }

func (s stubPartners) ResolvePartnerConfig(context.Context, string) partnerdomain.PartnerConfig {
	return s.cfg
}

func assemble(t *testing.T, payload string, owner *int64) requestcontext.RequestContext {
	t.Helper()
	a := requestcontext.NewAssembler(requestcontext.Params{
		Credentials: stubCredentials{owner: owner},
		Partners: stubPartners{cfg: partnerdomain.PartnerConfig{
			PartnerID:          "client-1",
			BookingRedirectURL: "https://p.test/b",
		}},
		Gateway: config.NewStaticGatewayConfigHolder(config.GatewayConfig{APIKeyPrefix: "cal_"}),
		Log:     zap.NewNop(),
	})
	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	return a.Assemble(ctx, requestcontext.Input{Payload: json.RawMessage(payload), PartnerID: "client-1"})
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(config.Config{Engine: config.EngineConfig{BaseURL: srv.URL, APIKey: "engine-secret", Timeout: time.Second}}, zap.NewNop())
}

func TestCreateBookingSendsContext(t *testing.T) {
	var got envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bookings", r.URL.Path)
		assert.Equal(t, "req-1", r.Header.Get(headerRequestID))
		assert.Equal(t, "acme", r.Header.Get(headerForceSlug))
		assert.Equal(t, "engine-secret", r.Header.Get(headerEngineToken))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1,"uid":"abc","userId":7,"startTime":"2026-02-01T10:00:00Z","title":"Intro"}`))
	}))
	defer srv.Close()

	owner := int64(7)
	rc := assemble(t, `{"orgSlug":"acme","start":"2026-02-01T10:00:00Z"}`, &owner)
	booking, err := newTestClient(srv).CreateBooking(context.Background(), rc)
	require.NoError(t, err)
	require.NotNil(t, booking)

	assert.Equal(t, "abc", booking.UID)
	require.NotNil(t, booking.UserID)
	assert.Equal(t, int64(7), *booking.UserID)
	require.NotNil(t, booking.StartTime)
	assert.True(t, booking.StartTime.Equal(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)))
	assert.Contains(t, string(booking.Raw), `"title":"Intro"`)

	require.NotNil(t, got.Context.UserID)
	assert.Equal(t, int64(7), *got.Context.UserID)
	assert.Equal(t, "client-1", got.Context.PlatformClientID)
	assert.Equal(t, "https://p.test/b", got.Context.PlatformBookingURL)
	assert.True(t, got.Context.NoEmail)
	assert.JSONEq(t, `{"orgSlug":"acme","start":"2026-02-01T10:00:00Z"}`, string(got.Payload))
}

func TestCreateRecurringBookingDecodesList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bookings/recurring", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":1,"uid":"a"},{"id":2,"uid":"b"}]`))
	}))
	defer srv.Close()

	bookings, err := newTestClient(srv).CreateRecurringBooking(context.Background(), assemble(t, `[{}]`, nil))
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, "b", bookings[1].UID)
	assert.JSONEq(t, `{"id":2,"uid":"b"}`, string(bookings[1].Raw))
}

func TestCreateRecurringBookingKeepsUndecodableItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"uid":"a","userId":4,"startTime":"2026-03-02T09:00:00Z"},{"id":2,"uid":"b","startTime":"not-a-time"}]`))
	}))
	defer srv.Close()

	bookings, err := newTestClient(srv).CreateRecurringBooking(context.Background(), assemble(t, `[{}]`, nil))
	require.NoError(t, err)
	require.Len(t, bookings, 2)

	assert.Equal(t, "a", bookings[0].UID)
	require.NotNil(t, bookings[0].StartTime)

	assert.Empty(t, bookings[1].UID)
	assert.Nil(t, bookings[1].StartTime)
	assert.JSONEq(t, `{"id":2,"uid":"b","startTime":"not-a-time"}`, string(bookings[1].Raw))
}

func TestCancelBookingReadsAttendeeFlag(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"current spelling", `{"bookingUid":"a","onlyAttendeeRemoved":true}`, true},
		{"older spelling", `{"bookingUid":"a","onlyRemovedAttendee":true}`, true},
		{"current spelling wins", `{"bookingUid":"a","onlyAttendeeRemoved":false,"onlyRemovedAttendee":true}`, false},
		{"absent", `{"bookingUid":"a"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			result, err := newTestClient(srv).CancelBooking(context.Background(), assemble(t, `{"id":5}`, nil))
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, "a", result.BookingUID)
			assert.Equal(t, tt.want, result.OnlyAttendeeRemoved)
			assert.JSONEq(t, tt.body, string(result.Raw))
		})
	}
}

func TestEngineErrorsBecomeDomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bookingdomain.Error
	}{
		{"json body with status", http.StatusConflict, `{"statusCode":409,"message":"slot taken"}`, bookingdomain.Error{StatusCode: 409, Message: "slot taken"}},
		{"json body without status", http.StatusBadRequest, `{"message":"bad start"}`, bookingdomain.Error{StatusCode: 400, Message: "bad start"}},
		{"plain body", http.StatusBadGateway, `upstream broke`, bookingdomain.Error{StatusCode: 502, Message: "upstream broke"}},
		{"empty body", http.StatusServiceUnavailable, ``, bookingdomain.Error{StatusCode: 503, Message: "Service Unavailable"}},
		{"body status out of range", http.StatusConflict, `{"statusCode":4090,"message":"slot taken"}`, bookingdomain.Error{StatusCode: 409, Message: "slot taken"}},
		{"body status not an error", http.StatusUnprocessableEntity, `{"statusCode":200,"message":"bad slot"}`, bookingdomain.Error{StatusCode: 422, Message: "bad slot"}},
		{"redirect status", http.StatusNotModified, ``, bookingdomain.Error{StatusCode: 502, Message: "Bad Gateway"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv).CreateBooking(context.Background(), assemble(t, `{}`, nil))
			var domainErr *bookingdomain.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.want, *domainErr)
		})
	}
}

func TestEmptyResponseYieldsNilResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result, err := newTestClient(srv).CancelBooking(context.Background(), assemble(t, `{"id":5}`, nil))
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestMarkNoShowPostsInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bookings/uid-1/no-show", r.URL.Path)
		assert.Equal(t, "req-2", r.Header.Get(headerRequestID))
		var in bookingdomain.MarkNoShowInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "uid-1", in.BookingUID)
		require.Len(t, in.Attendees, 1)
		assert.True(t, in.Attendees[0].Absent)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	ctx := obscontext.WithRequestID(context.Background(), "req-2")
	result, err := newTestClient(srv).MarkNoShow(ctx, bookingdomain.MarkNoShowInput{
		BookingUID: "uid-1",
		Attendees:  []bookingdomain.NoShowAttendee{{Email: "a@b.test", Absent: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Message)
}

func TestListBookingsEncodesFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, []string{"upcoming", "past"}, q["status"])
		assert.Equal(t, "x@y.test", q.Get("attendeeEmail"))
		assert.Equal(t, "12", q.Get("eventTypeId"))
		assert.Equal(t, "20", q.Get("pageSize"))
		assert.Equal(t, "3", q.Get("userId"))
		_, _ = w.Write([]byte(`{"bookings":[{"id":1,"uid":"a"}],"hasMore":true,"nextPageToken":"n"}`))
	}))
	defer srv.Close()

	eventType := int64(12)
	owner := int64(3)
	list, err := newTestClient(srv).ListBookings(context.Background(), assemble(t, ``, &owner), bookingdomain.ListFilter{
		Status:        []string{"upcoming", "past"},
		AttendeeEmail: "x@y.test",
		EventTypeID:   &eventType,
		PageSize:      20,
	})
	require.NoError(t, err)
	assert.True(t, list.HasMore)
	assert.Equal(t, "n", list.NextPageToken)
	require.Len(t, list.Bookings, 1)
}

func TestTransportFailureIsGenericError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := newTestClient(srv).GetBooking(context.Background(), assemble(t, ``, nil), "uid")
	require.Error(t, err)
	var domainErr *bookingdomain.Error
	assert.NotErrorAs(t, err, &domainErr)
}
