package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/bookingrelay/internal/booking/classifier"
	"github.com/smallbiznis/bookingrelay/internal/booking/orchestrator"
	"github.com/smallbiznis/bookingrelay/internal/config"
	"github.com/smallbiznis/bookingrelay/internal/observability"
	obsmetrics "github.com/smallbiznis/bookingrelay/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDispatcher struct {
	mu   sync.Mutex
	reqs []orchestrator.Request
	resp *orchestrator.Response
	cerr *classifier.ClassifiedError
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, req orchestrator.Request) (*orchestrator.Response, *classifier.ClassifiedError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.resp, f.cerr
}

func (f *fakeDispatcher) last(t *testing.T) orchestrator.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.reqs)
	return f.reqs[len(f.reqs)-1]
}

func newTestServer(t *testing.T, d *fakeDispatcher) (*Server, *prometheus.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	httpMetrics, err := obsmetrics.NewHTTPMetricsWith(reg)
	require.NoError(t, err)

	engine := NewEngine(observability.Config{Environment: "test"}, httpMetrics)
	srv := NewServer(ServerParams{
		Gin:        engine,
		Cfg:        config.Config{Environment: "test"},
		Dispatcher: d,
		Log:        zap.NewNop(),
	})
	return srv, reg
}

func perform(srv *Server, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func TestCreateBookingForwardsHeadersAndPayload(t *testing.T) {
	d := &fakeDispatcher{resp: &orchestrator.Response{Status: "success", Data: map[string]any{"uid": "abc"}}}
	srv, _ := newTestServer(t, d)

	w := perform(srv, http.MethodPost, "/v2/bookings?isEmbed=true&bookingLocation=zoom", []byte(`{"eventTypeId":3,"orgSlug":"acme"}`), map[string]string{
		HeaderAuthorization: "Bearer cal_secret",
		HeaderPartnerClient: "partner-1",
		"X-Request-Id":      "req-123",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"status":"success","data":{"uid":"abc"}}`, w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get("X-Request-Id"))

	req := d.last(t)
	assert.Equal(t, orchestrator.OpCreate, req.Operation)
	assert.Equal(t, "Bearer cal_secret", req.Credential)
	assert.Equal(t, "partner-1", req.PartnerID)
	assert.True(t, req.IsEmbed)
	assert.Equal(t, "zoom", req.LocationOverride)
	assert.JSONEq(t, `{"eventTypeId":3,"orgSlug":"acme"}`, string(req.Payload))
}

func TestClassifiedErrorBody(t *testing.T) {
	d := &fakeDispatcher{cerr: &classifier.ClassifiedError{StatusCode: http.StatusConflict, Message: "slot taken"}}
	srv, _ := newTestServer(t, d)

	w := perform(srv, http.MethodPost, "/v2/bookings", []byte(`{}`), nil)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"status":"error","error":{"statusCode":409,"message":"slot taken"}}`, w.Body.String())
}

func TestClassifiedErrorWithUnwritableStatusRendersServerError(t *testing.T) {
	d := &fakeDispatcher{cerr: &classifier.ClassifiedError{StatusCode: 4090, Message: "slot taken"}}
	srv, _ := newTestServer(t, d)

	w := perform(srv, http.MethodPost, "/v2/bookings", []byte(`{}`), nil)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"status":"error","error":{"statusCode":500,"message":"slot taken"}}`, w.Body.String())
}

func TestInvalidJSONRejectedBeforeDispatch(t *testing.T) {
	d := &fakeDispatcher{}
	srv, _ := newTestServer(t, d)

	w := perform(srv, http.MethodPost, "/v2/bookings/recurring", []byte(`[{"a":`), nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, d.reqs)
}

func TestCancelPassesPathID(t *testing.T) {
	d := &fakeDispatcher{resp: &orchestrator.Response{Status: "success", Data: map[string]any{}}}
	srv, _ := newTestServer(t, d)

	w := perform(srv, http.MethodPost, "/v2/bookings/42/cancel", []byte(`{"cancellationReason":"sick"}`), nil)

	require.Equal(t, http.StatusOK, w.Code)
	req := d.last(t)
	assert.Equal(t, orchestrator.OpCancel, req.Operation)
	assert.Equal(t, "42", req.BookingID)
	assert.JSONEq(t, `{"cancellationReason":"sick"}`, string(req.Payload))
}

func TestMarkNoShowBindsAttendees(t *testing.T) {
	d := &fakeDispatcher{resp: &orchestrator.Response{Status: "success", Data: map[string]any{}}}
	srv, _ := newTestServer(t, d)

	w := perform(srv, http.MethodPost, "/v2/bookings/uid-1/mark-no-show",
		[]byte(`{"attendees":[{"email":"a@example.com","absent":true}],"noShowHost":true}`), nil)

	require.Equal(t, http.StatusOK, w.Code)
	req := d.last(t)
	assert.Equal(t, orchestrator.OpMarkNoShow, req.Operation)
	assert.Equal(t, "uid-1", req.BookingUID)
	require.Len(t, req.Attendees, 1)
	assert.Equal(t, "a@example.com", req.Attendees[0].Email)
	assert.True(t, req.Attendees[0].Absent)
	require.NotNil(t, req.NoShowHost)
	assert.True(t, *req.NoShowHost)
}

func TestMarkNoShowRejectsInvalidAttendeeEmail(t *testing.T) {
	d := &fakeDispatcher{}
	srv, _ := newTestServer(t, d)

	w := perform(srv, http.MethodPost, "/v2/bookings/uid-1/mark-no-show",
		[]byte(`{"attendees":[{"email":"nope"}]}`), nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, d.reqs)
}

func TestListBookingsBuildsFilter(t *testing.T) {
	d := &fakeDispatcher{resp: &orchestrator.Response{Status: "success", Data: []any{}}}
	srv, _ := newTestServer(t, d)

	w := perform(srv, http.MethodGet,
		"/v2/bookings?status=upcoming,past&status=cancelled&eventTypeId=7&afterStart=2026-01-01&page_size=1000", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	req := d.last(t)
	assert.Equal(t, orchestrator.OpList, req.Operation)
	assert.Equal(t, []string{"upcoming", "past", "cancelled"}, req.Filter.Status)
	require.NotNil(t, req.Filter.EventTypeID)
	assert.Equal(t, int64(7), *req.Filter.EventTypeID)
	require.NotNil(t, req.Filter.AfterStart)
	assert.Equal(t, 2026, req.Filter.AfterStart.Year())
	assert.Equal(t, 250, req.Filter.PageSize)
}

func TestListBookingsRejectsBadFilters(t *testing.T) {
	d := &fakeDispatcher{}
	srv, _ := newTestServer(t, d)

	for _, target := range []string{
		"/v2/bookings?eventTypeId=abc",
		"/v2/bookings?afterStart=yesterday",
		"/v2/bookings?page_token=not-base64!",
		"/v2/bookings?isEmbed=maybe",
	} {
		w := perform(srv, http.MethodGet, target, nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
	assert.Empty(t, d.reqs)
}

func TestGetRoutes(t *testing.T) {
	d := &fakeDispatcher{resp: &orchestrator.Response{Status: "success", Data: map[string]any{"uid": "u1"}}}
	srv, _ := newTestServer(t, d)

	w := perform(srv, http.MethodGet, "/v2/bookings/u1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, orchestrator.OpGet, d.last(t).Operation)
	assert.Equal(t, "u1", d.last(t).BookingUID)

	w = perform(srv, http.MethodGet, "/v2/bookings/u1/reschedule", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, orchestrator.OpGetReschedule, d.last(t).Operation)
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &fakeDispatcher{})

	w := perform(srv, http.MethodGet, "/v1/nothing", nil, nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, http.StatusNotFound, body.Error.StatusCode)
}

func TestHealthAndHTTPMetrics(t *testing.T) {
	srv, reg := newTestServer(t, &fakeDispatcher{})

	w := perform(srv, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	count, err := testutil.GatherAndCount(reg, "bookingrelay_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
