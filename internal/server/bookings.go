package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	bookingdomain "github.com/smallbiznis/bookingrelay/internal/booking/domain"
	"github.com/smallbiznis/bookingrelay/internal/booking/orchestrator"
	"github.com/smallbiznis/bookingrelay/pkg/db/pagination"
)

const maxBookingBody = 1 << 20

type markNoShowRequest struct {
	Attendees  []bookingdomain.NoShowAttendee `json:"attendees" binding:"omitempty,dive"`
	NoShowHost *bool                          `json:"noShowHost"`
}

func (s *Server) CreateBooking(c *gin.Context) {
	s.dispatchWithBody(c, orchestrator.OpCreate, http.StatusCreated)
}

func (s *Server) CreateRecurringBooking(c *gin.Context) {
	s.dispatchWithBody(c, orchestrator.OpCreateRecurring, http.StatusCreated)
}

func (s *Server) CreateInstantMeeting(c *gin.Context) {
	s.dispatchWithBody(c, orchestrator.OpCreateInstant, http.StatusCreated)
}

func (s *Server) CancelBooking(c *gin.Context) {
	req, ok := s.baseRequest(c, orchestrator.OpCancel)
	if !ok {
		return
	}
	payload, ok := readPayload(c)
	if !ok {
		return
	}
	req.Payload = payload
	req.BookingID = c.Param("booking")

	s.dispatch(c, req, http.StatusOK)
}

func (s *Server) MarkNoShow(c *gin.Context) {
	req, ok := s.baseRequest(c, orchestrator.OpMarkNoShow)
	if !ok {
		return
	}

	var body markNoShowRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.BookingUID = strings.TrimSpace(c.Param("booking"))
	req.Attendees = body.Attendees
	req.NoShowHost = body.NoShowHost

	s.dispatch(c, req, http.StatusOK)
}

func (s *Server) ListBookings(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status        []string `form:"status"`
		AttendeeEmail string   `form:"attendeeEmail"`
		EventTypeID   string   `form:"eventTypeId"`
		AfterStart    string   `form:"afterStart"`
		BeforeEnd     string   `form:"beforeEnd"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	page, err := query.Pagination.Normalize()
	if err != nil {
		AbortWithError(c, newValidationError("page_token", "invalid_page_token", "invalid page_token"))
		return
	}
	eventTypeID, err := parseOptionalInt64(query.EventTypeID)
	if err != nil {
		AbortWithError(c, newValidationError("eventTypeId", "invalid_event_type_id", "invalid eventTypeId"))
		return
	}
	afterStart, err := parseOptionalTime(query.AfterStart, false)
	if err != nil {
		AbortWithError(c, newValidationError("afterStart", "invalid_after_start", "invalid afterStart"))
		return
	}
	beforeEnd, err := parseOptionalTime(query.BeforeEnd, true)
	if err != nil {
		AbortWithError(c, newValidationError("beforeEnd", "invalid_before_end", "invalid beforeEnd"))
		return
	}

	req, ok := s.baseRequest(c, orchestrator.OpList)
	if !ok {
		return
	}
	req.Filter = bookingdomain.ListFilter{
		Status:        splitList(query.Status),
		AttendeeEmail: strings.TrimSpace(query.AttendeeEmail),
		EventTypeID:   eventTypeID,
		AfterStart:    afterStart,
		BeforeEnd:     beforeEnd,
		PageToken:     page.PageToken,
		PageSize:      page.PageSize,
	}

	s.dispatch(c, req, http.StatusOK)
}

func (s *Server) GetBooking(c *gin.Context) {
	s.dispatchByUID(c, orchestrator.OpGet)
}

func (s *Server) GetBookingForReschedule(c *gin.Context) {
	s.dispatchByUID(c, orchestrator.OpGetReschedule)
}

func (s *Server) dispatchByUID(c *gin.Context, op orchestrator.Operation) {
	req, ok := s.baseRequest(c, op)
	if !ok {
		return
	}
	req.BookingUID = strings.TrimSpace(c.Param("bookingUid"))
	s.dispatch(c, req, http.StatusOK)
}

func (s *Server) dispatchWithBody(c *gin.Context, op orchestrator.Operation, status int) {
	req, ok := s.baseRequest(c, op)
	if !ok {
		return
	}
	payload, ok := readPayload(c)
	if !ok {
		return
	}
	req.Payload = payload
	req.LocationOverride = strings.TrimSpace(c.Query("bookingLocation"))

	s.dispatch(c, req, status)
}

// baseRequest collects the caller, partner and embed flag shared by every operation.
func (s *Server) baseRequest(c *gin.Context, op orchestrator.Operation) (orchestrator.Request, bool) {
	c.Set(contextOperationKey, op.String())

	isEmbed, err := parseOptionalBool(c.Query("isEmbed"))
	if err != nil {
		AbortWithError(c, newValidationError("isEmbed", "invalid_is_embed", "invalid isEmbed"))
		return orchestrator.Request{}, false
	}

	return orchestrator.Request{
		Operation:  op,
		Credential: credentialFrom(c),
		PartnerID:  partnerIDFrom(c),
		IsEmbed:    isEmbed != nil && *isEmbed,
	}, true
}

func (s *Server) dispatch(c *gin.Context, req orchestrator.Request, status int) {
	resp, cerr := s.dispatcher.Dispatch(c.Request.Context(), req)
	if cerr != nil {
		AbortWithError(c, cerr)
		return
	}
	c.JSON(status, resp)
}

func readPayload(c *gin.Context) (json.RawMessage, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBookingBody+1))
	if err != nil || len(body) > maxBookingBody {
		AbortWithError(c, invalidRequestError())
		return nil, false
	}
	body = bytes.TrimSpace(body)
	if len(body) > 0 && !json.Valid(body) {
		AbortWithError(c, newValidationError("body", "invalid_json", "request body is not valid JSON"))
		return nil, false
	}
	return body, true
}
