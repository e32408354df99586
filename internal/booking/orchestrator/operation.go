package orchestrator

import (
	"context"

	"github.com/smallbiznis/bookingrelay/internal/requestcontext"
)

// Operation selects exactly one engine call.
type Operation int

const (
	OpCreate Operation = iota + 1
	OpCreateRecurring
	OpCreateInstant
	OpCancel
	OpMarkNoShow
	OpList
	OpGet
	OpGetReschedule
)

func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpCreateRecurring:
		return "create_recurring"
	case OpCreateInstant:
		return "create_instant"
	case OpCancel:
		return "cancel"
	case OpMarkNoShow:
		return "mark_no_show"
	case OpList:
		return "list"
	case OpGet:
		return "get"
	case OpGetReschedule:
		return "get_reschedule"
	default:
		return "unknown"
	}
}

type runFunc func(o *Orchestrator, ctx context.Context, req Request, rc requestcontext.RequestContext) (any, error)

// handler is one row of the dispatch table.
type handler struct {
	policy   requestcontext.AbsencePolicy
	failure  string
	noResult string
	validate func(req Request) error
	run      runFunc
}

var handlers = map[Operation]handler{
	OpCreate: {
		policy:   requestcontext.UseSentinel,
		failure:  "Error while creating booking.",
		noResult: "Could not create booking.",
		validate: requireObjectPayload,
		run:      (*Orchestrator).create,
	},
	OpCreateRecurring: {
		policy:   requestcontext.UseSentinel,
		failure:  "Error while creating recurring booking.",
		noResult: "Could not create recurring booking.",
		validate: requireArrayPayload,
		run:      (*Orchestrator).createRecurring,
	},
	OpCreateInstant: {
		policy:   requestcontext.UseSentinel,
		failure:  "Error while creating instant booking.",
		noResult: "Could not create instant booking.",
		validate: requireObjectPayload,
		run:      (*Orchestrator).createInstant,
	},
	OpCancel: {
		policy:   requestcontext.UseSentinel,
		failure:  "Error while cancelling booking.",
		noResult: "Could not cancel booking.",
		validate: requireBookingID,
		run:      (*Orchestrator).cancel,
	},
	OpMarkNoShow: {
		policy:   requestcontext.LeaveAbsent,
		failure:  "Error while marking no-show.",
		noResult: "Could not mark no-show.",
		validate: requireBookingUID,
		run:      (*Orchestrator).markNoShow,
	},
	OpList: {
		policy:   requestcontext.LeaveAbsent,
		failure:  "Error while fetching bookings.",
		noResult: "Could not fetch bookings.",
		run:      (*Orchestrator).list,
	},
	OpGet: {
		policy:   requestcontext.LeaveAbsent,
		failure:  "Error while fetching booking.",
		noResult: "Could not fetch booking.",
		validate: requireBookingUID,
		run:      (*Orchestrator).get,
	},
	OpGetReschedule: {
		policy:   requestcontext.LeaveAbsent,
		failure:  "Error while fetching booking.",
		noResult: "Could not fetch booking.",
		validate: requireBookingUID,
		run:      (*Orchestrator).getReschedule,
	},
}
