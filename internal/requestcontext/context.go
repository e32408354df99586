// Package requestcontext builds the per-request value handed to the booking engine.
package requestcontext

import (
	"bytes"
	"encoding/json"

	partnerdomain "github.com/smallbiznis/bookingrelay/internal/partner/domain"
)

// UnknownPrincipalID stands in for an unresolved caller on operations that
// require a principal.
const UnknownPrincipalID int64 = -1

// Principal is the identity a request is attributed to. The zero value is absent.
type Principal struct {
	id    int64
	known bool
}

func PrincipalOf(id *int64) Principal {
	if id == nil {
		return Principal{}
	}
	return Principal{id: *id, known: true}
}

// ID returns the principal id and whether one is present.
func (p Principal) ID() (int64, bool) {
	return p.id, p.known
}

// Ptr returns the id as a pointer, nil when absent.
func (p Principal) Ptr() *int64 {
	if !p.known {
		return nil
	}
	id := p.id
	return &id
}

// RequestContext is built once per request by Assembler and never modified.
type RequestContext struct {
	payload         json.RawMessage
	principal       Principal
	partner         partnerdomain.PartnerConfig
	suppressEmail   bool
	orgSlug         string
	bookingLocation string
	embedded        bool
	requestID       string
}

// Payload returns a copy of the request body.
func (rc RequestContext) Payload() json.RawMessage {
	return bytes.Clone(rc.payload)
}

func (rc RequestContext) Principal() Principal { return rc.principal }

func (rc RequestContext) Partner() partnerdomain.PartnerConfig { return rc.partner }

// SuppressEmail is always the negation of the partner's emails flag.
func (rc RequestContext) SuppressEmail() bool { return rc.suppressEmail }

// OrgSlugOverride is the organization slug copied from the payload, sent as a header.
func (rc RequestContext) OrgSlugOverride() string { return rc.orgSlug }

func (rc RequestContext) BookingLocation() string { return rc.bookingLocation }

func (rc RequestContext) Embedded() bool { return rc.embedded }

func (rc RequestContext) RequestID() string { return rc.requestID }

// WithPayload returns a copy of rc carrying payload.
func (rc RequestContext) WithPayload(payload json.RawMessage) RequestContext {
	rc.payload = bytes.Clone(payload)
	return rc
}
