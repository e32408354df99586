package requestcontext

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/smallbiznis/bookingrelay/internal/config"
	obscontext "github.com/smallbiznis/bookingrelay/internal/observability/context"
	partnerdomain "github.com/smallbiznis/bookingrelay/internal/partner/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCredentials struct {
	mock.Mock
}

func (m *mockCredentials) ResolveOwner(ctx context.Context, credential, keyPrefix string) *int64 {
	args := m.Called(ctx, credential, keyPrefix)
	owner, _ := args.Get(0).(*int64)
	return owner
}

type mockPartners struct {
	mock.Mock
}

func (m *mockPartners) ResolvePartnerConfig(ctx context.Context, partnerID string) partnerdomain.PartnerConfig {
	args := m.Called(ctx, partnerID)
	return args.Get(0).(partnerdomain.PartnerConfig)
}

func int64Ptr(v int64) *int64 { return &v }

func newAssembler(gw config.GatewayConfig) (*Assembler, *mockCredentials, *mockPartners) {
	creds := &mockCredentials{}
	partners := &mockPartners{}
	return NewAssembler(Params{
		Credentials: creds,
		Partners:    partners,
		Gateway:     config.NewStaticGatewayConfigHolder(gw),
		Log:         zap.NewNop(),
	}), creds, partners
}

var defaultGateway = config.GatewayConfig{APIKeyPrefix: "cal_", BillingEnabled: true, EmbedSuppressRedirects: true}

func TestAssembleResolvesPrincipalAndPartner(t *testing.T) {
	a, creds, partners := newAssembler(defaultGateway)
	creds.On("ResolveOwner", mock.Anything, "Bearer cal_x", "cal_").Return(int64Ptr(7)).Once()
	partners.On("ResolvePartnerConfig", mock.Anything, "client-1").Return(partnerdomain.PartnerConfig{
		PartnerID:          "client-1",
		BookingRedirectURL: "https://p.test/done",
		EmailsEnabled:      true,
	}).Once()

	ctx := obscontext.WithRequestID(context.Background(), "req-9")
	rc := a.Assemble(ctx, Input{
		Payload:    json.RawMessage(`{"start":"2026-01-01T10:00:00Z","orgSlug":" acme "}`),
		Credential: "Bearer cal_x",
		PartnerID:  "client-1",
	})

	id, ok := rc.Principal().ID()
	require.True(t, ok)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, "client-1", rc.Partner().PartnerID)
	assert.False(t, rc.SuppressEmail())
	assert.Equal(t, " acme ", rc.OrgSlugOverride())
	assert.Equal(t, "req-9", rc.RequestID())
	creds.AssertExpectations(t)
	partners.AssertExpectations(t)
}

func TestAssembleAbsencePolicies(t *testing.T) {
	a, creds, _ := newAssembler(defaultGateway)
	creds.On("ResolveOwner", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	rc := a.Assemble(context.Background(), Input{Policy: LeaveAbsent})
	_, ok := rc.Principal().ID()
	assert.False(t, ok)
	assert.Nil(t, rc.Principal().Ptr())

	rc = a.Assemble(context.Background(), Input{Policy: UseSentinel})
	id, ok := rc.Principal().ID()
	assert.True(t, ok)
	assert.Equal(t, UnknownPrincipalID, id)
}

func TestAssembleSkipsPartnerLookupWithoutID(t *testing.T) {
	a, creds, partners := newAssembler(defaultGateway)
	creds.On("ResolveOwner", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	rc := a.Assemble(context.Background(), Input{PartnerID: "  "})
	assert.Equal(t, partnerdomain.DefaultPartnerConfig(), rc.Partner())
	assert.True(t, rc.SuppressEmail())
	partners.AssertNotCalled(t, "ResolvePartnerConfig", mock.Anything, mock.Anything)
}

func TestAssembleSuppressEmailNegatesEmailsEnabled(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		a, creds, partners := newAssembler(defaultGateway)
		creds.On("ResolveOwner", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		partners.On("ResolvePartnerConfig", mock.Anything, "p").Return(partnerdomain.PartnerConfig{PartnerID: "p", EmailsEnabled: enabled})

		rc := a.Assemble(context.Background(), Input{PartnerID: "p"})
		assert.Equal(t, !enabled, rc.SuppressEmail())
	}
}

func TestAssembleEmbedBlanksRedirects(t *testing.T) {
	cfg := partnerdomain.PartnerConfig{
		PartnerID:             "p",
		CancelRedirectURL:     "https://p.test/c",
		RescheduleRedirectURL: "https://p.test/r",
		BookingRedirectURL:    "https://p.test/b",
		EmailsEnabled:         true,
	}

	a, creds, partners := newAssembler(defaultGateway)
	creds.On("ResolveOwner", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	partners.On("ResolvePartnerConfig", mock.Anything, "p").Return(cfg)

	rc := a.Assemble(context.Background(), Input{PartnerID: "p", IsEmbed: true})
	assert.Empty(t, rc.Partner().BookingRedirectURL)
	assert.Empty(t, rc.Partner().CancelRedirectURL)
	assert.True(t, rc.Embedded())
	assert.False(t, rc.SuppressEmail())

	disabled := defaultGateway
	disabled.EmbedSuppressRedirects = false
	a, creds, partners = newAssembler(disabled)
	creds.On("ResolveOwner", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	partners.On("ResolvePartnerConfig", mock.Anything, "p").Return(cfg)

	rc = a.Assemble(context.Background(), Input{PartnerID: "p", IsEmbed: true})
	assert.Equal(t, "https://p.test/b", rc.Partner().BookingRedirectURL)
}

func TestAssembleLocationOverrideWinsOverPartnerDefault(t *testing.T) {
	a, creds, partners := newAssembler(defaultGateway)
	creds.On("ResolveOwner", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	partners.On("ResolvePartnerConfig", mock.Anything, "p").Return(partnerdomain.PartnerConfig{PartnerID: "p", DefaultLocation: "https://meet.p.test"})

	rc := a.Assemble(context.Background(), Input{PartnerID: "p"})
	assert.Equal(t, "https://meet.p.test", rc.BookingLocation())

	rc = a.Assemble(context.Background(), Input{PartnerID: "p", LocationOverride: "integrations:zoom"})
	assert.Equal(t, "integrations:zoom", rc.BookingLocation())
}

func TestAssembleOrgSlugFromArrayPayload(t *testing.T) {
	a, creds, _ := newAssembler(defaultGateway)
	creds.On("ResolveOwner", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	rc := a.Assemble(context.Background(), Input{Payload: json.RawMessage(`[{"orgSlug":"team"},{"orgSlug":"other"}]`)})
	assert.Equal(t, "team", rc.OrgSlugOverride())

	rc = a.Assemble(context.Background(), Input{Payload: json.RawMessage(`not json`)})
	assert.Empty(t, rc.OrgSlugOverride())
}

func TestRequestContextPayloadIsCopied(t *testing.T) {
	a, creds, _ := newAssembler(defaultGateway)
	creds.On("ResolveOwner", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	body := json.RawMessage(`{"a":1}`)
	rc := a.Assemble(context.Background(), Input{Payload: body})
	body[2] = 'b'

	got := rc.Payload()
	assert.JSONEq(t, `{"a":1}`, string(got))
	got[2] = 'c'
	assert.JSONEq(t, `{"a":1}`, string(rc.Payload()))
}
