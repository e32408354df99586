// Package admin implements the operator commands that provision credentials
// and partners for the gateway.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	apikeydomain "github.com/smallbiznis/bookingrelay/internal/apikey/domain"
	"github.com/smallbiznis/bookingrelay/internal/auth/oauth2provider"
	partnerdomain "github.com/smallbiznis/bookingrelay/internal/partner/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrUnknownCommand = errors.New("unknown_command")

type KeyIssuer interface {
	Create(ctx context.Context, req apikeydomain.CreateRequest) (*apikeydomain.SecretResponse, error)
	Revoke(ctx context.Context, keyID string) error
}

type TokenIssuer interface {
	Issue(ctx context.Context, ownerID int64, clientID string, scopes ...string) (*oauth2provider.TokenResponse, error)
	Revoke(ctx context.Context, accessToken string) error
}

type PartnerRegistrar interface {
	Register(ctx context.Context, req partnerdomain.RegisterRequest) (*partnerdomain.Partner, error)
}

type Params struct {
	fx.In

	Keys     KeyIssuer
	Tokens   TokenIssuer
	Partners PartnerRegistrar
	Log      *zap.Logger
}

type Runner struct {
	keys     KeyIssuer
	tokens   TokenIssuer
	partners PartnerRegistrar
	log      *zap.Logger
}

func NewRunner(p Params) *Runner {
	return &Runner{
		keys:     p.Keys,
		tokens:   p.Tokens,
		partners: p.Partners,
		log:      p.Log.Named("admin.runner"),
	}
}

// Usage lists the supported commands.
const Usage = `usage: bookingrelay-admin <command> [flags]

commands:
  issue-key         -owner <id> -name <name> [-scopes a,b] [-ttl 720h]
  revoke-key        -key-id <id>
  issue-token       -owner <id> -client <client id> [-scopes a,b]
  revoke-token      -token <access token>
  register-partner  -id <id> -name <name> [-cancel-url u] [-reschedule-url u]
                    [-booking-url u] [-emails] [-location l]
`

// Run executes one command and writes its JSON result to out.
func (r *Runner) Run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return ErrUnknownCommand
	}

	var (
		result any
		err    error
	)
	switch args[0] {
	case "issue-key":
		result, err = r.issueKey(ctx, args[1:])
	case "revoke-key":
		result, err = r.revokeKey(ctx, args[1:])
	case "issue-token":
		result, err = r.issueToken(ctx, args[1:])
	case "revoke-token":
		result, err = r.revokeToken(ctx, args[1:])
	case "register-partner":
		result, err = r.registerPartner(ctx, args[1:])
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	if err != nil {
		r.log.Error("command failed", zap.String("command", args[0]), zap.Error(err))
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func (r *Runner) issueKey(ctx context.Context, args []string) (any, error) {
	fs := newFlagSet("issue-key")
	owner := fs.Int64("owner", 0, "owner user id")
	name := fs.String("name", "", "key name")
	scopes := fs.String("scopes", apikeydomain.ScopeBookingsWrite, "comma separated scopes")
	ttl := fs.Duration("ttl", 0, "key lifetime, zero for no expiry")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	req := apikeydomain.CreateRequest{
		OwnerID: *owner,
		Name:    *name,
		Scopes:  splitCSV(*scopes),
	}
	if *ttl > 0 {
		expires := time.Now().UTC().Add(*ttl)
		req.ExpiresAt = &expires
	}
	return r.keys.Create(ctx, req)
}

func (r *Runner) revokeKey(ctx context.Context, args []string) (any, error) {
	fs := newFlagSet("revoke-key")
	keyID := fs.String("key-id", "", "key id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := r.keys.Revoke(ctx, *keyID); err != nil {
		return nil, err
	}
	return map[string]string{"key_id": *keyID, "status": "revoked"}, nil
}

func (r *Runner) issueToken(ctx context.Context, args []string) (any, error) {
	fs := newFlagSet("issue-token")
	owner := fs.Int64("owner", 0, "owner user id")
	client := fs.String("client", "", "partner client id")
	scopes := fs.String("scopes", "", "comma separated scopes")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return r.tokens.Issue(ctx, *owner, *client, splitCSV(*scopes)...)
}

func (r *Runner) revokeToken(ctx context.Context, args []string) (any, error) {
	fs := newFlagSet("revoke-token")
	token := fs.String("token", "", "access token")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := r.tokens.Revoke(ctx, *token); err != nil {
		return nil, err
	}
	return map[string]string{"status": "revoked"}, nil
}

func (r *Runner) registerPartner(ctx context.Context, args []string) (any, error) {
	fs := newFlagSet("register-partner")
	id := fs.String("id", "", "partner client id")
	name := fs.String("name", "", "partner name")
	cancelURL := fs.String("cancel-url", "", "cancel redirect url")
	rescheduleURL := fs.String("reschedule-url", "", "reschedule redirect url")
	bookingURL := fs.String("booking-url", "", "booking redirect url")
	emails := fs.Bool("emails", false, "send booking emails")
	location := fs.String("location", "", "default booking location")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	req := partnerdomain.RegisterRequest{
		ID:                     *id,
		Name:                   *name,
		CancelRedirectURL:      optional(*cancelURL),
		RescheduleRedirectURL:  optional(*rescheduleURL),
		BookingRedirectURL:     optional(*bookingURL),
		DefaultBookingLocation: optional(*location),
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "emails" {
			req.EmailsEnabled = emails
		}
	})
	return r.partners.Register(ctx, req)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
