package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/iliyamo/seatify-gateway/internal/apiclient"
	"github.com/iliyamo/seatify-gateway/internal/model"
	"github.com/iliyamo/seatify-gateway/internal/notify"
)

// RedirectParams are the query parameters the identity provider or the API
// callback delivers to the redirect page.
type RedirectParams struct {
	Error   string
	Message string
	Code    string
	Token   string
	Roles   string
}

// ParseRedirect reads RedirectParams from a query string.
func ParseRedirect(q url.Values) RedirectParams {
	return RedirectParams{
		Error:   q.Get("error"),
		Message: q.Get("message"),
		Code:    q.Get("code"),
		Token:   q.Get("token"),
		Roles:   q.Get("roles"),
	}
}

// Fingerprint identifies one redirect so that a replay can be recognised.
func (p RedirectParams) Fingerprint() string {
	sum := sha256.Sum256([]byte(strings.Join([]string{p.Error, p.Message, p.Code, p.Token, p.Roles}, "\x00")))
	return hex.EncodeToString(sum[:])
}

// SplitRoles parses a comma-separated role list, dropping blanks.
func SplitRoles(s string) []string {
	out := []string{}
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// OAuthRedirect resolves the redirect page.  RedirectURI must be the value
// used when the login URL was requested.
type OAuthRedirect struct {
	Service     *Service
	RedirectURI string
}

// Outcome says where the browser goes next.
type Outcome struct {
	Redirect string
	Adopted  bool
	Replayed bool
}

// Resolve evaluates p once.  handled holds the fingerprint of the last
// redirect already resolved for this browser; when p matches it nothing is
// exchanged or announced again and the browser is only routed by its
// current session.  Resolve updates handled.
func (o *OAuthRedirect) Resolve(ctx context.Context, p RedirectParams, handled *string) Outcome {
	s := o.Service
	fp := p.Fingerprint()
	if handled != nil && *handled == fp {
		if s.Store.Authenticated() {
			return Outcome{Redirect: s.Destination(s.Store.Roles()), Replayed: true}
		}
		return Outcome{Redirect: LoginPath, Replayed: true}
	}
	if handled != nil {
		*handled = fp
	}

	epoch := s.Notes.Epoch()
	fail := func(msg string) Outcome {
		s.Notes.Push(epoch, notify.Error, msg)
		return Outcome{Redirect: LoginPath}
	}

	switch {
	case p.Error != "":
		msg := p.Message
		if msg == "" {
			msg = "Google sign-in failed"
		}
		return fail(msg)

	case p.Code != "":
		res, err := s.API.ExchangeGoogleCode(ctx, p.Code, o.RedirectURI)
		if err == nil && res.Token == "" {
			err = ErrNoToken
		}
		if err != nil {
			return fail(apiclient.MessageOf(err, "Google sign-in failed"))
		}
		email := res.Email
		if email == "" {
			email = claimedEmail(res.Token)
		}
		s.adopt(ctx, model.Session{Token: res.Token, Roles: res.Roles, Email: email})
		s.Notes.Push(s.Notes.Epoch(), notify.Success, "Signed in with Google")
		return Outcome{Redirect: s.Destination(s.Store.Roles()), Adopted: true}

	case p.Token != "" && p.Roles != "":
		roles := SplitRoles(p.Roles)
		s.SetFromOAuth(ctx, p.Token, roles)
		s.Notes.Push(s.Notes.Epoch(), notify.Success, "Signed in with Google")
		return Outcome{Redirect: s.Destination(roles), Adopted: true}
	}
	return fail("Could not read sign-in details from Google")
}
