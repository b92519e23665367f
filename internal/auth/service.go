// Package auth implements the sign-in flows: password login, registration,
// logout, the forgot-password OTP flow and the Google OAuth redirect.
package auth

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/seatify-gateway/internal/apiclient"
	"github.com/iliyamo/seatify-gateway/internal/model"
	"github.com/iliyamo/seatify-gateway/internal/notify"
	"github.com/iliyamo/seatify-gateway/internal/session"
	"github.com/iliyamo/seatify-gateway/internal/utils"
)

// ErrNoToken is returned when the API reports success without a token.
var ErrNoToken = errors.New("auth: response carried no token")

const (
	AdminDashboardPath = "/admin/dashboard"
	HomePath           = "/"
	LoginPath          = "/login"
)

// Backend is the slice of the SEATIFY API the auth flows need.
type Backend interface {
	Login(ctx context.Context, creds model.Credentials) (model.AuthResult, error)
	Register(ctx context.Context, reg model.Registration) (model.AuthResult, string, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, r model.PasswordReset) (string, error)
	ExchangeGoogleCode(ctx context.Context, code, redirectURI string) (model.AuthResult, error)
}

// Service runs the flows for one browser.  Every writer updates the Store
// first and then the persisted record; a failure between the two leaves the
// record stale, which the next Restore treats as no session or as the old one.
type Service struct {
	API       Backend
	Store     *session.Store
	Bridge    *session.Bridge
	Notes     *notify.Notifier
	AdminRole string
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Restore loads the persisted session into the store.
func (s *Service) Restore(ctx context.Context) error { return s.Bridge.Restore(ctx, s.Store) }

// Login signs in with email and password.  On failure the session is left
// as it was and the reason is queued as an error notice.
func (s *Service) Login(ctx context.Context, creds model.Credentials) error {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := utils.Validate(creds); err != nil {
		s.Notes.PushError(err.Error())
		return err
	}
	epoch := s.Notes.Epoch()
	res, err := s.API.Login(ctx, creds)
	if err == nil && res.Token == "" {
		err = ErrNoToken
	}
	if err != nil {
		s.Notes.Push(epoch, notify.Error, apiclient.MessageOf(err, "Login failed"))
		return err
	}
	email := res.Email
	if email == "" {
		email = creds.Email
	}
	s.adopt(ctx, model.Session{Token: res.Token, Roles: res.Roles, Email: email})
	s.Notes.Push(s.Notes.Epoch(), notify.Success, "Login successful")
	return nil
}

// Register creates an account.  When the API signs the new user in, the
// session is adopted exactly as after Login.
func (s *Service) Register(ctx context.Context, reg model.Registration) error {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.FullName = strings.TrimSpace(reg.FullName)
	reg.Phone = strings.TrimSpace(reg.Phone)
	if err := utils.Validate(reg); err != nil {
		s.Notes.PushError(err.Error())
		return err
	}
	epoch := s.Notes.Epoch()
	res, msg, err := s.API.Register(ctx, reg)
	if err != nil {
		s.Notes.Push(epoch, notify.Error, apiclient.MessageOf(err, "Registration failed"))
		return err
	}
	if res.Token != "" {
		email := res.Email
		if email == "" {
			email = reg.Email
		}
		s.adopt(ctx, model.Session{Token: res.Token, Roles: res.Roles, Email: email})
		epoch = s.Notes.Epoch()
	}
	if msg == "" {
		msg = "Registration successful"
	}
	s.Notes.Push(epoch, notify.Success, msg)
	return nil
}

// Logout clears the session, deletes the persisted record and drops any
// notices belonging to the old session.
func (s *Service) Logout(ctx context.Context) error {
	s.Store.Clear()
	s.Notes.Reset()
	return s.Bridge.Remove(ctx)
}

// SetFromOAuth adopts a token delivered directly by the OAuth callback.
// The email is read from the token's claims when it is a JWT.
func (s *Service) SetFromOAuth(ctx context.Context, token string, roles []string) {
	s.adopt(ctx, model.Session{Token: token, Roles: roles, Email: claimedEmail(token)})
}

func claimedEmail(token string) string {
	if c, err := utils.ReadClaims(token); err == nil {
		return c.Email
	}
	return ""
}

// Destination is where a freshly signed-in user lands.
func (s *Service) Destination(roles []string) string {
	for _, r := range roles {
		if r == s.AdminRole {
			return AdminDashboardPath
		}
	}
	return HomePath
}

func (s *Service) adopt(ctx context.Context, next model.Session) {
	if next.Roles == nil {
		next.Roles = []string{}
	}
	next.Timestamp = s.now()
	s.Store.Set(next)
	if err := s.Bridge.Write(ctx, s.Store.Snapshot()); err != nil {
		log.Printf("auth: persist session %s: %v", s.Bridge.Key(), err)
	}
}
