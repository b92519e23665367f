package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/iliyamo/seatify-gateway/internal/model"
)

// Login exchanges email and password for a token.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.AuthResult, error) {
	var out model.AuthResult
	_, err := c.doJSON(ctx, http.MethodPost, "/auth/login", nil, creds, &out)
	return out, err
}

// Register creates an account.  The API may or may not sign the user in;
// a zero Token in the result means it did not.
func (c *Client) Register(ctx context.Context, reg model.Registration) (model.AuthResult, string, error) {
	var out model.AuthResult
	msg, err := c.doJSON(ctx, http.MethodPost, "/auth/register", nil, reg, &out)
	return out, msg, err
}

// ForgotPassword asks the API to email an OTP.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	return c.doJSON(ctx, http.MethodPost, "/auth/forgot-password", nil, map[string]string{"email": email}, nil)
}

// ResetPassword completes the OTP flow.
func (c *Client) ResetPassword(ctx context.Context, r model.PasswordReset) (string, error) {
	return c.doJSON(ctx, http.MethodPost, "/auth/reset-password", nil, r, nil)
}

// GoogleLoginURL returns the identity-provider URL to send the browser to.
// redirectURI must be the value later passed to ExchangeGoogleCode.
func (c *Client) GoogleLoginURL(ctx context.Context, redirectURI string) (string, error) {
	var raw json.RawMessage
	q := url.Values{"redirectUri": {redirectURI}}
	if _, err := c.doJSON(ctx, http.MethodGet, "/auth/google/login-url", q, nil, &raw); err != nil {
		return "", err
	}
	// the URL arrives either as a bare string or as {"url": "..."}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s, nil
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("decode login url: %w", err)
	}
	return obj.URL, nil
}

// ExchangeGoogleCode trades an authorization code for a session token.
func (c *Client) ExchangeGoogleCode(ctx context.Context, code, redirectURI string) (model.AuthResult, error) {
	var out model.AuthResult
	body := map[string]string{"code": code, "redirectUri": redirectURI}
	_, err := c.doJSON(ctx, http.MethodPost, "/auth/google/exchange", nil, body, &out)
	return out, err
}
