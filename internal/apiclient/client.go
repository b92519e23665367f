// Package apiclient is the gateway's single request pipeline to the SEATIFY
// REST API.  It attaches the browser's bearer token to every request and
// reports 401/403 answers to a hook so the caller can tear the session down.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenSource yields the bearer token for outgoing requests.  An empty
// token sends no Authorization header.
type TokenSource interface {
	Token() string
}

// AuthFailureFunc is called once per request answered with 401 or 403.
type AuthFailureFunc func(status int)

// Client talks to the SEATIFY API.  A Client returned by New carries no
// token; use With to bind one browser's session.
type Client struct {
	baseURL       string
	http          *http.Client
	tokens        TokenSource
	onAuthFailure AuthFailureFunc
}

// New returns a client for baseURL.  A zero timeout leaves requests bounded
// only by their context.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// With returns a copy bound to tokens and onAuthFailure.  Either may be nil.
func (c *Client) With(tokens TokenSource, onAuthFailure AuthFailureFunc) *Client {
	cp := *c
	cp.tokens = tokens
	cp.onAuthFailure = onAuthFailure
	return &cp
}

// envelope is the API's standard response wrapper.
type envelope struct {
	Status  json.RawMessage `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// doJSON sends body (when non-nil) as JSON and decodes the response into
// out (when non-nil).  It returns the backend's message text on success.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) (string, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, query, rdr)
	if err != nil {
		return "", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

// upload sends one file as multipart/form-data.  The Content-Type, with its
// boundary, is whatever the multipart writer produced.
func (c *Client) upload(ctx context.Context, path, field, filename string, file io.Reader, out any) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) (string, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s %s: %w", req.Method, req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) && c.onAuthFailure != nil {
			c.onAuthFailure(resp.StatusCode)
		}
		return "", &APIError{Status: resp.StatusCode, Message: messageFrom(raw)}
	}
	return decode(raw, out)
}

// decode unwraps the envelope when present.  Bodies that are not envelopes
// (bare arrays, bare objects without "data") are decoded as-is.
func decode(raw []byte, out any) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}
	var env envelope
	if raw[0] == '{' && json.Unmarshal(raw, &env) == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if out != nil {
			if err := json.Unmarshal(env.Data, out); err != nil {
				return env.Message, fmt.Errorf("decode response data: %w", err)
			}
		}
		return env.Message, nil
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return env.Message, fmt.Errorf("decode response: %w", err)
		}
	}
	return env.Message, nil
}

// messageFrom extracts "message" (or "error") from an error body.
func messageFrom(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
