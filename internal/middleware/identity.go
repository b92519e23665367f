package middleware

// identity.go reads and mints the opaque session-id cookie that ties a
// browser to its session and view-state records.

import (
    "net/http"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
)

// CookieConfig describes the session-id cookie.
type CookieConfig struct {
    Name   string
    TTL    time.Duration
    Secure bool
}

// sessionID returns the browser's session id, minting and setting a new
// cookie when the request carries none or an invalid one.
func sessionID(c echo.Context, cfg CookieConfig) string {
    if ck, err := c.Cookie(cfg.Name); err == nil {
        if id, err := uuid.Parse(ck.Value); err == nil {
            return id.String()
        }
    }
    id := uuid.NewString()
    c.SetCookie(&http.Cookie{
        Name:     cfg.Name,
        Value:    id,
        Path:     "/",
        MaxAge:   int(cfg.TTL / time.Second),
        HttpOnly: true,
        Secure:   cfg.Secure,
        SameSite: http.SameSiteLaxMode,
    })
    return id
}

// currentSessionID returns the id bound by Scope, or "anon" outside it.
func currentSessionID(c echo.Context) string {
    if sc, ok := c.Get(scopeKey).(*Scope); ok && sc.SID != "" {
        return sc.SID
    }
    return "anon"
}
