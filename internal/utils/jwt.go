package utils // package utils provides helpers for reading tokens issued by the SEATIFY API

import (
    "errors" // errors builds the sentinel for opaque tokens
    "time"   // time represents token expiry

    "github.com/golang-jwt/jwt/v5" // JWT library for decoding token claims
)

// ErrOpaqueToken is returned when a bearer token is not a decodable JWT.
// The gateway treats such tokens as valid but carrying no readable claims.
var ErrOpaqueToken = errors.New("token is not a readable JWT")

// TokenClaims holds the claims the gateway cares about.  Email is taken
// from the "email" claim, falling back to "sub" when the subject looks like
// an address.  ExpiresAt is zero when the token has no "exp".
type TokenClaims struct {
    Subject   string
    Email     string
    ExpiresAt time.Time
}

// ReadClaims decodes the payload of a JWT without verifying its signature.
// The gateway never holds the API's signing key; the token is only ever
// forwarded back to the API, which performs the real verification.  Claims
// read here are used for display (email) and for bounding how long the
// session record is kept (exp).
func ReadClaims(raw string) (TokenClaims, error) {
    claims := jwt.MapClaims{}
    if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
        return TokenClaims{}, ErrOpaqueToken
    }
    var out TokenClaims
    if sub, err := claims.GetSubject(); err == nil {
        out.Subject = sub
    }
    if v, ok := claims["email"].(string); ok && v != "" {
        out.Email = v
    } else if looksLikeEmail(out.Subject) {
        out.Email = out.Subject
    }
    if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
        out.ExpiresAt = exp.Time
    }
    return out, nil
}

// TTLFor returns how long a record for this token should be kept: max
// bounded by the token's own expiry when one is present.  A token that has
// already expired yields zero.
func TTLFor(raw string, max time.Duration, now time.Time) time.Duration {
    c, err := ReadClaims(raw)
    if err != nil || c.ExpiresAt.IsZero() {
        return max
    }
    left := c.ExpiresAt.Sub(now)
    if left < 0 {
        return 0
    }
    if left < max {
        return left
    }
    return max
}

func looksLikeEmail(s string) bool {
    at := -1
    for i := 0; i < len(s); i++ {
        if s[i] == '@' {
            if at >= 0 {
                return false
            }
            at = i
        }
    }
    return at > 0 && at < len(s)-1
}
