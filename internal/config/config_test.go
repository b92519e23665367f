package config

import (
    "testing"
    "time"
)

func TestRedirectURI(t *testing.T) {
    cases := []struct {
        base, path, want string
    }{
        {"http://localhost:3000", "/oauth2/redirect", "http://localhost:3000/oauth2/redirect"},
        {"https://seatify.vn", "oauth2/redirect", "https://seatify.vn/oauth2/redirect"},
    }
    for _, tc := range cases {
        c := Config{PublicBaseURL: tc.base, OAuthRedirectPath: tc.path}
        if got := c.RedirectURI(); got != tc.want {
            t.Errorf("RedirectURI(%q, %q) = %q, want %q", tc.base, tc.path, got, tc.want)
        }
    }
}

func TestLoad_Defaults(t *testing.T) {
    t.Setenv("APP_ENV", "test")
    t.Setenv("APP_PORT", "8081")
    t.Setenv("SEATIFY_API_URL", "")
    t.Setenv("PUBLIC_BASE_URL", "")
    t.Setenv("SESSION_TTL", "")

    c := Load()
    if c.APIBaseURL != DefaultAPIBaseURL {
        t.Errorf("APIBaseURL = %q", c.APIBaseURL)
    }
    if c.RedirectURI() != "http://localhost:8081/oauth2/redirect" {
        t.Errorf("RedirectURI = %q", c.RedirectURI())
    }
    if c.SessionTTL != 30*24*time.Hour || c.AuthRedirectDelay != time.Second || c.AdminRole != "ROLE_ADMIN" {
        t.Errorf("config = %+v", c)
    }
}

func TestLoad_TrimsTrailingSlash(t *testing.T) {
    t.Setenv("APP_ENV", "test")
    t.Setenv("APP_PORT", "8081")
    t.Setenv("SEATIFY_API_URL", "http://api.local/api/v1/")
    t.Setenv("PUBLIC_BASE_URL", "https://seatify.vn/")
    c := Load()
    if c.APIBaseURL != "http://api.local/api/v1" || c.PublicBaseURL != "https://seatify.vn" {
        t.Errorf("urls = %q %q", c.APIBaseURL, c.PublicBaseURL)
    }
}

func TestLoadRateLimitConfig(t *testing.T) {
    t.Setenv("AUTH_RATE_LIMIT_CAPACITY", "0")
    t.Setenv("AUTH_RATE_LIMIT_REFILL_INTERVAL", "2s")
    t.Setenv("AUTH_RATE_LIMIT_TTL", "1s")
    c := LoadRateLimitConfig()
    if c.Capacity != 1 {
        t.Errorf("capacity = %d, want clamp to 1", c.Capacity)
    }
    if c.TTL != 10*time.Second {
        t.Errorf("ttl = %s, want 5 refill intervals", c.TTL)
    }
    if c.KeyStrategy != "ip_session_route" || c.Prefix != "seatify:rl" {
        t.Errorf("config = %+v", c)
    }
}

func TestLoadRateLimitConfig_ZeroIntervalIsClamped(t *testing.T) {
    t.Setenv("AUTH_RATE_LIMIT_REFILL_INTERVAL", "0s")
    t.Setenv("AUTH_RATE_LIMIT_REFILL_TOKENS", "0")
    c := LoadRateLimitConfig()
    if c.RefillInterval != time.Second || c.RefillTokens != 1 {
        t.Errorf("refill = %d per %s, want 1 per 1s", c.RefillTokens, c.RefillInterval)
    }
}

func TestRabbitURL(t *testing.T) {
    t.Setenv("RABBITMQ_URL", "")
    t.Setenv("AMQP_URL", "amqp://b/")
    if got := RabbitURL(); got != "amqp://b/" {
        t.Errorf("RabbitURL = %q", got)
    }
    t.Setenv("RABBITMQ_URL", "amqp://a/")
    if got := RabbitURL(); got != "amqp://a/" {
        t.Errorf("RabbitURL = %q", got)
    }
}
