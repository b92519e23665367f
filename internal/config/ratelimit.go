package config

import (
    "os"
    "strconv"
    "time"
)

// RateLimitConfig tunes the token bucket placed in front of the login,
// registration and OTP endpoints.  Capacity tokens are available per key;
// RefillTokens are added back every RefillInterval.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string // ip | session | ip_session | ip_route | session_route | ip_session_route
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig reads AUTH_RATE_LIMIT_* variables.  Auth endpoints are
// cheap to abuse, so the defaults are tighter than a general API limit.
func LoadRateLimitConfig() RateLimitConfig {
    def := RateLimitConfig{
        Enabled:        envBool("AUTH_RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("AUTH_RATE_LIMIT_CAPACITY", 10),
        RefillTokens:   envInt("AUTH_RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("AUTH_RATE_LIMIT_REFILL_INTERVAL", 6*time.Second),
        TTL:            envDur("AUTH_RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("AUTH_RATE_LIMIT_KEY_STRATEGY", "ip_session_route"),
        Prefix:         envStr("AUTH_RATE_LIMIT_PREFIX", "seatify:rl"),
        Debug:          envBool("AUTH_RATE_LIMIT_DEBUG", false),
    }
    if def.Capacity < 1 { def.Capacity = 1 }
    if def.RefillTokens < 1 { def.RefillTokens = 1 }
    if def.RefillInterval <= 0 { def.RefillInterval = time.Second }
    minTTL := 5 * def.RefillInterval
    if def.TTL < minTTL { def.TTL = minTTL }
    return def
}

func envStr(k, d string) string { if v := os.Getenv(k); v != "" { return v }; return d }
func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" { return d }
    switch v {
    case "1","true","TRUE","True","yes","YES","on","ON": return true
    case "0","false","FALSE","False","no","NO","off","OFF": return false
    }
    return d
}
func envInt(k string, d int) int {
    v := os.Getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}
func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k); if v == "" { return d }
    if dur, err := time.ParseDuration(v); err == nil { return dur }
    return d
}
