package middleware

import (
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/seatify-gateway/internal/config"
)

// bucketScript refills and takes one token atomically.  It returns
// {allowed, remaining, retry_after_ms}.
var bucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl = tonumber(ARGV[5])

    local st = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(st[1])
    local last = tonumber(st[2])
    if tokens == nil or last == nil then
        tokens = capacity
        last = now_ms
    end

    if interval_ms > 0 and refill > 0 then
        local steps = math.floor(math.max(0, now_ms - last) / interval_ms)
        if steps > 0 then
            tokens = math.min(capacity, tokens + steps * refill)
            last = last + steps * interval_ms
        end
    end

    local allowed = 0
    local retry = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        retry = math.max(0, interval_ms - (now_ms - last))
    end

    redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last)
    redis.call('EXPIRE', key, ttl)
    return { allowed, tokens, retry }
`)

// NewTokenBucket limits the login, registration and OTP endpoints.  With
// limiting disabled or no Redis it passes every request through; a Redis
// error also lets the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg, c)
            vals, err := bucketScript.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL/time.Second),
            ).Slice()
            if err != nil || len(vals) != 3 {
                if cfg.Debug {
                    c.Logger().Warnf("[ratelimit] key=%s result=%v err=%v", key, vals, err)
                }
                return next(c)
            }

            allowed := fmt.Sprint(vals[0]) == "1"
            remaining := asInt64(vals[1])
            retryMs := asInt64(vals[2])

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
            if allowed {
                return next(c)
            }

            secs := int(math.Ceil(float64(retryMs) / 1000.0))
            h.Set("Retry-After", strconv.Itoa(secs))
            if cfg.Debug {
                c.Logger().Infof("[ratelimit] block key=%s retry=%dms", key, retryMs)
            }
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "too many attempts, please wait and try again",
                "retry_after": secs,
            })
        }
    }
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int:
        return int64(t)
    case float64:
        return int64(t)
    case string:
        n, _ := strconv.ParseInt(t, 10, 64)
        return n
    }
    return 0
}

// rateKey builds the bucket key from cfg.KeyStrategy.  Unknown strategies
// fall back to ip_session_route.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    sid := currentSessionID(c)
    route := c.Request().Method + " " + c.Path()

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "session":
        parts = append(parts, "sid", sid)
    case "ip_session":
        parts = append(parts, "ip", ip, "sid", sid)
    case "ip_route":
        parts = append(parts, "ip", ip, "route", route)
    case "session_route":
        parts = append(parts, "sid", sid, "route", route)
    default:
        parts = append(parts, "ip", ip, "sid", sid, "route", route)
    }
    return strings.Join(parts, ":")
}
