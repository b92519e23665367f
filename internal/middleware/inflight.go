package middleware

import (
    "context"
    "net/http"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
)

// Locker hands out short-lived exclusive claims on a key.
type Locker interface {
    // Acquire claims key for at most ttl.  ok is false when the key is
    // already claimed.  release gives the claim back early.
    Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// releaseScript deletes the key only while it still holds our token, so an
// expired claim re-taken by another request is left alone.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// RedisLocker claims keys with SET NX PX.
type RedisLocker struct {
    rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker { return &RedisLocker{rdb: rdb} }

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
    token := uuid.NewString()
    ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
    if err != nil || !ok {
        return func() {}, ok, err
    }
    return func() {
        rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
        defer cancel()
        _ = releaseScript.Run(rctx, l.rdb, []string{key}, token).Err()
    }, true, nil
}

// MemoryLocker is the single-process Locker used without Redis.
type MemoryLocker struct {
    mu   sync.Mutex
    held map[string]time.Time
    now  func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
    return &MemoryLocker{held: map[string]time.Time{}, now: time.Now}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
    l.mu.Lock()
    defer l.mu.Unlock()
    now := l.now()
    if until, ok := l.held[key]; ok && now.Before(until) {
        return func() {}, false, nil
    }
    until := now.Add(ttl)
    l.held[key] = until
    return func() {
        l.mu.Lock()
        if l.held[key] == until {
            delete(l.held, key)
        }
        l.mu.Unlock()
    }, true, nil
}

// Exclusive lets one request named name run at a time per browser.  A
// second one arriving while the first is in flight gets 409.  If the locker
// fails the request runs unguarded.
func Exclusive(l Locker, name string, ttl time.Duration) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := "seatify:inflight:" + name + ":" + currentSessionID(c)
            release, ok, err := l.Acquire(c.Request().Context(), key, ttl)
            if err != nil {
                c.Logger().Warnf("[inflight] %s: %v", key, err)
                return next(c)
            }
            if !ok {
                return c.JSON(http.StatusConflict, echo.Map{"error": "a request is already in progress"})
            }
            defer release()
            return next(c)
        }
    }
}
