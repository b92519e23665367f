package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
)

// Health reports liveness and which session store is in use.  With Redis
// configured but unreachable it answers 503; without Redis the gateway runs
// on in-memory state and reports "memory".
type Health struct {
    Redis *redis.Client
}

func (h Health) Check(c echo.Context) error {
    if h.Redis == nil {
        return c.JSON(http.StatusOK, echo.Map{"status": "ok", "store": "memory"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
    defer cancel()
    if err := h.Redis.Ping(ctx).Err(); err != nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "store": "redis", "error": err.Error()})
    }
    return c.JSON(http.StatusOK, echo.Map{"status": "ok", "store": "redis"})
}
