package config

// Redis holds the per-browser session records, the screen view-state, the
// in-flight request guards and the auth rate-limit buckets.  When the server
// cannot be reached at startup NewRedisClient returns nil and the gateway
// falls back to in-process memory: sessions then survive reloads but not a
// gateway restart, and rate limiting is disabled.

import (
    "context"
    "crypto/tls"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig describes how to reach Redis.
type RedisConfig struct {
    Addr     string
    Password string
    DB       int
    TLS      bool
}

// LoadRedisConfig reads REDIS_ADDR, or REDIS_HOST and REDIS_PORT (which take
// precedence when both are set), REDIS_PASSWORD, REDIS_DB and REDIS_TLS.
func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
        addr = host + ":" + port
    }
    db := 0
    if n, err := strconv.Atoi(envStr("REDIS_DB", "0")); err == nil {
        db = n
    }
    tlsEnv := envStr("REDIS_TLS", "")
    return RedisConfig{
        Addr:     addr,
        Password: envStr("REDIS_PASSWORD", ""),
        DB:       db,
        TLS:      strings.EqualFold(tlsEnv, "true") || tlsEnv == "1",
    }
}

// NewRedisClient connects using LoadRedisConfig.  The returned client is nil
// if the server does not answer a ping within two seconds.
func NewRedisClient() *redis.Client {
    rc := LoadRedisConfig()
    var tlsConf *tls.Config
    if rc.TLS {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      rc.Addr,
        Password:  rc.Password,
        DB:        rc.DB,
        TLSConfig: tlsConf,
    })
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
