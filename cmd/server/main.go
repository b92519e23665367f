package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/seatify-gateway/internal/apiclient"
	"github.com/iliyamo/seatify-gateway/internal/config"
	"github.com/iliyamo/seatify-gateway/internal/guard"
	"github.com/iliyamo/seatify-gateway/internal/handler"
	"github.com/iliyamo/seatify-gateway/internal/middleware"
	"github.com/iliyamo/seatify-gateway/internal/router"
	publisher "github.com/iliyamo/seatify-gateway/internal/service"
	"github.com/iliyamo/seatify-gateway/internal/session"
)

func main() {
	cfg := config.Load()

	rdb := config.NewRedisClient()
	var (
		persister session.Persister
		locker    middleware.Locker
	)
	if rdb != nil {
		persister = session.NewRedisPersister(rdb)
		locker = middleware.NewRedisLocker(rdb)
		log.Printf("redis: connected; sessions are shared across gateway instances")
	} else {
		persister = session.NewMemoryPersister()
		locker = middleware.NewMemoryLocker()
		log.Printf("redis: unavailable; using in-memory sessions and no rate limiting")
	}

	api := apiclient.New(cfg.APIBaseURL, cfg.UpstreamTimeout)
	h := handler.New(cfg, guard.DefaultPolicy(cfg.AdminRole), publisher.New(cfg.ActivityEnabled, cfg.RabbitURL))

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.RegisterAll(e, h, handler.Health{Redis: rdb}, router.Deps{
		Scope: middleware.ScopeMiddleware(middleware.ScopeConfig{
			Persister: persister,
			API:       api,
			Cookie: middleware.CookieConfig{
				Name:   cfg.SessionCookie,
				TTL:    cfg.SessionTTL,
				Secure: cfg.CookieSecure,
			},
			AdminRole: cfg.AdminRole,
		}),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Locker:    locker,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, api=%s, redirect=%s)", addr, cfg.Env, cfg.APIBaseURL, cfg.RedirectURI())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
