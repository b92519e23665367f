package middleware

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seatify-gateway/internal/apiclient"
    "github.com/iliyamo/seatify-gateway/internal/auth"
    "github.com/iliyamo/seatify-gateway/internal/guard"
    "github.com/iliyamo/seatify-gateway/internal/notify"
    "github.com/iliyamo/seatify-gateway/internal/session"
    "github.com/iliyamo/seatify-gateway/internal/viewstate"
)

const scopeKey = "seatify.scope"

// ScreenHeader names the SPA screen a request was made from.
const ScreenHeader = "X-Seatify-Screen"

// authScreens are the screens on which an upstream 401/403 is an ordinary
// failed attempt rather than an expired session.
var authScreens = []string{"/login", "/register", "/forgot-password"}

// IsAuthScreen reports whether screen is the login, registration or
// forgot-password page.
func IsAuthScreen(screen string) bool {
    for _, s := range authScreens {
        if screen == s || strings.HasPrefix(screen, s+"/") || strings.HasPrefix(screen, s+"?") {
            return true
        }
    }
    return false
}

// SessionKey is the storage key of the session record of sid.
func SessionKey(sid string) string { return "seatify:session:" + sid }

// Scope is everything one request needs to act for its browser.
type Scope struct {
    SID    string
    Screen string
    Store  *session.Store
    Bridge *session.Bridge
    Notes  *notify.Notifier
    View   *viewstate.State
    API    *apiclient.Client
    Auth   *auth.Service

    // AuthFailure is the status of the last upstream 401/403, 0 if none.
    AuthFailure int
}

// ScopeOf returns the Scope bound by ScopeMiddleware.
func ScopeOf(c echo.Context) *Scope {
    sc, _ := c.Get(scopeKey).(*Scope)
    return sc
}

// ScopeConfig wires ScopeMiddleware.
type ScopeConfig struct {
    Persister session.Persister
    API       *apiclient.Client
    Cookie    CookieConfig
    AdminRole string
}

// ScopeMiddleware restores the browser's session and view-state before the
// handler runs and saves the view-state afterwards.  When the session goes
// from signed-in to anonymous, pending notices are dropped, the cached header
// profile is cleared and the browser's epoch is advanced, so requests that
// were already running can no longer save the state they loaded.
func ScopeMiddleware(cfg ScopeConfig) echo.MiddlewareFunc {
    views := viewstate.NewRepo(cfg.Persister, cfg.Cookie.TTL)
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            ctx := c.Request().Context()
            sid := sessionID(c, cfg.Cookie)

            store := session.NewStore()
            bridge := session.NewBridge(cfg.Persister, SessionKey(sid), cfg.Cookie.TTL)
            if err := bridge.Restore(ctx, store); err != nil {
                c.Logger().Warnf("[scope] restore session %s: %v", sid, err)
            }
            view, fence, err := views.Load(ctx, sid)
            if err != nil {
                c.Logger().Warnf("[scope] load view-state %s: %v", sid, err)
            }
            notes := notify.FromState(view.Notices)

            sc := &Scope{
                SID:    sid,
                Screen: c.Request().Header.Get(ScreenHeader),
                Store:  store,
                Bridge: bridge,
                Notes:  notes,
                View:   &view,
            }
            store.OnTeardown(func() {
                view.Header = nil
                epoch, err := views.Advance(ctx, sid)
                if err != nil {
                    c.Logger().Warnf("[scope] advance epoch %s: %v", sid, err)
                    notes.Reset()
                    return
                }
                fence = epoch
                notes.ResetTo(uint64(epoch))
            })
            sc.API = cfg.API.With(store, func(status int) {
                sc.AuthFailure = status
                if IsAuthScreen(sc.Screen) {
                    return
                }
                store.Clear()
                if err := bridge.Remove(ctx); err != nil {
                    c.Logger().Warnf("[scope] remove session %s: %v", sid, err)
                }
            })
            sc.Auth = &auth.Service{
                API:       sc.API,
                Store:     store,
                Bridge:    bridge,
                Notes:     notes,
                AdminRole: cfg.AdminRole,
            }
            c.Set(scopeKey, sc)

            herr := next(c)

            view.Notices = notes.State()
            saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
            defer cancel()
            saved, err := views.Save(saveCtx, sid, view, fence)
            switch {
            case err != nil:
                c.Logger().Warnf("[scope] save view-state %s: %v", sid, err)
            case !saved:
                c.Logger().Debugf("[scope] view-state %s superseded by a teardown, not saved", sid)
            }
            return herr
        }
    }
}

// RequireSession rejects requests whose browser is not signed in, or is not
// an admin when admin is true.  The body carries the redirect the SPA should
// follow.
func RequireSession(p guard.Policy, admin bool) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            sc := ScopeOf(c)
            if sc == nil {
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session scope missing"})
            }
            from := sc.Screen
            if from == "" {
                from = c.Request().URL.Path
            }
            d := p.Check(sc.Store.Snapshot(), admin, from)
            if d.Allowed {
                return next(c)
            }
            status := http.StatusUnauthorized
            if sc.Store.Authenticated() {
                status = http.StatusForbidden
            }
            return c.JSON(status, echo.Map{"error": http.StatusText(status), "redirect": d.Redirect, "from": d.From})
        }
    }
}
