package handler // handler defines the gateway's HTTP handlers

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seatify-gateway/internal/apiclient"
    "github.com/iliyamo/seatify-gateway/internal/config"
    "github.com/iliyamo/seatify-gateway/internal/guard"
    "github.com/iliyamo/seatify-gateway/internal/middleware"
    "github.com/iliyamo/seatify-gateway/internal/model"
    "github.com/iliyamo/seatify-gateway/internal/queue"
    publisher "github.com/iliyamo/seatify-gateway/internal/service"
    "github.com/iliyamo/seatify-gateway/internal/utils"
)

// Handler bundles what every browser-facing endpoint needs.  Per-browser
// state comes from middleware.ScopeOf.
type Handler struct {
    Cfg      config.Config
    Policy   guard.Policy
    Activity publisher.Publisher
}

// New returns a Handler.  A nil publisher drops activity events.
func New(cfg config.Config, policy guard.Policy, pub publisher.Publisher) *Handler {
    if pub == nil {
        pub = publisher.Noop{}
    }
    return &Handler{Cfg: cfg, Policy: policy, Activity: pub}
}

// sessionView is the session as the SPA sees it.  The bearer token stays in
// the gateway.
type sessionView struct {
    Authenticated bool     `json:"authenticated"`
    Email         string   `json:"email"`
    Roles         []string `json:"roles"`
    Admin         bool     `json:"admin"`
    Timestamp     int64    `json:"timestamp,omitempty"`
}

func (h *Handler) viewOf(s model.Session) sessionView {
    v := sessionView{
        Authenticated: s.Authenticated(),
        Email:         s.Email,
        Roles:         s.Roles,
        Admin:         s.HasRole(h.Cfg.AdminRole),
    }
    if v.Roles == nil {
        v.Roles = []string{}
    }
    if v.Authenticated {
        v.Timestamp = s.Timestamp.UnixMilli()
    }
    return v
}

// upstream returns a context bounded by the upstream timeout.  It derives
// from the request, so a browser that goes away cancels the call.
func (h *Handler) upstream(c echo.Context) (context.Context, context.CancelFunc) {
    d := h.Cfg.UpstreamTimeout
    if d <= 0 {
        d = 15 * time.Second
    }
    return context.WithTimeout(c.Request().Context(), d)
}

// fail answers a failed operation.  Validation errors are 400 with the
// offending fields.  Upstream 401/403 keep their status and, unless the
// request came from an auth screen, tell the SPA to go to the login page
// after the configured delay.  Other upstream statuses pass through;
// unreachable upstreams are 502.
func (h *Handler) fail(c echo.Context, err error, fallback string) error {
    var ve *utils.ValidationError
    if errors.As(err, &ve) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Message, "fields": ve.Fields})
    }
    if errors.Is(err, context.Canceled) && c.Request().Context().Err() != nil {
        c.Logger().Debugf("request cancelled by client: %v", err)
        return nil
    }
    msg := apiclient.MessageOf(err, fallback)
    status := apiclient.StatusOf(err)
    if errors.Is(err, context.DeadlineExceeded) {
        status = http.StatusGatewayTimeout
    }
    if apiclient.IsAuthFailure(err) {
        body := echo.Map{"error": msg}
        sc := middleware.ScopeOf(c)
        if sc == nil || !middleware.IsAuthScreen(sc.Screen) {
            // The teardown dropped notices queued under the old epoch.
            if sc != nil {
                sc.Notes.PushError(msg)
            }
            body["redirect"] = "/login"
            body["delayMs"] = h.Cfg.AuthRedirectDelay.Milliseconds()
        }
        return c.JSON(status, body)
    }
    if status < 400 {
        status = http.StatusBadGateway
    }
    if status >= 500 {
        c.Logger().Errorf("upstream: %v", err)
    }
    return c.JSON(status, echo.Map{"error": msg})
}

// publish records ev in the background.  Failures are logged by the
// publisher and never change the response.
func (h *Handler) publish(c echo.Context, ev queue.ActivityEvent) {
    if sc := middleware.ScopeOf(c); sc != nil {
        ev.SessionID = sc.SID
        if ev.Email == "" {
            ev.Email = sc.Store.Email()
        }
    }
    ev.At = time.Now().UTC()
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = h.Activity.PublishActivity(ctx, ev)
    }()
}

// Session returns the browser's current session.
func (h *Handler) Session(c echo.Context) error {
    sc := middleware.ScopeOf(c)
    return c.JSON(http.StatusOK, echo.Map{
        "session":   h.viewOf(sc.Store.Snapshot()),
        "resetStep": sc.View.Reset.CurrentStep(),
    })
}

// AdminSession is the admin shell's view of the session.
func (h *Handler) AdminSession(c echo.Context) error {
    sc := middleware.ScopeOf(c)
    return c.JSON(http.StatusOK, echo.Map{"session": h.viewOf(sc.Store.Snapshot())})
}

// Notifications drains the browser's pending notices.
func (h *Handler) Notifications(c echo.Context) error {
    sc := middleware.ScopeOf(c)
    return c.JSON(http.StatusOK, echo.Map{"notices": sc.Notes.Drain()})
}

// Guard answers whether the SPA may open ?path=.
func (h *Handler) Guard(c echo.Context) error {
    target := c.QueryParam("path")
    if target == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "path is required"})
    }
    sc := middleware.ScopeOf(c)
    return c.JSON(http.StatusOK, h.Policy.Decide(sc.Store.Snapshot(), target))
}
