package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seatify-gateway/internal/auth"
    "github.com/iliyamo/seatify-gateway/internal/middleware"
    "github.com/iliyamo/seatify-gateway/internal/model"
    "github.com/iliyamo/seatify-gateway/internal/queue"
)

type emailReq struct {
    Email string `json:"email"`
}

// Login: password sign-in.  Answers the session and where to go next.
func (h *Handler) Login(c echo.Context) error {
    var req model.Credentials
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    sc := middleware.ScopeOf(c)
    ctx, cancel := h.upstream(c)
    defer cancel()

    if err := sc.Auth.Login(ctx, req); err != nil {
        return h.fail(c, err, "Login failed")
    }
    h.publish(c, queue.ActivityEvent{Kind: queue.KindLogin})
    s := sc.Store.Snapshot()
    return c.JSON(http.StatusOK, echo.Map{
        "session":  h.viewOf(s),
        "redirect": sc.Auth.Destination(s.Roles),
    })
}

// Register creates an account.  When the API signs the user in directly the
// answer is the same as Login; otherwise the SPA is sent to the login page.
func (h *Handler) Register(c echo.Context) error {
    var req model.Registration
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    sc := middleware.ScopeOf(c)
    ctx, cancel := h.upstream(c)
    defer cancel()

    if err := sc.Auth.Register(ctx, req); err != nil {
        return h.fail(c, err, "Registration failed")
    }
    h.publish(c, queue.ActivityEvent{Kind: queue.KindRegister, Email: req.Email})
    s := sc.Store.Snapshot()
    next := auth.LoginPath
    if s.Authenticated() {
        next = sc.Auth.Destination(s.Roles)
    }
    return c.JSON(http.StatusCreated, echo.Map{"session": h.viewOf(s), "redirect": next})
}

// Logout ends the session.  It succeeds for anonymous browsers too.
func (h *Handler) Logout(c echo.Context) error {
    sc := middleware.ScopeOf(c)
    email := sc.Store.Email()
    if err := sc.Auth.Logout(c.Request().Context()); err != nil {
        c.Logger().Warnf("logout: remove session %s: %v", sc.SID, err)
    }
    h.publish(c, queue.ActivityEvent{Kind: queue.KindLogout, Email: email})
    return c.JSON(http.StatusOK, echo.Map{"session": h.viewOf(sc.Store.Snapshot()), "redirect": auth.HomePath})
}

// GoogleLogin returns the identity provider URL for the configured
// redirect URI.
func (h *Handler) GoogleLogin(c echo.Context) error {
    sc := middleware.ScopeOf(c)
    ctx, cancel := h.upstream(c)
    defer cancel()

    u, err := sc.API.GoogleLoginURL(ctx, h.Cfg.RedirectURI())
    if err != nil {
        sc.Notes.PushError("Could not start Google sign-in")
        return h.fail(c, err, "Could not start Google sign-in")
    }
    return c.JSON(http.StatusOK, echo.Map{"url": u})
}

// OAuthRedirect is where the identity provider sends the browser back.  It
// always answers with a redirect.
func (h *Handler) OAuthRedirect(c echo.Context) error {
    sc := middleware.ScopeOf(c)
    ctx, cancel := h.upstream(c)
    defer cancel()

    r := &auth.OAuthRedirect{Service: sc.Auth, RedirectURI: h.Cfg.RedirectURI()}
    out := r.Resolve(ctx, auth.ParseRedirect(c.QueryParams()), &sc.View.OAuthHandled)
    if out.Adopted {
        h.publish(c, queue.ActivityEvent{Kind: queue.KindOAuthLogin})
    }
    return c.Redirect(http.StatusFound, out.Redirect)
}

// ForgotPassword is step 1 of the reset flow: send an OTP to the email.
func (h *Handler) ForgotPassword(c echo.Context) error {
    var req emailReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    sc := middleware.ScopeOf(c)
    ctx, cancel := h.upstream(c)
    defer cancel()

    if err := sc.Auth.RequestOTP(ctx, &sc.View.Reset, req.Email); err != nil {
        return h.fail(c, err, "Could not send the OTP")
    }
    return c.JSON(http.StatusOK, echo.Map{"step": sc.View.Reset.CurrentStep(), "email": sc.View.Reset.Email})
}

// ResetPassword is step 2: OTP plus the new password.
func (h *Handler) ResetPassword(c echo.Context) error {
    var req auth.ResetInput
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    sc := middleware.ScopeOf(c)
    ctx, cancel := h.upstream(c)
    defer cancel()

    next, err := sc.Auth.CompleteReset(ctx, &sc.View.Reset, req)
    switch err {
    case nil:
    case auth.ErrPasswordMismatch, auth.ErrWrongStep:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "step": sc.View.Reset.CurrentStep()})
    default:
        return h.fail(c, err, "Password reset failed")
    }
    return c.JSON(http.StatusOK, echo.Map{"step": sc.View.Reset.CurrentStep(), "redirect": next})
}

// CancelReset returns the reset flow to step 1.
func (h *Handler) CancelReset(c echo.Context) error {
    sc := middleware.ScopeOf(c)
    sc.View.Reset.Cancel()
    return c.JSON(http.StatusOK, echo.Map{"step": sc.View.Reset.CurrentStep()})
}
