package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seatify-gateway/internal/apiclient"
    "github.com/iliyamo/seatify-gateway/internal/middleware"
    "github.com/iliyamo/seatify-gateway/internal/model"
    "github.com/iliyamo/seatify-gateway/internal/utils"
    "github.com/iliyamo/seatify-gateway/internal/viewstate"
)

func headerOf(p model.Profile) *viewstate.HeaderProfile {
    return &viewstate.HeaderProfile{FullName: p.FullName, AvatarURL: p.AvatarURL}
}

// Profile returns the signed-in user's profile.
func (h *Handler) Profile(c echo.Context) error {
    sc := middleware.ScopeOf(c)
    ctx, cancel := h.upstream(c)
    defer cancel()

    p, err := sc.API.Profile(ctx)
    if err != nil {
        return h.fail(c, err, "Could not load your profile")
    }
    sc.View.Header = headerOf(p)
    return c.JSON(http.StatusOK, echo.Map{"profile": p})
}

// UpdateProfile saves name, phone and avatar URL.
func (h *Handler) UpdateProfile(c echo.Context) error {
    var req model.ProfileUpdate
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := utils.Validate(req); err != nil {
        return h.fail(c, err, "")
    }
    sc := middleware.ScopeOf(c)
    ctx, cancel := h.upstream(c)
    defer cancel()

    msg, err := sc.API.UpdateProfile(ctx, req)
    if err != nil {
        return h.fail(c, err, "Could not update your profile")
    }
    if msg == "" {
        msg = "Profile updated"
    }
    sc.View.Header = &viewstate.HeaderProfile{FullName: req.FullName, AvatarURL: req.AvatarURL}
    return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

// UploadAvatar forwards the multipart "file" field and answers the stored
// image URL.
func (h *Handler) UploadAvatar(c echo.Context) error {
    fh, err := c.FormFile("file")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
    }
    f, err := fh.Open()
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable file"})
    }
    defer f.Close()

    sc := middleware.ScopeOf(c)
    ctx, cancel := h.upstream(c)
    defer cancel()

    u, err := sc.API.UploadAvatar(ctx, fh.Filename, f)
    if err != nil {
        return h.fail(c, err, "Could not upload the image")
    }
    if sc.View.Header != nil {
        sc.View.Header.AvatarURL = u
    }
    return c.JSON(http.StatusOK, echo.Map{"url": u})
}

// ChangePassword updates the signed-in user's password.
func (h *Handler) ChangePassword(c echo.Context) error {
    var req model.PasswordChange
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := utils.Validate(req); err != nil {
        return h.fail(c, err, "")
    }
    sc := middleware.ScopeOf(c)
    ctx, cancel := h.upstream(c)
    defer cancel()

    msg, err := sc.API.ChangePassword(ctx, req)
    if err != nil {
        return h.fail(c, err, "Could not change your password")
    }
    if msg == "" {
        msg = "Password changed"
    }
    return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

// BookingStats returns the user's attendance summary.
func (h *Handler) BookingStats(c echo.Context) error {
    sc := middleware.ScopeOf(c)
    ctx, cancel := h.upstream(c)
    defer cancel()

    st, err := sc.API.BookingStats(ctx)
    if err != nil {
        return h.fail(c, err, "Could not load your booking statistics")
    }
    return c.JSON(http.StatusOK, echo.Map{"stats": st})
}

// Header returns the avatar and name for the page header, fetching the
// profile once per session.  A lookup failure other than 401/403 yields an
// empty header rather than an error.
func (h *Handler) Header(c echo.Context) error {
    sc := middleware.ScopeOf(c)
    if !sc.Store.Authenticated() {
        return c.JSON(http.StatusOK, echo.Map{"header": nil})
    }
    if sc.View.Header != nil {
        return c.JSON(http.StatusOK, echo.Map{"header": sc.View.Header})
    }
    ctx, cancel := h.upstream(c)
    defer cancel()

    p, err := sc.API.Profile(ctx)
    if apiclient.IsAuthFailure(err) {
        return h.fail(c, err, "")
    }
    if err != nil {
        c.Logger().Warnf("header: profile lookup: %v", err)
        return c.JSON(http.StatusOK, echo.Map{"header": nil})
    }
    sc.View.Header = headerOf(p)
    return c.JSON(http.StatusOK, echo.Map{"header": sc.View.Header})
}
