package router // package router registers the gateway's HTTP routes

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seatify-gateway/internal/handler"
	"github.com/iliyamo/seatify-gateway/internal/middleware"
)

// Deps are the pieces of middleware the routes are wrapped in.
type Deps struct {
	Scope     echo.MiddlewareFunc // per-browser session and view-state
	RateLimit echo.MiddlewareFunc // token bucket for credential endpoints
	Locker    middleware.Locker
}

// RegisterRoutes registers routes that need no browser session.  Currently
// it exposes only a health check.
func RegisterRoutes(e *echo.Echo, health handler.Health) {
	e.GET("/healthz", health.Check)
}

// RegisterAuth registers the sign-in flows.  Login, registration and the OTP
// request are rate limited and run one at a time per browser.
func RegisterAuth(e *echo.Echo, h *handler.Handler, d Deps) {
	ttl := h.Cfg.InflightTTL
	g := e.Group("/api/auth", d.Scope)
	g.POST("/login", h.Login, d.RateLimit, middleware.Exclusive(d.Locker, "login", ttl))
	g.POST("/register", h.Register, d.RateLimit, middleware.Exclusive(d.Locker, "register", ttl))
	g.POST("/logout", h.Logout)
	g.GET("/google", h.GoogleLogin)
	g.POST("/forgot-password", h.ForgotPassword, d.RateLimit, middleware.Exclusive(d.Locker, "otp", ttl))
	g.POST("/reset-password", h.ResetPassword, d.RateLimit)
	g.POST("/forgot-password/cancel", h.CancelReset)

	// The identity provider redirects the browser itself here, outside /api.
	e.GET(h.Cfg.OAuthRedirectPath, h.OAuthRedirect, d.Scope)
}

// RegisterSession registers the endpoints every screen polls: the session
// snapshot, route guard decisions, notices and the header profile.
func RegisterSession(e *echo.Echo, h *handler.Handler, d Deps) {
	g := e.Group("/api", d.Scope)
	g.GET("/session", h.Session)
	g.GET("/guard", h.Guard)
	g.GET("/notifications", h.Notifications)
	g.GET("/header", h.Header)
}

// RegisterBooking registers the seat selection screen.  Every route needs a
// signed-in browser; submitting a booking is exclusive per browser.
func RegisterBooking(e *echo.Echo, h *handler.Handler, d Deps) {
	g := e.Group("/api/events/:eventId", d.Scope, middleware.RequireSession(h.Policy, false))
	g.GET("/seats", h.SeatMap)
	g.PUT("/selection", h.Select)
	g.DELETE("/selection", h.ClearSelection)
	g.POST("/bookings", h.Book, middleware.Exclusive(d.Locker, "booking", h.Cfg.InflightTTL))
}

// RegisterProfile registers the signed-in user's profile screens.
func RegisterProfile(e *echo.Echo, h *handler.Handler, d Deps) {
	g := e.Group("/api/profile", d.Scope, middleware.RequireSession(h.Policy, false))
	g.GET("", h.Profile)
	g.PUT("", h.UpdateProfile)
	g.POST("/avatar", h.UploadAvatar)
	g.PUT("/password", h.ChangePassword)
	g.GET("/stats", h.BookingStats)
}

// RegisterAdmin registers the admin shell endpoints.
func RegisterAdmin(e *echo.Echo, h *handler.Handler, d Deps) {
	g := e.Group("/api/admin", d.Scope, middleware.RequireSession(h.Policy, true))
	g.GET("/session", h.AdminSession)
}

// RegisterAll registers every route group.
func RegisterAll(e *echo.Echo, h *handler.Handler, health handler.Health, d Deps) {
	RegisterRoutes(e, health)
	RegisterAuth(e, h, d)
	RegisterSession(e, h, d)
	RegisterBooking(e, h, d)
	RegisterProfile(e, h, d)
	RegisterAdmin(e, h, d)
}
