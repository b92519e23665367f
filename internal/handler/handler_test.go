package handler_test

import (
    "encoding/json"
    "io"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seatify-gateway/internal/apiclient"
    "github.com/iliyamo/seatify-gateway/internal/config"
    "github.com/iliyamo/seatify-gateway/internal/guard"
    "github.com/iliyamo/seatify-gateway/internal/handler"
    "github.com/iliyamo/seatify-gateway/internal/middleware"
    "github.com/iliyamo/seatify-gateway/internal/model"
    "github.com/iliyamo/seatify-gateway/internal/router"
    "github.com/iliyamo/seatify-gateway/internal/session"
)

// fakeAPI stands in for the SEATIFY REST API.
type fakeAPI struct {
    mu            sync.Mutex
    bookings      []model.BookingRequest
    authHeaders   []string
    profileStatus int
    bookingStatus int
    exchangeURI   string
    gates         map[string]*gate
}

// gate holds an upstream route open until released.
type gate struct {
    started chan struct{}
    release chan struct{}
}

// hold makes the next call to route block until the returned gate is
// released.
func (f *fakeAPI) hold(route string) *gate {
    g := &gate{started: make(chan struct{}), release: make(chan struct{})}
    f.mu.Lock()
    if f.gates == nil {
        f.gates = map[string]*gate{}
    }
    f.gates[route] = g
    f.mu.Unlock()
    return g
}

// sent returns the bookings and authorization headers received so far.
func (f *fakeAPI) sent() ([]model.BookingRequest, []string) {
    f.mu.Lock()
    defer f.mu.Unlock()
    return append([]model.BookingRequest(nil), f.bookings...), append([]string(nil), f.authHeaders...)
}

func (f *fakeAPI) setStatus(profile, booking int) {
    f.mu.Lock()
    f.profileStatus, f.bookingStatus = profile, booking
    f.mu.Unlock()
}

func (f *fakeAPI) pass(route string) {
    f.mu.Lock()
    g := f.gates[route]
    delete(f.gates, route)
    f.mu.Unlock()
    if g != nil {
        close(g.started)
        <-g.release
    }
}

func (f *fakeAPI) handler() http.Handler {
    mux := http.NewServeMux()
    write := func(w http.ResponseWriter, status int, body string) {
        w.Header().Set("Content-Type", "application/json")
        w.WriteHeader(status)
        _, _ = io.WriteString(w, body)
    }
    mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
        var c model.Credentials
        _ = json.NewDecoder(r.Body).Decode(&c)
        if c.Password != "secret" {
            write(w, http.StatusUnauthorized, `{"message":"Wrong email or password"}`)
            return
        }
        write(w, http.StatusOK, `{"status":"success","message":"ok","data":{"token":"T1","roles":["ROLE_USER"],"email":"a@b.vn"}}`)
    })
    mux.HandleFunc("POST /auth/google/exchange", func(w http.ResponseWriter, r *http.Request) {
        var body map[string]string
        _ = json.NewDecoder(r.Body).Decode(&body)
        f.mu.Lock()
        f.exchangeURI = body["redirectUri"]
        f.mu.Unlock()
        write(w, http.StatusOK, `{"data":{"token":"G1","roles":["ROLE_ADMIN"],"email":"adm@b.vn"}}`)
    })
    mux.HandleFunc("GET /auth/google/login-url", func(w http.ResponseWriter, r *http.Request) {
        write(w, http.StatusOK, `{"data":"https://accounts.google.com/o?redirect=`+r.URL.Query().Get("redirectUri")+`"}`)
    })
    mux.HandleFunc("POST /auth/forgot-password", func(w http.ResponseWriter, r *http.Request) {
        write(w, http.StatusOK, `{"message":"OTP sent"}`)
    })
    mux.HandleFunc("POST /auth/reset-password", func(w http.ResponseWriter, r *http.Request) {
        write(w, http.StatusOK, `{"message":"Password reset"}`)
    })
    mux.HandleFunc("GET /events/7", func(w http.ResponseWriter, r *http.Request) {
        write(w, http.StatusOK, `{"data":{"eventId":7,"eventName":"Concert","location":"HCM"}}`)
    })
    mux.HandleFunc("GET /seats/event/7", func(w http.ResponseWriter, r *http.Request) {
        write(w, http.StatusOK, `{"data":[
            {"seatId":1,"seatRow":"A","seatNumber":"1","price":100},
            {"id":2,"row":"A","number":"2","isBooked":true},
            {"row":"A","number":"3"}
        ]}`)
    })
    mux.HandleFunc("POST /bookings", func(w http.ResponseWriter, r *http.Request) {
        f.pass("bookings")
        var req model.BookingRequest
        _ = json.NewDecoder(r.Body).Decode(&req)
        f.mu.Lock()
        f.bookings = append(f.bookings, req)
        f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
        status := f.bookingStatus
        f.mu.Unlock()
        if status != 0 {
            write(w, status, `{"message":"Token expired"}`)
            return
        }
        write(w, http.StatusOK, `{"message":"Booked","data":{"bookingId":55}}`)
    })
    mux.HandleFunc("GET /users/profile", func(w http.ResponseWriter, r *http.Request) {
        f.pass("profile")
        f.mu.Lock()
        status := f.profileStatus
        f.mu.Unlock()
        if status != 0 {
            write(w, status, `{"message":"Token expired"}`)
            return
        }
        write(w, http.StatusOK, `{"data":{"fullName":"Nguyen An","email":"a@b.vn","avatarUrl":"/a.png"}}`)
    })
    return mux
}

type harness struct {
    t      *testing.T
    e      *echo.Echo
    api    *fakeAPI
    cookie *http.Cookie
}

func newHarness(t *testing.T) *harness {
    t.Helper()
    api := &fakeAPI{}
    srv := httptest.NewServer(api.handler())
    t.Cleanup(srv.Close)

    cfg := config.Config{
        AdminRole:         "ROLE_ADMIN",
        PublicBaseURL:     "http://gw.local",
        OAuthRedirectPath: "/oauth2/redirect",
        SessionCookie:     "seatify_sid",
        SessionTTL:        time.Hour,
        AuthRedirectDelay: time.Second,
        UpstreamTimeout:   5 * time.Second,
        InflightTTL:       time.Minute,
    }
    h := handler.New(cfg, guard.DefaultPolicy(cfg.AdminRole), nil)
    e := echo.New()
    router.RegisterAll(e, h, handler.Health{}, router.Deps{
        Scope: middleware.ScopeMiddleware(middleware.ScopeConfig{
            Persister: session.NewMemoryPersister(),
            API:       apiclient.New(srv.URL, 5*time.Second),
            Cookie:    middleware.CookieConfig{Name: cfg.SessionCookie, TTL: cfg.SessionTTL},
            AdminRole: cfg.AdminRole,
        }),
        RateLimit: middleware.NewTokenBucket(config.RateLimitConfig{}, nil),
        Locker:    middleware.NewMemoryLocker(),
    })
    return &harness{t: t, e: e, api: api}
}

func (h *harness) do(method, path, body string, hdr ...string) (*httptest.ResponseRecorder, map[string]any) {
    h.t.Helper()
    rec := h.serve(h.cookie, method, path, body, hdr...)
    for _, ck := range rec.Result().Cookies() {
        if ck.Name == "seatify_sid" {
            h.cookie = ck
        }
    }
    var out map[string]any
    _ = json.Unmarshal(rec.Body.Bytes(), &out)
    return rec, out
}

// serve runs one request with cookie and leaves the harness untouched, so
// it can be called from another goroutine.
func (h *harness) serve(cookie *http.Cookie, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
    var rdr io.Reader
    if body != "" {
        rdr = strings.NewReader(body)
    }
    req := httptest.NewRequest(method, path, rdr)
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    for i := 0; i+1 < len(hdr); i += 2 {
        req.Header.Set(hdr[i], hdr[i+1])
    }
    if cookie != nil {
        req.AddCookie(cookie)
    }
    rec := httptest.NewRecorder()
    h.e.ServeHTTP(rec, req)
    return rec
}

// inFlight starts a request in the background and returns a channel that
// yields its recorder.
func (h *harness) inFlight(method, path, body string, hdr ...string) <-chan *httptest.ResponseRecorder {
    done := make(chan *httptest.ResponseRecorder, 1)
    cookie := h.cookie
    go func() { done <- h.serve(cookie, method, path, body, hdr...) }()
    return done
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
    t.Helper()
    select {
    case <-ch:
    case <-time.After(5 * time.Second):
        t.Fatalf("timed out waiting for %s", what)
    }
}

func (h *harness) login() {
    h.t.Helper()
    rec, _ := h.do(http.MethodPost, "/api/auth/login", `{"email":"a@b.vn","password":"secret"}`, middleware.ScreenHeader, "/login")
    if rec.Code != http.StatusOK {
        h.t.Fatalf("login status = %d body=%s", rec.Code, rec.Body.String())
    }
}

func (h *harness) notices() []string {
    h.t.Helper()
    _, body := h.do(http.MethodGet, "/api/notifications", "")
    var out []string
    list, _ := body["notices"].([]any)
    for _, n := range list {
        m := n.(map[string]any)
        out = append(out, m["channel"].(string)+":"+m["message"].(string))
    }
    return out
}

func TestHealth(t *testing.T) {
    h := newHarness(t)
    rec, body := h.do(http.MethodGet, "/healthz", "")
    if rec.Code != http.StatusOK || body["store"] != "memory" {
        t.Fatalf("healthz = %d %v", rec.Code, body)
    }
}

func TestLoginFlow(t *testing.T) {
    h := newHarness(t)
    rec, body := h.do(http.MethodPost, "/api/auth/login", `{"email":"a@b.vn","password":"secret"}`)
    if rec.Code != http.StatusOK || body["redirect"] != "/" {
        t.Fatalf("login = %d %v", rec.Code, body)
    }
    if strings.Contains(rec.Body.String(), "T1") {
        t.Error("token leaked to the browser")
    }
    if got := h.notices(); len(got) != 1 || got[0] != "success:Login successful" {
        t.Errorf("notices = %v", got)
    }
    if got := h.notices(); len(got) != 0 {
        t.Errorf("notices drained twice: %v", got)
    }

    _, body = h.do(http.MethodGet, "/api/session", "")
    sess := body["session"].(map[string]any)
    if sess["authenticated"] != true || sess["email"] != "a@b.vn" || sess["admin"] != false {
        t.Errorf("session = %v", sess)
    }
}

func TestLoginWrongPasswordOnLoginScreen(t *testing.T) {
    h := newHarness(t)
    rec, body := h.do(http.MethodPost, "/api/auth/login", `{"email":"a@b.vn","password":"nope"}`, middleware.ScreenHeader, "/login")
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("status = %d", rec.Code)
    }
    if _, ok := body["redirect"]; ok {
        t.Errorf("login screen got a redirect hint: %v", body)
    }
    if got := h.notices(); len(got) != 1 || got[0] != "error:Wrong email or password" {
        t.Errorf("notices = %v", got)
    }
}

func TestLoginValidation(t *testing.T) {
    h := newHarness(t)
    rec, body := h.do(http.MethodPost, "/api/auth/login", `{"email":"","password":"x"}`)
    if rec.Code != http.StatusBadRequest || body["fields"] == nil {
        t.Fatalf("status = %d body=%v", rec.Code, body)
    }
}

func TestGuardEndpoint(t *testing.T) {
    h := newHarness(t)
    _, body := h.do(http.MethodGet, "/api/guard?path=/events/7/seats", "")
    if body["allowed"] != false || body["redirect"] != "/login" || body["from"] != "/events/7/seats" {
        t.Fatalf("guard = %v", body)
    }
    h.login()
    _, body = h.do(http.MethodGet, "/api/guard?path=/admin/dashboard", "")
    if body["allowed"] != false || body["redirect"] != "/" {
        t.Errorf("admin guard for user = %v", body)
    }
}

func TestSeatsRequireSession(t *testing.T) {
    h := newHarness(t)
    rec, body := h.do(http.MethodGet, "/api/events/7/seats", "", middleware.ScreenHeader, "/events/7/seats")
    if rec.Code != http.StatusUnauthorized || body["redirect"] != "/login" {
        t.Fatalf("seats anonymous = %d %v", rec.Code, body)
    }
}

func TestSeatSelectionAndBooking(t *testing.T) {
    h := newHarness(t)
    h.login()
    h.notices()

    rec, body := h.do(http.MethodGet, "/api/events/7/seats", "")
    if rec.Code != http.StatusOK {
        t.Fatalf("seats = %d %s", rec.Code, rec.Body.String())
    }
    seats := body["seats"].([]any)
    if len(seats) != 2 {
        t.Fatalf("seats = %v, want the unmappable record dropped", seats)
    }

    rec, _ = h.do(http.MethodPost, "/api/events/7/bookings", "")
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("empty booking = %d", rec.Code)
    }
    if sent, _ := h.api.sent(); len(sent) != 0 {
        t.Fatal("empty selection reached the API")
    }

    rec, _ = h.do(http.MethodPut, "/api/events/7/selection", `{"seatId":2}`)
    if rec.Code != http.StatusConflict {
        t.Errorf("booked seat select = %d", rec.Code)
    }
    rec, body = h.do(http.MethodPut, "/api/events/7/selection", `{"seatId":1}`)
    if rec.Code != http.StatusOK || body["total"] != float64(100) {
        t.Fatalf("select = %d %v", rec.Code, body)
    }

    rec, body = h.do(http.MethodPost, "/api/events/7/bookings", "")
    if rec.Code != http.StatusCreated || body["redirect"] != "/" {
        t.Fatalf("book = %d %v", rec.Code, body)
    }
    sent, auths := h.api.sent()
    if len(sent) != 1 || sent[0] != (model.BookingRequest{EventID: 7, SeatID: 1}) {
        t.Fatalf("bookings = %+v", sent)
    }
    if auths[0] != "Bearer T1" {
        t.Errorf("authorization = %q", auths[0])
    }

    _, body = h.do(http.MethodGet, "/api/events/7/seats", "")
    if sel := body["selection"].(map[string]any); sel["seat"] != nil {
        t.Errorf("selection kept after booking: %v", sel)
    }
}

func TestExpiredSessionRedirectHint(t *testing.T) {
    h := newHarness(t)
    h.login()
    h.api.setStatus(http.StatusUnauthorized, 0)

    rec, body := h.do(http.MethodGet, "/api/profile", "", middleware.ScreenHeader, "/profile")
    if rec.Code != http.StatusUnauthorized || body["redirect"] != "/login" || body["delayMs"] != float64(1000) {
        t.Fatalf("profile = %d %v", rec.Code, body)
    }
    _, body = h.do(http.MethodGet, "/api/session", "")
    if body["session"].(map[string]any)["authenticated"] != false {
        t.Errorf("session survived 401: %v", body)
    }
}

func TestHeaderIsCachedAndDroppedOnLogout(t *testing.T) {
    h := newHarness(t)
    _, body := h.do(http.MethodGet, "/api/header", "")
    if body["header"] != nil {
        t.Fatalf("anonymous header = %v", body)
    }
    h.login()
    _, body = h.do(http.MethodGet, "/api/header", "")
    if hp := body["header"].(map[string]any); hp["fullName"] != "Nguyen An" {
        t.Fatalf("header = %v", body)
    }
    h.api.setStatus(http.StatusInternalServerError, 0)
    _, body = h.do(http.MethodGet, "/api/header", "")
    if body["header"] == nil {
        t.Error("cached header not served")
    }

    h.do(http.MethodPost, "/api/auth/logout", "")
    h.api.setStatus(0, 0)
    _, body = h.do(http.MethodGet, "/api/header", "")
    if body["header"] != nil {
        t.Errorf("header after logout = %v", body)
    }
}

func TestOAuthRedirect(t *testing.T) {
    h := newHarness(t)
    rec, _ := h.do(http.MethodGet, "/oauth2/redirect?error=access_denied", "")
    if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
        t.Fatalf("error redirect = %d %q", rec.Code, rec.Header().Get("Location"))
    }

    rec, _ = h.do(http.MethodGet, "/oauth2/redirect?code=abc", "")
    if rec.Header().Get("Location") != "/admin/dashboard" {
        t.Fatalf("code redirect = %q", rec.Header().Get("Location"))
    }
    h.api.mu.Lock()
    uri := h.api.exchangeURI
    h.api.mu.Unlock()
    if uri != "http://gw.local/oauth2/redirect" {
        t.Errorf("exchange redirectUri = %q", uri)
    }
    h.notices()

    rec, _ = h.do(http.MethodGet, "/oauth2/redirect?code=abc", "")
    if rec.Header().Get("Location") != "/admin/dashboard" {
        t.Errorf("replayed redirect = %q", rec.Header().Get("Location"))
    }
    if got := h.notices(); len(got) != 0 {
        t.Errorf("replay notices = %v", got)
    }
}

func TestGoogleLoginURLUsesRedirectURI(t *testing.T) {
    h := newHarness(t)
    _, body := h.do(http.MethodGet, "/api/auth/google", "")
    if u, _ := body["url"].(string); !strings.HasSuffix(u, "redirect=http://gw.local/oauth2/redirect") {
        t.Errorf("url = %v", body["url"])
    }
}

func TestForgotPasswordFlow(t *testing.T) {
    h := newHarness(t)
    rec, body := h.do(http.MethodPost, "/api/auth/forgot-password", `{"email":"a@b.vn"}`)
    if rec.Code != http.StatusOK || body["step"] != float64(2) {
        t.Fatalf("forgot = %d %v", rec.Code, body)
    }
    rec, body = h.do(http.MethodPost, "/api/auth/reset-password", `{"otp":"123456","newPassword":"abcdef","confirmPassword":"abcdeg"}`)
    if rec.Code != http.StatusBadRequest || body["step"] != float64(2) {
        t.Fatalf("mismatch = %d %v", rec.Code, body)
    }
    rec, body = h.do(http.MethodPost, "/api/auth/reset-password", `{"otp":"123456","newPassword":"abcdef","confirmPassword":"abcdef"}`)
    if rec.Code != http.StatusOK || body["redirect"] != "/login" || body["step"] != float64(1) {
        t.Fatalf("reset = %d %v", rec.Code, body)
    }
}

func TestCancelReset(t *testing.T) {
    h := newHarness(t)
    h.do(http.MethodPost, "/api/auth/forgot-password", `{"email":"a@b.vn"}`)
    _, body := h.do(http.MethodPost, "/api/auth/forgot-password/cancel", "")
    if body["step"] != float64(1) {
        t.Fatalf("cancel = %v", body)
    }
    if _, body = h.do(http.MethodGet, "/api/session", ""); body["resetStep"] != float64(1) {
        t.Errorf("session reset step = %v", body["resetStep"])
    }
}

func TestAdminSession(t *testing.T) {
    h := newHarness(t)
    h.login()
    rec, _ := h.do(http.MethodGet, "/api/admin/session", "")
    if rec.Code != http.StatusForbidden {
        t.Fatalf("user on admin = %d", rec.Code)
    }
}

func TestExpiredSessionQueuesToast(t *testing.T) {
    h := newHarness(t)
    h.login()
    h.notices()
    h.do(http.MethodPut, "/api/events/7/selection", `{"seatId":1}`)
    h.api.setStatus(0, http.StatusUnauthorized)

    rec, body := h.do(http.MethodPost, "/api/events/7/bookings", "", middleware.ScreenHeader, "/events/7/seats")
    if rec.Code != http.StatusUnauthorized || body["redirect"] != "/login" {
        t.Fatalf("book = %d %v", rec.Code, body)
    }
    if got := h.notices(); len(got) != 1 || got[0] != "error:Token expired" {
        t.Errorf("notices = %v, want the expiry toast", got)
    }
}

func TestBookingFinishingAfterLogoutLeavesNoTrace(t *testing.T) {
    h := newHarness(t)
    h.login()
    h.notices()
    h.do(http.MethodPut, "/api/events/7/selection", `{"seatId":1}`)
    h.do(http.MethodGet, "/api/header", "")

    g := h.api.hold("bookings")
    done := h.inFlight(http.MethodPost, "/api/events/7/bookings", "")
    waitFor(t, g.started, "booking to reach the API")

    if rec, _ := h.do(http.MethodPost, "/api/auth/logout", ""); rec.Code != http.StatusOK {
        t.Fatalf("logout = %d", rec.Code)
    }
    close(g.release)
    if rec := <-done; rec.Code != http.StatusCreated {
        t.Fatalf("booking = %d %s", rec.Code, rec.Body.String())
    }

    if got := h.notices(); len(got) != 0 {
        t.Errorf("notices after logout = %v, want none", got)
    }
    _, body := h.do(http.MethodGet, "/api/session", "")
    if body["session"].(map[string]any)["authenticated"] != false {
        t.Errorf("session after logout = %v", body)
    }
    h.login()
    h.notices()
    h.api.setStatus(http.StatusInternalServerError, 0)
    if _, body = h.do(http.MethodGet, "/api/header", ""); body["header"] != nil {
        t.Errorf("header of the old session came back: %v", body["header"])
    }
}

func TestHeaderFetchFinishingAfterLogoutIsDiscarded(t *testing.T) {
    h := newHarness(t)
    h.login()
    h.notices()

    g := h.api.hold("profile")
    done := h.inFlight(http.MethodGet, "/api/header", "")
    waitFor(t, g.started, "profile lookup to reach the API")

    h.do(http.MethodPost, "/api/auth/logout", "")
    h.login()
    close(g.release)
    <-done

    if got := h.notices(); len(got) != 1 || got[0] != "success:Login successful" {
        t.Errorf("notices = %v, want only the new login", got)
    }
    h.api.setStatus(http.StatusInternalServerError, 0)
    if _, body := h.do(http.MethodGet, "/api/header", ""); body["header"] != nil {
        t.Errorf("stale header cached for the new session: %v", body["header"])
    }
}

func TestConcurrentBookingIsRejected(t *testing.T) {
    h := newHarness(t)
    h.login()
    h.do(http.MethodPut, "/api/events/7/selection", `{"seatId":1}`)

    g := h.api.hold("bookings")
    done := h.inFlight(http.MethodPost, "/api/events/7/bookings", "")
    waitFor(t, g.started, "booking to reach the API")

    rec, _ := h.do(http.MethodPost, "/api/events/7/bookings", "")
    close(g.release)
    first := <-done
    if rec.Code != http.StatusConflict {
        t.Errorf("second booking = %d, want 409", rec.Code)
    }
    if first.Code != http.StatusCreated {
        t.Errorf("first booking = %d", first.Code)
    }
    if sent, _ := h.api.sent(); len(sent) != 1 {
        t.Errorf("bookings sent = %d, want 1", len(sent))
    }
}
