// Package guard decides whether a browser may open a protected screen.
package guard

import (
    "net/url"
    "path"
    "strings"

    "github.com/iliyamo/seatify-gateway/internal/model"
)

// Rule protects the paths it matches.  Pattern is either a prefix
// ("/profile" matches "/profile" and "/profile/edit") or, when it contains
// a '*', a path.Match pattern ("/events/*/seats").
type Rule struct {
    Pattern   string
    AdminOnly bool
}

func (r Rule) matches(p string) bool {
    if strings.Contains(r.Pattern, "*") {
        ok, err := path.Match(r.Pattern, p)
        return err == nil && ok
    }
    return p == r.Pattern || strings.HasPrefix(p, strings.TrimSuffix(r.Pattern, "/")+"/")
}

// Policy is the set of protected paths and where rejected browsers go.
type Policy struct {
    AdminRole string
    LoginPath string
    HomePath  string
    Rules     []Rule
}

// Decision is the outcome of Decide.  When Allowed is false the browser is
// sent to Redirect; From carries the requested path so the login screen can
// return there afterwards.
type Decision struct {
    Allowed  bool   `json:"allowed"`
    Redirect string `json:"redirect,omitempty"`
    From     string `json:"from,omitempty"`
}

// DefaultPolicy protects the signed-in screens and the admin shell.
func DefaultPolicy(adminRole string) Policy {
    return Policy{
        AdminRole: adminRole,
        LoginPath: "/login",
        HomePath:  "/",
        Rules: []Rule{
            {Pattern: "/profile"},
            {Pattern: "/booking-history"},
            {Pattern: "/events/*/seats"},
            {Pattern: "/admin", AdminOnly: true},
        },
    }
}

// Match returns the first rule matching the path of target.  Query and
// fragment are ignored; a target that does not parse as a URL is matched
// as a bare path.
func (p Policy) Match(target string) (Rule, bool) {
    clean := path.Clean("/" + pathOf(target))
    for _, r := range p.Rules {
        if r.matches(clean) {
            return r, true
        }
    }
    return Rule{}, false
}

func pathOf(target string) string {
    u, err := url.Parse(target)
    if err != nil {
        if i := strings.IndexAny(target, "?#"); i >= 0 {
            return target[:i]
        }
        return target
    }
    return u.Path
}

// Decide evaluates target for s.  Unprotected paths are always allowed.
func (p Policy) Decide(s model.Session, target string) Decision {
    r, ok := p.Match(target)
    if !ok {
        return Decision{Allowed: true}
    }
    return p.Check(s, r.AdminOnly, target)
}

// Check applies the session requirements directly: a signed-in session, and
// the admin role when admin is true.
func (p Policy) Check(s model.Session, admin bool, from string) Decision {
    if !s.Authenticated() {
        return Decision{Redirect: p.LoginPath, From: from}
    }
    if admin && !s.HasRole(p.AdminRole) {
        return Decision{Redirect: p.HomePath}
    }
    return Decision{Allowed: true}
}
