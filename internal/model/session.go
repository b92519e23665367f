package model

import "time"

// Session is the gateway-held authentication state of one browser.  A
// session is authenticated if and only if Token is non-empty; an anonymous
// session has no roles and an empty email.
//
// Fields:
//  Token     – bearer token issued by the SEATIFY API.
//  Roles     – role names granted to the user (e.g. ROLE_USER, ROLE_ADMIN).
//  Email     – email of the signed-in user, empty when unknown.
//  Timestamp – when the session was adopted.
type Session struct {
    Token     string
    Roles     []string
    Email     string
    Timestamp time.Time
}

// Authenticated reports whether the session carries a token.
func (s Session) Authenticated() bool { return s.Token != "" }

// HasRole reports whether role is among the session's roles.
func (s Session) HasRole(role string) bool {
    for _, r := range s.Roles {
        if r == role {
            return true
        }
    }
    return false
}

// Clone returns a copy that shares no slice memory with s.
func (s Session) Clone() Session {
    out := s
    out.Roles = append([]string{}, s.Roles...)
    return out
}

// Record is the persisted JSON form of a Session.  Timestamp is stored as
// Unix milliseconds, matching what browsers produce with Date.now().
type Record struct {
    Token     string   `json:"token"`
    Roles     []string `json:"roles"`
    Email     string   `json:"email"`
    Timestamp int64    `json:"timestamp"`
}

// RecordOf converts a Session into its persisted form.
func RecordOf(s Session) Record {
    roles := s.Roles
    if roles == nil {
        roles = []string{}
    }
    return Record{
        Token:     s.Token,
        Roles:     roles,
        Email:     s.Email,
        Timestamp: s.Timestamp.UnixMilli(),
    }
}
