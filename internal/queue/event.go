// Package queue defines the activity messages the gateway publishes and the
// worker that records them.
package queue

import "time"

// ActivityQueue is the durable queue activity events are routed to.
const ActivityQueue = "seatify.activity"

// Activity kinds.
const (
    KindLogin       = "login"
    KindRegister    = "register"
    KindOAuthLogin  = "oauth_login"
    KindLogout      = "logout"
    KindBookingSent = "booking_submitted"
)

// ActivityEvent is one user-visible action taken through the gateway.  It
// never carries tokens or passwords.
type ActivityEvent struct {
    Kind      string    `json:"kind"`
    SessionID string    `json:"session_id"`
    Email     string    `json:"email,omitempty"`
    EventID   int64     `json:"event_id,omitempty"`
    SeatID    int64     `json:"seat_id,omitempty"`
    BookingID int64     `json:"booking_id,omitempty"`
    At        time.Time `json:"at"`
}
