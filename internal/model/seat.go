package model

// Seat is the normalized view of one seat in an event's inventory.  The
// SEATIFY API names these attributes inconsistently; see package seating
// for the accepted source keys.
type Seat struct {
    ID          int64   `json:"id"`
    Row         string  `json:"row"`
    Number      string  `json:"number"`
    IsAvailable bool    `json:"isAvailable"`
    IsBooked    bool    `json:"isBooked"`
    Price       float64 `json:"price"`
}

// Selectable reports whether a user may pick this seat.
func (s Seat) Selectable() bool { return s.IsAvailable && !s.IsBooked }

// Label is the human-readable seat name, e.g. "B12".
func (s Seat) Label() string { return s.Row + s.Number }

// Event is the subset of event details shown above the seat map.
type Event struct {
    ID        int64  `json:"eventId"`
    EventName string `json:"eventName"`
    Location  string `json:"location"`
    StartTime string `json:"startTime,omitempty"`
}

// BookingRequest is sent to the API to book one seat for an event.  It only
// exists for the duration of the submit call.
type BookingRequest struct {
    EventID int64 `json:"eventId"`
    SeatID  int64 `json:"seatId"`
}

// BookingResult is the API's answer to a booking request.
type BookingResult struct {
    BookingID int64  `json:"bookingId"`
    Status    string `json:"status,omitempty"`
}
