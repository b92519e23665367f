package seating

import (
	"errors"

	"github.com/iliyamo/seatify-gateway/internal/model"
)

var (
	// ErrEmptySelection is returned when a booking is submitted with no seat.
	ErrEmptySelection = errors.New("select a seat before booking")
	// ErrMissingSeatID guards against a selection whose seat has no id.
	ErrMissingSeatID = errors.New("selected seat has no id")
	// ErrSeatNotSelectable is returned when the chosen seat is unavailable or booked.
	ErrSeatNotSelectable = errors.New("seat is not available")
	// ErrUnknownSeat is returned when a seat id is not in the event's inventory.
	ErrUnknownSeat = errors.New("seat not found for this event")
)

// Selection is the screen-local choice for one event.  At most one seat is
// held: the API books a single seat per request.
type Selection struct {
	EventID int64       `json:"eventId"`
	Seat    *model.Seat `json:"seat,omitempty"`
}

// For returns the selection to use on the screen of eventID.  A selection
// made on another event's screen does not carry over.
func (s Selection) For(eventID int64) Selection {
	if s.EventID != eventID {
		return Selection{EventID: eventID}
	}
	return s
}

// Select replaces the selection with seat.  Unavailable or booked seats
// leave the selection unchanged and Select reports false.
func (s *Selection) Select(seat model.Seat) bool {
	if !seat.Selectable() {
		return false
	}
	cp := seat
	s.Seat = &cp
	return true
}

// Clear removes the selected seat.
func (s *Selection) Clear() { s.Seat = nil }

// Seats returns the selected seats.
func (s Selection) Seats() []model.Seat {
	if s.Seat == nil {
		return []model.Seat{}
	}
	return []model.Seat{*s.Seat}
}

// Total is the summed price of the selection.
func (s Selection) Total() float64 {
	total := 0.0
	for _, seat := range s.Seats() {
		total += seat.Price
	}
	return total
}

// BuildRequest turns the selection into a booking request for eventID.  It
// fails locally, without any network call, when nothing is selected.
func BuildRequest(eventID int64, s Selection) (model.BookingRequest, error) {
	if s.Seat == nil {
		return model.BookingRequest{}, ErrEmptySelection
	}
	if s.Seat.ID <= 0 {
		return model.BookingRequest{}, ErrMissingSeatID
	}
	return model.BookingRequest{EventID: eventID, SeatID: s.Seat.ID}, nil
}

// Find returns the seat with id from seats.
func Find(seats []model.Seat, id int64) (model.Seat, bool) {
	for _, s := range seats {
		if s.ID == id {
			return s, true
		}
	}
	return model.Seat{}, false
}
