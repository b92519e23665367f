package seating

import (
	"context"
	"log"

	"github.com/iliyamo/seatify-gateway/internal/model"
)

// Backend is the slice of the SEATIFY API the seat screen needs.
type Backend interface {
	EventByID(ctx context.Context, eventID int64) (model.Event, error)
	SeatsByEvent(ctx context.Context, eventID int64) ([]map[string]any, error)
	CreateBooking(ctx context.Context, req model.BookingRequest) (model.BookingResult, string, error)
}

// HomePath is where a successful booking leads.  The product sends users
// back to the landing page rather than to a booking detail view.
const HomePath = "/"

// View is everything the seat screen renders.
type View struct {
	Event     model.Event  `json:"event"`
	Seats     []model.Seat `json:"seats"`
	Selection Selection    `json:"selection"`
	Total     float64      `json:"total"`
}

// Screen loads seat inventories and submits bookings.
type Screen struct {
	API Backend
}

// Load fetches the event and its seats.  An event lookup failure is
// returned; a seat lookup failure is logged and yields an empty seat list.
func (s *Screen) Load(ctx context.Context, eventID int64) (model.Event, []model.Seat, error) {
	ev, err := s.API.EventByID(ctx, eventID)
	if err != nil {
		return model.Event{}, nil, err
	}
	if ev.ID == 0 {
		ev.ID = eventID
	}
	return ev, s.Seats(ctx, eventID), nil
}

// Seats fetches and normalizes the inventory of eventID.  Failures never
// escape: the screen shows an empty map instead.
func (s *Screen) Seats(ctx context.Context, eventID int64) []model.Seat {
	recs, err := s.API.SeatsByEvent(ctx, eventID)
	if err != nil {
		log.Printf("seating: load seats for event %d: %v", eventID, err)
		return []model.Seat{}
	}
	seats, skipped := NormalizeAll(recs)
	for _, e := range skipped {
		log.Printf("seating: event %d: dropping seat record: %v", eventID, e)
	}
	return seats
}

// Outcome is the result of a submitted booking.
type Outcome struct {
	Booking  model.BookingResult
	Message  string
	Redirect string // empty when the screen should stay put
}

// Submit books the selected seat.  An empty selection is rejected before
// any request is made.
func (s *Screen) Submit(ctx context.Context, eventID int64, sel Selection) (Outcome, error) {
	req, err := BuildRequest(eventID, sel.For(eventID))
	if err != nil {
		return Outcome{}, err
	}
	res, msg, err := s.API.CreateBooking(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Booking: res, Message: msg}
	if res.BookingID != 0 {
		out.Redirect = HomePath
	}
	return out, nil
}
