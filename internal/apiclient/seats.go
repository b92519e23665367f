package apiclient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/iliyamo/seatify-gateway/internal/model"
)

// EventByID fetches the details shown above the seat map.
func (c *Client) EventByID(ctx context.Context, eventID int64) (model.Event, error) {
	var out model.Event
	_, err := c.doJSON(ctx, http.MethodGet, "/events/"+strconv.FormatInt(eventID, 10), nil, nil, &out)
	return out, err
}

// SeatsByEvent returns the raw seat records of an event.  Field names vary
// between API versions, so records are returned undecoded for package
// seating to normalize.
func (c *Client) SeatsByEvent(ctx context.Context, eventID int64) ([]map[string]any, error) {
	var out []map[string]any
	_, err := c.doJSON(ctx, http.MethodGet, "/seats/event/"+strconv.FormatInt(eventID, 10), nil, nil, &out)
	return out, err
}

// CreateBooking books one seat.
func (c *Client) CreateBooking(ctx context.Context, req model.BookingRequest) (model.BookingResult, string, error) {
	var out model.BookingResult
	msg, err := c.doJSON(ctx, http.MethodPost, "/bookings", nil, req, &out)
	return out, msg, err
}

// BookingStats returns the signed-in user's attendance counters.
func (c *Client) BookingStats(ctx context.Context) (model.BookingStats, error) {
	var raw map[string]any
	if _, err := c.doJSON(ctx, http.MethodGet, "/bookings/stats", nil, nil, &raw); err != nil {
		return model.BookingStats{}, err
	}
	return model.BookingStats{
		TotalParticipated: intOf(raw["totalParticipated"]),
		PresentCount:      intOf(raw["presentCount"]),
		AbsentCount:       intOf(raw["absentCount"]),
	}, nil
}

// intOf accepts numbers and numeric strings; anything else counts as zero.
func intOf(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return 0
}
