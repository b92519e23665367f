// Package seating implements the seat-selection screen: normalizing the
// API's seat records, the single-seat selection rule and booking submission.
package seating

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/iliyamo/seatify-gateway/internal/model"
)

// Source keys accepted for each logical seat field, in priority order.
// The first key holding a non-empty value wins.
var (
	IDKeys        = []string{"id", "seatId", "seat_id", "seatID"}
	RowKeys       = []string{"seatRow", "row", "seat_row"}
	NumberKeys    = []string{"seatNumber", "number", "seat_number"}
	AvailableKeys = []string{"isAvailable"}
	BookedKeys    = []string{"isBooked", "booked"}
	PriceKeys     = []string{"price"}
)

// UnmappableError reports a seat record none of whose Keys hold a usable
// value for Field.
type UnmappableError struct {
	Field  string
	Keys   []string
	Record map[string]any
}

func (e *UnmappableError) Error() string {
	return fmt.Sprintf("seat record has no usable %s (tried %s)", e.Field, strings.Join(e.Keys, ", "))
}

// Normalize maps one raw record onto model.Seat.  A record without a
// positive integer identifier is rejected with *UnmappableError; every other
// field falls back to its default (available, not booked, price 0).
func Normalize(rec map[string]any) (model.Seat, error) {
	id, ok := idOf(first(rec, IDKeys))
	if !ok {
		return model.Seat{}, &UnmappableError{Field: "id", Keys: IDKeys, Record: rec}
	}
	s := model.Seat{
		ID:          id,
		Row:         textOf(first(rec, RowKeys)),
		Number:      textOf(first(rec, NumberKeys)),
		IsAvailable: true,
		IsBooked:    truthy(first(rec, BookedKeys)),
		Price:       priceOf(first(rec, PriceKeys)),
	}
	for _, k := range AvailableKeys {
		if v, ok := rec[k].(bool); ok && !v {
			s.IsAvailable = false
		}
	}
	return s, nil
}

// NormalizeAll maps recs, dropping and returning the errors of records that
// cannot be mapped.  Dropped seats can never be selected, so no booking is
// ever sent without a seat id.
func NormalizeAll(recs []map[string]any) ([]model.Seat, []error) {
	seats := make([]model.Seat, 0, len(recs))
	var skipped []error
	for _, r := range recs {
		s, err := Normalize(r)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		seats = append(seats, s)
	}
	return seats, skipped
}

// first returns the value of the first key whose value is not empty.
func first(rec map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := rec[k]; ok && !empty(v) {
			return v
		}
	}
	return nil
}

func empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case float64:
		return t == 0
	case json.Number:
		return t == "" || t == "0"
	case bool:
		return !t
	}
	return false
}

func idOf(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		if t > 0 && t == math.Trunc(t) && t < (1 << 63) {
			return int64(t), true
		}
	case json.Number:
		if n, err := t.Int64(); err == nil && n > 0 {
			return n, true
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	}
	return false
}

func priceOf(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	}
	return 0
}
