package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seatify-gateway/internal/apiclient"
    "github.com/iliyamo/seatify-gateway/internal/middleware"
    "github.com/iliyamo/seatify-gateway/internal/model"
    "github.com/iliyamo/seatify-gateway/internal/notify"
    "github.com/iliyamo/seatify-gateway/internal/queue"
    "github.com/iliyamo/seatify-gateway/internal/seating"
)

func eventID(c echo.Context) (int64, bool) {
    id, err := strconv.ParseInt(c.Param("eventId"), 10, 64)
    return id, err == nil && id > 0
}

func badEvent(c echo.Context) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
}

// refresh re-reads the selected seat from a fresh inventory and drops it
// when it is gone or no longer selectable.
func refresh(sel seating.Selection, seats []model.Seat) seating.Selection {
    if sel.Seat == nil {
        return sel
    }
    fresh, ok := seating.Find(seats, sel.Seat.ID)
    if !ok || !fresh.Selectable() {
        sel.Clear()
        return sel
    }
    sel.Seat = &fresh
    return sel
}

// SeatMap: event details, the normalized inventory and this browser's
// selection.
func (h *Handler) SeatMap(c echo.Context) error {
    id, ok := eventID(c)
    if !ok {
        return badEvent(c)
    }
    sc := middleware.ScopeOf(c)
    ctx, cancel := h.upstream(c)
    defer cancel()

    screen := seating.Screen{API: sc.API}
    ev, seats, err := screen.Load(ctx, id)
    if err != nil {
        return h.fail(c, err, "Could not load the event")
    }
    sel := refresh(sc.View.Selection.For(id), seats)
    sc.View.Selection = sel
    return c.JSON(http.StatusOK, seating.View{Event: ev, Seats: seats, Selection: sel, Total: sel.Total()})
}

type selectReq struct {
    SeatID int64 `json:"seatId"`
}

// Select picks one seat.  An unavailable or booked seat leaves the
// selection as it was and answers 409.
func (h *Handler) Select(c echo.Context) error {
    id, ok := eventID(c)
    if !ok {
        return badEvent(c)
    }
    var req selectReq
    if err := c.Bind(&req); err != nil || req.SeatID <= 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "seatId is required"})
    }
    sc := middleware.ScopeOf(c)
    ctx, cancel := h.upstream(c)
    defer cancel()

    seats := (&seating.Screen{API: sc.API}).Seats(ctx, id)
    sel := sc.View.Selection.For(id)
    seat, found := seating.Find(seats, req.SeatID)
    if !found {
        return c.JSON(http.StatusNotFound, echo.Map{"error": seating.ErrUnknownSeat.Error()})
    }
    if !sel.Select(seat) {
        return c.JSON(http.StatusConflict, echo.Map{"error": seating.ErrSeatNotSelectable.Error(), "selection": sel, "total": sel.Total()})
    }
    sc.View.Selection = sel
    return c.JSON(http.StatusOK, echo.Map{"selection": sel, "total": sel.Total()})
}

// ClearSelection drops the selected seat.
func (h *Handler) ClearSelection(c echo.Context) error {
    id, ok := eventID(c)
    if !ok {
        return badEvent(c)
    }
    sc := middleware.ScopeOf(c)
    sel := sc.View.Selection.For(id)
    sel.Clear()
    sc.View.Selection = sel
    return c.JSON(http.StatusOK, echo.Map{"selection": sel, "total": sel.Total()})
}

// Book submits the selection.  An empty selection is rejected without
// calling the API.
func (h *Handler) Book(c echo.Context) error {
    id, ok := eventID(c)
    if !ok {
        return badEvent(c)
    }
    sc := middleware.ScopeOf(c)
    ctx, cancel := h.upstream(c)
    defer cancel()

    epoch := sc.Notes.Epoch()
    sel := sc.View.Selection.For(id)
    out, err := (&seating.Screen{API: sc.API}).Submit(ctx, id, sel)
    if errors.Is(err, seating.ErrEmptySelection) || errors.Is(err, seating.ErrMissingSeatID) {
        sc.Notes.Push(epoch, notify.Error, "Please select a seat")
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    if err != nil {
        sc.Notes.Push(epoch, notify.Error, apiclient.MessageOf(err, "Booking failed"))
        return h.fail(c, err, "Booking failed")
    }

    msg := out.Message
    if msg == "" {
        msg = "Booking successful"
    }
    sc.Notes.Push(epoch, notify.Success, msg)
    seatID := sel.Seat.ID
    sel.Clear()
    sc.View.Selection = sel
    h.publish(c, queue.ActivityEvent{Kind: queue.KindBookingSent, EventID: id, SeatID: seatID, BookingID: out.Booking.BookingID})
    return c.JSON(http.StatusCreated, echo.Map{"booking": out.Booking, "message": msg, "redirect": out.Redirect})
}
