package queue

import (
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"
)

func TestFormatActivity(t *testing.T) {
    ev := ActivityEvent{
        Kind:      KindBookingSent,
        SessionID: "s1",
        Email:     "a@b.vn",
        EventID:   7,
        SeatID:    11,
        BookingID: 99,
        At:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
    }
    want := `[2026-01-02T03:04:05Z] booking_submitted | session=s1 | email="a@b.vn" | event_id=7 | seat_id=11 | booking_id=99` + "\n"
    if got := FormatActivity(ev); got != want {
        t.Errorf("FormatActivity =\n%q\nwant\n%q", got, want)
    }
}

func TestHandleActivity_Appends(t *testing.T) {
    dir := t.TempDir()
    for _, body := range []string{
        `{"kind":"login","session_id":"s1","at":"2026-01-02T03:04:05Z"}`,
        `{"kind":"logout","session_id":"s1","at":"2026-01-02T03:05:05Z"}`,
    } {
        if err := HandleActivity(dir, []byte(body)); err != nil {
            t.Fatalf("HandleActivity: %v", err)
        }
    }
    raw, err := os.ReadFile(filepath.Join(dir, "activity.log"))
    if err != nil {
        t.Fatal(err)
    }
    lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
    if len(lines) != 2 || !strings.Contains(lines[0], "login") || !strings.Contains(lines[1], "logout") {
        t.Errorf("log = %q", raw)
    }
}

func TestHandleActivity_Rejects(t *testing.T) {
    dir := t.TempDir()
    if err := HandleActivity(dir, []byte(`not json`)); err == nil {
        t.Error("accepted malformed body")
    }
    if err := HandleActivity(dir, []byte(`{"session_id":"s1"}`)); err == nil {
        t.Error("accepted event without kind")
    }
}
