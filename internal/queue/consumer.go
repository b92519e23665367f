package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// StartActivityConsumer consumes ActivityQueue and appends one line per
// event to dir/activity.log.  It reconnects with exponential backoff and
// returns only when ctx is cancelled.
func StartActivityConsumer(ctx context.Context, url, dir string) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Printf("activity-consumer: dial broker: %v; retrying in %s", err, backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, dir)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Printf("activity-consumer: consume loop ended: %v; reconnecting", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, dir string) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Printf("activity-consumer: set QoS: %v", err)
    }
    if _, err := ch.QueueDeclare(ActivityQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(ActivityQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := HandleActivity(dir, d.Body); err != nil {
                log.Printf("activity-consumer: handle message: %v", err)
                _ = d.Nack(false, false) // drop rather than requeue forever
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// HandleActivity decodes one message body and appends it to
// dir/activity.log.
func HandleActivity(dir string, body []byte) error {
    var ev ActivityEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Kind == "" {
        return errors.New("event has no kind")
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", dir, err)
    }
    f, err := os.OpenFile(filepath.Join(dir, "activity.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(FormatActivity(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatActivity renders ev as a single log line ending in a newline.
func FormatActivity(ev ActivityEvent) string {
    parts := []string{
        fmt.Sprintf("[%s] %s", ev.At.UTC().Format(time.RFC3339), ev.Kind),
        "session=" + ev.SessionID,
    }
    if ev.Email != "" {
        parts = append(parts, fmt.Sprintf("email=%q", ev.Email))
    }
    if ev.EventID != 0 {
        parts = append(parts, fmt.Sprintf("event_id=%d", ev.EventID))
    }
    if ev.SeatID != 0 {
        parts = append(parts, fmt.Sprintf("seat_id=%d", ev.SeatID))
    }
    if ev.BookingID != 0 {
        parts = append(parts, fmt.Sprintf("booking_id=%d", ev.BookingID))
    }
    return strings.Join(parts, " | ") + "\n"
}
