// Package queue_publisher publishes activity events to RabbitMQ.  Errors are
// logged and returned so callers can ignore them without interrupting the
// request.
package queue_publisher

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/iliyamo/seatify-gateway/internal/queue"
)

// Publisher sends activity events somewhere.
type Publisher interface {
    PublishActivity(ctx context.Context, ev q.ActivityEvent) error
}

// New returns an AMQP publisher for url when enabled, else a Noop.
func New(enabled bool, url string) Publisher {
    if !enabled {
        return Noop{}
    }
    return &AMQP{URL: url}
}

// Noop drops every event.
type Noop struct{}

func (Noop) PublishActivity(context.Context, q.ActivityEvent) error { return nil }

// AMQP dials the broker for each publish.  Activity is low volume, so a
// long-lived connection with its own reconnect handling is not kept.
type AMQP struct {
    URL string
}

// PublishActivity sends ev to the durable activity queue as a persistent
// message.
func (p *AMQP) PublishActivity(ctx context.Context, ev q.ActivityEvent) error {
    conn, err := amqp.Dial(p.URL)
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(q.ActivityQueue, true, false, false, false, nil); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    if ev.At.IsZero() {
        ev.At = time.Now().UTC()
    }
    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }
    err = ch.PublishWithContext(ctx, "", q.ActivityQueue, false, false, amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    ev.At,
        Body:         body,
    })
    if err != nil {
        log.Printf("rabbitmq: publish %s failed: %v", ev.Kind, err)
    }
    return err
}
