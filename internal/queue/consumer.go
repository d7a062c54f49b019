package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// Consumer reads the order events queue and writes one structured log
// entry per event.  It stands in for the notification service.
type Consumer struct {
    url   string
    queue string
    log   *logrus.Logger
}

// NewConsumer returns a Consumer for the order events queue at url.
func NewConsumer(url string, log *logrus.Logger) *Consumer {
    if url == "" {
        url = DefaultURL
    }
    return &Consumer{url: url, queue: OrderEventsQueue, log: log}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Lost
// connections are re-dialled with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.WithError(err).WithField("retry_in", backoff.String()).Warn("order-consumer: dial failed")
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.WithError(err).Warn("order-consumer: consume loop ended, reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.WithError(err).Warn("order-consumer: set QoS failed")
    }
    if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
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
            if err := c.Handle(d.Body); err != nil {
                c.log.WithError(err).Error("order-consumer: handle message failed")
                _ = d.Nack(false, false) // do not requeue poison messages
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// Handle decodes one message body and logs it.
func (c *Consumer) Handle(body []byte) error {
    var ev OrderEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" || ev.OrderID == "" {
        return errors.New("event without type or order id")
    }
    c.log.WithFields(logrus.Fields{
        "event":        string(ev.Type),
        "order_id":     ev.OrderID,
        "order_number": ev.OrderNumber,
        "product_id":   ev.ProductID,
        "merchant_id":  ev.MerchantID,
        "buyer_id":     ev.BuyerID,
        "travel_date":  ev.TravelDate.String(),
        "status":       string(ev.Status),
        "count":        ev.Count,
        "total":        ev.TotalPrice.StringFixed(2),
        "occurred_at":  ev.OccurredAt.Format(time.RFC3339),
    }).Info("order event")
    return nil
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
