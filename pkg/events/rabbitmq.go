package events

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go-pos/pkg/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	Exchange        = "pos_events"
	DeadLetter      = "pos_dlx"
	PrintQueue      = "pos.print_jobs"
	PrintDeadQueue  = "pos.print_jobs.dead"
	PrintRoutingKey = "print.job"
)

// Publisher sends one message to an exchange.
type Publisher interface {
	Publish(ctx context.Context, exchange, key string, body []byte) error
}

// confirmPublisher is the publishing half of a confirm-mode channel.
type confirmPublisher interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
}

// Client is a connection with one confirm-mode channel for publishing.
type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	pub  confirmPublisher
}

func URL(cfg config.RabbitMQConfig) string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
	// no path means the default vhost
	if cfg.VHost != "" {
		u.Path = "/" + cfg.VHost
	}
	return u.String()
}

func Dial(cfg config.RabbitMQConfig) (*Client, error) {
	conn, err := amqp.Dial(URL(cfg))
	if err != nil {
		return nil, fmt.Errorf("dialing rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Client{conn: conn, ch: ch, pub: ch}, nil
}

func (c *Client) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// DeclareTopology declares the event exchange and the print-job queue. Rejected print jobs
// are dead-lettered rather than requeued.
func (c *Client) DeclareTopology() error {
	if err := c.ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", Exchange, err)
	}
	if err := c.ch.ExchangeDeclare(DeadLetter, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", DeadLetter, err)
	}
	if _, err := c.ch.QueueDeclare(PrintQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    DeadLetter,
		"x-dead-letter-routing-key": PrintDeadQueue,
	}); err != nil {
		return fmt.Errorf("declare %s: %w", PrintQueue, err)
	}
	if _, err := c.ch.QueueDeclare(PrintDeadQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", PrintDeadQueue, err)
	}
	if err := c.ch.QueueBind(PrintQueue, PrintRoutingKey, Exchange, false, nil); err != nil {
		return err
	}
	return c.ch.QueueBind(PrintDeadQueue, PrintDeadQueue, DeadLetter, false, nil)
}

// Publish sends a persistent JSON message and waits for the broker to confirm that message.
// A confirm that arrives after ctx ends is dropped with its message.
func (c *Client) Publish(ctx context.Context, exchange, key string, body []byte) error {
	dc, err := c.pub.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return err
	}
	if dc == nil {
		return errors.New("channel is not in confirm mode")
	}
	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("waiting for confirm of tag %d: %w", dc.DeliveryTag, err)
	}
	if !acked {
		return errors.New("publish NACK from broker")
	}
	return nil
}

// Consume opens a separate channel with the given prefetch and starts consuming queue.
func (c *Client) Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, func(), error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, nil, err
	}
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	msgs, err := ch.Consume(queue, consumer, false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	return msgs, func() { _ = ch.Close() }, nil
}

// Handle settles every delivery with fn's outcome: ack on success, reject without requeue
// on failure. It returns when ctx is done or deliveries is closed.
func Handle(ctx context.Context, deliveries <-chan amqp.Delivery, fn func(context.Context, amqp.Delivery) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			if err := fn(ctx, d); err != nil {
				_ = d.Reject(false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
