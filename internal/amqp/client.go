package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"vozruta/internal/core"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

var errDeliveriesClosed = errors.New("delivery channel closed")

// Handlers receive decoded events. A nil handler rejects its event type.
type Handlers struct {
	Sync   func(ctx context.Context, msg *TripSyncMessage) error
	Delete func(ctx context.Context, msg *TripDeleteMessage) error
}

// Client publishes and consumes trip events on a durable direct exchange.
// The connection is re-established lazily after connection errors and a
// circuit breaker stops publishing while the broker keeps failing.
type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *slog.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string, logger *slog.Logger) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger,
	}

	if _, err := client.ensureChannel(); err != nil {
		return nil, err
	}

	return client, nil
}

func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := c.setup(channel); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return channel, nil
}

func (c *Client) setup(channel *amqp091.Channel) error {
	err := channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name.
	err = channel.QueueBind(
		c.queueName,
		c.queueName,
		c.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishTripSync announces a saved trip.
func (c *Client) PublishTripSync(ctx context.Context, t core.Trip) error {
	if t.ID == nil {
		return fmt.Errorf("publish trip sync: %w: trip has no id", core.ErrInvalidRecord)
	}
	body, err := NewTripSyncMessage(t).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, EventTripSync, body); err != nil {
		return err
	}

	c.log().InfoContext(ctx, "Published trip sync message",
		"id", *t.ID,
		"date", t.Date,
		"exchange", c.exchangeName)
	return nil
}

// PublishTripDelete announces a removed trip.
func (c *Client) PublishTripDelete(ctx context.Context, id int64, date string) error {
	body, err := NewTripDeleteMessage(id, date).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, EventTripDelete, body); err != nil {
		return err
	}

	c.log().InfoContext(ctx, "Published trip delete message",
		"id", id,
		"date", date,
		"exchange", c.exchangeName)
	return nil
}

func (c *Client) publish(ctx context.Context, eventType string, body []byte) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: circuit breaker is open", eventType)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	channel, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    uuid.NewString(),
			Type:         eventType,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.reset()
		}
		return fmt.Errorf("publish message: %w", err)
	}

	c.recordSuccess()
	return nil
}

// ConsumeMessages dispatches deliveries to h until ctx is done. Lost
// connections are re-dialled with exponential backoff.
func (c *Client) ConsumeMessages(ctx context.Context, h Handlers) error {
	attempt := 0
	for {
		err := c.consume(ctx, h, func() { attempt = 0 })
		if ctx.Err() != nil {
			c.log().InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		if !errors.Is(err, errDeliveriesClosed) && !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		attempt++
		c.log().WarnContext(ctx, "AMQP consumer lost connection, retrying",
			"error", err,
			"attempt", attempt,
			"backoff", wait)
		c.reset()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consume(ctx context.Context, h Handlers, connected func()) error {
	channel, err := c.ensureChannel()
	if err != nil {
		return err
	}
	if err := channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	connected()

	c.log().InfoContext(ctx, "Started consuming trip messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errDeliveriesClosed
			}
			c.dispatch(ctx, delivery, h)
		}
	}
}

// dispatch acks handled messages, requeues handler failures and drops
// messages that can never be handled.
func (c *Client) dispatch(ctx context.Context, d amqp091.Delivery, h Handlers) {
	var err error
	switch d.Type {
	case EventTripSync:
		if h.Sync == nil {
			err = errUnhandled(d.Type)
			break
		}
		msg, decodeErr := TripSyncMessageFromJSON(d.Body)
		if decodeErr != nil {
			c.log().ErrorContext(ctx, "Failed to unmarshal message", "type", d.Type, "error", decodeErr)
			d.Nack(false, false)
			return
		}
		if err = h.Sync(ctx, msg); err != nil {
			c.log().ErrorContext(ctx, "Failed to handle message", "type", d.Type, "error", err)
			d.Nack(false, true)
			return
		}
	case EventTripDelete:
		if h.Delete == nil {
			err = errUnhandled(d.Type)
			break
		}
		msg, decodeErr := TripDeleteMessageFromJSON(d.Body)
		if decodeErr != nil {
			c.log().ErrorContext(ctx, "Failed to unmarshal message", "type", d.Type, "error", decodeErr)
			d.Nack(false, false)
			return
		}
		if err = h.Delete(ctx, msg); err != nil {
			c.log().ErrorContext(ctx, "Failed to handle message", "type", d.Type, "error", err)
			d.Nack(false, true)
			return
		}
	default:
		err = errUnhandled(d.Type)
	}

	if err != nil {
		c.log().ErrorContext(ctx, "Dropping message", "type", d.Type, "message_id", d.MessageId, "error", err)
		d.Nack(false, false)
		return
	}

	d.Ack(false)
	c.log().InfoContext(ctx, "Processed trip message", "type", d.Type, "message_id", d.MessageId)
}

func errUnhandled(eventType string) error {
	return fmt.Errorf("no handler for event type %q", eventType)
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	if time.Since(c.lastFailure) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	failures := atomic.AddInt64(&c.failureCount, 1)
	c.lastFailure = time.Now()
	if failures >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	return err
}

// exponentialBackoff doubles from one second and caps at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection closed",
		"EOF",
		"broken pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
