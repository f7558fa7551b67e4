package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	applog "dompet/internal/log"
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
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

var (
	// ErrCircuitOpen is returned by Publish while the broker is considered down.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	errDeliveriesClosed = errors.New("message channel closed")
)

// Client publishes and consumes TransactionEvents on a durable direct exchange.
// The connection is re-established lazily after failures.
type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *applog.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string, logger *applog.Logger) (*Client, error) {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(applog.ComponentAMQP),
	}
	if _, err := c.ensureChannel(); err != nil {
		return nil, err
	}
	return c, nil
}

// ensureChannel returns the open channel, dialing again if the previous one died.
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
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := setup(ch, c.exchangeName, c.queueName); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	c.conn, c.channel = conn, ch
	return ch, nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	// Declare exchange
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name.
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Publish sends ev as a persistent JSON message.
func (c *Client) Publish(ctx context.Context, ev *TransactionEvent) error {
	if c.isCircuitOpen() {
		return ErrCircuitOpen
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		pubCtx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    ev.Timestamp,
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

	c.logger.DebugContext(ctx, "Published transaction event",
		applog.NewFields().
			WithOperation(applog.OpPublish).
			WithUser(ev.UserID).
			WithRecord(string(ev.Kind), ev.ID, "").
			ToSlice()...)
	return nil
}

// Handler processes one event. A returned error requeues the message.
type Handler func(ctx context.Context, ev *TransactionEvent) error

// Consume delivers events to handler until ctx is done, reconnecting with
// exponential backoff when the broker goes away.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	attempt := 0
	for {
		delivered, err := c.consumeOnce(ctx, handler)
		if ctx.Err() != nil {
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		if !errors.Is(err, errDeliveriesClosed) && !isConnectionError(err) {
			return err
		}
		if delivered > 0 {
			attempt = 0
		}
		wait := exponentialBackoff(attempt)
		attempt++
		c.logger.WarnContext(ctx, "AMQP consumer lost connection, reconnecting",
			"error", err, "retry_in", wait.String())
		c.reset()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler Handler) (int, error) {
	ch, err := c.ensureChannel()
	if err != nil {
		return 0, err
	}
	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return 0, fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming transaction events", "queue", c.queueName)

	delivered := 0
	for {
		select {
		case <-ctx.Done():
			return delivered, ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return delivered, errDeliveriesClosed
			}
			delivered++
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

// acknowledger is the subset of amqp091.Delivery the dispatch needs.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handler Handler) {
	dispatch(ctx, c.logger, d.Body, d, handler)
}

func dispatch(ctx context.Context, logger *applog.Logger, body []byte, ack acknowledger, handler Handler) {
	ev, err := TransactionEventFromJSON(body)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to decode transaction event", "error", err)
		ack.Nack(false, false) // malformed, do not requeue
		return
	}

	fields := applog.NewFields().
		WithOperation(applog.OpSync).
		WithUser(ev.UserID).
		WithRecord(string(ev.Kind), ev.ID, "")

	if err := handler(ctx, ev); err != nil {
		logger.ErrorContext(ctx, "Failed to handle transaction event",
			fields.WithError(err).ToSlice()...)
		ack.Nack(false, true)
		return
	}
	ack.Ack(false)
	logger.DebugContext(ctx, "Processed transaction event", fields.ToSlice()...)
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

// exponentialBackoff returns 1s, 2s, 4s ... capped at maxBackoff.
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
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
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
	c.closeLocked()
	return nil
}
