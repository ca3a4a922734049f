package changefeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	amqpPublishTimeout = 5 * time.Second
	maxBackoff         = 30 * time.Second
)

// AMQPFeed publishes changes to a fanout exchange. Every Run loop binds its
// own exclusive queue, so each instance receives every change.
type AMQPFeed struct {
	url            string
	exchange       string
	reconnectDelay time.Duration

	mu      sync.Mutex
	pubConn *amqp091.Connection
	pubCh   *amqp091.Channel
	closed  bool

	closeOnce sync.Once
	done      chan struct{}
}

// NewAMQPFeed validates the broker URL. Connections are opened on first use.
func NewAMQPFeed(url, exchange string, reconnectDelay time.Duration) (*AMQPFeed, error) {
	if _, err := amqp091.ParseURI(url); err != nil {
		return nil, fmt.Errorf("parse AMQP URL: %w", err)
	}
	if exchange == "" {
		return nil, errors.New("AMQP exchange name is required")
	}
	if reconnectDelay <= 0 {
		reconnectDelay = defaultReconnectDelay
	}

	return &AMQPFeed{
		url:            url,
		exchange:       exchange,
		reconnectDelay: reconnectDelay,
		done:           make(chan struct{}),
	}, nil
}

func (f *AMQPFeed) connect() (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(f.url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		f.exchange,             // name
		amqp091.ExchangeFanout, // type
		true,                   // durable
		false,                  // auto-deleted
		false,                  // internal
		false,                  // no-wait
		nil,                    // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}

	return conn, ch, nil
}

// publishChannel returns an open publishing channel, reconnecting if needed. Callers hold f.mu.
func (f *AMQPFeed) publishChannel() (*amqp091.Channel, error) {
	if f.closed {
		return nil, ErrClosed
	}
	if f.pubCh != nil && !f.pubCh.IsClosed() {
		return f.pubCh, nil
	}

	f.resetPublisher()

	conn, ch, err := f.connect()
	if err != nil {
		return nil, err
	}
	f.pubConn, f.pubCh = conn, ch

	return ch, nil
}

func (f *AMQPFeed) resetPublisher() {
	if f.pubCh != nil {
		f.pubCh.Close()
		f.pubCh = nil
	}
	if f.pubConn != nil {
		f.pubConn.Close()
		f.pubConn = nil
	}
}

// Publish sends change to the exchange
func (f *AMQPFeed) Publish(ctx context.Context, change Change) error {
	if err := change.Validate(); err != nil {
		return err
	}

	body, err := change.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	ch, err := f.publishChannel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, amqpPublishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		f.exchange, // exchange
		"",         // routing key, ignored by fanout
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Transient,
			Timestamp:    change.At,
			Body:         body,
		},
	)
	if err != nil {
		if isConnectionError(err) {
			f.resetPublisher()
		}
		return fmt.Errorf("publish change: %w", err)
	}

	return nil
}

// Run consumes changes until ctx is cancelled or the feed is closed, reconnecting
// with exponential backoff while the broker is unreachable. The queue is
// exclusive to one connection, so every consumer after the first triggers the
// resync hook once it is bound.
func (f *AMQPFeed) Run(ctx context.Context, handler Handler, opts ...RunOption) error {
	o := newRunOptions(opts)
	attempt := 0
	consumed := false

	for {
		select {
		case <-f.done:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		conn, ch, err := f.connect()
		if err != nil {
			wait := exponentialBackoff(attempt)
			attempt++
			slog.WarnContext(ctx, "Change feed broker unavailable", "error", err, "retry_in", wait)
			if !f.sleep(ctx, wait) {
				return nil
			}
			continue
		}
		attempt = 0

		resync := func(context.Context) {}
		if consumed {
			resync = o.resync
		}
		consumed = true

		err = f.consume(ctx, ch, handler, resync)
		ch.Close()
		conn.Close()

		if err != nil {
			slog.WarnContext(ctx, "Change feed consumer stopped", "error", err)
		}
		if !f.sleep(ctx, f.reconnectDelay) {
			return nil
		}
	}
}

func (f *AMQPFeed) consume(ctx context.Context, ch *amqp091.Channel, handler Handler, resync ResyncFunc) error {
	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", f.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	deliveries, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		false,  // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Consuming transaction changes", "exchange", f.exchange, "queue", q.Name)
	resync(ctx)

	for {
		select {
		case <-f.done:
			return nil
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}

			change, err := ChangeFromJSON(delivery.Body)
			if err != nil {
				slog.WarnContext(ctx, "Dropping malformed change message", "error", err)
				delivery.Nack(false, false)
				continue
			}

			// a later change supersedes this one, so failures are not requeued
			if err := handler(ctx, change); err != nil {
				slog.WarnContext(ctx, "Change handler failed",
					"owner_id", change.OwnerID,
					"op", change.Op,
					"error", err)
				delivery.Nack(false, false)
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (f *AMQPFeed) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-f.done:
		return false
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// Close stops Run and closes the publishing connection
func (f *AMQPFeed) Close() error {
	f.closeOnce.Do(func() {
		close(f.done)
	})

	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.resetPublisher()

	return nil
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	backoff := time.Second << attempt
	if backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"connection", "eof", "broken pipe", "closed"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
