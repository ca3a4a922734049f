package changefeed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second

	defaultReconnectDelay = 5 * time.Second
)

// notificationListener is the part of *pq.Listener the feed uses
type notificationListener interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// PostgresFeed publishes with pg_notify and consumes with LISTEN, so every
// instance connected to the same database sees every write.
type PostgresFeed struct {
	db             *sql.DB
	dsn            string
	channel        string
	reconnectDelay time.Duration
	newListener    func(dsn string, callback pq.EventCallbackType) notificationListener

	closeOnce sync.Once
	done      chan struct{}
}

// NewPostgresFeed creates a feed on the given NOTIFY channel
func NewPostgresFeed(db *sql.DB, dsn, channel string, reconnectDelay time.Duration) *PostgresFeed {
	if reconnectDelay <= 0 {
		reconnectDelay = defaultReconnectDelay
	}

	return &PostgresFeed{
		db:             db,
		dsn:            dsn,
		channel:        channel,
		reconnectDelay: reconnectDelay,
		newListener: func(dsn string, callback pq.EventCallbackType) notificationListener {
			return pq.NewListener(dsn, listenerMinReconnect, listenerMaxReconnect, callback)
		},
		done: make(chan struct{}),
	}
}

// Publish sends change as a NOTIFY payload
func (f *PostgresFeed) Publish(ctx context.Context, change Change) error {
	if err := change.Validate(); err != nil {
		return err
	}

	select {
	case <-f.done:
		return ErrClosed
	default:
	}

	payload, err := change.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}

	if _, err := f.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", f.channel, string(payload)); err != nil {
		return fmt.Errorf("failed to notify %s: %w", f.channel, err)
	}

	return nil
}

// Run listens on the channel, reconnecting after connection loss, until ctx
// is cancelled or the feed is closed. NOTIFY has no backlog, so every listener
// after the first triggers the resync hook once it is listening.
func (f *PostgresFeed) Run(ctx context.Context, handler Handler, opts ...RunOption) error {
	o := newRunOptions(opts)
	listened := false

	for {
		select {
		case <-f.done:
			return nil
		case <-ctx.Done():
			return nil
		default:
			if f.connectAndListen(ctx, handler, o.resync, listened) {
				listened = true
			}
		}

		select {
		case <-f.done:
			return nil
		case <-ctx.Done():
			return nil
		case <-time.After(f.reconnectDelay):
			slog.Info("Reconnecting change feed listener", "channel", f.channel)
		}
	}
}

// connectAndListen reports whether LISTEN succeeded
func (f *PostgresFeed) connectAndListen(ctx context.Context, handler Handler, resync ResyncFunc, resume bool) bool {
	listener := f.newListener(f.dsn, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			slog.Info("Change feed listener connected", "channel", f.channel)
		case pq.ListenerEventDisconnected:
			slog.Warn("Change feed listener disconnected", "channel", f.channel, "error", err)
		case pq.ListenerEventReconnected:
			slog.Info("Change feed listener reconnected", "channel", f.channel)
		case pq.ListenerEventConnectionAttemptFailed:
			slog.Warn("Change feed connection attempt failed", "channel", f.channel, "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(f.channel); err != nil {
		slog.Error("Failed to listen on change feed channel", "channel", f.channel, "error", err)
		return false
	}

	if resume {
		slog.InfoContext(ctx, "Resynchronizing subscribers after reconnect", "channel", f.channel)
		resync(ctx)
	}

	ping := time.NewTicker(listenerPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-f.done:
			return true
		case <-ctx.Done():
			return true
		case notification := <-listener.NotificationChannel():
			if notification == nil {
				// connection lost; notifications sent meanwhile are gone
				return true
			}
			f.handleNotification(ctx, notification, handler)
		case <-ping.C:
			if err := listener.Ping(); err != nil {
				slog.Warn("Change feed listener ping failed", "error", err)
			}
		}
	}
}

func (f *PostgresFeed) handleNotification(ctx context.Context, notification *pq.Notification, handler Handler) {
	change, err := ChangeFromJSON([]byte(notification.Extra))
	if err != nil {
		slog.WarnContext(ctx, "Dropping malformed change notification",
			"channel", notification.Channel,
			"error", err)
		return
	}

	if err := handler(ctx, change); err != nil {
		slog.WarnContext(ctx, "Change handler failed",
			"owner_id", change.OwnerID,
			"op", change.Op,
			"error", err)
	}
}

// Close stops Run. The shared *sql.DB is owned by the caller and stays open.
func (f *PostgresFeed) Close() error {
	f.closeOnce.Do(func() {
		close(f.done)
	})
	return nil
}
