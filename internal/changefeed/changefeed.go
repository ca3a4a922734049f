package changefeed

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"money-tracker/internal/config"

	"github.com/google/uuid"
)

// Op names the mutation that produced a change
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

var (
	ErrClosed       = errors.New("change feed closed")
	ErrMissingOwner = errors.New("change has no owner")
)

// Change announces that one owner's transactions were mutated.
// It carries identity only; consumers reload what they need.
type Change struct {
	OwnerID       uuid.UUID `json:"owner_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Op            Op        `json:"op"`
	At            time.Time `json:"at"`
}

// NewChange stamps a change for owner with the current time
func NewChange(ownerID, transactionID uuid.UUID, op Op) Change {
	return Change{
		OwnerID:       ownerID,
		TransactionID: transactionID,
		Op:            op,
		At:            time.Now().UTC(),
	}
}

// Validate rejects changes no subscriber could be routed to
func (c Change) Validate() error {
	if c.OwnerID == uuid.Nil {
		return ErrMissingOwner
	}
	return nil
}

// ToJSON encodes the change as a wire payload
func (c Change) ToJSON() ([]byte, error) {
	return json.Marshal(c)
}

// ChangeFromJSON decodes a wire payload
func ChangeFromJSON(data []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(data, &c); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Change{}, err
	}
	return c, nil
}

// Handler receives every change consumed from a feed
type Handler func(ctx context.Context, change Change) error

// ResyncFunc is called when a consumer may have missed changes, after its
// connection to the backend was re-established
type ResyncFunc func(ctx context.Context)

// RunOption configures a Run loop
type RunOption func(*runOptions)

type runOptions struct {
	resync ResyncFunc
}

// WithResync registers fn to run after every reconnect
func WithResync(fn ResyncFunc) RunOption {
	return func(o *runOptions) {
		if fn != nil {
			o.resync = fn
		}
	}
}

func newRunOptions(opts []RunOption) runOptions {
	o := runOptions{resync: func(context.Context) {}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Feed propagates changes between writers and the subscription hub,
// possibly across several API instances.
type Feed interface {
	Publish(ctx context.Context, change Change) error
	// Run consumes changes until ctx is cancelled or the feed is closed
	Run(ctx context.Context, handler Handler, opts ...RunOption) error
	Close() error
}

// New builds the backend selected by cfg. The postgres backend publishes over db
// and listens on its own connection opened from dsn.
func New(cfg config.ChangeFeedConfig, db *sql.DB, dsn string) (Feed, error) {
	switch cfg.Backend {
	case config.ChangeFeedMemory, "":
		return NewMemoryFeed(), nil
	case config.ChangeFeedPostgres:
		if db == nil {
			return nil, errors.New("postgres change feed requires a database handle")
		}
		return NewPostgresFeed(db, dsn, cfg.PostgresChannel, cfg.ReconnectDelay), nil
	case config.ChangeFeedAMQP:
		return NewAMQPFeed(cfg.AMQPURL, cfg.Exchange, cfg.ReconnectDelay)
	default:
		return nil, fmt.Errorf("unsupported change feed backend: %s", cfg.Backend)
	}
}
