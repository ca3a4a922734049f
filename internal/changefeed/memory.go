package changefeed

import (
	"context"
	"log/slog"
	"sync"
)

const memoryBufferSize = 256

type memoryRunner struct {
	changes chan Change
	done    chan struct{}
}

// MemoryFeed fans changes out to every Run loop in this process
type MemoryFeed struct {
	mu        sync.RWMutex
	runners   map[int]*memoryRunner
	nextID    int
	closeOnce sync.Once
	done      chan struct{}
}

// NewMemoryFeed creates an in-process change feed
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		runners: make(map[int]*memoryRunner),
		done:    make(chan struct{}),
	}
}

// Publish hands change to every running consumer, waiting for buffer space if needed
func (f *MemoryFeed) Publish(ctx context.Context, change Change) error {
	if err := change.Validate(); err != nil {
		return err
	}

	select {
	case <-f.done:
		return ErrClosed
	default:
	}

	f.mu.RLock()
	runners := make([]*memoryRunner, 0, len(f.runners))
	for _, r := range f.runners {
		runners = append(runners, r)
	}
	f.mu.RUnlock()

	for _, r := range runners {
		select {
		case r.changes <- change:
		case <-r.done:
		case <-f.done:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Run delivers changes to handler until ctx is cancelled or the feed is closed.
// Handler errors are logged and do not stop the loop. There is no connection to
// lose, so resync hooks never fire.
func (f *MemoryFeed) Run(ctx context.Context, handler Handler, _ ...RunOption) error {
	r := &memoryRunner{
		changes: make(chan Change, memoryBufferSize),
		done:    make(chan struct{}),
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.runners[id] = r
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.runners, id)
		f.mu.Unlock()
		close(r.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-f.done:
			return nil
		case change := <-r.changes:
			if err := handler(ctx, change); err != nil {
				slog.WarnContext(ctx, "Change handler failed",
					"owner_id", change.OwnerID,
					"op", change.Op,
					"error", err)
			}
		}
	}
}

// Close stops every Run loop. Later publishes fail with ErrClosed.
func (f *MemoryFeed) Close() error {
	f.closeOnce.Do(func() {
		close(f.done)
	})
	return nil
}
