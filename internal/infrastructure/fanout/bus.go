package fanout

import (
	"context"
	"sync"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/platform/logging"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/usecase"
)

// Bus is the in-process change feed: publishers never block, slow
// subscribers lose messages instead of stalling the reconcile path.
// Subscribers re-read the store on every delivery, so a dropped change
// is repaired by the next one.
type Bus struct {
	mu     sync.Mutex
	subs   map[chan usecase.RowChange]string
	closed bool
	logger *logging.Logger
}

func NewBus(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.Default()
	}

	return &Bus{
		subs:   make(map[chan usecase.RowChange]string),
		logger: logger,
	}
}

func (b *Bus) Publish(_ context.Context, change usecase.RowChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}

	for ch, table := range b.subs {
		if table != change.Table {
			continue
		}
		select {
		case ch <- change:
		default:
			b.logger.Warn("dropping change for slow subscriber", "table", change.Table, "subject_id", change.SubjectID)
		}
	}

	return nil
}

func (b *Bus) Subscribe(ctx context.Context, table string) (<-chan usecase.RowChange, func(), error) {
	ch := make(chan usecase.RowChange, 64)

	b.mu.Lock()
	if b.closed {
		close(ch)
		b.mu.Unlock()
		return ch, func() {}, nil
	}
	b.subs[ch] = table
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
			b.mu.Unlock()
		})
	}

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}

	return ch, cancel, nil
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
