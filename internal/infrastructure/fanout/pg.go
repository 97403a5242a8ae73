package fanout

import (
	"context"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/lib/pq"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/platform/logging"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/usecase"
)

const (
	notifyChannel        = "live_match_changes"
	listenerMinReconnect = 2 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
)

// PGChangeFeed turns the live_matches NOTIFY trigger into a ChangeFeed.
// The trigger fires after commit, so a delivered change always reflects
// a row the reader can observe.
type PGChangeFeed struct {
	connStr string
	logger  *logging.Logger
}

func NewPGChangeFeed(connStr string, logger *logging.Logger) *PGChangeFeed {
	if logger == nil {
		logger = logging.Default()
	}

	return &PGChangeFeed{connStr: connStr, logger: logger}
}

func (f *PGChangeFeed) Subscribe(ctx context.Context, table string) (<-chan usecase.RowChange, func(), error) {
	listener := pq.NewListener(f.connStr, listenerMinReconnect, listenerMaxReconnect, func(event pq.ListenerEventType, err error) {
		if err != nil {
			f.logger.Warn("pg listener event", "event", int(event), "error", err)
		}
	})
	if err := listener.Listen(notifyChannel); err != nil {
		_ = listener.Close()
		return nil, nil, fmt.Errorf("listen on %s: %w", notifyChannel, err)
	}

	out := make(chan usecase.RowChange, 64)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)
		defer func() { _ = listener.Close() }()

		for {
			select {
			case <-subCtx.Done():
				return
			case notification := <-listener.Notify:
				if notification == nil {
					// Connection was re-established; rows changed in the gap
					// are invisible here, readers re-sync on reconnect.
					continue
				}
				change, err := parseNotification(notification.Extra)
				if err != nil {
					f.logger.Warn("dropping unparseable notification", "channel", notifyChannel, "error", err)
					continue
				}
				if change.Table != table {
					continue
				}
				select {
				case out <- change:
				case <-subCtx.Done():
					return
				}
			case <-time.After(listenerPingInterval):
				if err := listener.Ping(); err != nil {
					f.logger.Warn("pg listener ping failed", "error", err)
				}
			}
		}
	}()

	return out, cancel, nil
}

func parseNotification(payload string) (usecase.RowChange, error) {
	if payload == "" {
		return usecase.RowChange{}, fmt.Errorf("empty notification payload")
	}

	var change usecase.RowChange
	if err := sonic.Unmarshal([]byte(payload), &change); err != nil {
		return usecase.RowChange{}, fmt.Errorf("decode notification payload: %w", err)
	}
	if change.SubjectID == "" {
		return usecase.RowChange{}, fmt.Errorf("notification payload has no subject id")
	}

	return change, nil
}
