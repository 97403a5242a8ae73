package fanout

import (
	"context"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/bytebufferpool"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/platform/logging"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/usecase"
)

const (
	streamKeyPrefix  = "tracker.changes."
	streamMaxLen     = 4096
	consumerGroup    = "tracker-fanout"
	readBlockTimeout = time.Second
)

// RedisFanout bridges row changes across processes through Redis
// streams, for deployments where viewers connect to a different
// instance than the one doing the polling. XADD gives at-least-once
// delivery; consumers must tolerate duplicates.
type RedisFanout struct {
	client     *redis.Client
	consumerID string
	logger     *logging.Logger
}

func NewRedisFanout(client *redis.Client, consumerID string, logger *logging.Logger) *RedisFanout {
	if logger == nil {
		logger = logging.Default()
	}

	return &RedisFanout{
		client:     client,
		consumerID: consumerID,
		logger:     logger,
	}
}

func streamKey(table string) string {
	return streamKeyPrefix + table
}

func (f *RedisFanout) Publish(ctx context.Context, change usecase.RowChange) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(change); err != nil {
		return fmt.Errorf("encode row change: %w", err)
	}

	err := f.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(change.Table),
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"data":       buf.String(),
			"subject_id": change.SubjectID,
			"op":         string(change.Op),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd row change table=%s: %w", change.Table, err)
	}

	return nil
}

func (f *RedisFanout) Subscribe(ctx context.Context, table string) (<-chan usecase.RowChange, func(), error) {
	key := streamKey(table)

	err := f.client.XGroupCreateMkStream(ctx, key, consumerGroup, "$").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return nil, nil, fmt.Errorf("create consumer group stream=%s: %w", key, err)
	}

	out := make(chan usecase.RowChange, 64)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)
		for {
			streams, err := f.client.XReadGroup(subCtx, &redis.XReadGroupArgs{
				Group:    consumerGroup,
				Consumer: f.consumerID,
				Streams:  []string{key, ">"},
				Count:    16,
				Block:    readBlockTimeout,
			}).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if subCtx.Err() != nil {
					return
				}
				f.logger.Warn("read change stream failed", "stream", key, "error", err)
				select {
				case <-subCtx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}

			for _, stream := range streams {
				for _, message := range stream.Messages {
					change, err := parseStreamMessage(message)
					if err != nil {
						f.logger.Warn("dropping unparseable change message", "stream", key, "message_id", message.ID, "error", err)
						f.ack(subCtx, key, message.ID)
						continue
					}
					select {
					case out <- change:
						f.ack(subCtx, key, message.ID)
					case <-subCtx.Done():
						return
					}
				}
			}
		}
	}()

	return out, cancel, nil
}

func (f *RedisFanout) ack(ctx context.Context, key, messageID string) {
	if err := f.client.XAck(ctx, key, consumerGroup, messageID).Err(); err != nil && ctx.Err() == nil {
		f.logger.Warn("ack change message failed", "stream", key, "message_id", messageID, "error", err)
	}
}

func parseStreamMessage(message redis.XMessage) (usecase.RowChange, error) {
	raw, ok := message.Values["data"].(string)
	if !ok || raw == "" {
		return usecase.RowChange{}, fmt.Errorf("message %s has no data field", message.ID)
	}

	var change usecase.RowChange
	if err := sonic.Unmarshal([]byte(raw), &change); err != nil {
		return usecase.RowChange{}, fmt.Errorf("decode message %s: %w", message.ID, err)
	}

	return change, nil
}
