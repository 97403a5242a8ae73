package usecase

import (
	"context"
	"time"
)

const TableLiveMatches = "live_matches"

type ChangeOp string

const (
	ChangeOpUpsert ChangeOp = "upsert"
	ChangeOpDelete ChangeOp = "delete"
)

// RowChange is one row-level mutation of a tracked table, published to
// every subscriber after the write commits.
type RowChange struct {
	Table      string    `json:"table"`
	Op         ChangeOp  `json:"op"`
	SubjectID  string    `json:"subject_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ChangePublisher is the outbound side of the fan-out: repositories call
// Publish after every successful upsert or delete. Delivery is
// at-least-once; subscribers must tolerate duplicates.
type ChangePublisher interface {
	Publish(ctx context.Context, change RowChange) error
}

// ChangeFeed is the inbound side: a subscription delivering row changes
// until Close or context cancellation.
type ChangeFeed interface {
	Subscribe(ctx context.Context, table string) (<-chan RowChange, func(), error)
}

type noopChangePublisher struct{}

func (noopChangePublisher) Publish(context.Context, RowChange) error { return nil }

func NewNoopChangePublisher() ChangePublisher {
	return noopChangePublisher{}
}
