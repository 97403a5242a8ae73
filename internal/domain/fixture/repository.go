package fixture

import (
	"context"
	"time"
)

type Repository interface {
	ListByCompetitionBetween(ctx context.Context, competition string, from, to time.Time) ([]Fixture, error)
}
