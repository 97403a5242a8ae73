package usecase

import (
	"context"
	"time"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/livematch"
)

// ProviderGame is one scheduled or in-progress game as reported by the
// external data provider for a single team.
type ProviderGame struct {
	GameID       string
	Opponent     string
	Home         bool
	StartTime    time.Time
	RawStatus    string
	RawClock     string
	HomeScore    int
	AwayScore    int
	LastPlayText string
}

// MatchDataProvider is the outbound port to the external sports data
// feed. Implementations report failures through the usecase sentinels:
// ErrUnauthorized, ErrRateLimited, ErrMalformedResponse and
// ErrDependencyUnavailable. A single call maps to at most one upstream
// request; retry policy belongs to the caller.
type MatchDataProvider interface {
	FetchGamesInRange(ctx context.Context, teamID int64, from, to time.Time) ([]ProviderGame, error)
	FetchLiveStats(ctx context.Context, playerID int64, gameID string) (livematch.StatLine, error)
}
