package usecase

import (
	"context"
	"time"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/fixture"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/livematch"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/platform/logging"
)

const (
	// Lookahead covers provider pre-game status flicker before kickoff.
	DefaultWindowLookahead = 90 * time.Minute
	// Lookback covers the longest plausible live event including overtime.
	DefaultWindowLookback = 4 * time.Hour
)

// PollWindow bounds the fixture and live-row queries for one tick.
type PollWindow struct {
	Start time.Time
	End   time.Time
}

type WindowConfig struct {
	Lookahead time.Duration
	Lookback  time.Duration
}

// WindowService decides whether "now" is close enough to a kickoff, or
// inside a running game, to justify hitting the external provider.
type WindowService struct {
	fixtureRepo fixture.Repository
	liveRepo    livematch.Repository
	competition string
	cfg         WindowConfig
	logger      *logging.Logger
}

func NewWindowService(
	fixtureRepo fixture.Repository,
	liveRepo livematch.Repository,
	competition string,
	cfg WindowConfig,
	logger *logging.Logger,
) *WindowService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = DefaultWindowLookahead
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultWindowLookback
	}

	return &WindowService{
		fixtureRepo: fixtureRepo,
		liveRepo:    liveRepo,
		competition: competition,
		cfg:         cfg,
		logger:      logger,
	}
}

// Window returns the query bounds [now − lookback, now + lookahead].
func (s *WindowService) Window(now time.Time) PollWindow {
	now = now.UTC()
	return PollWindow{
		Start: now.Add(-s.cfg.Lookback),
		End:   now.Add(s.cfg.Lookahead),
	}
}

// IsWithinMatchWindow reports whether a fixture starts within the
// lookahead horizon or a live/halftime row already exists. Store read
// failures are logged and treated as "not in window": a store outage
// must not turn into a hot provider-polling loop.
func (s *WindowService) IsWithinMatchWindow(ctx context.Context, now time.Time) bool {
	ctx, span := startUsecaseSpan(ctx, "WindowService.IsWithinMatchWindow")
	defer span.End()

	now = now.UTC()

	fixtures, err := s.fixtureRepo.ListByCompetitionBetween(ctx, s.competition, now, now.Add(s.cfg.Lookahead))
	if err != nil {
		s.logger.WarnContext(ctx, "window check: fixture store read failed, assuming not in window",
			"competition", s.competition, "error", err)
		return false
	}
	for _, fx := range fixtures {
		if fx.StartsWithin(now, now.Add(s.cfg.Lookahead)) {
			return true
		}
	}

	states, err := s.liveRepo.ListByCompetition(ctx, s.competition)
	if err != nil {
		s.logger.WarnContext(ctx, "window check: live store read failed, assuming not in window",
			"competition", s.competition, "error", err)
		return false
	}
	for _, st := range states {
		if st.Phase.Active() {
			return true
		}
	}

	return false
}
