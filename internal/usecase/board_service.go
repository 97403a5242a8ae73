package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/fixture"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/livematch"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/subject"
)

type LiveBoardEntry struct {
	Subject subject.Subject
	State   livematch.State
}

type UpcomingFixtureEntry struct {
	Subject subject.Subject
	Fixture fixture.Fixture
}

// BoardService serves the read side: the live board viewers render and
// the list of upcoming fixtures.
type BoardService struct {
	subjectRepo subject.Repository
	fixtureRepo fixture.Repository
	liveRepo    livematch.Repository
	competition string
	now         func() time.Time
}

func NewBoardService(
	subjectRepo subject.Repository,
	fixtureRepo fixture.Repository,
	liveRepo livematch.Repository,
	competition string,
) *BoardService {
	return &BoardService{
		subjectRepo: subjectRepo,
		fixtureRepo: fixtureRepo,
		liveRepo:    liveRepo,
		competition: competition,
		now:         time.Now,
	}
}

func (s *BoardService) LiveBoard(ctx context.Context) ([]LiveBoardEntry, error) {
	ctx, span := startUsecaseSpan(ctx, "BoardService.LiveBoard")
	defer span.End()

	states, err := s.liveRepo.ListByCompetition(ctx, s.competition)
	if err != nil {
		return nil, fmt.Errorf("list live matches: %w", err)
	}

	out := make([]LiveBoardEntry, 0, len(states))
	for _, state := range states {
		subj, exists, err := s.subjectRepo.GetByID(ctx, state.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("get subject %s: %w", state.SubjectID, err)
		}
		if !exists {
			// Row outlived its subject; skip rather than fail the board.
			continue
		}
		out = append(out, LiveBoardEntry{Subject: subj, State: state})
	}

	return out, nil
}

func (s *BoardService) UpcomingFixtures(ctx context.Context, horizon time.Duration) ([]UpcomingFixtureEntry, error) {
	ctx, span := startUsecaseSpan(ctx, "BoardService.UpcomingFixtures")
	defer span.End()

	if horizon <= 0 {
		horizon = 7 * 24 * time.Hour
	}

	now := s.now().UTC()
	fixtures, err := s.fixtureRepo.ListByCompetitionBetween(ctx, s.competition, now, now.Add(horizon))
	if err != nil {
		return nil, fmt.Errorf("list upcoming fixtures: %w", err)
	}

	out := make([]UpcomingFixtureEntry, 0, len(fixtures))
	for _, fx := range fixtures {
		subj, exists, err := s.subjectRepo.GetByID(ctx, fx.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("get subject %s: %w", fx.SubjectID, err)
		}
		if !exists {
			continue
		}
		out = append(out, UpcomingFixtureEntry{Subject: subj, Fixture: fx})
	}

	return out, nil
}
