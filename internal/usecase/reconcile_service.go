package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/livematch"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/subject"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/platform/logging"
)

type ReconcileAction string

const (
	ReconcileActionNone     ReconcileAction = "none"
	ReconcileActionUpserted ReconcileAction = "upserted"
	ReconcileActionFinished ReconcileAction = "finished"
	ReconcileActionDeleted  ReconcileAction = "deleted"
	ReconcileActionSkipped  ReconcileAction = "skipped"
)

type ReconcileResult struct {
	SubjectID string
	Action    ReconcileAction
	Phase     livematch.Phase
	GameID    string
}

// ReconcileService drives one subject's live row toward what the
// provider currently reports: upsert while a game is live or at
// halftime, keep a finished row for one extra cycle so subscribers can
// observe the final score, then delete.
type ReconcileService struct {
	provider  MatchDataProvider
	liveRepo  livematch.Repository
	windowSvc *WindowService
	logger    *logging.Logger
	now       func() time.Time

	// One reconciliation per subject at a time; a second caller for the
	// same subject skips instead of queueing.
	inFlight sync.Map
}

func NewReconcileService(
	provider MatchDataProvider,
	liveRepo livematch.Repository,
	windowSvc *WindowService,
	logger *logging.Logger,
) *ReconcileService {
	if logger == nil {
		logger = logging.Default()
	}

	return &ReconcileService{
		provider:  provider,
		liveRepo:  liveRepo,
		windowSvc: windowSvc,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *ReconcileService) Reconcile(ctx context.Context, subj subject.Subject) (ReconcileResult, error) {
	ctx, span := startUsecaseSpan(ctx, "ReconcileService.Reconcile")
	defer span.End()

	if !subj.LiveTrackable() {
		return ReconcileResult{SubjectID: subj.ID, Action: ReconcileActionSkipped}, nil
	}

	if _, loaded := s.inFlight.LoadOrStore(subj.ID, struct{}{}); loaded {
		s.logger.DebugContext(ctx, "reconcile already in flight, skipping", "subject_id", subj.ID)
		return ReconcileResult{SubjectID: subj.ID, Action: ReconcileActionSkipped}, nil
	}
	defer s.inFlight.Delete(subj.ID)

	now := s.now().UTC()
	window := s.windowSvc.Window(now)

	games, err := s.provider.FetchGamesInRange(ctx, subj.ProviderTeamID, window.Start, window.End)
	if err != nil {
		return ReconcileResult{SubjectID: subj.ID}, fmt.Errorf("fetch games for subject %s: %w", subj.ID, err)
	}

	active, finished := s.pickGames(ctx, subj, games)

	if active == nil {
		return s.reconcileNoActive(ctx, subj, finished, now)
	}

	phase := livematch.MapPhase(active.RawStatus)
	clock := livematch.FormatClock(subj.Sport, active.RawStatus, active.RawClock)

	// Stats are best-effort: a failed stat fetch writes the row with an
	// empty bag instead of aborting the reconciliation.
	stats, err := s.provider.FetchLiveStats(ctx, subj.ProviderPlayerID, active.GameID)
	if err != nil {
		s.logger.WarnContext(ctx, "live stats fetch failed, writing empty stat line",
			"subject_id", subj.ID, "game_id", active.GameID, "error", err)
		stats = livematch.StatLine{}
	}

	state := livematch.State{
		SubjectID:      subj.ID,
		Competition:    subj.Competition,
		Opponent:       active.Opponent,
		Home:           active.Home,
		Phase:          phase,
		KickoffAt:      active.StartTime.UTC(),
		ElapsedMinutes: clock.Elapsed,
		HomeScore:      active.HomeScore,
		AwayScore:      active.AwayScore,
		Stats:          stats,
		LastEvent:      lastEvent(active, clock.Display),
		UpdatedAt:      now,
	}

	if err := s.liveRepo.Upsert(ctx, state); err != nil {
		return ReconcileResult{SubjectID: subj.ID}, fmt.Errorf("upsert live state for subject %s: %w", subj.ID, err)
	}

	return ReconcileResult{SubjectID: subj.ID, Action: ReconcileActionUpserted, Phase: phase, GameID: active.GameID}, nil
}

// pickGames splits the provider's games into at most one active game and
// at most one finished game. Two simultaneously-active games for one
// team is provider garbage; keep the latest kickoff and warn.
func (s *ReconcileService) pickGames(ctx context.Context, subj subject.Subject, games []ProviderGame) (active, finished *ProviderGame) {
	for i := range games {
		g := &games[i]
		switch livematch.MapPhase(g.RawStatus) {
		case livematch.PhaseLive, livematch.PhaseHalftime:
			if active == nil {
				active = g
				continue
			}
			s.logger.WarnContext(ctx, "provider returned multiple active games for one team, keeping latest kickoff",
				"subject_id", subj.ID, "kept_game_id", active.GameID, "dropped_game_id", g.GameID)
			if g.StartTime.After(active.StartTime) {
				active = g
			}
		case livematch.PhaseFinished:
			if finished == nil || g.StartTime.After(finished.StartTime) {
				finished = g
			}
		}
	}
	return active, finished
}

// reconcileNoActive handles the tail of a game's lifecycle. A finished
// game updates a still-active row in place so the final score is
// observable for one cycle; anything else deletes the leftover row.
func (s *ReconcileService) reconcileNoActive(ctx context.Context, subj subject.Subject, finished *ProviderGame, now time.Time) (ReconcileResult, error) {
	existing, exists, err := s.liveRepo.GetBySubject(ctx, subj.ID)
	if err != nil {
		return ReconcileResult{SubjectID: subj.ID}, fmt.Errorf("get live state for subject %s: %w", subj.ID, err)
	}
	if !exists {
		return ReconcileResult{SubjectID: subj.ID, Action: ReconcileActionNone}, nil
	}

	if finished != nil && existing.Phase.Active() {
		clock := livematch.FormatClock(subj.Sport, finished.RawStatus, finished.RawClock)
		state := livematch.State{
			SubjectID:      subj.ID,
			Competition:    subj.Competition,
			Opponent:       finished.Opponent,
			Home:           finished.Home,
			Phase:          livematch.PhaseFinished,
			KickoffAt:      finished.StartTime.UTC(),
			ElapsedMinutes: clock.Elapsed,
			HomeScore:      finished.HomeScore,
			AwayScore:      finished.AwayScore,
			Stats:          existing.Stats,
			LastEvent:      lastEvent(finished, clock.Display),
			UpdatedAt:      now,
		}
		if err := s.liveRepo.Upsert(ctx, state); err != nil {
			return ReconcileResult{SubjectID: subj.ID}, fmt.Errorf("mark finished for subject %s: %w", subj.ID, err)
		}
		return ReconcileResult{SubjectID: subj.ID, Action: ReconcileActionFinished, Phase: livematch.PhaseFinished, GameID: finished.GameID}, nil
	}

	phases := []livematch.Phase{livematch.PhaseLive, livematch.PhaseHalftime, livematch.PhaseFinished}
	if err := s.liveRepo.DeleteBySubjectInPhases(ctx, subj.ID, phases); err != nil {
		return ReconcileResult{SubjectID: subj.ID}, fmt.Errorf("delete live state for subject %s: %w", subj.ID, err)
	}

	return ReconcileResult{SubjectID: subj.ID, Action: ReconcileActionDeleted}, nil
}

func lastEvent(g *ProviderGame, clockDisplay string) string {
	if g.LastPlayText != "" {
		return g.LastPlayText
	}
	return clockDisplay
}
