package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/fixture"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/livematch"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/infrastructure/repository/memory"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/usecase"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/platform/logging"
)

type schedulerFixture struct {
	scheduler *usecase.PollScheduler
	liveRepo  *memory.LiveMatchRepository
}

func newSchedulerFixture(t *testing.T, provider usecase.MatchDataProvider, cfg usecase.SchedulerConfig) schedulerFixture {
	t.Helper()

	now := time.Now().UTC()
	subjectRepo := memory.NewSubjectRepository(memory.SeedSubjects())
	fixtureRepo := memory.NewFixtureRepository([]fixture.Fixture{{
		ID:          "fx-now",
		SubjectID:   memory.SubjectIDAlperen,
		Competition: memory.CompetitionNBA,
		Opponent:    "Golden State Warriors",
		KickoffAt:   now.Add(30 * time.Minute),
	}})
	liveRepo := memory.NewLiveMatchRepository(nil)

	windowSvc := usecase.NewWindowService(fixtureRepo, liveRepo, memory.CompetitionNBA, usecase.WindowConfig{}, logging.NewNop())
	reconcileSvc := usecase.NewReconcileService(provider, liveRepo, windowSvc, logging.NewNop())
	scheduler := usecase.NewPollScheduler(subjectRepo, windowSvc, reconcileSvc, memory.CompetitionNBA, cfg, logging.NewNop())

	return schedulerFixture{scheduler: scheduler, liveRepo: liveRepo}
}

func TestPollScheduler_StateMachine(t *testing.T) {
	fx := newSchedulerFixture(t, &stubProvider{}, usecase.SchedulerConfig{})
	s := fx.scheduler

	if got := s.State(); got != usecase.SchedulerStateDisabled {
		t.Fatalf("initial state = %q, want disabled", got)
	}

	s.SetVisible(true)
	if got := s.State(); got != usecase.SchedulerStateDisabled {
		t.Fatalf("visible but disabled state = %q, want disabled", got)
	}

	s.SetEnabled(true)
	if got := s.State(); got != usecase.SchedulerStatePolling {
		t.Fatalf("enabled+visible state = %q, want polling", got)
	}

	s.SetVisible(false)
	if got := s.State(); got != usecase.SchedulerStateSuspended {
		t.Fatalf("hidden state = %q, want suspended", got)
	}

	s.SetEnabled(false)
	if got := s.State(); got != usecase.SchedulerStateDisabled {
		t.Fatalf("disabled state = %q, want disabled", got)
	}
}

func TestPollScheduler_TickOutsideWindowSkipsProvider(t *testing.T) {
	provider := &stubProvider{}
	subjectRepo := memory.NewSubjectRepository(memory.SeedSubjects())
	liveRepo := memory.NewLiveMatchRepository(nil)
	windowSvc := usecase.NewWindowService(memory.NewFixtureRepository(nil), liveRepo, memory.CompetitionNBA, usecase.WindowConfig{}, logging.NewNop())
	reconcileSvc := usecase.NewReconcileService(provider, liveRepo, windowSvc, logging.NewNop())
	s := usecase.NewPollScheduler(subjectRepo, windowSvc, reconcileSvc, memory.CompetitionNBA, usecase.SchedulerConfig{}, logging.NewNop())

	summary, err := s.Tick(t.Context())
	if err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if !summary.Ran || summary.InWindow {
		t.Fatalf("summary = %+v, want ran outside window", summary)
	}
	if provider.gameCalls.Load() != 0 {
		t.Fatalf("provider called %d times outside window", provider.gameCalls.Load())
	}
}

func TestPollScheduler_TickReconcilesTrackedSubjects(t *testing.T) {
	provider := &stubProvider{
		games: []usecase.ProviderGame{{
			GameID:    "g-1",
			Opponent:  "Golden State Warriors",
			StartTime: time.Now().UTC(),
			RawStatus: "1st Qtr",
			RawClock:  "10:00",
		}},
		stats: livematch.StatLine{"points": 6},
	}
	fx := newSchedulerFixture(t, provider, usecase.SchedulerConfig{})

	summary, err := fx.scheduler.Tick(t.Context())
	if err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if !summary.InWindow {
		t.Fatalf("summary = %+v, want in window", summary)
	}
	// Only NBA subjects are tracked by this scheduler instance.
	if summary.Subjects != 2 {
		t.Fatalf("subjects = %d, want 2", summary.Subjects)
	}
	if summary.Upserted != 2 {
		t.Fatalf("upserted = %d, want 2", summary.Upserted)
	}
}

func TestPollScheduler_InFlightLatchDropsOverlappingTick(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	blocking := &blockingProvider{stub: &stubProvider{}, release: release, started: started}
	fx := newSchedulerFixture(t, blocking, usecase.SchedulerConfig{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := fx.scheduler.Tick(context.Background()); err != nil {
			t.Errorf("first tick failed: %v", err)
		}
	}()
	<-started

	summary, err := fx.scheduler.Tick(t.Context())
	if err != nil {
		t.Fatalf("overlapping tick errored: %v", err)
	}
	if summary.Ran {
		t.Fatalf("summary = %+v, want overlapping tick dropped", summary)
	}

	close(release)
	wg.Wait()
}

type blockingProvider struct {
	stub    *stubProvider
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (p *blockingProvider) FetchGamesInRange(ctx context.Context, teamID int64, from, to time.Time) ([]usecase.ProviderGame, error) {
	p.once.Do(func() { close(p.started) })
	<-p.release
	return p.stub.FetchGamesInRange(ctx, teamID, from, to)
}

func (p *blockingProvider) FetchLiveStats(ctx context.Context, playerID int64, gameID string) (livematch.StatLine, error) {
	return p.stub.FetchLiveStats(ctx, playerID, gameID)
}

func TestPollScheduler_UnauthorizedLatchesUntilReEnabled(t *testing.T) {
	provider := &stubProvider{gamesErr: fmt.Errorf("provider: %w", usecase.ErrUnauthorized)}
	fx := newSchedulerFixture(t, provider, usecase.SchedulerConfig{})

	if _, err := fx.scheduler.Tick(t.Context()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if !fx.scheduler.Status().AuthFailed {
		t.Fatalf("expected auth-failed latch set")
	}

	calls := provider.gameCalls.Load()
	if _, err := fx.scheduler.Tick(t.Context()); err != nil {
		t.Fatalf("latched tick failed: %v", err)
	}
	if provider.gameCalls.Load() != calls {
		t.Fatalf("provider called while auth latch set")
	}

	// Disable/enable is the operator reset after rotating credentials.
	fx.scheduler.SetEnabled(false)
	fx.scheduler.SetEnabled(true)
	if fx.scheduler.Status().AuthFailed {
		t.Fatalf("expected auth-failed latch cleared on re-enable")
	}
}

func TestPollScheduler_RateLimitShedsRemainingSubjects(t *testing.T) {
	provider := &stubProvider{gamesErr: fmt.Errorf("provider: %w", usecase.ErrRateLimited)}
	fx := newSchedulerFixture(t, provider, usecase.SchedulerConfig{Workers: 1})

	summary, err := fx.scheduler.Tick(t.Context())
	if err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if !summary.RateLimited {
		t.Fatalf("summary = %+v, want rate limited", summary)
	}
	if summary.Failed != 1 {
		t.Fatalf("failed = %d, want only the first subject to hit the provider", summary.Failed)
	}
	if summary.Skipped == 0 {
		t.Fatalf("skipped = 0, want remaining subjects shed")
	}
}

func TestPollScheduler_SetIntervalValidation(t *testing.T) {
	fx := newSchedulerFixture(t, &stubProvider{}, usecase.SchedulerConfig{})

	if err := fx.scheduler.SetInterval(200 * time.Millisecond); err == nil {
		t.Fatalf("expected sub-second interval rejected")
	}
	if err := fx.scheduler.SetInterval(10 * time.Second); err != nil {
		t.Fatalf("set interval failed: %v", err)
	}
	if got := fx.scheduler.Interval(); got != 10*time.Second {
		t.Fatalf("interval = %v, want 10s", got)
	}
}

func TestPollScheduler_RunFiresImmediateTickOnPolling(t *testing.T) {
	provider := &stubProvider{}
	fx := newSchedulerFixture(t, provider, usecase.SchedulerConfig{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = fx.scheduler.Run(ctx)
	}()

	fx.scheduler.SetEnabled(true)
	fx.scheduler.SetVisible(true)

	deadline := time.After(2 * time.Second)
	for provider.gameCalls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("expected an immediate tick after entering polling state")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not stop on context cancel")
	}
}
