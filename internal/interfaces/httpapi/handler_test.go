package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/livematch"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/infrastructure/fanout"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/infrastructure/repository/memory"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/platform/logging"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/usecase"
)

const testOpsToken = "ops-token"

type stubMatchProvider struct {
	games    []usecase.ProviderGame
	gamesErr error
	stats    livematch.StatLine
}

func (p *stubMatchProvider) FetchGamesInRange(_ context.Context, _ int64, _, _ time.Time) ([]usecase.ProviderGame, error) {
	return p.games, p.gamesErr
}

func (p *stubMatchProvider) FetchLiveStats(_ context.Context, _ int64, _ string) (livematch.StatLine, error) {
	return p.stats, nil
}

type apiFixture struct {
	router    http.Handler
	scheduler *usecase.PollScheduler
	liveRepo  *memory.LiveMatchRepository
	bus       *fanout.Bus
	hub       *Hub
	now       time.Time
}

func newAPIFixture(t *testing.T, provider usecase.MatchDataProvider) *apiFixture {
	t.Helper()

	logger := logging.NewNop()
	now := time.Now().UTC()

	bus := fanout.NewBus(logger)
	t.Cleanup(bus.Close)

	subjectRepo := memory.NewSubjectRepository(memory.SeedSubjects())
	fixtureRepo := memory.NewFixtureRepository(memory.SeedFixtures(now))
	liveRepo := memory.NewLiveMatchRepository(bus)

	windowSvc := usecase.NewWindowService(fixtureRepo, liveRepo, memory.CompetitionNBA, usecase.WindowConfig{}, logger)
	reconcileSvc := usecase.NewReconcileService(provider, liveRepo, windowSvc, logger)
	scheduler := usecase.NewPollScheduler(subjectRepo, windowSvc, reconcileSvc, memory.CompetitionNBA, usecase.SchedulerConfig{Enabled: true}, logger)
	boardSvc := usecase.NewBoardService(subjectRepo, fixtureRepo, liveRepo, memory.CompetitionNBA)
	hub := NewHub(boardSvc, bus, scheduler, logger)
	handler := NewHandler(boardSvc, scheduler, hub, logger)

	return &apiFixture{
		router:    NewRouter(handler, logger, []string{"*"}, testOpsToken),
		scheduler: scheduler,
		liveRepo:  liveRepo,
		bus:       bus,
		hub:       hub,
		now:       now,
	}
}

func (f *apiFixture) seedLiveRow(t *testing.T) livematch.State {
	t.Helper()

	state := livematch.State{
		SubjectID:      memory.SubjectIDAlperen,
		Competition:    memory.CompetitionNBA,
		Opponent:       "Golden State Warriors",
		Home:           true,
		Phase:          livematch.PhaseLive,
		KickoffAt:      f.now.Add(-30 * time.Minute),
		ElapsedMinutes: 31,
		HomeScore:      88,
		AwayScore:      84,
		Stats:          livematch.StatLine{"points": 24, "rebounds": 9},
		LastEvent:      "Q3 4:12",
		UpdatedAt:      f.now,
	}
	if err := f.liveRepo.Upsert(context.Background(), state); err != nil {
		t.Fatalf("seed live row: %v", err)
	}
	return state
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if err := sonic.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
}

func TestListLive_ReturnsSeededRow(t *testing.T) {
	f := newAPIFixture(t, &stubMatchProvider{})
	seeded := f.seedLiveRow(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/live", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var entries []liveEntryDTO
	decodeData(t, rec, &entries)

	if len(entries) != 1 {
		t.Fatalf("expected 1 live entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.SubjectID != memory.SubjectIDAlperen {
		t.Fatalf("unexpected subject id %q", entry.SubjectID)
	}
	if entry.SubjectName != "Alperen Şengün" {
		t.Fatalf("unexpected subject name %q", entry.SubjectName)
	}
	if entry.Phase != string(livematch.PhaseLive) || entry.ElapsedMinutes != seeded.ElapsedMinutes {
		t.Fatalf("unexpected phase/elapsed: %q/%d", entry.Phase, entry.ElapsedMinutes)
	}
	if entry.Stats["points"] != 24 {
		t.Fatalf("unexpected stat line: %+v", entry.Stats)
	}
}

func TestListUpcomingFixtures_HonorsDaysParam(t *testing.T) {
	f := newAPIFixture(t, &stubMatchProvider{})

	req := httptest.NewRequest(http.MethodGet, "/v1/fixtures/upcoming?days=2", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var entries []upcomingFixtureDTO
	decodeData(t, rec, &entries)

	// Only the NBA fixture inside 48h qualifies; the one a week out does not.
	if len(entries) != 1 {
		t.Fatalf("expected 1 upcoming fixture, got %d: %+v", len(entries), entries)
	}
	if entries[0].FixtureID != "fx-alperen-tonight" {
		t.Fatalf("unexpected fixture %q", entries[0].FixtureID)
	}
}

func TestListUpcomingFixtures_RejectsBadDaysParam(t *testing.T) {
	f := newAPIFixture(t, &stubMatchProvider{})

	for _, raw := range []string{"0", "61", "abc", "-1"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/fixtures/upcoming?days="+raw, nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("days=%s: expected status 400, got %d", raw, rec.Code)
		}
	}
}

func TestGetPollerStatus_RequiresToken(t *testing.T) {
	f := newAPIFixture(t, &stubMatchProvider{})

	req := httptest.NewRequest(http.MethodGet, "/v1/internal/poller", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestGetPollerStatus_ReportsStateAndViewers(t *testing.T) {
	f := newAPIFixture(t, &stubMatchProvider{})

	req := httptest.NewRequest(http.MethodGet, "/v1/internal/poller", nil)
	req.Header.Set("X-Internal-Ops-Token", testOpsToken)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var status struct {
		State            string `json:"state"`
		ConnectedViewers int    `json:"connected_viewers"`
	}
	decodeData(t, rec, &status)

	// Enabled but nobody is watching yet.
	if status.State != string(usecase.SchedulerStateSuspended) {
		t.Fatalf("expected suspended scheduler, got %q", status.State)
	}
	if status.ConnectedViewers != 0 {
		t.Fatalf("expected 0 viewers, got %d", status.ConnectedViewers)
	}
}

func TestUpdatePoller_TogglesEnabledAndInterval(t *testing.T) {
	f := newAPIFixture(t, &stubMatchProvider{})

	body := `{"enabled": false, "interval_secs": 10}`
	req := httptest.NewRequest(http.MethodPut, "/v1/internal/poller", strings.NewReader(body))
	req.Header.Set("X-Internal-Ops-Token", testOpsToken)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := f.scheduler.State(); got != usecase.SchedulerStateDisabled {
		t.Fatalf("expected disabled scheduler, got %q", got)
	}
	if got := f.scheduler.Interval(); got != 10*time.Second {
		t.Fatalf("expected 10s interval, got %s", got)
	}
}

func TestUpdatePoller_VisibleOverrideStartsPolling(t *testing.T) {
	f := newAPIFixture(t, &stubMatchProvider{})

	// Enabled at construction, no viewers yet: suspended until the
	// operator forces visibility.
	req := httptest.NewRequest(http.MethodPut, "/v1/internal/poller", strings.NewReader(`{"visible": true}`))
	req.Header.Set("X-Internal-Ops-Token", testOpsToken)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := f.scheduler.State(); got != usecase.SchedulerStatePolling {
		t.Fatalf("expected polling scheduler, got %q", got)
	}
}

func TestUpdatePoller_RejectsEmptyUpdate(t *testing.T) {
	f := newAPIFixture(t, &stubMatchProvider{})

	req := httptest.NewRequest(http.MethodPut, "/v1/internal/poller", strings.NewReader(`{}`))
	req.Header.Set("X-Internal-Ops-Token", testOpsToken)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestUpdatePoller_RejectsOutOfRangeInterval(t *testing.T) {
	f := newAPIFixture(t, &stubMatchProvider{})

	req := httptest.NewRequest(http.MethodPut, "/v1/internal/poller", strings.NewReader(`{"interval_secs": 9000}`))
	req.Header.Set("X-Internal-Ops-Token", testOpsToken)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestForcePollTick_RunsOneCycle(t *testing.T) {
	provider := &stubMatchProvider{} // no games anywhere
	f := newAPIFixture(t, provider)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/poller/tick", nil)
	req.Header.Set("X-Internal-Ops-Token", testOpsToken)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var summary struct {
		Ran      bool `json:"ran"`
		InWindow bool `json:"in_window"`
		Subjects int  `json:"subjects"`
	}
	decodeData(t, rec, &summary)

	if !summary.Ran {
		t.Fatalf("expected the forced tick to run: %s", rec.Body.String())
	}
	// The seeded NBA fixture kicks off in 45 minutes, so the window is open.
	if !summary.InWindow {
		t.Fatalf("expected the tick to be inside the match window")
	}
	if summary.Subjects != 2 {
		t.Fatalf("expected 2 NBA subjects, got %d", summary.Subjects)
	}
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t, &stubMatchProvider{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}
