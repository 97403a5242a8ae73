package usecase_test

import (
	"testing"
	"time"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/livematch"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/infrastructure/repository/memory"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/usecase"
)

func TestBoardService_LiveBoardJoinsSubjects(t *testing.T) {
	subjectRepo := memory.NewSubjectRepository(memory.SeedSubjects())
	fixtureRepo := memory.NewFixtureRepository(nil)
	liveRepo := memory.NewLiveMatchRepository(nil)

	err := liveRepo.Upsert(t.Context(), livematch.State{
		SubjectID:   memory.SubjectIDAlperen,
		Competition: memory.CompetitionNBA,
		Phase:       livematch.PhaseLive,
		HomeScore:   61,
		AwayScore:   58,
	})
	if err != nil {
		t.Fatalf("seed live row: %v", err)
	}
	// A row whose subject no longer exists must not break the board.
	err = liveRepo.Upsert(t.Context(), livematch.State{
		SubjectID:   "ghost-subject",
		Competition: memory.CompetitionNBA,
		Phase:       livematch.PhaseLive,
	})
	if err != nil {
		t.Fatalf("seed orphan row: %v", err)
	}

	svc := usecase.NewBoardService(subjectRepo, fixtureRepo, liveRepo, memory.CompetitionNBA)

	entries, err := svc.LiveBoard(t.Context())
	if err != nil {
		t.Fatalf("live board failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want only the known subject", len(entries))
	}
	if entries[0].Subject.Name != "Alperen Şengün" {
		t.Fatalf("subject = %q", entries[0].Subject.Name)
	}
	if entries[0].State.HomeScore != 61 {
		t.Fatalf("home score = %d", entries[0].State.HomeScore)
	}
}

func TestBoardService_UpcomingFixturesHonorsHorizon(t *testing.T) {
	now := time.Now().UTC()
	subjectRepo := memory.NewSubjectRepository(memory.SeedSubjects())
	fixtureRepo := memory.NewFixtureRepository(memory.SeedFixtures(now))
	liveRepo := memory.NewLiveMatchRepository(nil)

	svc := usecase.NewBoardService(subjectRepo, fixtureRepo, liveRepo, memory.CompetitionNBA)

	entries, err := svc.UpcomingFixtures(t.Context(), 48*time.Hour)
	if err != nil {
		t.Fatalf("upcoming fixtures failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want the fixture inside 48h only", len(entries))
	}
	if entries[0].Fixture.Opponent != "Golden State Warriors" {
		t.Fatalf("opponent = %q", entries[0].Fixture.Opponent)
	}
}
