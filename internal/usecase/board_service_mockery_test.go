package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/livematch"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/subject"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/infrastructure/repository/memory"
	subjectmock "github.com/zkesrefoglu/turkish-stars-tracker/internal/mocks/domain/subject"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/usecase"
)

func TestBoardService_LiveBoard_SuccessUsingMockery(t *testing.T) {
	t.Parallel()

	subjectRepo := subjectmock.NewRepository(t)
	fixtureRepo := memory.NewFixtureRepository(nil)
	liveRepo := memory.NewLiveMatchRepository(nil)

	err := liveRepo.Upsert(t.Context(), livematch.State{
		SubjectID:   "alperen-sengun",
		Competition: "nba",
		Phase:       livematch.PhaseLive,
		HomeScore:   95,
		AwayScore:   90,
		UpdatedAt:   time.Date(2026, 3, 14, 21, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed live row: %v", err)
	}

	subjectRepo.
		On("GetByID", mock.MatchedBy(func(context.Context) bool { return true }), "alperen-sengun").
		Return(subject.Subject{ID: "alperen-sengun", Name: "Alperen Şengün", Competition: "nba"}, true, nil).
		Once()

	svc := usecase.NewBoardService(subjectRepo, fixtureRepo, liveRepo, "nba")

	entries, err := svc.LiveBoard(t.Context())
	if err != nil {
		t.Fatalf("live board failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Subject.Name != "Alperen Şengün" {
		t.Fatalf("subject = %q", entries[0].Subject.Name)
	}
	if entries[0].State.HomeScore != 95 {
		t.Fatalf("home score = %d, want 95", entries[0].State.HomeScore)
	}
}

func TestBoardService_LiveBoard_SubjectLookupFailureUsingMockery(t *testing.T) {
	t.Parallel()

	subjectRepo := subjectmock.NewRepository(t)
	liveRepo := memory.NewLiveMatchRepository(nil)

	err := liveRepo.Upsert(t.Context(), livematch.State{
		SubjectID:   "alperen-sengun",
		Competition: "nba",
		Phase:       livematch.PhaseLive,
	})
	if err != nil {
		t.Fatalf("seed live row: %v", err)
	}

	storeErr := errors.New("store down")
	subjectRepo.
		On("GetByID", mock.MatchedBy(func(context.Context) bool { return true }), "alperen-sengun").
		Return(subject.Subject{}, false, storeErr).
		Once()

	svc := usecase.NewBoardService(subjectRepo, memory.NewFixtureRepository(nil), liveRepo, "nba")

	_, err = svc.LiveBoard(t.Context())
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error surfaced, got %v", err)
	}
}
