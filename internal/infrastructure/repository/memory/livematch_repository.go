package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/livematch"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/usecase"
)

// LiveMatchRepository keys rows by subject id and announces every
// committed mutation to the change publisher, mirroring what the
// postgres trigger does in production.
type LiveMatchRepository struct {
	mu        sync.RWMutex
	items     map[string]livematch.State
	publisher usecase.ChangePublisher
	now       func() time.Time
}

func NewLiveMatchRepository(publisher usecase.ChangePublisher) *LiveMatchRepository {
	if publisher == nil {
		publisher = usecase.NewNoopChangePublisher()
	}

	return &LiveMatchRepository{
		items:     make(map[string]livematch.State),
		publisher: publisher,
		now:       time.Now,
	}
}

func (r *LiveMatchRepository) ListByCompetition(_ context.Context, competition string) ([]livematch.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]livematch.State, 0, len(r.items))
	for _, st := range r.items {
		if st.Competition == competition {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })

	return out, nil
}

func (r *LiveMatchRepository) GetBySubject(_ context.Context, subjectID string) (livematch.State, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.items[subjectID]
	if !ok {
		return livematch.State{}, false, nil
	}

	return st, true, nil
}

func (r *LiveMatchRepository) Upsert(ctx context.Context, state livematch.State) error {
	if state.SubjectID == "" {
		return fmt.Errorf("%w: subject id is required", usecase.ErrInvalidInput)
	}

	r.mu.Lock()
	r.items[state.SubjectID] = state
	r.mu.Unlock()

	return r.publisher.Publish(ctx, usecase.RowChange{
		Table:      usecase.TableLiveMatches,
		Op:         usecase.ChangeOpUpsert,
		SubjectID:  state.SubjectID,
		OccurredAt: r.now().UTC(),
	})
}

func (r *LiveMatchRepository) DeleteBySubjectInPhases(ctx context.Context, subjectID string, phases []livematch.Phase) error {
	r.mu.Lock()
	st, ok := r.items[subjectID]
	if ok {
		ok = false
		for _, p := range phases {
			if st.Phase == p {
				ok = true
				break
			}
		}
		if ok {
			delete(r.items, subjectID)
		}
	}
	r.mu.Unlock()

	// Deleting an absent or out-of-phase row is a no-op, not an event.
	if !ok {
		return nil
	}

	return r.publisher.Publish(ctx, usecase.RowChange{
		Table:      usecase.TableLiveMatches,
		Op:         usecase.ChangeOpDelete,
		SubjectID:  subjectID,
		OccurredAt: r.now().UTC(),
	})
}
