package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/fixture"
)

type FixtureRepository struct {
	mu    sync.RWMutex
	items map[string]fixture.Fixture
}

func NewFixtureRepository(fixtures []fixture.Fixture) *FixtureRepository {
	items := make(map[string]fixture.Fixture, len(fixtures))
	for _, f := range fixtures {
		items[f.ID] = f
	}

	return &FixtureRepository{items: items}
}

func (r *FixtureRepository) ListByCompetitionBetween(_ context.Context, competition string, from, to time.Time) ([]fixture.Fixture, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fixture.Fixture, 0, len(r.items))
	for _, f := range r.items {
		if f.Competition == competition && f.StartsWithin(from, to) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KickoffAt.Before(out[j].KickoffAt) })

	return out, nil
}

func (r *FixtureRepository) Put(f fixture.Fixture) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[f.ID] = f
}

func (r *FixtureRepository) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}
