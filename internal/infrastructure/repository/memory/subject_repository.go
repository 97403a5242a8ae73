package memory

import (
	"context"
	"sync"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/subject"
)

type SubjectRepository struct {
	mu     sync.RWMutex
	items  map[string]subject.Subject
	orders []string
}

func NewSubjectRepository(subjects []subject.Subject) *SubjectRepository {
	items := make(map[string]subject.Subject, len(subjects))
	orders := make([]string, 0, len(subjects))

	for _, s := range subjects {
		items[s.ID] = s
		orders = append(orders, s.ID)
	}

	return &SubjectRepository{
		items:  items,
		orders: orders,
	}
}

func (r *SubjectRepository) ListByCompetition(_ context.Context, competition string) ([]subject.Subject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]subject.Subject, 0, len(r.orders))
	for _, id := range r.orders {
		s := r.items[id]
		if s.Competition == competition {
			out = append(out, s)
		}
	}

	return out, nil
}

func (r *SubjectRepository) GetByID(_ context.Context, id string) (subject.Subject, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[id]
	if !ok {
		return subject.Subject{}, false, nil
	}

	return s, true, nil
}
