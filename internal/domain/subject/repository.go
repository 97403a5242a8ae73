package subject

import "context"

type Repository interface {
	ListByCompetition(ctx context.Context, competition string) ([]Subject, error)
	GetByID(ctx context.Context, id string) (Subject, bool, error)
}
