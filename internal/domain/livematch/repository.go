package livematch

import "context"

// Repository is the persistence contract for live-match rows. Upsert keys on
// the subject identifier with full-replace semantics; Delete filters by
// subject and a phase set and treats an absent row as a no-op.
type Repository interface {
	ListByCompetition(ctx context.Context, competition string) ([]State, error)
	GetBySubject(ctx context.Context, subjectID string) (State, bool, error)
	Upsert(ctx context.Context, state State) error
	DeleteBySubjectInPhases(ctx context.Context, subjectID string, phases []Phase) error
}
