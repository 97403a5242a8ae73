package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/livematch"
	qb "github.com/zkesrefoglu/turkish-stars-tracker/internal/platform/querybuilder"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/usecase"
)

// LiveMatchRepository keeps at most one row per subject. The table
// carries a trigger that NOTIFYs "live_match_changes" after every
// insert, update and delete, which the pg change feed listens on.
// When a different fan-out driver is in use the trigger reaches no
// listener, so the repository also publishes through the configured
// ChangePublisher; pass the noop publisher when the pg feed is active.
type LiveMatchRepository struct {
	db        *sqlx.DB
	publisher usecase.ChangePublisher
}

func NewLiveMatchRepository(db *sqlx.DB, publisher usecase.ChangePublisher) *LiveMatchRepository {
	if publisher == nil {
		publisher = usecase.NewNoopChangePublisher()
	}
	return &LiveMatchRepository{db: db, publisher: publisher}
}

func (r *LiveMatchRepository) ListByCompetition(ctx context.Context, competition string) ([]livematch.State, error) {
	query, args, err := qb.Select("*").From("live_matches").
		Where(qb.Eq("competition", competition)).
		OrderBy("subject_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select live matches query: %w", err)
	}

	var rows []liveMatchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select live matches by competition: %w", err)
	}

	out := make([]livematch.State, 0, len(rows))
	for _, row := range rows {
		state, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode live match stats subject=%s: %w", row.SubjectID, err)
		}
		out = append(out, state)
	}

	return out, nil
}

func (r *LiveMatchRepository) GetBySubject(ctx context.Context, subjectID string) (livematch.State, bool, error) {
	query, args, err := qb.Select("*").From("live_matches").
		Where(qb.Eq("subject_id", subjectID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return livematch.State{}, false, fmt.Errorf("build select live match query: %w", err)
	}

	var row liveMatchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return livematch.State{}, false, nil
		}
		return livematch.State{}, false, fmt.Errorf("select live match by subject: %w", err)
	}

	state, err := row.toDomain()
	if err != nil {
		return livematch.State{}, false, fmt.Errorf("decode live match stats subject=%s: %w", subjectID, err)
	}

	return state, true, nil
}

// Upsert inserts or fully replaces the subject's row. Every mutable
// column is overwritten so no field from a previous game survives.
func (r *LiveMatchRepository) Upsert(ctx context.Context, state livematch.State) error {
	stats, err := marshalStats(state.Stats)
	if err != nil {
		return fmt.Errorf("encode live match stats subject=%s: %w", state.SubjectID, err)
	}

	query, args, err := qb.InsertInto("live_matches").
		Columns(
			"subject_id",
			"competition",
			"opponent",
			"home",
			"phase",
			"kickoff_at",
			"elapsed_minutes",
			"home_score",
			"away_score",
			"stats",
			"last_event",
			"updated_at",
		).
		Values(
			state.SubjectID,
			state.Competition,
			state.Opponent,
			state.Home,
			string(state.Phase),
			state.KickoffAt.UTC(),
			state.ElapsedMinutes,
			state.HomeScore,
			state.AwayScore,
			stats,
			state.LastEvent,
			state.UpdatedAt.UTC(),
		).
		Suffix(`ON CONFLICT (subject_id) DO UPDATE SET
    competition = EXCLUDED.competition,
    opponent = EXCLUDED.opponent,
    home = EXCLUDED.home,
    phase = EXCLUDED.phase,
    kickoff_at = EXCLUDED.kickoff_at,
    elapsed_minutes = EXCLUDED.elapsed_minutes,
    home_score = EXCLUDED.home_score,
    away_score = EXCLUDED.away_score,
    stats = EXCLUDED.stats,
    last_event = EXCLUDED.last_event,
    updated_at = EXCLUDED.updated_at`).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build upsert live match query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert live match subject=%s: %w", state.SubjectID, err)
	}

	_ = r.publisher.Publish(ctx, usecase.RowChange{
		Table:      usecase.TableLiveMatches,
		Op:         usecase.ChangeOpUpsert,
		SubjectID:  state.SubjectID,
		OccurredAt: time.Now().UTC(),
	})

	return nil
}

func (r *LiveMatchRepository) DeleteBySubjectInPhases(ctx context.Context, subjectID string, phases []livematch.Phase) error {
	if len(phases) == 0 {
		return nil
	}

	phaseValues := make([]any, 0, len(phases))
	for _, p := range phases {
		phaseValues = append(phaseValues, string(p))
	}

	query, args, err := qb.DeleteFrom("live_matches").
		Where(qb.Eq("subject_id", subjectID), qb.In("phase", phaseValues)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete live match query: %w", err)
	}

	// Zero rows affected is fine: deleting an absent row is a no-op,
	// and it produces no change event.
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete live match subject=%s: %w", subjectID, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		_ = r.publisher.Publish(ctx, usecase.RowChange{
			Table:      usecase.TableLiveMatches,
			Op:         usecase.ChangeOpDelete,
			SubjectID:  subjectID,
			OccurredAt: time.Now().UTC(),
		})
	}

	return nil
}
