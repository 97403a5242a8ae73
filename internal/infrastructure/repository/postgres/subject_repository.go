package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/subject"
	qb "github.com/zkesrefoglu/turkish-stars-tracker/internal/platform/querybuilder"
)

type SubjectRepository struct {
	db *sqlx.DB
}

func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

func (r *SubjectRepository) ListByCompetition(ctx context.Context, competition string) ([]subject.Subject, error) {
	query, args, err := qb.Select("*").From("subjects").
		Where(qb.Eq("competition", competition)).
		OrderBy("name", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select subjects query: %w", err)
	}

	var rows []subjectTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select subjects by competition: %w", err)
	}

	out := make([]subject.Subject, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *SubjectRepository) GetByID(ctx context.Context, id string) (subject.Subject, bool, error) {
	query, args, err := qb.Select("*").From("subjects").
		Where(qb.Eq("id", id)).
		Limit(1).
		ToSQL()
	if err != nil {
		return subject.Subject{}, false, fmt.Errorf("build select subject query: %w", err)
	}

	var row subjectTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return subject.Subject{}, false, nil
		}
		return subject.Subject{}, false, fmt.Errorf("select subject by id: %w", err)
	}

	return row.toDomain(), true, nil
}
