package postgres

import (
	"database/sql"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/fixture"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/livematch"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/subject"
)

type subjectTableModel struct {
	ID               string    `db:"id"`
	Name             string    `db:"name"`
	Sport            string    `db:"sport"`
	Team             string    `db:"team"`
	Competition      string    `db:"competition"`
	ProviderTeamID   int64     `db:"provider_team_id"`
	ProviderPlayerID int64     `db:"provider_player_id"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (m subjectTableModel) toDomain() subject.Subject {
	return subject.Subject{
		ID:               m.ID,
		Name:             m.Name,
		Sport:            m.Sport,
		Team:             m.Team,
		Competition:      m.Competition,
		ProviderTeamID:   m.ProviderTeamID,
		ProviderPlayerID: m.ProviderPlayerID,
	}
}

type fixtureTableModel struct {
	ID          string    `db:"id"`
	SubjectID   string    `db:"subject_id"`
	Competition string    `db:"competition"`
	Opponent    string    `db:"opponent"`
	Home        bool      `db:"home"`
	KickoffAt   time.Time `db:"kickoff_at"`
	CreatedAt   time.Time `db:"created_at"`
}

func (m fixtureTableModel) toDomain() fixture.Fixture {
	return fixture.Fixture{
		ID:          m.ID,
		SubjectID:   m.SubjectID,
		Competition: m.Competition,
		Opponent:    m.Opponent,
		Home:        m.Home,
		KickoffAt:   m.KickoffAt,
	}
}

type liveMatchTableModel struct {
	SubjectID      string         `db:"subject_id"`
	Competition    string         `db:"competition"`
	Opponent       string         `db:"opponent"`
	Home           bool           `db:"home"`
	Phase          string         `db:"phase"`
	KickoffAt      time.Time      `db:"kickoff_at"`
	ElapsedMinutes int            `db:"elapsed_minutes"`
	HomeScore      int            `db:"home_score"`
	AwayScore      int            `db:"away_score"`
	Stats          sql.NullString `db:"stats"`
	LastEvent      string         `db:"last_event"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (m liveMatchTableModel) toDomain() (livematch.State, error) {
	stats := livematch.StatLine{}
	if m.Stats.Valid && m.Stats.String != "" {
		if err := sonic.Unmarshal([]byte(m.Stats.String), &stats); err != nil {
			return livematch.State{}, err
		}
	}

	return livematch.State{
		SubjectID:      m.SubjectID,
		Competition:    m.Competition,
		Opponent:       m.Opponent,
		Home:           m.Home,
		Phase:          livematch.Phase(m.Phase),
		KickoffAt:      m.KickoffAt,
		ElapsedMinutes: m.ElapsedMinutes,
		HomeScore:      m.HomeScore,
		AwayScore:      m.AwayScore,
		Stats:          stats,
		LastEvent:      m.LastEvent,
		UpdatedAt:      m.UpdatedAt,
	}, nil
}

func marshalStats(stats livematch.StatLine) (string, error) {
	if len(stats) == 0 {
		return "{}", nil
	}
	raw, err := sonic.Marshal(stats)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
