package memory

import (
	"time"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/fixture"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/subject"
)

const (
	CompetitionNBA        = "nba"
	CompetitionSuperLig   = "super-lig"
	SubjectIDAlperen      = "tr-alperen-sengun"
	SubjectIDCedi         = "tr-cedi-osman"
	SubjectIDArda         = "tr-arda-guler"
	SubjectIDHakanWithout = "tr-hakan-unlinked"
)

func SeedSubjects() []subject.Subject {
	return []subject.Subject{
		{
			ID:               SubjectIDAlperen,
			Name:             "Alperen Şengün",
			Sport:            subject.SportBasketball,
			Team:             "Houston Rockets",
			Competition:      CompetitionNBA,
			ProviderTeamID:   10,
			ProviderPlayerID: 4871144,
		},
		{
			ID:               SubjectIDCedi,
			Name:             "Cedi Osman",
			Sport:            subject.SportBasketball,
			Team:             "Panathinaikos",
			Competition:      CompetitionNBA,
			ProviderTeamID:   27,
			ProviderPlayerID: 3032976,
		},
		{
			ID:               SubjectIDArda,
			Name:             "Arda Güler",
			Sport:            subject.SportFootball,
			Team:             "Real Madrid",
			Competition:      CompetitionSuperLig,
			ProviderTeamID:   86,
			ProviderPlayerID: 326201,
		},
		{
			// No provider team link yet; must be skipped by live polling.
			ID:          SubjectIDHakanWithout,
			Name:        "Hakan Çalhanoğlu",
			Sport:       subject.SportFootball,
			Team:        "Inter Milan",
			Competition: CompetitionSuperLig,
		},
	}
}

func SeedFixtures(now time.Time) []fixture.Fixture {
	now = now.UTC()
	return []fixture.Fixture{
		{
			ID:          "fx-alperen-tonight",
			SubjectID:   SubjectIDAlperen,
			Competition: CompetitionNBA,
			Opponent:    "Golden State Warriors",
			Home:        true,
			KickoffAt:   now.Add(45 * time.Minute),
		},
		{
			ID:          "fx-cedi-next-week",
			SubjectID:   SubjectIDCedi,
			Competition: CompetitionNBA,
			Opponent:    "Olympiacos",
			Home:        false,
			KickoffAt:   now.Add(7 * 24 * time.Hour),
		},
		{
			ID:          "fx-arda-tomorrow",
			SubjectID:   SubjectIDArda,
			Competition: CompetitionSuperLig,
			Opponent:    "FC Barcelona",
			Home:        false,
			KickoffAt:   now.Add(26 * time.Hour),
		},
	}
}
