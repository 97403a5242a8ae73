package livematch

import "testing"

func TestMapPhase_TotalMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want Phase
	}{
		{"", PhaseScheduled},
		{"7:00 pm ET", PhaseScheduled},
		{"Scheduled", PhaseScheduled},
		{"Postponed", PhaseScheduled},
		{"TBD", PhaseScheduled},
		{"1st Qtr", PhaseLive},
		{"3rd Qtr", PhaseLive},
		{"4th Quarter", PhaseLive},
		{"2nd Half", PhaseLive},
		{"1st Half", PhaseLive},
		{"OT", PhaseLive},
		{"2nd OT", PhaseLive},
		{"End of 3rd Qtr", PhaseLive},
		{"In Progress", PhaseLive},
		{"Halftime", PhaseHalftime},
		{"Half Time", PhaseHalftime},
		{"HT", PhaseHalftime},
		{"Final", PhaseFinished},
		{"Final/OT", PhaseFinished},
		{"Full Time", PhaseFinished},
		{"FT", PhaseFinished},
		{"AET", PhaseFinished},
		{"Ended", PhaseFinished},
		{"Game Ended", PhaseFinished},
		{"Suspended", PhaseScheduled},
	}

	for _, tc := range cases {
		if got := MapPhase(tc.raw); got != tc.want {
			t.Fatalf("MapPhase(%q): got=%s want=%s", tc.raw, got, tc.want)
		}
	}
}

func TestMapPhase_UnknownVocabularyNeverLive(t *testing.T) {
	t.Parallel()

	// "Suspended" is the treacherous one: it contains "ended" but the game
	// may resume, so it must never read as finished.
	for _, raw := range []string{"garbage", "Q", "weather delay", "10:30 am", "Warmup", "Suspended", "Game Suspended", "Postponed", "Abandoned"} {
		got := MapPhase(raw)
		if got != PhaseScheduled {
			t.Fatalf("MapPhase(%q) must fail safe to scheduled, got=%s", raw, got)
		}
	}
}

func TestPhase_Active(t *testing.T) {
	t.Parallel()

	if !PhaseLive.Active() || !PhaseHalftime.Active() {
		t.Fatal("live and halftime phases must be active")
	}
	if PhaseScheduled.Active() || PhaseFinished.Active() {
		t.Fatal("scheduled and finished phases must not be active")
	}
}
