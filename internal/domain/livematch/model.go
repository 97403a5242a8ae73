package livematch

import "time"

// State is the single authoritative row describing an in-progress or
// just-finished game for one tracked subject. At most one row exists per
// subject; the reconciler always computes the full target state from the
// provider response and replaces it wholesale, so no field on this struct is
// ever patched in isolation.
type State struct {
	SubjectID      string
	Competition    string
	Opponent       string
	Home           bool
	Phase          Phase
	KickoffAt      time.Time
	ElapsedMinutes int
	HomeScore      int
	AwayScore      int
	Stats          StatLine
	LastEvent      string
	UpdatedAt      time.Time
}

// StatLine is the free-form per-sport stat bag for the tracked subject
// (points/rebounds/assists for basketball, goals/assists for football).
// Unrecognized provider fields are simply absent; absence means zero.
type StatLine map[string]int

func (s StatLine) Get(key string) int {
	if s == nil {
		return 0
	}
	return s[key]
}

// SubjectScore returns the tracked subject's team score and the opponent
// score based on the home/away flag.
func (s State) SubjectScore() (own, opp int) {
	if s.Home {
		return s.HomeScore, s.AwayScore
	}
	return s.AwayScore, s.HomeScore
}
