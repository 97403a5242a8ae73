package fixture

import "time"

// Fixture is a known future meeting for a tracked subject. Rows are created
// and garbage-collected by a separate sync job; this service only reads them
// to decide whether "now" is close enough to a kickoff to poll.
type Fixture struct {
	ID          string
	SubjectID   string
	Competition string
	Opponent    string
	Home        bool
	KickoffAt   time.Time
}

// StartsWithin reports whether the fixture kicks off inside [from, to].
func (f Fixture) StartsWithin(from, to time.Time) bool {
	if f.KickoffAt.IsZero() {
		return false
	}
	return !f.KickoffAt.Before(from) && !f.KickoffAt.After(to)
}
