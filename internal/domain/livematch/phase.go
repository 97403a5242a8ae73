package livematch

import (
	"regexp"
	"strings"
)

// Phase is the canonical lifecycle state of a tracked game.
type Phase string

const (
	PhaseScheduled Phase = "scheduled"
	PhaseLive      Phase = "live"
	PhaseHalftime  Phase = "halftime"
	PhaseFinished  Phase = "finished"
)

// Active reports whether a row in this phase keeps the polling window open.
func (p Phase) Active() bool {
	return p == PhaseLive || p == PhaseHalftime
}

func (p Phase) String() string {
	return string(p)
}

var livePeriodRegex = regexp.MustCompile(`\b(\d+)(?:st|nd|rd|th)\s+(qtr|quarter|half|period|ot|overtime)\b`)

// Whole word only: "suspended" must not read as a finished game.
var endedRegex = regexp.MustCompile(`\bended\b`)

// MapPhase maps a raw provider status string onto a Phase. The mapping is
// total: every input has a defined outcome and unknown vocabulary maps to
// PhaseScheduled, never PhaseLive, so provider noise cannot spuriously start
// a live-tracking cycle.
func MapPhase(raw string) Phase {
	status := strings.ToLower(strings.TrimSpace(raw))
	if status == "" {
		return PhaseScheduled
	}

	switch {
	case isFinishedStatus(status):
		return PhaseFinished
	case isHalftimeStatus(status):
		return PhaseHalftime
	case isLiveStatus(status):
		return PhaseLive
	default:
		return PhaseScheduled
	}
}

func isFinishedStatus(status string) bool {
	if status == "ft" || status == "aet" {
		return true
	}
	return strings.Contains(status, "final") ||
		strings.Contains(status, "full time") ||
		strings.Contains(status, "full-time") ||
		endedRegex.MatchString(status)
}

func isHalftimeStatus(status string) bool {
	if status == "ht" {
		return true
	}
	return strings.Contains(status, "halftime") || strings.Contains(status, "half time")
}

func isLiveStatus(status string) bool {
	if status == "ot" || status == "live" {
		return true
	}
	if livePeriodRegex.MatchString(status) {
		return true
	}
	return strings.Contains(status, "in progress") ||
		strings.Contains(status, "overtime") ||
		strings.Contains(status, "end of")
}
