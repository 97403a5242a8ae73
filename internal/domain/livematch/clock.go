package livematch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/subject"
)

// sportClock describes the period structure one sport's provider clock
// follows. Elapsed minutes are always an estimate derived from the period
// index and the remaining time inside it.
type sportClock struct {
	periodMinutes   int
	regulationCount int
	overtimeMinutes int
	periodLabel     func(index int) string
}

var basketballClock = sportClock{
	periodMinutes:   12,
	regulationCount: 4,
	overtimeMinutes: 5,
	periodLabel: func(index int) string {
		if index > 4 {
			if index == 5 {
				return "OT"
			}
			return fmt.Sprintf("OT%d", index-4)
		}
		return fmt.Sprintf("Q%d", index)
	},
}

var footballClock = sportClock{
	periodMinutes:   45,
	regulationCount: 2,
	overtimeMinutes: 15,
	periodLabel: func(index int) string {
		if index > 2 {
			return fmt.Sprintf("ET%d", index-2)
		}
		return fmt.Sprintf("H%d", index)
	},
}

func clockForSport(sport string) sportClock {
	if subject.NormalizeSport(sport) == subject.SportBasketball {
		return basketballClock
	}
	return footballClock
}

// ClockInfo carries the derived elapsed-minutes estimate and the
// human-readable display for the raw status/clock pair.
type ClockInfo struct {
	Elapsed int
	Display string
}

// FormatClock derives elapsed minutes and a display string from the raw
// provider status and clock. It never fails: an unparseable status yields
// elapsed 0 with the trimmed status as display, and an unparseable clock
// falls back to the start of the recognized period.
func FormatClock(sport, rawStatus, rawClock string) ClockInfo {
	sc := clockForSport(sport)
	phase := MapPhase(rawStatus)

	switch phase {
	case PhaseHalftime:
		return ClockInfo{
			Elapsed: sc.periodMinutes * sc.regulationCount / 2,
			Display: "Halftime",
		}
	case PhaseFinished:
		return ClockInfo{
			Elapsed: sc.periodMinutes * sc.regulationCount,
			Display: "Final",
		}
	case PhaseLive:
		index, overtime, ok := parsePeriodIndex(rawStatus)
		if !ok {
			return ClockInfo{Elapsed: 0, Display: strings.TrimSpace(rawStatus)}
		}
		period := index
		if overtime {
			period = sc.regulationCount + index
		}
		return liveClockInfo(sc, period, rawClock)
	default:
		return ClockInfo{Elapsed: 0, Display: strings.TrimSpace(rawStatus)}
	}
}

func liveClockInfo(sc sportClock, period int, rawClock string) ClockInfo {
	completed := 0.0
	periodLen := sc.periodMinutes
	if period > sc.regulationCount {
		completed = float64(sc.periodMinutes * sc.regulationCount)
		completed += float64((period - sc.regulationCount - 1) * sc.overtimeMinutes)
		periodLen = sc.overtimeMinutes
	} else {
		completed = float64((period - 1) * sc.periodMinutes)
	}

	remaining, clockOK := parseRemainingMinutes(rawClock)
	inPeriod := 0.0
	if clockOK {
		inPeriod = float64(periodLen) - remaining
		if inPeriod < 0 {
			inPeriod = 0
		}
		if inPeriod > float64(periodLen) {
			inPeriod = float64(periodLen)
		}
	}

	display := sc.periodLabel(period)
	if clock := strings.TrimSpace(rawClock); clock != "" {
		display += " · " + clock
	}

	return ClockInfo{
		Elapsed: int(completed + inPeriod),
		Display: display,
	}
}

// parsePeriodIndex extracts the leading ordinal + period keyword from a raw
// status such as "3rd Qtr", "1st Half" or "2nd OT". A bare "OT" counts as
// the first overtime. The overtime flag tells the caller the index is
// relative to the end of regulation.
func parsePeriodIndex(rawStatus string) (index int, overtime bool, ok bool) {
	status := strings.ToLower(strings.TrimSpace(rawStatus))
	match := livePeriodRegex.FindStringSubmatch(status)
	if match == nil {
		if status == "ot" || strings.Contains(status, "overtime") {
			return 1, true, true
		}
		return 0, false, false
	}

	index, err := strconv.Atoi(match[1])
	if err != nil || index <= 0 {
		return 0, false, false
	}

	keyword := match[2]
	if keyword == "ot" || keyword == "overtime" {
		return index, true, true
	}
	return index, false, true
}

// parseRemainingMinutes parses "4:12" or "4" into fractional minutes left in
// the current period.
func parseRemainingMinutes(rawClock string) (float64, bool) {
	clock := strings.TrimSpace(rawClock)
	if clock == "" {
		return 0, false
	}

	minutesPart := clock
	secondsPart := ""
	if idx := strings.IndexByte(clock, ':'); idx >= 0 {
		minutesPart = clock[:idx]
		secondsPart = clock[idx+1:]
	}

	minutes, err := strconv.Atoi(strings.TrimSpace(minutesPart))
	if err != nil || minutes < 0 {
		return 0, false
	}

	seconds := 0
	if secondsPart != "" {
		seconds, err = strconv.Atoi(strings.TrimSpace(secondsPart))
		if err != nil || seconds < 0 || seconds > 59 {
			seconds = 0
		}
	}

	return float64(minutes) + float64(seconds)/60.0, true
}
