package subject

import "strings"

const (
	SportFootball   = "football"
	SportBasketball = "basketball"
)

// Subject is one tracked athlete. Rows are maintained by admin tooling and
// are read-only to this service.
type Subject struct {
	ID               string
	Name             string
	Sport            string
	Team             string
	Competition      string
	ProviderTeamID   int64
	ProviderPlayerID int64
}

// LiveTrackable reports whether the subject carries the provider identifiers
// needed for live polling. Subjects without them are skipped, not errors.
func (s Subject) LiveTrackable() bool {
	return s.ProviderTeamID > 0
}

func NormalizeSport(value string) string {
	sport := strings.ToLower(strings.TrimSpace(value))
	switch sport {
	case SportFootball, SportBasketball:
		return sport
	default:
		return sport
	}
}

func IsKnownSport(value string) bool {
	switch NormalizeSport(value) {
	case SportFootball, SportBasketball:
		return true
	default:
		return false
	}
}
