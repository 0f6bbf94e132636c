package core

import (
	"strings"

	"acm/internal/domain"
)

// Points awarded when ranking profiles against the live connection
const (
	scoreEndpointMatch = 1
	scoreModelMatch    = 2
	scoreLastApplied   = 3
)

// LocateActive returns the index of the stored profile that best matches the
// live connection, or -1 when none does.
//
// Only profiles whose source and endpoint equal the live ones are
// candidates. A matching model and being the last applied profile break
// ties between candidates sharing an endpoint; remaining ties go to the
// lowest index. With no candidate, the last applied profile is returned if
// it still exists unchanged.
func LocateActive(profiles []domain.Profile, live domain.ConnectionState, lastApplied *domain.Signature) int {
	liveSig := LiveSignature(live)

	best, bestScore := -1, 0
	for i := range profiles {
		sig := BuildSignature(&profiles[i], "")
		if sig.Source != liveSig.Source || sig.Endpoint != liveSig.Endpoint {
			continue
		}

		score := scoreEndpointMatch
		if sig.Model != "" && liveSig.Model != "" && sig.Model == liveSig.Model {
			score += scoreModelMatch
		}
		if SignaturesEqual(&sig, lastApplied) {
			score += scoreLastApplied
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 {
		return best
	}

	if lastApplied != nil {
		for i := range profiles {
			if MatchesSignature(&profiles[i], lastApplied) {
				return i
			}
		}
	}
	return -1
}

// SameEndpoint reports whether two profiles point at the same endpoint of
// the same source
func SameEndpoint(a, b *domain.Profile) bool {
	return a.NormalizedSource() == b.NormalizedSource() &&
		strings.TrimSpace(a.Endpoint) == strings.TrimSpace(b.Endpoint)
}
