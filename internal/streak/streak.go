// internal/streak/streak.go
//
// Per-player streak counting and tier transitions. A streak advances only on
// an exact hit and resets to zero on anything else, including a missing
// submission. Tier lookup lives on the profile; this package adds the
// transition signals the presentation layer reacts to.

package streak

import "github.com/numclash/go-server/internal/profile"

// Signal is a presentation hint about a streak transition.
type Signal string

const (
	None   Signal = ""
	TierUp Signal = "tier_up" // moved to a higher-intensity tier
	Broken Signal = "broken"  // reset to zero from a streak of 2 or more
)

// Advance returns the new streak after a round: +1 on an exact hit,
// zero otherwise.
func Advance(current int, exact bool) int {
	if exact {
		return current + 1
	}
	return 0
}

// Bonus is the flat damage bonus for the given streak under p.
func Bonus(streak int, p *profile.Profile) int {
	return p.TierFor(streak).Bonus
}

// Transition classifies the move from prev to next.
func Transition(prev, next int, p *profile.Profile) Signal {
	if next == 0 && prev >= 2 {
		return Broken
	}
	if p.TierFor(next).Intensity > p.TierFor(prev).Intensity {
		return TierUp
	}
	return None
}
