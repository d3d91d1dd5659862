package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The reachable-set search over a hand is unmemoized and exponential in the
// number of atoms; five atoms resolve in single-digit milliseconds, a sixth
// costs most of a second per deal. Every profile must stay within that bound.
func TestMaxAtomsStaysSearchable(t *testing.T) {
	for _, p := range profiles {
		n := p.MaxAtoms()
		assert.GreaterOrEqual(t, n, 3, "profile %s", p.Key)
		assert.LessOrEqual(t, n, 5, "profile %s", p.Key)
	}
}

func TestStreakTiersOrdered(t *testing.T) {
	for _, p := range profiles {
		require.NotEmpty(t, p.StreakTiers, "profile %s", p.Key)
		assert.Equal(t, 0, p.StreakTiers[0].MinStreak, "profile %s", p.Key)
		assert.Equal(t, 0, p.StreakTiers[0].Bonus, "profile %s", p.Key)
		for i := 1; i < len(p.StreakTiers); i++ {
			assert.Greater(t, p.StreakTiers[i].MinStreak, p.StreakTiers[i-1].MinStreak,
				"profile %s tier %d", p.Key, i)
			assert.Greater(t, p.StreakTiers[i].Intensity, p.StreakTiers[i-1].Intensity,
				"profile %s tier %d", p.Key, i)
		}
	}
}

func TestCardBonusCoversEveryHandSize(t *testing.T) {
	for _, p := range profiles {
		for n := 2; n <= p.MaxAtoms(); n++ {
			_, ok := p.CardBonus[n]
			assert.True(t, ok, "profile %s has no card bonus for %d atoms", p.Key, n)
		}
	}
}

func TestByKey(t *testing.T) {
	for _, k := range Keys() {
		p := ByKey(k)
		require.NotNil(t, p)
		assert.Equal(t, k, p.Key)
	}
	assert.Nil(t, ByKey("nightmare"))
	assert.Equal(t, "standard", Default().Key)
}
