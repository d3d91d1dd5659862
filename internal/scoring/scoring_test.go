/* Behaviors pinned down here:
- miss boundary is inclusive: difference == MissDistance scores zero
- miss short-circuits before any bonus accumulation
- exact adds the streak bonus and scales x1.0
- close/far never add the streak bonus and scale x0.75 / x0.5 (floored)
- variable uplift applies to the pre-streak running sum
- master play: max atoms + >=3 distinct operators + exact
*/

package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numclash/go-server/internal/expr"
	"github.com/numclash/go-server/internal/profile"
)

func TestMissBoundaryInclusive(t *testing.T) {
	p := profile.ByKey("standard") // MissDistance 10
	require.NotNil(t, p)
	usage := expr.Usage{CardsUsed: 4, DistinctOperators: 3}

	atThreshold := Resolve(Input{Valid: true, Difference: 10, Usage: usage}, p)
	assert.Equal(t, Miss, atThreshold.Accuracy)
	assert.Equal(t, 0, atThreshold.Damage)

	justInside := Resolve(Input{Valid: true, Difference: 9, Usage: usage}, p)
	assert.Equal(t, Far, justInside.Accuracy)
	// base 10 + cards 10 + operators 3*2 = 26, halved for far.
	assert.Equal(t, 13, justInside.Damage)
}

func TestMissIgnoresAllBonuses(t *testing.T) {
	p := profile.ByKey("standard")
	res := Resolve(Input{
		Valid:      true,
		Difference: 50,
		Usage: expr.Usage{
			CardsUsed:         4,
			DistinctOperators: 4,
			HasExactDivision:  true,
			ParensEffective:   true,
		},
		StreakBonus: 20,
	}, p)
	assert.Equal(t, Miss, res.Accuracy)
	assert.Equal(t, 0, res.Damage)
	assert.False(t, res.MasterPlay)
}

func TestInvalidSubmissionIsMiss(t *testing.T) {
	p := profile.ByKey("standard")
	res := Resolve(Input{Valid: false}, p)
	assert.Equal(t, Miss, res.Accuracy)
	assert.Equal(t, 0, res.Damage)
}

func TestExactAddsStreakBonus(t *testing.T) {
	p := profile.ByKey("standard")
	res := Resolve(Input{
		Valid:       true,
		Difference:  0,
		Usage:       expr.Usage{CardsUsed: 3, DistinctOperators: 2, ParensEffective: true},
		StreakBonus: 5,
	}, p)
	assert.Equal(t, Exact, res.Accuracy)
	// base 10 + cards 5 + operators 4 + parens 4 + streak 5 = 28.
	assert.Equal(t, 28, res.Damage)
}

func TestCloseScalesAndSkipsStreakBonus(t *testing.T) {
	p := profile.ByKey("standard") // CloseDistance 3
	res := Resolve(Input{
		Valid:       true,
		Difference:  3,
		Usage:       expr.Usage{CardsUsed: 3, DistinctOperators: 2},
		StreakBonus: 12,
	}, p)
	assert.Equal(t, Close, res.Accuracy)
	// base 10 + cards 5 + operators 4 = 19; floor(19 * 0.75) = 14.
	assert.Equal(t, 14, res.Damage)
}

func TestVariableUplift(t *testing.T) {
	p := profile.ByKey("expert") // 25% uplift
	res := Resolve(Input{
		Valid:      true,
		Difference: 0,
		Usage: expr.Usage{
			CardsUsed:         4,
			DistinctOperators: 3,
			HasExactDivision:  true,
			ParensEffective:   true,
			UsesVariable:      true,
		},
	}, p)
	assert.Equal(t, Exact, res.Accuracy)
	// base 10 + cards 9 + operators 6 + division 4 + parens 4 = 33;
	// +25% uplift = 41.
	assert.Equal(t, 41, res.Damage)
	assert.False(t, res.MasterPlay) // expert max atoms is 5
}

func TestBonusesRespectProfilePermissions(t *testing.T) {
	usage := expr.Usage{
		CardsUsed:         3,
		DistinctOperators: 2,
		HasExactDivision:  true,
		ParensEffective:   true,
	}

	// Easy permits neither mul/div nor parentheses, so neither bonus pays.
	easy := Resolve(Input{Valid: true, Usage: usage}, profile.ByKey("easy"))
	// base 10 + cards 8 + operators 4 = 22.
	assert.Equal(t, 22, easy.Damage)

	std := Resolve(Input{Valid: true, Usage: usage}, profile.ByKey("standard"))
	// base 10 + cards 5 + operators 4 + division 4 + parens 4 = 27.
	assert.Equal(t, 27, std.Damage)
}

func TestMasterPlay(t *testing.T) {
	p := profile.ByKey("standard") // max atoms 4

	exact := Resolve(Input{
		Valid: true,
		Usage: expr.Usage{CardsUsed: 4, DistinctOperators: 3},
	}, p)
	assert.True(t, exact.MasterPlay)

	fewOps := Resolve(Input{
		Valid: true,
		Usage: expr.Usage{CardsUsed: 4, DistinctOperators: 2},
	}, p)
	assert.False(t, fewOps.MasterPlay)

	notExact := Resolve(Input{
		Valid:      true,
		Difference: 1,
		Usage:      expr.Usage{CardsUsed: 4, DistinctOperators: 3},
	}, p)
	assert.False(t, notExact.MasterPlay)
}
