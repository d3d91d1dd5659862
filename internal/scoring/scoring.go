// internal/scoring/scoring.go
//
// Damage resolution for one submission.
//
// Responsibilities:
//   - Classify the distance-to-target into an accuracy tier (exact / close /
//     far / miss). The miss boundary is inclusive: a difference equal to the
//     profile's MissDistance is a miss.
//   - Accumulate bonuses (card count, operator variety, exact division,
//     functional parentheses, variable uplift, streak) and scale by the
//     accuracy multiplier, flooring the final value.
//   - A miss — including an invalid/missing submission — short-circuits to
//     zero damage before any bonus accumulation.
//   - Raise the master-play flag (max atoms, >=3 distinct operators, exact).
//
// The engine is pure: same inputs, same Result, safe from any goroutine.

package scoring

import (
	"math"

	"github.com/numclash/go-server/internal/expr"
	"github.com/numclash/go-server/internal/profile"
)

// Accuracy is the classification of a submission's distance to target.
type Accuracy string

const (
	Exact Accuracy = "exact"
	Close Accuracy = "close"
	Far   Accuracy = "far"
	Miss  Accuracy = "miss"
)

// Accuracy multipliers applied to the raw bonus sum.
const (
	exactMult = 1.0
	closeMult = 0.75
	farMult   = 0.5
)

// Input carries everything Resolve needs about one submission.
type Input struct {
	Valid       bool       // false when the expression failed to evaluate
	Difference  float64    // |result - target|; ignored when !Valid
	Usage       expr.Usage // metadata from expr.Inspect
	StreakBonus int        // flat bonus from the player's streak tier
}

// Result is the scored outcome of one submission.
type Result struct {
	Damage     int      `json:"damage"`
	Accuracy   Accuracy `json:"accuracy"`
	MasterPlay bool     `json:"masterPlay"`
}

// Classify maps a distance to an accuracy tier. Invalid submissions are
// always a miss.
func Classify(diff float64, valid bool, p *profile.Profile) Accuracy {
	switch {
	case !valid:
		return Miss
	case diff < expr.Epsilon():
		return Exact
	case diff <= float64(p.CloseDistance):
		return Close
	case diff < float64(p.MissDistance):
		return Far
	default:
		return Miss
	}
}

// Resolve computes the damage a submission deals under p.
func Resolve(in Input, p *profile.Profile) Result {
	acc := Classify(in.Difference, in.Valid, p)
	if acc == Miss {
		// Terminal for this turn: no bonus may rescue a miss.
		return Result{Damage: 0, Accuracy: Miss}
	}

	raw := p.BaseDamage
	raw += p.CardBonus[in.Usage.CardsUsed]
	raw += p.OperatorBonus * in.Usage.DistinctOperators
	// Technique bonuses only pay out where the profile permits the
	// technique; the evaluator itself accepts any operator.
	if in.Usage.HasExactDivision && p.MulDiv {
		raw += p.DivisionBonus
	}
	if in.Usage.ParensEffective && p.Parens {
		raw += p.ParenBonus
	}
	if in.Usage.UsesVariable {
		raw += raw * p.VariableUpliftPct / 100
	}

	mult := farMult
	switch acc {
	case Exact:
		raw += in.StreakBonus
		mult = exactMult
	case Close:
		mult = closeMult
	}

	return Result{
		Damage:     int(math.Floor(float64(raw) * mult)),
		Accuracy:   acc,
		MasterPlay: acc == Exact && in.Usage.CardsUsed >= p.MaxAtoms() && in.Usage.DistinctOperators >= 3,
	}
}
