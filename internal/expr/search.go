// internal/expr/search.go
//
// Combinatorial search over a small multiset of numbers.
//
// Responsibilities:
//   - Reachable: every non-negative integer obtainable by combining the
//     multiset under the allowed operators.
//   - PickTarget: choose a round target that is guaranteed reachable, with a
//     documented clamped fallback for pathological draws.
//   - Solve: find one expression string that evaluates exactly to a target,
//     with deterministic search order and correct parenthesization.
//
// Notes:
//   - Inputs are tiny (at most five atoms; profiles cap the hand there,
//     because a sixth atom already costs most of a second per deal), so the
//     exponential pairwise recursion is cheap and needs no memoization or
//     pruning beyond "stop at the first exact match".
//   - Division during reachability is taken only when exact (nonzero divisor,
//     zero remainder); that is the sole guard against fractional blowup.
//     Solve uses float division and an epsilon match instead, so it can
//     also answer adversarial targets honestly.

package expr

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
)

// Atom is one searchable value: a plain card, or a variable that renders as
// its symbol but searches on its bound value.
type Atom struct {
	Value  int
	Symbol byte // 0 for a plain card
}

// Num wraps a card value as an Atom.
func Num(v int) Atom { return Atom{Value: v} }

// Var wraps a bound variable as an Atom.
func Var(sym byte, v int) Atom { return Atom{Value: v, Symbol: sym} }

func (a Atom) render() string {
	if a.Symbol != 0 {
		return string(a.Symbol)
	}
	return strconv.Itoa(a.Value)
}

// TargetOrigin reports which path PickTarget took.
type TargetOrigin int

const (
	// TargetInRange: picked uniformly among reachable values inside the range.
	TargetInRange TargetOrigin = iota
	// TargetNearest: nothing reachable fell in range; the reachable value
	// nearest a range boundary was clamped in. The result may be unreachable.
	TargetNearest
	// TargetClamped: the reachable set was empty (should not happen for real
	// deals); the clamped sum of the inputs was used.
	TargetClamped
)

// Reachable returns the set of non-negative integers obtainable from values
// under addition/subtraction, plus multiplication and exact division when
// mulDiv is set. Every atom's absolute value is itself reachable.
func Reachable(values []int, mulDiv bool) map[int]struct{} {
	out := make(map[int]struct{})
	vals := append([]int(nil), values...)
	reach(vals, mulDiv, out)
	return out
}

func reach(vals []int, mulDiv bool, out map[int]struct{}) {
	for _, v := range vals {
		if v < 0 {
			v = -v
		}
		out[v] = struct{}{}
	}
	if len(vals) < 2 {
		return
	}
	for i := range vals {
		for j := range vals {
			if i == j {
				continue
			}
			rest := make([]int, 0, len(vals)-1)
			for k, v := range vals {
				if k != i && k != j {
					rest = append(rest, v)
				}
			}
			a, b := vals[i], vals[j]
			combined := []int{a + b, a - b}
			if mulDiv {
				combined = append(combined, a*b)
				if b != 0 && a%b == 0 {
					combined = append(combined, a/b)
				}
			}
			for _, c := range combined {
				reach(append(rest, c), mulDiv, out)
			}
		}
	}
}

// PickTarget chooses a round target for the dealt values under profile-style
// bounds. The happy path picks uniformly among reachable values inside
// [targetMin, targetMax]. If none lands in range, the reachable value nearest
// a boundary is clamped in — that clamped value may itself be unreachable,
// which callers are expected to surface via the returned origin rather than
// hide. An empty reachable set falls back to the clamped sum of the inputs.
func PickTarget(values []int, targetMin, targetMax int, mulDiv bool, rng *rand.Rand) (int, TargetOrigin) {
	set := Reachable(values, mulDiv)

	inRange := make([]int, 0, len(set))
	for v := range set {
		if v >= targetMin && v <= targetMax {
			inRange = append(inRange, v)
		}
	}
	if len(inRange) > 0 {
		sort.Ints(inRange) // map order is random; sort so rng fully owns the choice
		return inRange[rng.Intn(len(inRange))], TargetInRange
	}

	if len(set) > 0 {
		best, bestDist := 0, math.MaxInt
		all := make([]int, 0, len(set))
		for v := range set {
			all = append(all, v)
		}
		sort.Ints(all)
		for _, v := range all {
			d := boundaryDistance(v, targetMin, targetMax)
			if d < bestDist {
				best, bestDist = v, d
			}
		}
		return clamp(best, targetMin, targetMax), TargetNearest
	}

	sum := 0
	for _, v := range values {
		sum += v
	}
	return clamp(sum, targetMin, targetMax), TargetClamped
}

func boundaryDistance(v, lo, hi int) int {
	if v < lo {
		return lo - v
	}
	if v > hi {
		return v - hi
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Operator precedence classes carried by search nodes so composed operations
// can decide parenthesization without re-parsing their operands.
const (
	precAdd  = 0 // + -
	precMul  = 1 // * /
	precAtom = 2
)

// epsilon tolerance for float comparison after division.
const eps = 1e-6

// Epsilon is the tolerance this package uses for float value matches;
// exported so scoring classifies "exact" the same way the search does.
func Epsilon() float64 { return eps }

type node struct {
	val  float64
	text string
	prec int
}

// Solve searches for an expression over atoms that evaluates exactly to
// target. The search order is fixed (pair indices in nested order, operators
// in + - * / order, depth first), so identical inputs always yield the same
// expression. Returns ok=false when the target is genuinely unreachable.
func Solve(atoms []Atom, target int, mulDiv bool) (string, bool) {
	nodes := make([]node, len(atoms))
	for i, a := range atoms {
		nodes[i] = node{val: float64(a.Value), text: a.render(), prec: precAtom}
	}
	return solve(nodes, float64(target), mulDiv)
}

func solve(nodes []node, target float64, mulDiv bool) (string, bool) {
	for _, n := range nodes {
		if math.Abs(n.val-target) < eps {
			return n.text, true
		}
	}
	if len(nodes) < 2 {
		return "", false
	}
	ops := "+-"
	if mulDiv {
		ops = "+-*/"
	}
	for i := range nodes {
		for j := range nodes {
			if i == j {
				continue
			}
			rest := make([]node, 0, len(nodes)-1)
			for k, n := range nodes {
				if k != i && k != j {
					rest = append(rest, n)
				}
			}
			for _, op := range []byte(ops) {
				c, ok := combine(nodes[i], nodes[j], op)
				if !ok {
					continue
				}
				if s, ok := solve(append(rest, c), target, mulDiv); ok {
					return s, true
				}
			}
		}
	}
	return "", false
}

// combine renders a binary operation over two search nodes. An operand is
// wrapped in parentheses when its own precedence is lower than the operator's;
// the right operand of - and / is additionally wrapped whenever it is
// composite, because operand order matters for those operators.
func combine(a, b node, op byte) (node, bool) {
	var val float64
	prec := precAdd
	switch op {
	case '+':
		val = a.val + b.val
	case '-':
		val = a.val - b.val
	case '*':
		val = a.val * b.val
		prec = precMul
	case '/':
		if math.Abs(b.val) < eps {
			return node{}, false
		}
		val = a.val / b.val
		prec = precMul
	}

	left := a.text
	if a.prec < prec {
		left = "(" + left + ")"
	}
	right := b.text
	if b.prec < prec || ((op == '-' || op == '/') && b.prec != precAtom) {
		right = "(" + right + ")"
	}
	return node{val: val, text: left + string(op) + right, prec: prec}, true
}
