// internal/profile/profile.go
//
// Difficulty profiles for the duel server.
//
// Responsibilities:
//   - Define the three immutable difficulty profiles (easy / standard / expert).
//   - Hold every tunable the generation and scoring paths read: card ranges,
//     variable ranges, target range, operator permissions, accuracy distances,
//     starting health, scoring constants, and the ordered streak tier table.
//   - Supply lookups: ByKey, Keys, and the tier scan used by the streak tracker.
//
// Constraints:
//   • Profiles are package data and must never be mutated at runtime; callers
//     receive *Profile pointers into this table and treat them as read-only.
//   • The streak tier table is ordered by ascending MinStreak and always
//     starts with the zero tier (MinStreak 0, Bonus 0).
//   • Nothing outside this package hard-codes a difficulty value.

package profile

import "sort"

// Tier is one entry of a profile's streak ladder.
type Tier struct {
	MinStreak int    `json:"minStreak"` // streak needed to unlock this tier
	Bonus     int    `json:"bonus"`     // flat damage bonus while on this tier
	Name      string `json:"name"`      // presentation label ("" for the zero tier)
	Intensity int    `json:"intensity"` // presentation hint, rises with tiers
}

// Profile is an immutable difficulty configuration.
type Profile struct {
	Key  string `json:"key"`
	Name string `json:"name"`

	// Card / variable generation.
	CardMin       int `json:"cardMin"`
	CardMax       int `json:"cardMax"`
	CardCount     int `json:"cardCount"`
	VariableCount int `json:"variableCount"` // 0 except expert
	VarMin        int `json:"varMin"`
	VarMax        int `json:"varMax"`

	// Target generation.
	TargetMin int `json:"targetMin"`
	TargetMax int `json:"targetMax"`

	// Operator permissions. Addition and subtraction are always allowed;
	// multiplication and division are gated on MulDiv.
	MulDiv bool `json:"mulDiv"`
	Parens bool `json:"parens"`

	// Accuracy distances. A difference of 0 is exact; up to CloseDistance is
	// close; anything below MissDistance is far; MissDistance and beyond is a
	// miss (the boundary is inclusive on the miss side).
	CloseDistance int `json:"closeDistance"`
	MissDistance  int `json:"missDistance"`

	// Health + scoring constants.
	MaxHP             int         `json:"maxHp"`
	BaseDamage        int         `json:"-"`
	CardBonus         map[int]int `json:"-"` // cards consumed -> bonus
	OperatorBonus     int         `json:"-"` // per distinct operator
	DivisionBonus     int         `json:"-"`
	ParenBonus        int         `json:"-"`
	VariableUpliftPct int         `json:"-"` // percent uplift when a variable is used

	StreakTiers []Tier `json:"streakTiers"`
}

// VariableSymbols is the fixed alphabet variables draw from, in deal order.
const VariableSymbols = "xy"

// MaxAtoms is the number of values a player has to build with this round
// (cards plus bound variables).
func (p *Profile) MaxAtoms() int { return p.CardCount + p.VariableCount }

// TierFor returns the highest tier whose MinStreak is <= streak.
// The zero tier guarantees there is always a match.
func (p *Profile) TierFor(streak int) Tier {
	tiers := p.StreakTiers
	i := sort.Search(len(tiers), func(i int) bool { return tiers[i].MinStreak > streak })
	return tiers[i-1]
}

var profiles = []*Profile{
	{
		Key:       "easy",
		Name:      "Apprentice",
		CardMin:   1,
		CardMax:   9,
		CardCount: 3,
		TargetMin: 10,
		TargetMax: 50,
		MulDiv:    false,
		Parens:    false,

		CloseDistance: 2,
		MissDistance:  6,

		MaxHP:         80,
		BaseDamage:    10,
		CardBonus:     map[int]int{2: 0, 3: 8},
		OperatorBonus: 2,
		DivisionBonus: 4,
		ParenBonus:    4,

		StreakTiers: []Tier{
			{MinStreak: 0},
			{MinStreak: 2, Bonus: 4, Name: "Warm", Intensity: 1},
			{MinStreak: 4, Bonus: 10, Name: "Hot", Intensity: 2},
		},
	},
	{
		Key:       "standard",
		Name:      "Duelist",
		CardMin:   1,
		CardMax:   12,
		CardCount: 4,
		TargetMin: 20,
		TargetMax: 99,
		MulDiv:    true,
		Parens:    true,

		CloseDistance: 3,
		MissDistance:  10,

		MaxHP:         100,
		BaseDamage:    10,
		CardBonus:     map[int]int{2: 0, 3: 5, 4: 10},
		OperatorBonus: 2,
		DivisionBonus: 4,
		ParenBonus:    4,

		StreakTiers: []Tier{
			{MinStreak: 0},
			{MinStreak: 2, Bonus: 5, Name: "Warm", Intensity: 1},
			{MinStreak: 4, Bonus: 12, Name: "Hot", Intensity: 2},
			{MinStreak: 6, Bonus: 20, Name: "Blazing", Intensity: 3},
		},
	},
	{
		Key:           "expert",
		Name:          "Archmage",
		CardMin:       2,
		CardMax:       15,
		CardCount:     3, // 3 cards + 2 variables keeps the hand searchable
		VariableCount: 2,
		VarMin:        2,
		VarMax:        9,
		TargetMin:     50,
		TargetMax:     199,
		MulDiv:        true,
		Parens:        true,

		CloseDistance: 5,
		MissDistance:  15,

		MaxHP:             120,
		BaseDamage:        10,
		CardBonus:         map[int]int{2: 0, 3: 5, 4: 9, 5: 13},
		OperatorBonus:     2,
		DivisionBonus:     4,
		ParenBonus:        4,
		VariableUpliftPct: 25,

		StreakTiers: []Tier{
			{MinStreak: 0},
			{MinStreak: 2, Bonus: 8, Name: "Warm", Intensity: 1},
			{MinStreak: 4, Bonus: 16, Name: "Hot", Intensity: 2},
			{MinStreak: 6, Bonus: 28, Name: "Blazing", Intensity: 3},
		},
	},
}

// ByKey returns the profile for key, or nil if unknown.
func ByKey(key string) *Profile {
	for _, p := range profiles {
		if p.Key == key {
			return p
		}
	}
	return nil
}

// Keys lists the known difficulty keys in ascending difficulty order.
func Keys() []string {
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.Key)
	}
	return out
}

// Default is the profile used when a lobby does not specify one.
func Default() *Profile { return ByKey("standard") }
