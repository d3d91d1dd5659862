// internal/match/types.go
//
// Types for authoritative match sessions: lifecycle statuses, validation
// errors, per-player state, the per-player view (information-asymmetric),
// and the round-result broadcast payload.

package match

import (
	"errors"

	"github.com/numclash/go-server/internal/scoring"
	"github.com/numclash/go-server/internal/streak"
)

// Status is a session's lifecycle state.
type Status string

const (
	StatusPlaying     Status = "playing"      // awaiting submissions
	StatusResolving   Status = "resolving"    // both in, computing
	StatusWaitingNext Status = "waiting_next" // resolved, host must advance
	StatusFinished    Status = "finished"     // terminal
)

var (
	ErrNotFound         = errors.New("session not found")
	ErrExists           = errors.New("session already exists")
	ErrUnknownPlayer    = errors.New("player not in this session")
	ErrNotPlaying       = errors.New("round is not accepting submissions")
	ErrAlreadySubmitted = errors.New("already submitted this round")
	ErrRoundResolved    = errors.New("round already resolved")
	ErrNotWaiting       = errors.New("no resolved round to advance from")
	ErrNotHost          = errors.New("only the host may advance the round")
	ErrFinished         = errors.New("match is over")
	ErrNoResult         = errors.New("no round result yet")
)

// Variable is a bound symbol for the current round.
type Variable struct {
	Symbol string `json:"symbol"`
	Value  int    `json:"value"`
}

// playerState is the authoritative per-player record. Submission fields are
// round-scoped and reset on advancement.
type playerState struct {
	id     string
	name   string
	hp     int
	maxHP  int
	streak int

	submitted bool
	exprRaw   string
	result    float64
	valid     bool
}

func (p *playerState) resetRound() {
	p.submitted = false
	p.exprRaw = ""
	p.result = 0
	p.valid = false
}

// View is what one player is allowed to see mid-round: its own submission
// state plus opponent presence/readiness only. Opponent expressions and
// results stay hidden until resolution.
type View struct {
	Code       string     `json:"code"`
	Difficulty string     `json:"difficulty"`
	Status     Status     `json:"status"`
	Round      int        `json:"round"`
	Target     int        `json:"target"`
	Cards      []int      `json:"cards"`
	Variables  []Variable `json:"variables,omitempty"`
	You        SelfView   `json:"you"`
	Opponent   OtherView  `json:"opponent"`
}

// SelfView is the requesting player's slice of the session.
type SelfView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	HP        int    `json:"hp"`
	MaxHP     int    `json:"maxHp"`
	Streak    int    `json:"streak"`
	Submitted bool   `json:"submitted"`
}

// OtherView exposes only presence/readiness signals about the opponent.
type OtherView struct {
	Name      string `json:"name"`
	HP        int    `json:"hp"`
	MaxHP     int    `json:"maxHp"`
	Submitted bool   `json:"submitted"`
}

// PlayerResult is one player's line in a round-result broadcast.
type PlayerResult struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Expression   string           `json:"expression"`
	Valid        bool             `json:"valid"`
	Result       float64          `json:"result"`
	Distance     float64          `json:"distance"` // -1 when the submission was invalid
	Accuracy     scoring.Accuracy `json:"accuracy"`
	DamageDealt  int              `json:"damageDealt"` // applied to the opponent (post tie-halving)
	HP           int              `json:"hp"`
	Streak       int              `json:"streak"`
	StreakSignal streak.Signal    `json:"streakSignal,omitempty"`
	MasterPlay   bool             `json:"masterPlay,omitempty"`
}

// RoundResult is the flat broadcast record for a resolved round (or a
// forfeit, in which case only the termination fields are meaningful).
type RoundResult struct {
	Code          string          `json:"code"`
	Round         int             `json:"round"`
	Target        int             `json:"target"`
	Players       [2]PlayerResult `json:"players"`
	WinnerID      string          `json:"winnerId,omitempty"` // round winner; empty on a draw
	Draw          bool            `json:"draw"`
	Over          bool            `json:"over"`
	MatchWinnerID string          `json:"matchWinnerId,omitempty"`
	MatchDraw     bool            `json:"matchDraw,omitempty"`
	Forfeit       bool            `json:"forfeit,omitempty"`
}
