// internal/match/match.go
//
// Authoritative match coordinator.
//
// Responsibilities:
//   - Store: sessions keyed 1:1 with a lobby's room code, RWMutex around the
//     map only; every session carries its own mutex so rooms never contend
//     with each other.
//   - Round flow: deal cards/variables, pick a guaranteed-reachable target
//     (clamped fallback logged, never surfaced as an error), accept at most
//     one submission per player per round, detect the both-in transition
//     atomically with the second submission, resolve exactly once, apply
//     clamped damage, detect termination, and gate advancement to the host.
//   - Forfeit: a disconnect during an active session ends the match
//     immediately in the remaining player's favor.
//
// Evaluation failures (malformed expression, division by zero) become a
// "no valid result" submission scored as a miss — they are never returned to
// the submitter as errors.

package match

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/numclash/go-server/internal/expr"
	"github.com/numclash/go-server/internal/lobby"
	"github.com/numclash/go-server/internal/profile"
	"github.com/numclash/go-server/internal/scoring"
	"github.com/numclash/go-server/internal/streak"
)

// session is one live match. All fields are guarded by mu.
type session struct {
	mu sync.Mutex

	code   string
	prof   *profile.Profile
	hostID string
	status Status
	round  int

	cards  []int
	vars   []expr.Atom // variable atoms only
	target int

	players [2]*playerState

	lastResult *RoundResult
	resultSeen map[string]bool
	rng        *rand.Rand
}

// Store owns all sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

// NewStore constructs an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*session)}
}

// Begin spawns the session for a lobby that just transitioned to playing.
func (st *Store) Begin(lb lobby.Lobby) (View, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[lb.Code]; ok {
		return View{}, ErrExists
	}

	s := &session{
		code:   lb.Code,
		prof:   lb.Profile,
		hostID: lb.HostID,
		status: StatusPlaying,
		round:  1,
		players: [2]*playerState{
			{id: lb.HostID, name: lb.HostName, hp: lb.Profile.MaxHP, maxHP: lb.Profile.MaxHP},
			{id: lb.GuestID, name: lb.GuestName, hp: lb.Profile.MaxHP, maxHP: lb.Profile.MaxHP},
		},
		resultSeen: make(map[string]bool),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.deal()
	st.sessions[lb.Code] = s
	return s.view(lb.HostID), nil
}

// Remove drops a session, e.g. when its lobby is torn down.
func (st *Store) Remove(code string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, code)
}

func (st *Store) get(code string) (*session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[code]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// View returns playerID's slice of the session.
func (st *Store) View(code, playerID string) (View, error) {
	s, err := st.get(code)
	if err != nil {
		return View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(playerID) < 0 {
		return View{}, ErrUnknownPlayer
	}
	return s.view(playerID), nil
}

// Submit records playerID's expression for the current round. The returned
// ready flag is true exactly when this submission was the second of the two;
// it is computed under the session lock together with the transition into
// resolving, so resolution can trigger exactly once.
func (st *Store) Submit(code, playerID, raw string) (View, bool, error) {
	s, err := st.get(code)
	if err != nil {
		return View{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(playerID)
	if i < 0 {
		return View{}, false, ErrUnknownPlayer
	}
	if s.status == StatusFinished {
		return View{}, false, ErrFinished
	}
	if s.status != StatusPlaying {
		return View{}, false, ErrNotPlaying
	}
	p := s.players[i]
	if p.submitted {
		return View{}, false, ErrAlreadySubmitted
	}

	p.exprRaw = raw
	p.submitted = true
	if v, err := expr.Evaluate(raw, s.varMap()); err == nil {
		p.result = v
		p.valid = true
	} else {
		// Scored as a miss; the opponent can still deal damage.
		log.Debug().Str("room", s.code).Str("player", playerID).Err(err).Msg("submission failed to evaluate")
	}

	ready := s.players[0].submitted && s.players[1].submitted
	if ready {
		s.status = StatusResolving
	}
	return s.view(playerID), ready, nil
}

// Resolve scores the current round, applies damage, and either ends the
// match or parks it in waiting_next. It succeeds only from the resolving
// state, so a second call for the same round is rejected rather than
// double-applying damage.
func (st *Store) Resolve(code string) (RoundResult, error) {
	s, err := st.get(code)
	if err != nil {
		return RoundResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusResolving:
	case StatusWaitingNext, StatusFinished:
		return RoundResult{}, ErrRoundResolved
	default:
		return RoundResult{}, ErrNotPlaying
	}

	res := RoundResult{Code: s.code, Round: s.round, Target: s.target}
	var dist [2]float64
	var score [2]scoring.Result

	for i, p := range s.players {
		dist[i] = math.Inf(1)
		var usage expr.Usage
		if p.valid {
			dist[i] = math.Abs(p.result - float64(s.target))
			usage, _ = expr.Inspect(p.exprRaw, s.cards, s.varMap())
		}
		exact := p.valid && dist[i] < expr.Epsilon()
		// The bonus reads the tier the player lands on with this hit
		// counted, so a first exact hit books the zero tier.
		next := streak.Advance(p.streak, exact)
		score[i] = scoring.Resolve(scoring.Input{
			Valid:       p.valid,
			Difference:  dist[i],
			Usage:       usage,
			StreakBonus: streak.Bonus(next, s.prof),
		}, s.prof)

		reported := dist[i]
		if !p.valid {
			reported = -1 // Inf is not JSON-encodable
		}
		res.Players[i] = PlayerResult{
			ID:           p.id,
			Name:         p.name,
			Expression:   p.exprRaw,
			Valid:        p.valid,
			Result:       p.result,
			Distance:     reported,
			Accuracy:     score[i].Accuracy,
			Streak:       next,
			StreakSignal: streak.Transition(p.streak, next, s.prof),
			MasterPlay:   score[i].MasterPlay,
		}
		p.streak = next
	}

	// Damage application: closer distance wins and deals its damage; a
	// double miss is a no-damage draw; an exact distance tie halves both.
	var applied [2]int // applied[i] = damage taken by player i
	switch {
	case score[0].Accuracy == scoring.Miss && score[1].Accuracy == scoring.Miss:
		res.Draw = true
	case dist[0] == dist[1]:
		res.Draw = true
		applied[0] = score[1].Damage / 2
		applied[1] = score[0].Damage / 2
	case dist[0] < dist[1]:
		res.WinnerID = s.players[0].id
		applied[1] = score[0].Damage
	default:
		res.WinnerID = s.players[1].id
		applied[0] = score[1].Damage
	}

	for i, p := range s.players {
		p.hp -= applied[i]
		if p.hp < 0 {
			p.hp = 0
		}
		res.Players[i].HP = p.hp
		res.Players[1-i].DamageDealt = applied[i]
	}

	switch {
	case s.players[0].hp == 0 && s.players[1].hp == 0:
		res.Over, res.MatchDraw = true, true
		s.status = StatusFinished
	case s.players[0].hp == 0:
		res.Over, res.MatchWinnerID = true, s.players[1].id
		s.status = StatusFinished
	case s.players[1].hp == 0:
		res.Over, res.MatchWinnerID = true, s.players[0].id
		s.status = StatusFinished
	default:
		// Cards and target stay put; only submission bookkeeping resets.
		s.players[0].resetRound()
		s.players[1].resetRound()
		s.status = StatusWaitingNext
	}

	s.lastResult = &res
	return res, nil
}

// Advance starts the next round: fresh deal, fresh target, round counter
// bumped. Host only, and only from waiting_next.
func (st *Store) Advance(code, requesterID string) (View, error) {
	s, err := st.get(code)
	if err != nil {
		return View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(requesterID) < 0 {
		return View{}, ErrUnknownPlayer
	}
	if requesterID != s.hostID {
		return View{}, ErrNotHost
	}
	if s.status != StatusWaitingNext {
		return View{}, ErrNotWaiting
	}
	s.deal()
	s.round++
	s.players[0].resetRound()
	s.players[1].resetRound()
	s.status = StatusPlaying
	return s.view(requesterID), nil
}

// Forfeit ends the match immediately because leaverID disconnected or left;
// the remaining player is declared winner.
func (st *Store) Forfeit(code, leaverID string) (RoundResult, error) {
	s, err := st.get(code)
	if err != nil {
		return RoundResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(leaverID)
	if i < 0 {
		return RoundResult{}, ErrUnknownPlayer
	}
	if s.status == StatusFinished {
		// Mirrors the ErrRoundResolved guard in Resolve: a repeat forfeit
		// must not re-trigger match-end persistence.
		return RoundResult{}, ErrFinished
	}

	res := RoundResult{
		Code:          s.code,
		Round:         s.round,
		Target:        s.target,
		Over:          true,
		Forfeit:       true,
		MatchWinnerID: s.players[1-i].id,
	}
	for j, p := range s.players {
		res.Players[j] = PlayerResult{ID: p.id, Name: p.name, HP: p.hp}
	}
	s.status = StatusFinished
	s.lastResult = &res
	// The leaver will never poll for this result; count it as seen so the
	// remaining player's fetch releases the session.
	s.resultSeen[leaverID] = true
	log.Info().Str("room", s.code).Str("leaver", leaverID).Msg("match forfeited")
	return res, nil
}

// Result returns the last resolved round for polling. Terminal results are
// reference-counted per player: once both players have fetched the final
// broadcast, the session is dropped from the store.
func (st *Store) Result(code, playerID string) (RoundResult, error) {
	s, err := st.get(code)
	if err != nil {
		return RoundResult{}, err
	}

	s.mu.Lock()
	if s.indexOf(playerID) < 0 {
		s.mu.Unlock()
		return RoundResult{}, ErrUnknownPlayer
	}
	if s.lastResult == nil {
		s.mu.Unlock()
		return RoundResult{}, ErrNoResult
	}
	res := *s.lastResult
	done := false
	if res.Over {
		s.resultSeen[playerID] = true
		done = len(s.resultSeen) == 2
	}
	s.mu.Unlock()

	if done {
		st.Remove(code)
	}
	return res, nil
}

// ------------------------------ internals ----------------------------------

// deal draws fresh cards, variable bindings, and a target. A target that had
// to be clamped outside the reachable set is the documented fallback: it is
// logged, never surfaced as an error, and the round proceeds best-effort.
func (s *session) deal() {
	p := s.prof
	s.cards = make([]int, p.CardCount)
	for i := range s.cards {
		s.cards[i] = p.CardMin + s.rng.Intn(p.CardMax-p.CardMin+1)
	}
	s.vars = s.vars[:0]
	for i := 0; i < p.VariableCount && i < len(profile.VariableSymbols); i++ {
		v := p.VarMin + s.rng.Intn(p.VarMax-p.VarMin+1)
		s.vars = append(s.vars, expr.Var(profile.VariableSymbols[i], v))
	}

	values := append([]int(nil), s.cards...)
	for _, a := range s.vars {
		values = append(values, a.Value)
	}
	target, origin := expr.PickTarget(values, p.TargetMin, p.TargetMax, p.MulDiv, s.rng)
	if origin != expr.TargetInRange {
		log.Warn().
			Str("room", s.code).
			Ints("values", values).
			Int("target", target).
			Int("origin", int(origin)).
			Msg("target fell back to clamped value; may be unreachable")
	}
	s.target = target
}

func (s *session) indexOf(playerID string) int {
	for i, p := range s.players {
		if p.id == playerID {
			return i
		}
	}
	return -1
}

func (s *session) varMap() map[byte]int {
	if len(s.vars) == 0 {
		return nil
	}
	m := make(map[byte]int, len(s.vars))
	for _, a := range s.vars {
		m[a.Symbol] = a.Value
	}
	return m
}

// view builds playerID's information-asymmetric snapshot. Caller holds mu.
func (s *session) view(playerID string) View {
	i := s.indexOf(playerID)
	you, opp := s.players[i], s.players[1-i]

	vars := make([]Variable, 0, len(s.vars))
	for _, a := range s.vars {
		vars = append(vars, Variable{Symbol: string(a.Symbol), Value: a.Value})
	}
	return View{
		Code:       s.code,
		Difficulty: s.prof.Key,
		Status:     s.status,
		Round:      s.round,
		Target:     s.target,
		Cards:      append([]int(nil), s.cards...),
		Variables:  vars,
		You: SelfView{
			ID:        you.id,
			Name:      you.name,
			HP:        you.hp,
			MaxHP:     you.maxHP,
			Streak:    you.streak,
			Submitted: you.submitted,
		},
		Opponent: OtherView{
			Name:      opp.name,
			HP:        opp.hp,
			MaxHP:     opp.maxHP,
			Submitted: opp.submitted,
		},
	}
}
