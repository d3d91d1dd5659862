// internal/httpserver/server.go
//
// HTTP wiring for the NumClash duel backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/profiles".
//   - Lobby endpoints (player identity required): create/list/join/leave/start.
//   - Match endpoints (player identity required): view, submit, result, next,
//     forfeit.
//   - Auth + account stat endpoints: /auth/*, /stats/me (see auth.go).
//   - Best-effort persistence of finished matches and account stats.
//
// Notes:
//   - Live lobby/match state is in-memory only; the DB is a write-mostly
//     ledger (accounts, match history). A DB failure never fails a round.
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Round resolution is triggered server-side by whichever submission
//     lands second; clients only poll for the result.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/numclash/go-server/internal/lobby"
	"github.com/numclash/go-server/internal/match"
	"github.com/numclash/go-server/internal/profile"
)

// Server bundles router, lobby registry, match store, and DB handle.
type Server struct {
	r       *chi.Mux
	lobbies *lobby.Registry
	matches *match.Store
	db      *sql.DB
}

// New constructs a Server, installs middleware, and registers routes.
func New(lobbies *lobby.Registry, matches *match.Store, db *sql.DB) *Server {
	s := &Server{r: chi.NewRouter(), lobbies: lobbies, matches: matches, db: db}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(corsFromEnv)                     // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"numclash-go","endpoints":["/health","/profiles","POST /lobby","GET /lobby","POST /lobby/{code}/join","POST /lobby/{code}/start","GET /match/{code}","POST /match/{code}/submit","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/profiles", func(w http.ResponseWriter, r *http.Request) {
		out := []*profile.Profile{}
		for _, k := range profile.Keys() {
			out = append(out, profile.ByKey(k))
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	// Auth + account stats.
	s.mountAuthRoutes()

	// Lobby + match — require a player identity (guest token or account).
	s.r.Group(func(g chi.Router) {
		g.Use(s.requirePlayer())

		g.Post("/lobby", s.handleCreateLobby)
		g.Get("/lobby", s.handleListLobbies)
		g.Post("/lobby/{code}/join", s.handleJoinLobby)
		g.Post("/lobby/leave", s.handleLeaveLobby)
		g.Post("/lobby/{code}/start", s.handleStartMatch)

		g.Get("/match/{code}", s.handleMatchView)
		g.Post("/match/{code}/submit", s.handleSubmit)
		g.Get("/match/{code}/result", s.handleRoundResult)
		g.Post("/match/{code}/next", s.handleNextRound)
		g.Post("/match/{code}/forfeit", s.handleForfeit)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ LOBBY --------------------------------------

// createLobbyReq payload for POST /lobby.
type createLobbyReq struct {
	Difficulty string `json:"difficulty"` // "easy" | "standard" | "expert"
}

func (s *Server) handleCreateLobby(w http.ResponseWriter, r *http.Request) {
	me := mustPlayer(r)
	var req createLobbyReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	p := profile.Default()
	if req.Difficulty != "" {
		if p = profile.ByKey(req.Difficulty); p == nil {
			http.Error(w, `{"error":"unknown_difficulty"}`, http.StatusBadRequest)
			return
		}
	}
	lb, err := s.lobbies.Create(me.ID, me.Name, p)
	if err != nil {
		writeLobbyErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(lb)
}

func (s *Server) handleListLobbies(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(s.lobbies.ListAvailable())
}

func (s *Server) handleJoinLobby(w http.ResponseWriter, r *http.Request) {
	me := mustPlayer(r)
	lb, err := s.lobbies.Join(me.ID, chi.URLParam(r, "code"), me.Name)
	if err != nil {
		writeLobbyErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(lb)
}

// handleLeaveLobby removes the player from its room. Leaving an in-progress
// match is a forfeit: the remaining player is declared winner immediately.
func (s *Server) handleLeaveLobby(w http.ResponseWriter, r *http.Request) {
	me := mustPlayer(r)
	dep, err := s.lobbies.Leave(me.ID)
	if err != nil {
		writeLobbyErr(w, err)
		return
	}
	if dep.Status == lobby.StatusPlaying {
		if res, err := s.matches.Forfeit(dep.Code, me.ID); err == nil {
			s.persistMatchEnd(dep.Code, res)
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "code": dep.Code})
}

// handleStartMatch transitions the lobby to playing and spawns the session.
func (s *Server) handleStartMatch(w http.ResponseWriter, r *http.Request) {
	me := mustPlayer(r)
	lb, err := s.lobbies.Start(chi.URLParam(r, "code"), me.ID)
	if err != nil {
		writeLobbyErr(w, err)
		return
	}
	view, err := s.matches.Begin(lb)
	if err != nil {
		writeMatchErr(w, err)
		return
	}
	log.Info().Str("room", lb.Code).Str("difficulty", lb.Profile.Key).Msg("match started")
	_ = json.NewEncoder(w).Encode(view)
}

// ------------------------------ MATCH --------------------------------------

func (s *Server) handleMatchView(w http.ResponseWriter, r *http.Request) {
	me := mustPlayer(r)
	view, err := s.matches.View(chi.URLParam(r, "code"), me.ID)
	if err != nil {
		writeMatchErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(view)
}

// submitReq/Res payloads for POST /match/{code}/submit.
type submitReq struct {
	Expression string `json:"expression"`
}
type submitRes struct {
	View  match.View `json:"view"`
	Ready bool       `json:"ready"` // both players are in; result has been resolved
}

// handleSubmit stores the player's expression. When this submission is the
// second of the two, the round resolves here, exactly once.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	me := mustPlayer(r)
	code := chi.URLParam(r, "code")

	var req submitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	view, ready, err := s.matches.Submit(code, me.ID, req.Expression)
	if err != nil {
		writeMatchErr(w, err)
		return
	}
	if ready {
		res, err := s.matches.Resolve(code)
		if err != nil {
			// Lost the race with a forfeit; nothing to resolve.
			log.Debug().Str("room", code).Err(err).Msg("resolve skipped")
		} else if res.Over {
			s.persistMatchEnd(code, res)
		}
	}
	_ = json.NewEncoder(w).Encode(submitRes{View: view, Ready: ready})
}

func (s *Server) handleRoundResult(w http.ResponseWriter, r *http.Request) {
	me := mustPlayer(r)
	res, err := s.matches.Result(chi.URLParam(r, "code"), me.ID)
	if err != nil {
		writeMatchErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

func (s *Server) handleNextRound(w http.ResponseWriter, r *http.Request) {
	me := mustPlayer(r)
	view, err := s.matches.Advance(chi.URLParam(r, "code"), me.ID)
	if err != nil {
		writeMatchErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(view)
}

func (s *Server) handleForfeit(w http.ResponseWriter, r *http.Request) {
	me := mustPlayer(r)
	code := chi.URLParam(r, "code")
	res, err := s.matches.Forfeit(code, me.ID)
	if err != nil {
		writeMatchErr(w, err)
		return
	}
	s.persistMatchEnd(code, res)
	_ = json.NewEncoder(w).Encode(res)
}

// --------------------------- error mapping ---------------------------------

func writeLobbyErr(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, lobby.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lobby.ErrNotHost):
		status = http.StatusForbidden
	case errors.Is(err, lobby.ErrFull),
		errors.Is(err, lobby.ErrUnavailable),
		errors.Is(err, lobby.ErrAlreadyInRoom),
		errors.Is(err, lobby.ErrNotReady):
		status = http.StatusConflict
	}
	http.Error(w, `{"error":"`+err.Error()+`"}`, status)
}

func writeMatchErr(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, match.ErrNotFound), errors.Is(err, match.ErrNoResult):
		status = http.StatusNotFound
	case errors.Is(err, match.ErrNotHost), errors.Is(err, match.ErrUnknownPlayer):
		status = http.StatusForbidden
	case errors.Is(err, match.ErrAlreadySubmitted),
		errors.Is(err, match.ErrRoundResolved),
		errors.Is(err, match.ErrNotWaiting),
		errors.Is(err, match.ErrNotPlaying),
		errors.Is(err, match.ErrExists),
		errors.Is(err, match.ErrFinished):
		status = http.StatusConflict
	}
	http.Error(w, `{"error":"`+err.Error()+`"}`, status)
}

// --------------------------- persistence -----------------------------------

// persistMatchEnd records the finished match and bumps account stats in a
// best-effort transaction, then closes the room. Guests have no account row;
// their side of the history is names only.
func (s *Server) persistMatchEnd(code string, res match.RoundResult) {
	defer s.lobbies.Close(code)

	difficulty := ""
	if lb, err := s.lobbies.Get(code); err == nil && lb.Profile != nil {
		difficulty = lb.Profile.Key
	}

	outcome := "win"
	switch {
	case res.MatchDraw:
		outcome = "draw"
	case res.Forfeit:
		outcome = "forfeit"
	}

	tx, err := s.db.Begin()
	if err != nil {
		log.Warn().Err(err).Str("room", code).Msg("begin match persist tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(`INSERT INTO matches (room_code, difficulty, host_id, host_name, guest_id, guest_name, rounds, winner_id, outcome, finished_at)
	                      VALUES (?,?,?,?,?,?,?,?,?,?)`,
		code, difficulty,
		res.Players[0].ID, res.Players[0].Name,
		res.Players[1].ID, res.Players[1].Name,
		res.Round, res.MatchWinnerID, outcome, now); err != nil {
		log.Warn().Err(err).Str("room", code).Msg("insert match row")
	}

	for _, pr := range res.Players {
		won := res.MatchWinnerID != "" && pr.ID == res.MatchWinnerID
		if err := s.bumpStats(tx, pr.ID, won, pr.Streak); err != nil && !errors.Is(err, sql.ErrNoRows) {
			log.Warn().Err(err).Str("player", pr.ID).Msg("bump stats")
		}
	}
	_ = tx.Commit()
}

// bumpStats increments matches played; updates wins and best streak (within
// tx). Missing rows (guests) surface sql.ErrNoRows and are skipped.
func (s *Server) bumpStats(tx *sql.Tx, userID string, won bool, finalStreak int) error {
	var mp, wins, best int
	row := tx.QueryRow(`SELECT matches_played, wins, best_streak FROM users WHERE id=?`, userID)
	if err := row.Scan(&mp, &wins, &best); err != nil {
		return err
	}
	mp++
	if won {
		wins++
	}
	if finalStreak > best {
		best = finalStreak
	}
	_, err := tx.Exec(`UPDATE users SET matches_played=?, wins=?, best_streak=? WHERE id=?`, mp, wins, best, userID)
	return err
}
