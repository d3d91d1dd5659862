package httpserver

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numclash/go-server/internal/lobby"
	"github.com/numclash/go-server/internal/match"
)

func newTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1) // each :memory: connection is its own database
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range []string{
		`CREATE TABLE users (
			id TEXT PRIMARY KEY, username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL, created_at TEXT NOT NULL,
			matches_played INTEGER NOT NULL DEFAULT 0,
			wins INTEGER NOT NULL DEFAULT 0,
			best_streak INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_code TEXT NOT NULL, difficulty TEXT NOT NULL DEFAULT '',
			host_id TEXT NOT NULL, host_name TEXT NOT NULL,
			guest_id TEXT NOT NULL, guest_name TEXT NOT NULL,
			rounds INTEGER NOT NULL, winner_id TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL, finished_at TEXT NOT NULL
		);`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	srv := New(lobby.NewRegistry(), match.NewStore(), db)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, db
}

// call sends a JSON request with an optional bearer token and decodes the
// JSON response into a generic map.
func call(t *testing.T, ts *httptest.Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func guestToken(t *testing.T, ts *httptest.Server, name string) string {
	t.Helper()
	status, body := call(t, ts, http.MethodPost, "/auth/guest", "", map[string]string{"name": name})
	require.Equal(t, http.StatusOK, status)
	tok, _ := body["token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func TestGuestDuelFlow(t *testing.T) {
	ts, _ := newTestServer(t)

	alice := guestToken(t, ts, "Alice")
	bob := guestToken(t, ts, "Bob")

	// Identity is required for lobby access.
	status, _ := call(t, ts, http.MethodGet, "/lobby", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, created := call(t, ts, http.MethodPost, "/lobby", alice, map[string]string{"difficulty": "standard"})
	require.Equal(t, http.StatusOK, status)
	code, _ := created["code"].(string)
	require.Len(t, code, 5)

	status, joined := call(t, ts, http.MethodPost, "/lobby/"+code+"/join", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", joined["status"])

	// Only the host may start.
	status, _ = call(t, ts, http.MethodPost, "/lobby/"+code+"/start", bob, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, view := call(t, ts, http.MethodPost, "/lobby/"+code+"/start", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "playing", view["status"])
	cards, _ := view["cards"].([]any)
	assert.Len(t, cards, 4)

	// No result before resolution.
	status, _ = call(t, ts, http.MethodGet, "/match/"+code+"/result", alice, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, sub := call(t, ts, http.MethodPost, "/match/"+code+"/submit", alice, map[string]string{"expression": "1+1"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, sub["ready"])

	// The opponent only sees readiness, not the expression.
	status, bview := call(t, ts, http.MethodGet, "/match/"+code, bob, nil)
	require.Equal(t, http.StatusOK, status)
	opp, _ := bview["opponent"].(map[string]any)
	assert.Equal(t, true, opp["submitted"])

	status, sub = call(t, ts, http.MethodPost, "/match/"+code+"/submit", bob, map[string]string{"expression": "1+1"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, sub["ready"])

	// Both results are far off a 20..99 target, so the round is a draw.
	status, res := call(t, ts, http.MethodGet, "/match/"+code+"/result", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, res["draw"])
	assert.Equal(t, false, res["over"])
}

func TestRepeatForfeitPersistsOnce(t *testing.T) {
	ts, db := newTestServer(t)

	alice := guestToken(t, ts, "Alice")
	bob := guestToken(t, ts, "Bob")

	status, created := call(t, ts, http.MethodPost, "/lobby", alice, map[string]string{"difficulty": "standard"})
	require.Equal(t, http.StatusOK, status)
	code, _ := created["code"].(string)
	status, _ = call(t, ts, http.MethodPost, "/lobby/"+code+"/join", bob, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = call(t, ts, http.MethodPost, "/lobby/"+code+"/start", alice, nil)
	require.Equal(t, http.StatusOK, status)

	status, res := call(t, ts, http.MethodPost, "/match/"+code+"/forfeit", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, res["forfeit"])

	// A second forfeit is rejected and must not write another history row.
	status, _ = call(t, ts, http.MethodPost, "/match/"+code+"/forfeit", bob, nil)
	assert.Equal(t, http.StatusConflict, status)

	var rows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM matches WHERE room_code=?`, code).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestSignupLoginAndStats(t *testing.T) {
	ts, _ := newTestServer(t)

	status, made := call(t, ts, http.MethodPost, "/auth/signup",
		"", map[string]string{"username": "carol_1", "password": "password123"})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, made["id"])

	status, _ = call(t, ts, http.MethodPost, "/auth/signup",
		"", map[string]string{"username": "carol_1", "password": "password123"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = call(t, ts, http.MethodPost, "/auth/login",
		"", map[string]string{"username": "carol_1", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, ts, http.MethodPost, "/auth/login",
		"", map[string]string{"username": "carol_1", "password": "password123"})
	assert.Equal(t, http.StatusOK, status)

	// Guests have no stats row.
	g := guestToken(t, ts, "Dave")
	status, _ = call(t, ts, http.MethodGet, "/stats/me", g, nil)
	assert.Equal(t, http.StatusForbidden, status)
}
