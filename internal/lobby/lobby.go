// internal/lobby/lobby.go
//
// Room lifecycle for the duel server.
//
// Responsibilities:
//   - Registry: an explicit store of rooms keyed by short code (never a
//     package-level singleton), concurrency-safe via RWMutex.
//   - Lifecycle: waiting (host only) → ready (guest joined) → playing
//     (host started) → removed.
//   - Room codes: 5 characters from an alphabet with the visually
//     confusable characters (0/O, 1/I/L) removed, regenerated on collision.
//
// Callers receive value copies of Lobby; the registry owns the live state.

package lobby

import (
	"crypto/rand"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/numclash/go-server/internal/profile"
)

// Status is a room's lifecycle state.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusReady   Status = "ready"
	StatusPlaying Status = "playing"
)

var (
	ErrAlreadyInRoom = errors.New("already in a room")
	ErrNotFound      = errors.New("room not found")
	ErrFull          = errors.New("room full")
	ErrUnavailable   = errors.New("room unavailable")
	ErrNotHost       = errors.New("only the host may do that")
	ErrNotReady      = errors.New("room is not ready to start")
)

// codeAlphabet excludes 0/O, 1/I/L to keep codes unambiguous when spoken
// or retyped.
const (
	codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
	codeLength   = 5
)

// Lobby is a snapshot of one room.
type Lobby struct {
	Code      string           `json:"code"`
	HostID    string           `json:"-"`
	HostName  string           `json:"hostName"`
	GuestID   string           `json:"-"`
	GuestName string           `json:"guestName,omitempty"`
	Profile   *profile.Profile `json:"profile"`
	Status    Status           `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Departure reports what Leave tore down, so the caller can cascade
// (forfeit an in-progress match, notify the remaining player).
type Departure struct {
	Code    string
	WasHost bool
	Status  Status // room status at the moment of leaving
	OtherID string // remaining occupant, if any
}

// Registry owns all rooms.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*Lobby
	byPlayer map[string]string // player id -> room code
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]*Lobby),
		byPlayer: make(map[string]string),
	}
}

// Create opens a new room owned by hostID. A player already occupying a room
// (as host or guest) may not create another.
func (r *Registry) Create(hostID, hostName string, p *profile.Profile) (Lobby, error) {
	if p == nil {
		p = profile.Default()
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byPlayer[hostID]; ok {
		return Lobby{}, ErrAlreadyInRoom
	}
	code := r.newCode()
	lb := &Lobby{
		Code:      code,
		HostID:    hostID,
		HostName:  hostName,
		Profile:   p,
		Status:    StatusWaiting,
		CreatedAt: time.Now().UTC(),
	}
	r.rooms[code] = lb
	r.byPlayer[hostID] = code
	return *lb, nil
}

// Join seats guestID in the room for code.
func (r *Registry) Join(guestID, code, guestName string) (Lobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byPlayer[guestID]; ok {
		return Lobby{}, ErrAlreadyInRoom
	}
	lb, ok := r.rooms[code]
	if !ok {
		return Lobby{}, ErrNotFound
	}
	if lb.GuestID != "" {
		return Lobby{}, ErrFull
	}
	if lb.Status != StatusWaiting {
		return Lobby{}, ErrUnavailable
	}
	lb.GuestID = guestID
	lb.GuestName = guestName
	lb.Status = StatusReady
	r.byPlayer[guestID] = code
	return *lb, nil
}

// Leave removes playerID from whatever room it occupies. A departing host
// tears the whole room down; a departing guest reverts the room to waiting.
func (r *Registry) Leave(playerID string) (Departure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.byPlayer[playerID]
	if !ok {
		return Departure{}, ErrNotFound
	}
	lb := r.rooms[code]
	dep := Departure{Code: code, Status: lb.Status}
	if lb.HostID == playerID {
		dep.WasHost = true
		dep.OtherID = lb.GuestID
		delete(r.rooms, code)
		delete(r.byPlayer, lb.HostID)
		if lb.GuestID != "" {
			delete(r.byPlayer, lb.GuestID)
		}
		return dep, nil
	}
	dep.OtherID = lb.HostID
	delete(r.byPlayer, lb.GuestID)
	lb.GuestID = ""
	lb.GuestName = ""
	lb.Status = StatusWaiting
	return dep, nil
}

// Start transitions a ready room to playing. Host-only.
func (r *Registry) Start(code, requesterID string) (Lobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lb, ok := r.rooms[code]
	if !ok {
		return Lobby{}, ErrNotFound
	}
	if lb.HostID != requesterID {
		return Lobby{}, ErrNotHost
	}
	if lb.Status != StatusReady || lb.GuestID == "" {
		return Lobby{}, ErrNotReady
	}
	lb.Status = StatusPlaying
	return *lb, nil
}

// Get returns a snapshot of the room for code.
func (r *Registry) Get(code string) (Lobby, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lb, ok := r.rooms[code]
	if !ok {
		return Lobby{}, ErrNotFound
	}
	return *lb, nil
}

// ListAvailable returns joinable rooms (waiting, no guest), newest first.
func (r *Registry) ListAvailable() []Lobby {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Lobby{}
	for _, lb := range r.rooms {
		if lb.Status == StatusWaiting && lb.GuestID == "" {
			out = append(out, *lb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Close removes a room and its occupant index entries, e.g. when a match
// concludes naturally.
func (r *Registry) Close(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lb, ok := r.rooms[code]
	if !ok {
		return
	}
	delete(r.rooms, code)
	delete(r.byPlayer, lb.HostID)
	if lb.GuestID != "" {
		delete(r.byPlayer, lb.GuestID)
	}
}

// newCode generates an unused room code. Caller holds the write lock.
func (r *Registry) newCode() string {
	for {
		var b [codeLength]byte
		_, _ = rand.Read(b[:])
		for i := range b {
			b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
		}
		code := string(b[:])
		if _, taken := r.rooms[code]; !taken {
			return code
		}
	}
}
