package timer

import (
	"sync"

	"github.com/google/uuid"

	"tutoria-backend/internal/models"
)

// Snapshot is the outward contract per active session: what consumers
// display and what the websocket hub pushes each tick.
type Snapshot struct {
	SessionID       uuid.UUID `json:"session_id"`
	ElapsedSeconds  int       `json:"elapsed_seconds"`
	IsPaused        bool      `json:"is_paused"`
	ProgressPercent float64   `json:"progress_percent"`
}

type Entry struct {
	Session  models.TutoringSession
	Record   models.TimerRecord
	Snapshot Snapshot
}

// Registry indexes the in-progress sessions this client is tracking,
// keyed by session id. It holds the latest known TimerRecord for each
// and the last snapshot computed from it. All methods copy entries in
// and out; callers never share registry memory.
type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[uuid.UUID]*Entry)}
}

func (r *Registry) Put(session models.TutoringSession, record models.TimerRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[session.ID] = &Entry{Session: session, Record: record}
}

// SetRecord replaces an entry's timer record wholesale. Returns false
// when the session is not registered (entry torn down while the update
// was in flight; the result is discarded).
func (r *Registry) SetRecord(sessionID uuid.UUID, record models.TimerRecord) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	if !ok {
		return false
	}
	e.Record = record
	return true
}

func (r *Registry) Remove(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sessionID)
}

// Replace swaps the full entry set, used when reconciling after a feed
// reconnect or at startup.
func (r *Registry) Replace(entries []Entry) {
	next := make(map[uuid.UUID]*Entry, len(entries))
	for i := range entries {
		e := entries[i]
		next[e.Session.ID] = &e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = next
}

func (r *Registry) Get(sessionID uuid.UUID) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[sessionID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Running returns copies of the entries whose timers are ticking.
func (r *Registry) Running() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var running []Entry
	for _, e := range r.entries {
		if !e.Record.IsPaused {
			running = append(running, *e)
		}
	}
	return running
}

func (r *Registry) RunningCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, e := range r.entries {
		if !e.Record.IsPaused {
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) setSnapshot(sessionID uuid.UUID, snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[sessionID]; ok {
		e.Snapshot = snap
	}
}
