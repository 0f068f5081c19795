package timer

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"tutoria-backend/internal/changefeed"
	"tutoria-backend/internal/models"
)

type fakeRecordStore struct {
	mu       sync.Mutex
	records  map[uuid.UUID]models.TimerRecord
	failWith error
	onUpdate func()
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[uuid.UUID]models.TimerRecord)}
}

func (f *fakeRecordStore) GetBySession(ctx context.Context, sessionID uuid.UUID) (*models.TimerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[sessionID]
	if !ok {
		return nil, ErrStaleRecord
	}
	return &rec, nil
}

func (f *fakeRecordStore) Update(ctx context.Context, rec *models.TimerRecord) error {
	if f.onUpdate != nil {
		f.onUpdate()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}

	stored, ok := f.records[rec.SessionID]
	if !ok || stored.Version != rec.Version {
		return ErrStaleRecord
	}
	rec.Version++
	f.records[rec.SessionID] = *rec
	return nil
}

type fakePublisher struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (f *fakePublisher) PublishSnapshot(session models.TutoringSession, snap Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps = append(f.snaps, snap)
}

func (f *fakePublisher) published() []Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Snapshot, len(f.snaps))
	copy(out, f.snaps)
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestService(t *testing.T) (*Service, *fakeRecordStore, *fakePublisher, *fakeClock) {
	t.Helper()
	store := newFakeRecordStore()
	pub := &fakePublisher{}
	clk := &fakeClock{t: t0}
	svc := NewService(store, nil, pub, 5*time.Second)
	svc.now = clk.Now
	return svc, store, pub, clk
}

func startedSession(id uuid.UUID, plannedMinutes int, startedAt time.Time) models.TutoringSession {
	return models.TutoringSession{
		ID:             id,
		StudentID:      uuid.New(),
		SubjectID:      uuid.New(),
		ScheduledAt:    startedAt,
		StartedAt:      &startedAt,
		PlannedMinutes: plannedMinutes,
		Type:           models.SessionSupervised,
		Status:         models.StatusInProgress,
	}
}

func registerRunning(svc *Service, store *fakeRecordStore, plannedMinutes int) uuid.UUID {
	sessionID := uuid.New()
	anchor := t0
	rec := models.TimerRecord{
		ID:        uuid.New(),
		SessionID: sessionID,
		LastPause: &anchor,
		Version:   1,
	}
	store.mu.Lock()
	store.records[sessionID] = rec
	store.mu.Unlock()
	svc.Register(startedSession(sessionID, plannedMinutes, t0), rec)
	return sessionID
}

func TestTogglePauseFreezesAndResumes(t *testing.T) {
	svc, store, _, clk := newTestService(t)
	sessionID := registerRunning(svc, store, 60)

	// Pause at T0+45s: elapsed freezes at 45.
	clk.Advance(45 * time.Second)
	snap, err := svc.TogglePause(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if !snap.IsPaused || snap.ElapsedSeconds != 45 {
		t.Fatalf("Expected paused at 45s, got %+v", snap)
	}

	// Paused time does not accumulate.
	clk.Advance(55 * time.Second)
	snap, ok := svc.SnapshotFor(sessionID)
	if !ok || snap.ElapsedSeconds != 45 || !snap.IsPaused {
		t.Fatalf("Expected frozen 45s while paused, got %+v", snap)
	}

	// Resume at T0+100s, then 30 more seconds of ticking.
	if _, err := svc.TogglePause(context.Background(), sessionID); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	clk.Advance(30 * time.Second)
	snap, _ = svc.SnapshotFor(sessionID)
	if snap.ElapsedSeconds != 75 || snap.IsPaused {
		t.Fatalf("Expected 75s running after resume, got %+v", snap)
	}
}

func TestTogglePauseBoundaryLosesNoTime(t *testing.T) {
	svc, store, _, clk := newTestService(t)
	sessionID := registerRunning(svc, store, 60)

	// Toggle twice in quick succession; the boundary must neither lose
	// nor double-count the second that passes between the calls.
	clk.Advance(45 * time.Second)
	if _, err := svc.TogglePause(context.Background(), sessionID); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	clk.Advance(1 * time.Second)
	snap, err := svc.TogglePause(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if snap.ElapsedSeconds != 45 {
		t.Fatalf("Expected 45s across toggle boundary, got %d", snap.ElapsedSeconds)
	}

	clk.Advance(15 * time.Second)
	snap, _ = svc.SnapshotFor(sessionID)
	if snap.ElapsedSeconds != 60 {
		t.Fatalf("Expected 60s (45 running + 1 paused excluded + 15 running), got %d", snap.ElapsedSeconds)
	}
}

func TestTogglePauseStaleWriteDefersToFeed(t *testing.T) {
	svc, store, _, clk := newTestService(t)
	sessionID := registerRunning(svc, store, 60)

	// Another client bumped the version server-side.
	store.mu.Lock()
	rec := store.records[sessionID]
	rec.Version = 7
	store.records[sessionID] = rec
	store.mu.Unlock()

	clk.Advance(10 * time.Second)
	_, err := svc.TogglePause(context.Background(), sessionID)
	if err != ErrConflict {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}

	// Local state untouched: the registry still ticks on the old record.
	snap, ok := svc.SnapshotFor(sessionID)
	if !ok || snap.IsPaused || snap.ElapsedSeconds != 10 {
		t.Fatalf("Expected untouched running entry at 10s, got %+v", snap)
	}
}

func TestTogglePauseUnknownSession(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	if _, err := svc.TogglePause(context.Background(), uuid.New()); err != ErrNotRegistered {
		t.Fatalf("Expected ErrNotRegistered, got %v", err)
	}
}

func TestTogglePauseResultDiscardedAfterTeardown(t *testing.T) {
	svc, store, _, clk := newTestService(t)
	sessionID := registerRunning(svc, store, 60)

	// The entry is torn down while the write round trip is in flight.
	store.onUpdate = func() { svc.Deregister(sessionID) }

	clk.Advance(20 * time.Second)
	if _, err := svc.TogglePause(context.Background(), sessionID); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}

	if _, ok := svc.SnapshotFor(sessionID); ok {
		t.Fatal("Expected no registry entry after teardown")
	}
}

func recordEvent(t *testing.T, op string, rec models.TimerRecord) changefeed.Event {
	t.Helper()
	row, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Failed to marshal record: %v", err)
	}
	return changefeed.Event{Table: changefeed.TableTimerRecords, Op: op, Row: row}
}

func sessionEvent(t *testing.T, op string, session models.TutoringSession) changefeed.Event {
	t.Helper()
	row, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("Failed to marshal session: %v", err)
	}
	return changefeed.Event{Table: changefeed.TableSessions, Op: op, Row: row}
}

func TestFeedEventReplacesRecordBeforeNextTick(t *testing.T) {
	svc, store, pub, clk := newTestService(t)
	sessionID := registerRunning(svc, store, 60)

	clk.Advance(30 * time.Second)
	svc.tick()
	if got := pub.published(); len(got) != 1 || got[0].ElapsedSeconds != 30 {
		t.Fatalf("Expected one running snapshot at 30s, got %+v", got)
	}

	// A remote pause lands between ticks; the next cycle must use the
	// pushed record, not the stale local one.
	pausedAt := clk.Now()
	svc.HandleFeedEvent(context.Background(), recordEvent(t, changefeed.OpUpdate, models.TimerRecord{
		ID:          uuid.New(),
		SessionID:   sessionID,
		ElapsedTime: 30,
		IsPaused:    true,
		LastPause:   &pausedAt,
		Version:     2,
	}))

	clk.Advance(10 * time.Second)
	svc.tick()
	if got := pub.published(); len(got) != 1 {
		t.Fatalf("Paused session must not be ticked, got %+v", got)
	}

	snap, _ := svc.SnapshotFor(sessionID)
	if !snap.IsPaused || snap.ElapsedSeconds != 30 {
		t.Fatalf("Expected paused at 30s from feed record, got %+v", snap)
	}
}

func TestFeedSessionLeavingInProgressRemovesEntry(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	sessionID := registerRunning(svc, store, 60)

	session := startedSession(sessionID, 60, t0)
	session.Status = models.StatusCompleted
	svc.HandleFeedEvent(context.Background(), sessionEvent(t, changefeed.OpUpdate, session))

	if _, ok := svc.SnapshotFor(sessionID); ok {
		t.Fatal("Expected entry removed when session left in_progress")
	}
}

func TestFeedSessionEnteringInProgressRegisters(t *testing.T) {
	svc, store, _, clk := newTestService(t)

	sessionID := uuid.New()
	anchor := t0
	store.mu.Lock()
	store.records[sessionID] = models.TimerRecord{
		ID: uuid.New(), SessionID: sessionID, LastPause: &anchor, Version: 1,
	}
	store.mu.Unlock()

	svc.HandleFeedEvent(context.Background(), sessionEvent(t, changefeed.OpUpdate, startedSession(sessionID, 30, t0)))

	clk.Advance(60 * time.Second)
	snap, ok := svc.SnapshotFor(sessionID)
	if !ok {
		t.Fatal("Expected session registered from feed event")
	}
	if snap.ElapsedSeconds != 60 {
		t.Fatalf("Expected 60s elapsed, got %d", snap.ElapsedSeconds)
	}
}

func TestFeedCorruptRecordDropsEntry(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	sessionID := registerRunning(svc, store, 60)

	svc.HandleFeedEvent(context.Background(), recordEvent(t, changefeed.OpUpdate, models.TimerRecord{
		ID:          uuid.New(),
		SessionID:   sessionID,
		ElapsedTime: -5,
		Version:     2,
	}))

	if _, ok := svc.SnapshotFor(sessionID); ok {
		t.Fatal("Expected corrupt record to drop the registry entry")
	}
}

type fakeSessionStore struct {
	sessions []models.TutoringSession
}

func (f *fakeSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*models.TutoringSession, error) {
	for i := range f.sessions {
		if f.sessions[i].ID == id {
			return &f.sessions[i], nil
		}
	}
	return nil, ErrStaleRecord
}

func (f *fakeSessionStore) ListInProgress(ctx context.Context) ([]models.TutoringSession, error) {
	return f.sessions, nil
}

func TestReconcileRebuildsRegistry(t *testing.T) {
	store := newFakeRecordStore()
	pub := &fakePublisher{}
	clk := &fakeClock{t: t0}

	liveID, goneID := uuid.New(), uuid.New()
	anchor := t0
	store.records[liveID] = models.TimerRecord{ID: uuid.New(), SessionID: liveID, LastPause: &anchor, Version: 3}

	sessions := &fakeSessionStore{sessions: []models.TutoringSession{startedSession(liveID, 45, t0)}}
	svc := NewService(store, sessions, pub, 5*time.Second)
	svc.now = clk.Now

	// Stale local entry that the backend no longer considers active.
	svc.Register(startedSession(goneID, 45, t0), models.TimerRecord{ID: uuid.New(), SessionID: goneID, Version: 1})

	if err := svc.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if _, ok := svc.SnapshotFor(goneID); ok {
		t.Error("Expected stale entry dropped by reconcile")
	}
	if _, ok := svc.SnapshotFor(liveID); !ok {
		t.Error("Expected in-progress session registered by reconcile")
	}
}
