package timer

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"tutoria-backend/internal/changefeed"
	"tutoria-backend/internal/models"
)

var (
	// ErrNotRegistered means the session is not being tracked (not
	// in_progress, or torn down between lookup and command).
	ErrNotRegistered = errors.New("session is not registered with the timer")

	// ErrConflict means another client toggled the timer first. The
	// caller must not retry; the feed echo of the winning write will
	// reconcile the registry.
	ErrConflict = errors.New("timer record was changed by another client")

	// ErrStaleRecord is returned by a RecordStore when a
	// compare-and-write loses to a concurrent update.
	ErrStaleRecord = errors.New("timer record version is stale")
)

type RecordStore interface {
	GetBySession(ctx context.Context, sessionID uuid.UUID) (*models.TimerRecord, error)
	// Update performs a compare-and-write keyed by record id and
	// version, returning ErrStaleRecord when the row moved.
	Update(ctx context.Context, rec *models.TimerRecord) error
}

type SessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.TutoringSession, error)
	ListInProgress(ctx context.Context) ([]models.TutoringSession, error)
}

// Publisher receives the per-tick snapshots for delivery to consumers.
type Publisher interface {
	PublishSnapshot(session models.TutoringSession, snap Snapshot)
}

// Service owns the session registry and drives the 1 Hz tick loop. It
// is the single component through which pause/resume commands, change
// feed events, and ticks meet; ticks never write persisted state, and
// the feed always wins on conflicting information.
type Service struct {
	registry     *Registry
	records      RecordStore
	sessions     SessionStore
	pub          Publisher
	now          func() time.Time
	writeTimeout time.Duration

	wake chan struct{}
	stop chan struct{}
}

func NewService(records RecordStore, sessions SessionStore, pub Publisher, writeTimeout time.Duration) *Service {
	return &Service{
		registry:     NewRegistry(),
		records:      records,
		sessions:     sessions,
		pub:          pub,
		now:          time.Now,
		writeTimeout: writeTimeout,
		wake:         make(chan struct{}, 1),
		stop:         make(chan struct{}),
	}
}

// Run drives the tick loop. The ticker is armed only while at least one
// registered session is running; with nothing to tick the loop parks on
// the wake channel instead of waking every second.
func (s *Service) Run() {
	var ticker *time.Ticker
	var tickC <-chan time.Time

	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		if s.registry.RunningCount() > 0 {
			if ticker == nil {
				ticker = time.NewTicker(time.Second)
				tickC = ticker.C
			}
		} else if ticker != nil {
			ticker.Stop()
			ticker = nil
			tickC = nil
		}

		select {
		case <-s.stop:
			return
		case <-s.wake:
		case <-tickC:
			s.tick()
		}
	}
}

func (s *Service) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
}

func (s *Service) wakeDriver() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// tick recomputes and publishes snapshots for every running session.
// Entries are copied out under the registry lock first, so a remote
// pause landing mid-cycle takes effect on the next tick.
func (s *Service) tick() {
	now := s.now()
	for _, e := range s.registry.Running() {
		elapsed := Elapsed(e.Record, startAnchor(e.Session), now)
		snap := Snapshot{
			SessionID:       e.Session.ID,
			ElapsedSeconds:  elapsed,
			IsPaused:        false,
			ProgressPercent: Progress(elapsed, e.Session.PlannedMinutes),
		}
		s.registry.setSnapshot(e.Session.ID, snap)
		if s.pub != nil {
			s.pub.PublishSnapshot(e.Session, snap)
		}
	}
}

// Register starts tracking a session that just entered in_progress.
func (s *Service) Register(session models.TutoringSession, record models.TimerRecord) {
	s.registry.Put(session, record)
	s.wakeDriver()
}

// Deregister stops tracking a session (it left in_progress). An
// in-flight pause/resume write for it completes but its result is
// discarded.
func (s *Service) Deregister(sessionID uuid.UUID) {
	s.registry.Remove(sessionID)
	s.wakeDriver()
}

// SnapshotFor computes a fresh snapshot for one tracked session.
func (s *Service) SnapshotFor(sessionID uuid.UUID) (Snapshot, bool) {
	e, ok := s.registry.Get(sessionID)
	if !ok {
		return Snapshot{}, false
	}

	elapsed := Elapsed(e.Record, startAnchor(e.Session), s.now())
	return Snapshot{
		SessionID:       sessionID,
		ElapsedSeconds:  elapsed,
		IsPaused:        e.Record.IsPaused,
		ProgressPercent: Progress(elapsed, e.Session.PlannedMinutes),
	}, true
}

// TogglePause freezes elapsed time at the current instant, flips the
// paused flag, stamps the anchor and persists the new record through a
// compare-and-write. On a stale write the local state is left alone and
// the caller gets ErrConflict; the feed echo of whichever write won
// brings the registry up to date.
func (s *Service) TogglePause(ctx context.Context, sessionID uuid.UUID) (Snapshot, error) {
	e, ok := s.registry.Get(sessionID)
	if !ok {
		return Snapshot{}, ErrNotRegistered
	}

	now := s.now()
	frozen := Elapsed(e.Record, startAnchor(e.Session), now)

	next := e.Record
	next.ElapsedTime = frozen
	next.IsPaused = !e.Record.IsPaused
	next.LastPause = &now

	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	if err := s.records.Update(ctx, &next); err != nil {
		if errors.Is(err, ErrStaleRecord) {
			return Snapshot{}, ErrConflict
		}
		return Snapshot{}, err
	}

	snap := Snapshot{
		SessionID:       sessionID,
		ElapsedSeconds:  frozen,
		IsPaused:        next.IsPaused,
		ProgressPercent: Progress(frozen, e.Session.PlannedMinutes),
	}

	// The entry may have been torn down while the write was in flight;
	// in that case the confirmed write is simply discarded locally.
	if s.registry.SetRecord(sessionID, next) {
		s.registry.setSnapshot(sessionID, snap)
		s.wakeDriver()
	}

	if s.pub != nil {
		s.pub.PublishSnapshot(e.Session, snap)
	}

	return snap, nil
}

// HandleFeedEvent applies one backend change notification to the
// registry. The feed reflects the backend's serialized order, so pushed
// rows replace local state wholesale.
func (s *Service) HandleFeedEvent(ctx context.Context, ev changefeed.Event) {
	switch ev.Table {
	case changefeed.TableTimerRecords:
		s.applyRecordEvent(ev)
	case changefeed.TableSessions:
		s.applySessionEvent(ctx, ev)
	}
}

func (s *Service) applyRecordEvent(ev changefeed.Event) {
	var rec models.TimerRecord
	if err := json.Unmarshal(ev.Row, &rec); err != nil {
		log.Printf("timer: dropping malformed record event: %v", err)
		return
	}

	if ev.Op == changefeed.OpDelete {
		// Deletion rides on the session leaving in_progress, which is
		// handled by the session event.
		return
	}

	if rec.SessionID == uuid.Nil || rec.ElapsedTime < 0 {
		// Corrupt rows are dropped from the registry rather than
		// ticked on.
		if rec.SessionID != uuid.Nil {
			s.registry.Remove(rec.SessionID)
		}
		log.Printf("timer: dropping corrupt record for session %s", rec.SessionID)
		return
	}

	if s.registry.SetRecord(rec.SessionID, rec) {
		s.wakeDriver()
	}
}

func (s *Service) applySessionEvent(ctx context.Context, ev changefeed.Event) {
	var session models.TutoringSession
	if err := json.Unmarshal(ev.Row, &session); err != nil {
		log.Printf("timer: dropping malformed session event: %v", err)
		return
	}
	if session.ID == uuid.Nil {
		return
	}

	if ev.Op == changefeed.OpDelete || session.Status != models.StatusInProgress {
		s.registry.Remove(session.ID)
		s.wakeDriver()
		return
	}

	if e, ok := s.registry.Get(session.ID); ok {
		s.registry.Put(session, e.Record)
		return
	}

	rec, err := s.records.GetBySession(ctx, session.ID)
	if err != nil {
		log.Printf("timer: failed to load record for session %s: %v", session.ID, err)
		return
	}
	s.Register(session, *rec)
}

// Reconcile rebuilds the registry from the store. Called on startup and
// after every feed (re)connection, since events may have been missed
// while disconnected.
func (s *Service) Reconcile(ctx context.Context) error {
	sessions, err := s.sessions.ListInProgress(ctx)
	if err != nil {
		return err
	}

	entries := make([]Entry, 0, len(sessions))
	for _, session := range sessions {
		rec, err := s.records.GetBySession(ctx, session.ID)
		if err != nil {
			log.Printf("timer: reconcile skipping session %s: %v", session.ID, err)
			continue
		}
		entries = append(entries, Entry{Session: session, Record: *rec})
	}

	s.registry.Replace(entries)
	s.wakeDriver()
	return nil
}

// startAnchor is the fallback ticking anchor for a record without a
// last_pause instant: the session's actual start, or its scheduled
// start if the start instant was never stamped.
func startAnchor(session models.TutoringSession) time.Time {
	if session.StartedAt != nil {
		return *session.StartedAt
	}
	return session.ScheduledAt
}
