package timer

import (
	"testing"

	"github.com/google/uuid"

	"tutoria-backend/internal/models"
)

func TestRegistryRunningFiltersPaused(t *testing.T) {
	r := NewRegistry()

	running := startedSession(uuid.New(), 30, t0)
	paused := startedSession(uuid.New(), 30, t0)
	r.Put(running, models.TimerRecord{SessionID: running.ID})
	r.Put(paused, models.TimerRecord{SessionID: paused.ID, IsPaused: true})

	if got := r.RunningCount(); got != 1 {
		t.Fatalf("Expected 1 running entry, got %d", got)
	}
	entries := r.Running()
	if len(entries) != 1 || entries[0].Session.ID != running.ID {
		t.Fatalf("Expected only the running session, got %+v", entries)
	}
}

func TestRegistrySetRecordOnAbsentEntry(t *testing.T) {
	r := NewRegistry()
	if r.SetRecord(uuid.New(), models.TimerRecord{}) {
		t.Fatal("Expected SetRecord to report a missing entry")
	}
}

func TestRegistrySetRecordReplacesWholesale(t *testing.T) {
	r := NewRegistry()
	session := startedSession(uuid.New(), 30, t0)
	r.Put(session, models.TimerRecord{SessionID: session.ID, ElapsedTime: 10, Version: 1})

	if !r.SetRecord(session.ID, models.TimerRecord{SessionID: session.ID, ElapsedTime: 99, IsPaused: true, Version: 5}) {
		t.Fatal("Expected SetRecord to succeed")
	}

	e, ok := r.Get(session.ID)
	if !ok {
		t.Fatal("Expected entry present")
	}
	if e.Record.ElapsedTime != 99 || !e.Record.IsPaused || e.Record.Version != 5 {
		t.Fatalf("Record not replaced: %+v", e.Record)
	}
}

func TestRegistryReplace(t *testing.T) {
	r := NewRegistry()
	old := startedSession(uuid.New(), 30, t0)
	r.Put(old, models.TimerRecord{SessionID: old.ID})

	next := startedSession(uuid.New(), 30, t0)
	r.Replace([]Entry{{Session: next, Record: models.TimerRecord{SessionID: next.ID}}})

	if _, ok := r.Get(old.ID); ok {
		t.Error("Expected old entry gone after Replace")
	}
	if _, ok := r.Get(next.ID); !ok {
		t.Error("Expected new entry present after Replace")
	}
	if r.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", r.Len())
	}
}
