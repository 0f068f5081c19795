package changefeed

import (
	"encoding/json"
	"testing"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
		table   string
		op      string
	}{
		{"valid update", `{"table":"timer_records","op":"UPDATE","row":{"elapsed_time":45}}`, false, TableTimerRecords, OpUpdate},
		{"valid delete", `{"table":"tutoring_sessions","op":"DELETE","row":{}}`, false, TableSessions, OpDelete},
		{"missing table", `{"op":"UPDATE","row":{}}`, true, "", ""},
		{"missing op", `{"table":"timer_records","row":{}}`, true, "", ""},
		{"not json", `not-json`, true, "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := parseEvent([]byte(tc.payload))
			if tc.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if ev.Table != tc.table {
				t.Errorf("Expected table %q, got %q", tc.table, ev.Table)
			}
			if ev.Op != tc.op {
				t.Errorf("Expected op %q, got %q", tc.op, ev.Op)
			}
		})
	}
}

func TestParseEventRowPreserved(t *testing.T) {
	ev, err := parseEvent([]byte(`{"table":"timer_records","op":"UPDATE","row":{"elapsed_time":45,"is_paused":true}}`))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var row struct {
		ElapsedTime int  `json:"elapsed_time"`
		IsPaused    bool `json:"is_paused"`
	}
	if err := json.Unmarshal(ev.Row, &row); err != nil {
		t.Fatalf("Failed to decode row: %v", err)
	}
	if row.ElapsedTime != 45 || !row.IsPaused {
		t.Errorf("Row not preserved: %+v", row)
	}
}
