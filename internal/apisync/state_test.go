package apisync

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadStateMissingFile(t *testing.T) {
	s := LoadState(filepath.Join(t.TempDir(), "nope.json"))
	if s.StartTime != earliestStartTime {
		t.Errorf("StartTime = %s, want %s", s.StartTime, earliestStartTime)
	}
}

func TestLoadStateCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := LoadState(path)
	if s.StartTime != earliestStartTime {
		t.Errorf("corrupt state should reset, got StartTime = %s", s.StartTime)
	}
}

func TestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	in := SyncState{StartTime: "2024-03-01T12:00:01Z"}
	if err := in.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out := LoadState(path)
	if out.StartTime != in.StartTime {
		t.Errorf("StartTime = %s, want %s", out.StartTime, in.StartTime)
	}
	if out.LastRunAt == "" {
		t.Error("LastRunAt not recorded")
	}

	// No temp siblings left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("state dir has %d entries, want only the state file", len(entries))
	}
}

func TestAdvanceCheckpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-03-01T12:00:00Z", "2024-03-01T12:00:01Z"},
		{"2024-03-01T12:00:00.500Z", "2024-03-01T12:00:01Z"},
		{"not a timestamp", "not a timestamp"},
	}
	for _, tt := range tests {
		if got := advanceCheckpoint(tt.in); got != tt.want {
			t.Errorf("advanceCheckpoint(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
