package store

import (
	"path/filepath"
	"testing"
	"time"
)

var testStart = time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)

// createTestStore opens a journal in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a sync run with minimal required fields.
func createTestRun(id string, started time.Time) Run {
	return Run{
		ID:        id,
		Command:   "sync",
		Source:    "staging",
		Target:    "production",
		Kinds:     []string{"metaobjects"},
		Options:   map[string]string{"definitions": "true", "data": "true"},
		StartedAt: started,
	}
}
