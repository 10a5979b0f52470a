package persistence

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/homecopilot/core/internal/copilotcore"
)

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	orig := retryBackoff
	retryBackoff = []time.Duration{0, 0}
	defer func() { retryBackoff = orig }()

	attempts := 0
	err := withRetry(func() error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestWithRetryReturnsLastErrorAfterExhaustion(t *testing.T) {
	orig := retryBackoff
	retryBackoff = []time.Duration{0, 0}
	defer func() { retryBackoff = orig }()

	attempts := 0
	err := withRetry(func() error {
		attempts++
		return errors.New("persistent failure")
	})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("expected 1 initial attempt plus 2 retries (3 total), got %d", attempts)
	}
}

type minerStateFixture struct {
	LastRunMs            int64 `msgpack:"last_run_ms"`
	TotalEventsProcessed int64 `msgpack:"total_events_processed"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "persistence-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("unexpected error opening store: %v", err)
	}
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	in := minerStateFixture{LastRunMs: 12345, TotalEventsProcessed: 99}

	if err := s.Save(FileMinerState, in); err != nil {
		t.Fatalf("unexpected error saving: %v", err)
	}

	var out minerStateFixture
	if err := s.Load(FileMinerState, &out); err != nil {
		t.Fatalf("unexpected error loading: %v", err)
	}
	if out != in {
		t.Errorf("expected round trip to preserve value, got %+v want %+v", out, in)
	}
}

func TestLoadMissingFileIsNotFound(t *testing.T) {
	s := newTestStore(t)
	var out minerStateFixture
	err := s.Load(FileGraph, &out)
	if !copilotcore.IsKind(err, copilotcore.KindNotFound) {
		t.Errorf("expected not_found error, got %v", err)
	}
}

func TestExistsReflectsSavedState(t *testing.T) {
	s := newTestStore(t)
	if s.Exists(FileCandidates) {
		t.Fatal("expected a fresh store to report the file as absent")
	}
	if err := s.Save(FileCandidates, []string{"c1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Exists(FileCandidates) {
		t.Error("expected the file to exist after Save")
	}
}

func TestDeleteRemovesFile(t *testing.T) {
	s := newTestStore(t)
	_ = s.Save(FileRules, []int{1, 2, 3})
	if err := s.Delete(FileRules); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Exists(FileRules) {
		t.Error("expected file to be gone after Delete")
	}
}

func TestSaveOverwritesPreviousValue(t *testing.T) {
	s := newTestStore(t)
	_ = s.Save(FileMinerState, minerStateFixture{LastRunMs: 1})
	_ = s.Save(FileMinerState, minerStateFixture{LastRunMs: 2})

	var out minerStateFixture
	if err := s.Load(FileMinerState, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.LastRunMs != 2 {
		t.Errorf("expected overwritten value 2, got %d", out.LastRunMs)
	}
}

func TestDecodeRejectsCorruptData(t *testing.T) {
	dir, err := os.MkdirTemp("", "persistence-corrupt-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Save(FileGraph, minerStateFixture{LastRunMs: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(dir, FileGraph+".hcdb")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw[len(raw)-1] ^= 0xFF
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out minerStateFixture
	err = s.Load(FileGraph, &out)
	if !copilotcore.IsKind(err, copilotcore.KindStorageFailure) {
		t.Errorf("expected storage_failure on checksum mismatch, got %v", err)
	}
}

func TestWALReplayRecoversAfterSimulatedCrash(t *testing.T) {
	dir, err := os.MkdirTemp("", "persistence-wal-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Save(FileSynapses, []string{"syn:a:b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Simulate the data file having been lost after the WAL record landed
	// (e.g. a crash between WAL append and the atomic rename completing).
	if err := os.Remove(filepath.Join(dir, FileSynapses+".hcdb")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatalf("unexpected error reopening store: %v", err)
	}
	var out []string
	if err := reopened.Load(FileSynapses, &out); err != nil {
		t.Fatalf("expected WAL replay to restore the file, got error: %v", err)
	}
	if len(out) != 1 || out[0] != "syn:a:b" {
		t.Errorf("expected replayed content to match, got %v", out)
	}
}
