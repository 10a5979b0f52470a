package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/homecopilot/core/internal/copilotcore"
)

// retryBackoff is the exponential backoff schedule for transient storage
// I/O failures (§7): one retry after 250ms, then one more after 500ms.
var retryBackoff = []time.Duration{250 * time.Millisecond, 500 * time.Millisecond}

// withRetry runs op, retrying on the retryBackoff schedule if op returns a
// non-nil error. It never retries a nil result and returns the last error
// if every attempt fails.
func withRetry(op func() error) error {
	err := op()
	for _, delay := range retryBackoff {
		if err == nil {
			return nil
		}
		time.Sleep(delay)
		err = op()
	}
	return err
}

// Fixed artifact keys named by §6.4. Unlike the teacher's per-tenant
// matrix files (one file per IndexID, unbounded set), this domain has
// exactly these five named files, so no manifest/index-of-files layer is
// needed: WAL replay plus atomic tmp+rename writes are sufficient.
const (
	FileGraph      = "graph"
	FileCandidates = "candidates"
	FileRules      = "rules"
	FileMinerState = "miner_state"
	FileSynapses   = "synapses"
)

// Store is file-based durability for the fixed artifact set. Every Save
// appends a WAL record before the atomic file write, so a crash between
// the two is repaired by WAL replay at the next NewStore call.
type Store struct {
	basePath string
	codec    *Codec

	walPath string
	walMu   sync.Mutex

	writeMu sync.Mutex

	totalWrites uint64
	totalReads  uint64
	statsMu     sync.Mutex
}

// NewStore opens (creating if necessary) a persistence store rooted at
// basePath, replaying any WAL records left by an unclean shutdown.
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, copilotcore.StorageFailure(err, "create persistence base path")
	}
	s := &Store{basePath: basePath, codec: NewCodec(), walPath: filepath.Join(basePath, "wal.log")}
	if err := s.replayWAL(); err != nil {
		return nil, copilotcore.StorageFailure(err, "replay write-ahead log")
	}
	return s, nil
}

func (s *Store) filePath(key string) string {
	return filepath.Join(s.basePath, key+".hcdb")
}

// Save durably writes v under key: WAL-append, then atomic file write.
func (s *Store) Save(key string, v any) error {
	data, err := s.codec.Encode(v)
	if err != nil {
		return copilotcore.StorageFailure(err, "encode %s", key)
	}

	if err := s.appendWAL(walRecord{Op: walOpPut, Key: key, Data: data}); err != nil {
		return copilotcore.StorageFailure(err, "append wal for %s", key)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := withRetry(func() error { return writeAtomically(s.filePath(key), data) }); err != nil {
		return copilotcore.StorageFailure(err, "write %s", key)
	}

	s.statsMu.Lock()
	s.totalWrites++
	s.statsMu.Unlock()
	return nil
}

// Load reads the artifact stored under key into out.
func (s *Store) Load(key string, out any) error {
	data, err := os.ReadFile(s.filePath(key))
	if os.IsNotExist(err) {
		return copilotcore.NotFound("persisted file %q not found", key)
	}
	if err != nil {
		err = withRetry(func() error {
			var readErr error
			data, readErr = os.ReadFile(s.filePath(key))
			return readErr
		})
	}
	if err != nil {
		return copilotcore.StorageFailure(err, "read %s", key)
	}
	if err := s.codec.Decode(data, out); err != nil {
		return copilotcore.StorageFailure(err, "decode %s", key)
	}

	s.statsMu.Lock()
	s.totalReads++
	s.statsMu.Unlock()
	return nil
}

// Exists reports whether an artifact has ever been saved under key.
func (s *Store) Exists(key string) bool {
	_, err := os.Stat(s.filePath(key))
	return err == nil
}

// Delete removes the artifact stored under key, if any.
func (s *Store) Delete(key string) error {
	if err := s.appendWAL(walRecord{Op: walOpDelete, Key: key}); err != nil {
		return copilotcore.StorageFailure(err, "append wal delete for %s", key)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	remove := func() error { return os.Remove(s.filePath(key)) }
	if err := remove(); err != nil && !os.IsNotExist(err) {
		if err := withRetry(remove); err != nil && !os.IsNotExist(err) {
			return copilotcore.StorageFailure(err, "delete %s", key)
		}
	}
	return nil
}

// Stats reports cumulative read/write counts for observability.
func (s *Store) Stats() map[string]uint64 {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return map[string]uint64{"total_writes": s.totalWrites, "total_reads": s.totalReads}
}

func writeAtomically(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
