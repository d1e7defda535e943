package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// FileStore is a process-local key-value store persisted as one JSON object.
// Each key holds a raw JSON value. Writes are atomic (temp file + rename) and
// serialized across processes with a lock on a sibling .lock file.
type FileStore struct {
	path    string
	mu      sync.Mutex
	backups *BackupManager
}

// NewFileStore creates a FileStore at path, creating its directory
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{
		path:    path,
		backups: NewBackupManager(DefaultBackupRetention),
	}, nil
}

// Path returns the store file path
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the raw JSON stored under key
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value []byte
	var found bool
	err := s.withLock(lockShared, func() error {
		data, err := s.read()
		if err != nil {
			return err
		}
		result := gjson.GetBytes(data, escapeKey(key))
		if result.Exists() {
			found = true
			value = []byte(result.Raw)
		}
		return nil
	})
	return value, found, err
}

// Set stores raw JSON under key, leaving other keys untouched
func (s *FileStore) Set(key string, value []byte) error {
	if !gjson.ValidBytes(value) {
		return fmt.Errorf("value for %q is not valid JSON", key)
	}
	return s.update(func(data []byte) ([]byte, error) {
		return sjson.SetRawBytes(data, escapeKey(key), value)
	})
}

// Delete removes key; deleting a missing key is not an error
func (s *FileStore) Delete(key string) error {
	return s.update(func(data []byte) ([]byte, error) {
		return sjson.DeleteBytes(data, escapeKey(key))
	})
}

func (s *FileStore) update(fn func([]byte) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withLock(lockExclusive, func() error {
		data, err := s.read()
		if err != nil {
			return err
		}
		updated, err := fn(data)
		if err != nil {
			return fmt.Errorf("failed to update store: %w", err)
		}
		return s.write(updated)
	})
}

// read returns the store contents, "{}" when the file is missing or empty
func (s *FileStore) read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []byte("{}"), nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []byte("{}"), nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("store file %s is not valid JSON", s.path)
	}
	return data, nil
}

// write replaces the store file atomically, keeping a rotating backup
func (s *FileStore) write(data []byte) error {
	if _, err := s.backups.CreateBackup(s.path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	tmp.Close()

	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("failed to set permissions on temporary file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		if restoreErr := s.backups.RestoreFromLatestBackup(s.path); restoreErr != nil {
			return fmt.Errorf("failed to replace store file: %v (restore failed: %v)", err, restoreErr)
		}
		return fmt.Errorf("failed to replace store file: %w", err)
	}

	// Non-fatal, the write already succeeded
	_ = s.backups.CleanupOldBackups(s.path)
	return nil
}

// withLock holds a file lock on the sibling lock file while fn runs. The
// store file itself is replaced by rename, so it cannot carry the lock.
func (s *FileStore) withLock(lock func(*os.File) error, fn func() error) error {
	f, err := os.OpenFile(s.path+".lock", os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer f.Close()

	if err := lock(f); err != nil {
		return fmt.Errorf("failed to lock store: %w", err)
	}
	defer unlock(f)

	return fn()
}

// escapeKey escapes gjson/sjson path syntax so key is matched literally
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
