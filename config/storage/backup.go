package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// DefaultBackupRetention is the number of store backups kept next to the store file
const DefaultBackupRetention = 3

// BackupManager keeps rotating copies of a file before it is overwritten
type BackupManager struct {
	MaxBackups int
}

// NewBackupManager creates a BackupManager; non-positive retention uses the default
func NewBackupManager(maxBackups int) *BackupManager {
	if maxBackups <= 0 {
		maxBackups = DefaultBackupRetention
	}
	return &BackupManager{MaxBackups: maxBackups}
}

// CreateBackup copies filePath to filePath.backup-<timestamp>-<pid>.
// A missing source file is not an error and produces no backup.
func (bm *BackupManager) CreateBackup(filePath string) (string, error) {
	if !FileExists(filePath) {
		return "", nil
	}

	backupPath := fmt.Sprintf("%s.backup-%s-%d", filePath, time.Now().Format("20060102150405.000000000"), os.Getpid())
	if err := copyFile(filePath, backupPath); err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	return backupPath, nil
}

// ListBackups returns the backups of filePath, oldest first
func (bm *BackupManager) ListBackups(filePath string) ([]string, error) {
	backups, err := filepath.Glob(filePath + ".backup-*")
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	// the timestamp in the name sorts lexically
	sort.Strings(backups)
	return backups, nil
}

// CleanupOldBackups removes all but the newest MaxBackups backups
func (bm *BackupManager) CleanupOldBackups(filePath string) error {
	backups, err := bm.ListBackups(filePath)
	if err != nil {
		return err
	}

	excess := len(backups) - bm.MaxBackups
	for i := 0; i < excess; i++ {
		if err := os.Remove(backups[i]); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i], err)
		}
	}
	return nil
}

// RestoreFromLatestBackup overwrites filePath with its newest backup
func (bm *BackupManager) RestoreFromLatestBackup(filePath string) error {
	backups, err := bm.ListBackups(filePath)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backup files found for %s", filePath)
	}
	return copyFile(backups[len(backups)-1], filePath)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
