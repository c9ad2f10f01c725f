// Package maintenance runs the daemon's periodic housekeeping: a daily
// snapshot of the state directory with age-based pruning.
package maintenance

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const backupPrefix = "periphd-state-"

// Config controls backups.
type Config struct {
	// StateDir is archived; only regular files at its top level are kept.
	StateDir string
	// BackupDir receives the archives. Defaults to StateDir/backups.
	BackupDir string
	// Hour is the local hour of the daily run.
	Hour int
	// MaxAge prunes older archives. Zero keeps everything.
	MaxAge time.Duration
}

// Service owns the backup schedule.
type Service struct {
	cfg Config
	now func() time.Time
}

// New creates a stopped service.
func New(cfg Config) *Service {
	if cfg.BackupDir == "" {
		cfg.BackupDir = filepath.Join(cfg.StateDir, "backups")
	}
	return &Service{cfg: cfg, now: time.Now}
}

// Start runs the daily backup until ctx is done.
func (s *Service) Start(ctx context.Context) {
	for {
		delay := nextRun(s.now(), s.cfg.Hour).Sub(s.now())
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
			path, err := s.RunBackupNow()
			if err != nil {
				slog.Error("maintenance: backup failed", "err", err)
				continue
			}
			slog.Info("maintenance: backup created", "file", path)
		}
	}
}

// nextRun returns the next occurrence of hour:00 strictly after now.
func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RunBackupNow archives the state directory and prunes old archives. It
// returns the archive path.
func (s *Service) RunBackupNow() (string, error) {
	if err := os.MkdirAll(s.cfg.BackupDir, 0755); err != nil {
		return "", fmt.Errorf("maintenance: create backup dir: %w", err)
	}
	name := backupPrefix + s.now().Format("2006-01-02") + ".tar.gz"
	dest := filepath.Join(s.cfg.BackupDir, name)
	if err := archiveDir(s.cfg.StateDir, dest); err != nil {
		return "", fmt.Errorf("maintenance: archive %s: %w", s.cfg.StateDir, err)
	}
	if s.cfg.MaxAge > 0 {
		s.prune()
	}
	return dest, nil
}

// ListBackups returns the archive paths in name order (oldest first).
func (s *Service) ListBackups() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.BackupDir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if isBackup(e) {
			files = append(files, filepath.Join(s.cfg.BackupDir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func isBackup(e os.DirEntry) bool {
	return !e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) && strings.HasSuffix(e.Name(), ".tar.gz")
}

func (s *Service) prune() {
	entries, err := os.ReadDir(s.cfg.BackupDir)
	if err != nil {
		return
	}
	cutoff := s.now().Add(-s.cfg.MaxAge)
	for _, e := range entries {
		if !isBackup(e) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.cfg.BackupDir, e.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("maintenance: failed to prune backup", "file", path, "err", err)
			continue
		}
		slog.Info("maintenance: pruned backup", "file", path)
	}
}

// archiveDir writes the regular files at the top level of dir to a gzipped
// tarball at dest, replacing it atomically.
func archiveDir(dir, dest string) (err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	tmp := dest + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err = addFile(tw, filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	if err = tw.Close(); err != nil {
		return err
	}
	if err = gz.Close(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dest)
}

func addFile(tw *tar.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, src)
	return err
}
