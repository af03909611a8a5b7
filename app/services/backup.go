package services

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/usgears/storefront/pkg/logger"
	"github.com/usgears/storefront/pkg/storage"
)

const (
	backupKeepDays = 7
	backupDateFmt  = "2006-01-02"
)

var backupSources = []string{"media", "payment"}

type BackupReport struct {
	Dir    string   `json:"dir"`
	Copied int      `json:"copied"`
	Pruned []string `json:"pruned"`
}

// BackupService copies stored uploads into dated folders on the local
// filesystem.
type BackupService struct {
	src  storage.Disk
	root string
	now  func() time.Time
}

func NewBackupService(src storage.Disk, root string) *BackupService {
	return &BackupService{src: src, root: root, now: func() time.Time { return time.Now().UTC() }}
}

// Run copies media/ and payment/ into {root}/{YYYY-MM-DD}, then removes
// dated folders older than a week. Running twice on one day overwrites.
func (s *BackupService) Run(ctx context.Context) (BackupReport, error) {
	today := s.now()
	day := today.Format(backupDateFmt)
	dst := storage.NewLocal(filepath.Join(s.root, day), "")
	rep := BackupReport{Dir: filepath.Join(s.root, day), Pruned: []string{}}

	for _, dir := range backupSources {
		files, err := s.src.Files(ctx, dir)
		if err != nil {
			return rep, fmt.Errorf("backup: list %s: %w", dir, err)
		}
		for _, f := range files {
			if err := s.copy(ctx, dst, f); err != nil {
				return rep, err
			}
			rep.Copied++
		}
	}

	pruned, err := s.prune(today)
	rep.Pruned = append(rep.Pruned, pruned...)
	if err != nil {
		return rep, err
	}
	logger.WithCtx(ctx).Info("backup: uploads copied", "dir", rep.Dir, "files", rep.Copied, "pruned", len(rep.Pruned))
	return rep, nil
}

func (s *BackupService) copy(ctx context.Context, dst storage.Disk, p string) error {
	rc, err := s.src.Open(ctx, p)
	if err != nil {
		if storage.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("backup: open %s: %w", p, err)
	}
	defer rc.Close()
	if err := dst.Put(ctx, path.Clean("/"+p), rc, ""); err != nil {
		return fmt.Errorf("backup: write %s: %w", p, err)
	}
	return nil
}

// prune removes dated folders strictly older than the retention window.
// Anything not named like a date is left alone.
func (s *BackupService) prune(today time.Time) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("backup: read %s: %w", s.root, err)
	}
	cutoff := today.AddDate(0, 0, -backupKeepDays).Format(backupDateFmt)

	var removed []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(backupDateFmt, e.Name()); err != nil || e.Name() >= cutoff {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			return removed, fmt.Errorf("backup: remove %s: %w", e.Name(), err)
		}
		removed = append(removed, e.Name())
	}
	return removed, nil
}
