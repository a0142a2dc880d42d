package job

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ImageLister is the slice of the post repository the janitor needs.
type ImageLister interface {
	ListImagePaths(ctx context.Context) ([]string, error)
}

// UploadJanitor removes files in the upload dir that no record references
// anymore, e.g. after a cancelled post. Runs on a cron schedule.
type UploadJanitor struct {
	pr        ImageLister
	uploadDir string
	minAge    time.Duration
}

func NewUploadJanitor(pr ImageLister, uploadDir string) *UploadJanitor {
	return &UploadJanitor{pr: pr, uploadDir: uploadDir, minAge: 24 * time.Hour}
}

func (j *UploadJanitor) Sweep() {
	ctx := context.Background()

	paths, err := j.pr.ListImagePaths(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	referenced := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		referenced[filepath.Base(p)] = struct{}{}
	}

	entries, err := os.ReadDir(j.uploadDir)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	cutoff := time.Now().Add(-j.minAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := referenced[entry.Name()]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			// Too young: could belong to a schedule request whose row is
			// not committed yet.
			continue
		}
		if err := os.Remove(filepath.Join(j.uploadDir, entry.Name())); err != nil {
			slog.Info(err.Error())
			continue
		}
		removed++
	}

	if removed > 0 {
		slog.Info("upload janitor removed orphaned files", "count", removed)
	}
}
