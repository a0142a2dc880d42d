package job

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type imageListerStub struct {
	paths []string
}

func (s *imageListerStub) ListImagePaths(ctx context.Context) ([]string, error) {
	return s.paths, nil
}

func writeAged(t *testing.T, dir, name string, age time.Duration) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	old := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, old, old))
}

func TestSweepRemovesOnlyOldOrphans(t *testing.T) {
	dir := t.TempDir()

	writeAged(t, dir, "referenced.png", 48*time.Hour)
	writeAged(t, dir, "orphan_old.png", 48*time.Hour)
	writeAged(t, dir, "orphan_fresh.png", time.Minute)

	janitor := NewUploadJanitor(&imageListerStub{paths: []string{"referenced.png"}}, dir)
	janitor.Sweep()

	_, err := os.Stat(filepath.Join(dir, "referenced.png"))
	assert.NoError(t, err, "referenced files stay")

	_, err = os.Stat(filepath.Join(dir, "orphan_old.png"))
	assert.True(t, os.IsNotExist(err), "old orphans are removed")

	_, err = os.Stat(filepath.Join(dir, "orphan_fresh.png"))
	assert.NoError(t, err, "fresh files stay, their row may not be committed yet")
}
