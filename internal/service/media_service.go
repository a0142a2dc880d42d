package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
)

var allowedImageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {},
}

// MediaService owns the upload directory. Files are written before the
// record referencing them is committed, so a fire never hits a missing
// file for a record that was scheduled successfully.
type MediaService interface {
	Save(ctx context.Context, file *multipart.FileHeader) (path string, url string, err error)
	AbsolutePath(rel string) string
	Remove(rel string) error
}

type mediaService struct {
	uploadDir string
	storage   *StorageService
}

func NewMediaService(uploadDir string, storage *StorageService) (MediaService, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &mediaService{uploadDir: uploadDir, storage: storage}, nil
}

// Save validates the extension against the allow-list and writes the file
// under a collision-resistant name derived from the current time and the
// original name.
func (m *mediaService) Save(ctx context.Context, file *multipart.FileHeader) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := allowedImageExtensions[ext]; !ok {
		return "", "", fmt.Errorf("%w: file extension %q is not allowed", ErrInvalidInput, ext)
	}

	name := fmt.Sprintf("%d_%s", time.Now().UnixNano(), sanitizeFilename(file.Filename))
	dst := filepath.Join(m.uploadDir, name)

	src, err := file.Open()
	if err != nil {
		return "", "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", "", fmt.Errorf("read upload: %w", err)
	}

	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write upload: %w", err)
	}

	url := m.mirror(ctx, name, data)
	return name, url, nil
}

// mirror pushes a copy to the configured bucket. Failures are logged and
// swallowed: scheduling must not depend on the mirror.
func (m *mediaService) mirror(ctx context.Context, name string, data []byte) string {
	if m.storage == nil || !m.storage.Enabled() {
		return ""
	}

	contentType := "application/octet-stream"
	if kind, err := filetype.Match(data); err == nil && kind.MIME.Value != "" {
		contentType = kind.MIME.Value
	}

	url, err := m.storage.Upload(ctx, name, data, contentType)
	if err != nil {
		slog.Warn("media mirror upload failed", "file", name, "error", err)
		return ""
	}
	return url
}

func (m *mediaService) AbsolutePath(rel string) string {
	return filepath.Join(m.uploadDir, filepath.Base(rel))
}

func (m *mediaService) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	err := os.Remove(m.AbsolutePath(rel))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// sanitizeFilename strips directories and replaces anything outside a
// conservative character set.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
