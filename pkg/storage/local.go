package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// LocalArchiver implements Archiver on the local filesystem. Files land
// under basePath/YYYY/MM with a uuid prefix, so re-uploads of the same
// filename never collide.
type LocalArchiver struct {
	basePath string
}

// NewLocalArchiver creates the archive directory if needed.
func NewLocalArchiver(basePath string) (*LocalArchiver, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &LocalArchiver{basePath: basePath}, nil
}

// Archive writes the upload and returns its path.
func (a *LocalArchiver) Archive(_ context.Context, filename string, data []byte) (string, error) {
	now := time.Now()
	dir := filepath.Join(a.basePath, now.Format("2006"), now.Format("01"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive subdirectory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s", uuid.NewString(), filepath.Base(filename)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to archive upload: %w", err)
	}
	return path, nil
}
