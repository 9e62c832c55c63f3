package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Deliverer receives one finished export. Implementations decide where
// the bytes go.
type Deliverer interface {
	Deliver(ctx context.Context, jobID, shape string, data []byte) error
}

// FileTarget writes exports into a directory, one file per job.
type FileTarget struct {
	Dir string
}

func NewFileTarget(dir string) (*FileTarget, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &FileTarget{Dir: dir}, nil
}

func (t *FileTarget) Deliver(_ context.Context, jobID, shape string, data []byte) error {
	name := filepath.Join(t.Dir, fmt.Sprintf("%s_%s.csv", shape, jobID))
	if err := os.WriteFile(name, data, 0644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}
