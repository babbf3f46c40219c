package logtail

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// FileID identifies a file independently of its path, so a log replaced by
// rotation is recognised even when the new file is already large.
type FileID struct {
	Dev uint64 `json:"dev"`
	Ino uint64 `json:"ino"`
}

// IsZero reports whether the identity is unknown.
func (id FileID) IsZero() bool {
	return id == FileID{}
}

// Checkpoint records how far a log has been read and when.
type Checkpoint struct {
	Offset  int64     `json:"offset"`
	File    FileID    `json:"file"`
	LastRun time.Time `json:"last_run"`
}

// IsZero reports whether no run has been recorded yet.
func (c Checkpoint) IsZero() bool {
	return c.Offset == 0 && c.File.IsZero() && c.LastRun.IsZero()
}

// LoadCheckpoint reads the checkpoint at path. A missing file yields a zero
// checkpoint and no error.
func LoadCheckpoint(path string) (Checkpoint, error) {
	var c Checkpoint
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("read checkpoint: %w", err)
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return Checkpoint{}, fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	return c, nil
}

// Save writes the checkpoint to path via a temp file and rename.
func (c Checkpoint) Save(path string) error {
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}
