package logtail

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hpcloud/tail"
)

// Batch describes one ReadSince pass.
type Batch struct {
	Start   int64  // offset reading began at
	End     int64  // offset to resume from next time
	Lines   int    // lines delivered
	Reset   bool   // reading restarted at 0 instead of the requested offset
	Rotated bool   // Reset because path now names a different file
	File    FileID // identity of the file that was read
}

// ReadSince delivers the lines of path from offset to the current end of
// file, one per call to fn. Reading restarts at 0 when path no longer names
// the file identified by last (rotated) or when the file shrank below offset
// (truncated). A zero last skips the identity check. A non-nil error from fn
// stops the batch and is returned together with the progress made so far.
func ReadSince(ctx context.Context, path string, offset int64, last FileID, fn func(line string) error) (Batch, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Batch{Start: offset, End: offset, File: last}, fmt.Errorf("stat log: %w", err)
	}

	b := Batch{Start: offset, File: fileIDOf(info)}
	switch {
	case !last.IsZero() && !b.File.IsZero() && last != b.File:
		b.Start = 0
		b.Reset = true
		b.Rotated = true
	case offset > info.Size() || offset < 0:
		b.Start = 0
		b.Reset = true
	}
	b.End = b.Start

	tf, err := tail.TailFile(path, tail.Config{
		Follow:    false,
		MustExist: true,
		Location:  &tail.SeekInfo{Offset: b.Start, Whence: io.SeekStart},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return b, fmt.Errorf("open log: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = stop(tf)
			return b, ctx.Err()
		case line, ok := <-tf.Lines:
			if !ok {
				if err := tf.Wait(); err != nil {
					return b, fmt.Errorf("read log: %w", err)
				}
				return b.clamp(path), nil
			}
			if line.Err != nil {
				_ = stop(tf)
				return b, fmt.Errorf("read log: %w", line.Err)
			}

			b.End += int64(len(line.Text)) + 1
			b.Lines++
			if err := fn(line.Text); err != nil {
				_ = stop(tf)
				return b, err
			}
		}
	}
}

// clamp keeps End within the file when the last line had no newline.
func (b Batch) clamp(path string) Batch {
	if info, err := os.Stat(path); err == nil && b.End > info.Size() {
		b.End = info.Size()
	}
	return b
}

// stop kills the tail goroutine, draining lines it may be blocked sending.
func stop(tf *tail.Tail) error {
	tf.Kill(nil)
	for range tf.Lines {
	}
	return tf.Wait()
}
