package logtail

import (
	"context"
	"io"

	"github.com/hpcloud/tail"

	"github.com/cyra/statusrate/internal/logging"
)

// Tailer streams lines from a log file as they are written.
type Tailer struct {
	path   string
	logger *logging.Logger

	// FromStart makes Tail begin at the first line instead of the end.
	FromStart bool
	// Poll uses polling instead of inotify, for filesystems without events.
	Poll bool
}

// New creates a new Tailer for the given file path.
func New(path string, logger *logging.Logger) *Tailer {
	return &Tailer{
		path:   path,
		logger: logger,
	}
}

// Tail follows the file and sends each line to out until ctx is done.
// Rotated files are reopened.
func (t *Tailer) Tail(ctx context.Context, out chan<- string) error {
	cfg := tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Poll:      t.Poll,
		Logger:    tail.DiscardingLogger,
	}
	if !t.FromStart {
		cfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	tf, err := tail.TailFile(t.path, cfg)
	if err != nil {
		return err
	}
	defer tf.Cleanup()

	t.logger.Infof("tailing log file %s", t.path)

	for {
		select {
		case <-ctx.Done():
			_ = stop(tf)
			return ctx.Err()
		case line, ok := <-tf.Lines:
			if !ok {
				return tf.Wait()
			}
			if line.Err != nil {
				t.logger.Errorf("tail error: %v", line.Err)
				continue
			}
			select {
			case out <- line.Text:
			case <-ctx.Done():
				_ = stop(tf)
				return ctx.Err()
			}
		}
	}
}
