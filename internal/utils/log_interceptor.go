package utils

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// maxPendingSize caps a line that has not seen its newline yet.
const maxPendingSize = 1024 * 1024

// LogInterceptor is an io.Writer for the updater log file. Every complete
// line is prefixed with a sequence number and a timestamp.
type LogInterceptor struct {
	mu             sync.Mutex
	target         io.Writer
	sequenceNumber atomic.Uint64
	pending        bytes.Buffer
}

func NewLogInterceptor(target io.Writer) *LogInterceptor {
	return &LogInterceptor{target: target}
}

func (i *LogInterceptor) writeFormattedLine(line []byte) error {
	prefix := slog.Uint64("line", i.sequenceNumber.Add(1)).String() + " " +
		slog.String("time", time.Now().Format(time.RFC3339)).String() + " "
	if _, err := io.WriteString(i.target, prefix); err != nil {
		return err
	}
	if _, err := i.target.Write(bytes.TrimRight(line, "\r")); err != nil {
		return err
	}
	_, err := io.WriteString(i.target, "\n")
	return err
}

// Write buffers p and flushes every complete line. It reports len(p) on
// success so callers such as slog handlers do not see short writes.
func (i *LogInterceptor) Write(p []byte) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.pending.Write(p)
	for {
		idx := bytes.IndexByte(i.pending.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := i.pending.Next(idx + 1)
		if err := i.writeFormattedLine(line[:idx]); err != nil {
			return 0, err
		}
	}

	if i.pending.Len() > maxPendingSize {
		if err := i.writeFormattedLine(i.pending.Bytes()); err != nil {
			return 0, err
		}
		i.pending.Reset()
	}
	return len(p), nil
}

// Close flushes a trailing partial line.
func (i *LogInterceptor) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.pending.Len() == 0 {
		return nil
	}
	err := i.writeFormattedLine(i.pending.Bytes())
	i.pending.Reset()
	return err
}
