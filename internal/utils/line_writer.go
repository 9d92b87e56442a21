package utils

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
)

// LineWriter prefixes every complete line written to it with a `line=N`
// sequence number. Partial lines are held until their newline arrives.
// It lets a log file be checked for gaps after a crash.
type LineWriter struct {
	mu      sync.Mutex
	target  io.Writer
	counter uint64
	pending bytes.Buffer
}

func NewLineWriter(target io.Writer) *LineWriter {
	return &LineWriter{target: target}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending.Write(p)
	for {
		idx := bytes.IndexByte(w.pending.Bytes(), '\n')
		if idx < 0 {
			break
		}
		if err := w.writeLine(w.pending.Next(idx + 1)); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

// Close flushes a trailing partial line
func (w *LineWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending.Len() == 0 {
		return nil
	}
	line := append(w.pending.Bytes(), '\n')
	w.pending.Reset()
	return w.writeLine(line)
}

func (w *LineWriter) writeLine(line []byte) error {
	w.counter++
	if _, err := io.WriteString(w.target, slog.Uint64("line", w.counter).String()+" "); err != nil {
		return err
	}
	_, err := w.target.Write(line)
	return err
}
