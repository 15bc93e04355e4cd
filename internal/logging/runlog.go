package logging

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	runLogTimeLayout = "02.01.2006 15:04:05"
	runLogDoneMarker = " -- DONE --"
)

// RunLog buffers the messages of one run and writes them out once via Flush.
// It is safe for concurrent use.
type RunLog struct {
	mu    sync.Mutex
	lines []string
	now   func() time.Time
}

// NewRunLog returns an empty run log.
func NewRunLog() *RunLog {
	return &RunLog{now: time.Now}
}

// Append records a message stamped with the current time. Empty messages are ignored.
func (r *RunLog) Append(message string) {
	if strings.TrimSpace(message) == "" {
		return
	}
	r.appendAt(r.now(), message)
}

func (r *RunLog) appendAt(ts time.Time, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, ts.Format(runLogTimeLayout)+" "+message)
}

// Lines returns a copy of the buffered lines.
func (r *RunLog) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// Flush appends the buffered lines and the done marker to path, then clears
// the buffer. An existing file of at least maxBytes is first renamed to its
// ".1.log" sibling, replacing any older backup. maxBytes <= 0 disables rotation.
func (r *RunLog) Flush(path string, maxBytes int64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure run log directory: %w", err)
	}
	if err := rotateRunLog(path, maxBytes); err != nil {
		return err
	}

	r.mu.Lock()
	lines := r.lines
	r.lines = nil
	r.mu.Unlock()

	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	buf.WriteString(runLogDoneMarker)
	buf.WriteByte('\n')

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open run log %s: %w", path, err)
	}
	if _, err := file.Write(buf.Bytes()); err != nil {
		_ = file.Close()
		return fmt.Errorf("write run log %s: %w", path, err)
	}
	return file.Close()
}

// BackupPath returns the rotation target for a run log path.
func BackupPath(path string) string {
	if strings.HasSuffix(path, ".log") {
		return strings.TrimSuffix(path, ".log") + ".1.log"
	}
	return path + ".1"
}

func rotateRunLog(path string, maxBytes int64) error {
	if maxBytes <= 0 {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat run log %s: %w", path, err)
	}
	if info.Size() < maxBytes {
		return nil
	}
	if err := os.Rename(path, BackupPath(path)); err != nil {
		return fmt.Errorf("rotate run log %s: %w", path, err)
	}
	return nil
}

// Handler returns a slog handler that renders records into the run log.
func (r *RunLog) Handler(level slog.Leveler) slog.Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &runLogHandler{log: r, level: level}
}

type runLogHandler struct {
	log    *RunLog
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

func (h *runLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *runLogHandler) Handle(_ context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = h.log.now()
	}
	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	flattenAttrs(&kvs, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})

	var buf bytes.Buffer
	if record.Level >= slog.LevelWarn {
		buf.WriteString(record.Level.String())
		buf.WriteString(": ")
	}
	buf.WriteString(strings.TrimSpace(record.Message))
	// run_id is constant for the whole buffer
	writeKVs(&buf, kvs, FieldRunID)
	h.log.appendAt(ts, buf.String())
	return nil
}

func (h *runLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *runLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}
