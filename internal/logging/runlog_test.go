package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedRunLog() *RunLog {
	r := NewRunLog()
	r.now = func() time.Time { return time.Date(2024, 3, 7, 9, 5, 1, 0, time.Local) }
	return r
}

func TestRunLogAppendFormatsTimestamp(t *testing.T) {
	r := fixedRunLog()
	r.Append("started")
	r.Append("   ")

	lines := r.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %v", lines)
	}
	if lines[0] != "07.03.2024 09:05:01 started" {
		t.Fatalf("unexpected line %q", lines[0])
	}
}

func TestRunLogFlushAppendsDoneMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "keepers.log")
	r := fixedRunLog()
	r.Append("first")
	if err := r.Flush(path, 1<<20); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	r.Append("second")
	if err := r.Flush(path, 1<<20); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "07.03.2024 09:05:01 first\n -- DONE --\n07.03.2024 09:05:01 second\n -- DONE --\n"
	if string(data) != want {
		t.Fatalf("unexpected contents:\n%s", data)
	}
	if len(r.Lines()) != 0 {
		t.Fatal("flush should clear the buffer")
	}
}

func TestRunLogFlushRotatesAtThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "update.log")
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), 64), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	r := fixedRunLog()
	r.Append("fresh")
	if err := r.Flush(path, 64); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	backup, err := os.ReadFile(filepath.Join(dir, "update.1.log"))
	if err != nil {
		t.Fatalf("expected backup: %v", err)
	}
	if len(backup) != 64 {
		t.Fatalf("backup should hold old contents, got %d bytes", len(backup))
	}
	current, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(current), "07.03.2024 09:05:01 fresh\n") {
		t.Fatalf("unexpected current contents %q", current)
	}
}

func TestRunLogFlushBelowThresholdKeepsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "update.log")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := fixedRunLog()
	if err := r.Flush(path, 64); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "update.1.log")); !os.IsNotExist(err) {
		t.Fatalf("did not expect a backup, stat err=%v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "old\n -- DONE --\n" {
		t.Fatalf("unexpected contents %q", data)
	}
}

func TestRunLogHandlerCapturesRecords(t *testing.T) {
	var console bytes.Buffer
	r := fixedRunLog()
	logger, err := New(Options{Level: "info", Writer: &console, RunLog: r})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger = logger.With(String(FieldRunID, "abc"))
	logger.Debug("hidden")
	logger.Info("listed tasks", String(FieldClientID, "nas"), Int("count", 2))
	logger.Warn("client unreachable")

	lines := r.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %v", lines)
	}
	if !strings.HasSuffix(lines[0], "listed tasks client_id=nas count=2") {
		t.Fatalf("unexpected info line %q", lines[0])
	}
	if strings.Contains(lines[0], "run_id") {
		t.Fatalf("run id should be omitted from run log lines: %q", lines[0])
	}
	if !strings.Contains(lines[1], "WARN: client unreachable") {
		t.Fatalf("unexpected warn line %q", lines[1])
	}
	if !strings.Contains(console.String(), "listed tasks") {
		t.Fatal("console should also receive records")
	}
}

func TestBackupPath(t *testing.T) {
	if got := BackupPath("/var/log/keepers.log"); got != "/var/log/keepers.1.log" {
		t.Fatalf("unexpected backup path %q", got)
	}
	if got := BackupPath("/var/log/keepers"); got != "/var/log/keepers.1" {
		t.Fatalf("unexpected backup path %q", got)
	}
}
