package upload

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/claude/overload/internal/ingest"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const exportCSV = `"Push · Day 1";"2026-02-17 17:04 h";"45 min"
"1. Bench Press · Barbell · 6 reps";"WU1 · 47,5 kg · 8 reps"
#;KG;REPS;RIR
1;102,5;6;0
2;102,5;6;0
`

type fakeSender struct {
	calls int
	fail  error
}

func (f *fakeSender) SendCSV(_ context.Context, data []byte) (*ingest.Result, error) {
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	return &ingest.Result{SessionsReceived: 1, SessionsInserted: 1, SetsReceived: 3, SetsInserted: 3}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openState(t *testing.T) *StateDB {
	t.Helper()
	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { state.Close() })
	return state
}

func writeExport(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestRunSkipsUploaded verifies a second pass sends nothing and an edited export
// is sent again.
func TestRunSkipsUploaded(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "feb.csv", exportCSV)
	path := writeExport(t, dir, "nested/mar.csv", exportCSV)
	writeExport(t, dir, "notes.txt", "ignored")

	sender := &fakeSender{}
	u := New(sender, openState(t), dir, false, discardLogger())

	stats, err := u.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesTotal != 2 || stats.FilesUploaded != 2 {
		t.Errorf("first pass = %+v, want 2 of 2 uploaded", stats)
	}
	if stats.Server.SetsInserted != 6 {
		t.Errorf("sets inserted = %d, want 6", stats.Server.SetsInserted)
	}

	stats, err = u.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesSkipped != 2 || sender.calls != 2 {
		t.Errorf("second pass = %+v after %d sends, want 2 skipped and no new sends", stats, sender.calls)
	}

	writeExport(t, dir, "nested/mar.csv", exportCSV+"\n")
	stats, err = u.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesUploaded != 1 || sender.calls != 3 {
		t.Errorf("after edit of %s = %+v, want one re-send", path, stats)
	}
}

// TestRunSendFailureRetriesNextPass verifies a failed file is not recorded.
func TestRunSendFailureRetriesNextPass(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "feb.csv", exportCSV)

	sender := &fakeSender{fail: errors.New("server down")}
	u := New(sender, openState(t), dir, false, discardLogger())

	stats, err := u.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesErrored != 1 {
		t.Errorf("errored = %d, want 1", stats.FilesErrored)
	}

	sender.fail = nil
	stats, err = u.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesUploaded != 1 {
		t.Errorf("retry pass uploaded = %d, want 1", stats.FilesUploaded)
	}
}

// TestRunDryRun verifies dry-run parses locally and never sends or records.
func TestRunDryRun(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "feb.csv", exportCSV)

	sender := &fakeSender{}
	state := openState(t)
	u := New(sender, state, dir, true, discardLogger())

	stats, err := u.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sender.calls != 0 {
		t.Errorf("dry-run sent %d times", sender.calls)
	}
	if stats.Server.SessionsReceived != 1 || stats.Server.SetsReceived != 3 {
		t.Errorf("dry-run counts = %+v, want 1 session 3 sets", stats.Server)
	}
	records, err := state.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("dry-run recorded %d files", len(records))
	}
}

// TestRunMissingDir verifies a missing export directory is an error.
func TestRunMissingDir(t *testing.T) {
	u := New(&fakeSender{}, openState(t), filepath.Join(t.TempDir(), "missing"), false, discardLogger())
	if _, err := u.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

// TestStateDBRoundTrip verifies records are matched on path, size and hash.
func TestStateDBRoundTrip(t *testing.T) {
	ctx := context.Background()
	state := openState(t)

	if err := state.MarkUploaded(ctx, Record{Path: "a.csv", Size: 10, Hash: "abc", Sessions: 2, SetsInserted: 12}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		size int64
		hash string
		want bool
	}{
		{"a.csv", 10, "abc", true},
		{"a.csv", 11, "abc", false},
		{"a.csv", 10, "def", false},
		{"b.csv", 10, "abc", false},
	}
	for _, tt := range tests {
		got, err := state.IsUploaded(ctx, tt.path, tt.size, tt.hash)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("IsUploaded(%s, %d, %s) = %v, want %v", tt.path, tt.size, tt.hash, got, tt.want)
		}
	}

	records, err := state.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].SetsInserted != 12 || records[0].UploadedAt.IsZero() {
		t.Errorf("records = %+v, want one with 12 sets and a timestamp", records)
	}
}
