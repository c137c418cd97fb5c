// Package importer bulk-loads Alpha Progression exports and JSON backups
// directly into the database.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/claude/overload/internal/backup"
	"github.com/claude/overload/internal/ingest"
	"github.com/claude/overload/internal/ingest/alpha"
	"github.com/claude/overload/internal/storage"
)

// Ingester stores one Alpha Progression export.
type Ingester interface {
	Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error)
}

// Restorer replaces a user's log with a backup document.
type Restorer interface {
	Import(ctx context.Context, userID int, doc *backup.Document) error
}

// LogStore records import runs alongside the API's import log.
type LogStore interface {
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, log storage.ImportLog) error
}

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesErrored   int

	Result ingest.Result
}

// Importer reads exports and backups from disk and writes them for one user.
type Importer struct {
	alpha   Ingester
	backups Restorer
	logs    LogStore
	log     *slog.Logger
	dryRun  bool
}

// New creates a new Importer. In dry-run mode files are parsed and validated
// but nothing is written.
func New(alpha Ingester, backups Restorer, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{alpha: alpha, backups: backups, log: log, dryRun: dryRun}
}

// WithImportLog records each non-dry run in the import log.
func (imp *Importer) WithImportLog(logs LogStore) *Importer {
	imp.logs = logs
	return imp
}

// track opens a "running" import log entry and returns the function that
// closes it. Failures to write the log are only logged.
func (imp *Importer) track(ctx context.Context, userID int, source string) func(ingest.Result, error) {
	if imp.logs == nil || imp.dryRun {
		return func(ingest.Result, error) {}
	}
	start := time.Now()
	id, err := imp.logs.InsertImportLog(ctx, storage.ImportLog{UserID: userID, Source: source, Status: "running"})
	if err != nil {
		imp.log.Warn("failed to open import log", "error", err)
		return func(ingest.Result, error) {}
	}
	return func(r ingest.Result, runErr error) {
		ms := int(time.Since(start).Milliseconds())
		entry := storage.ImportLog{
			Status:           "success",
			SessionsReceived: r.SessionsReceived,
			SessionsInserted: r.SessionsInserted,
			ExercisesCreated: r.ExercisesCreated,
			SetsReceived:     r.SetsReceived,
			SetsInserted:     r.SetsInserted,
			DurationMs:       &ms,
		}
		if runErr != nil {
			msg := runErr.Error()
			entry.Status = "error"
			entry.ErrorMessage = &msg
		}
		if err := imp.logs.UpdateImportLog(ctx, id, entry); err != nil {
			imp.log.Warn("failed to close import log", "id", id, "error", err)
		}
	}
}

// ImportDir ingests every export under dir in lexical order. A file that fails
// is logged and counted; the rest still import.
func (imp *Importer) ImportDir(ctx context.Context, dir string, userID int) (*Stats, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && alpha.IsExport(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	sort.Strings(files)

	stats := &Stats{}
	done := imp.track(ctx, userID, "alpha-cli")
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			done(stats.Result, err)
			return stats, err
		}
		result, err := imp.importFile(ctx, f, userID)
		if err != nil {
			imp.log.Warn("import failed", "file", f, "error", err)
			stats.FilesErrored++
			continue
		}
		stats.FilesProcessed++
		stats.Result.Add(*result)
		imp.log.Info("imported export", "file", f,
			"sessions", result.SessionsInserted,
			"replaced", result.SessionsReplaced,
			"exercises_created", result.ExercisesCreated,
			"sets", result.SetsInserted,
		)
	}

	var runErr error
	if stats.FilesErrored > 0 {
		runErr = fmt.Errorf("%d of %d files failed", stats.FilesErrored, len(files))
	}
	done(stats.Result, runErr)
	return stats, nil
}

func (imp *Importer) importFile(ctx context.Context, path string, userID int) (*ingest.Result, error) {
	data, err := alpha.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading: %w", err)
	}

	if !imp.dryRun {
		return imp.alpha.Ingest(ctx, bytes.NewReader(data), userID)
	}

	sessions, err := alpha.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	result := &ingest.Result{SessionsReceived: len(sessions)}
	for _, s := range sessions {
		for _, ex := range s.Exercises {
			result.SetsReceived += len(ex.Sets)
		}
	}
	return result, nil
}

// RestoreBackup loads a JSON backup (optionally .gz or .zst compressed) and
// replaces the user's log with it.
func (imp *Importer) RestoreBackup(ctx context.Context, path string, userID int) (*backup.Document, error) {
	data, err := alpha.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc backup.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	if imp.dryRun {
		if err := backup.Validate(&doc); err != nil {
			return nil, err
		}
		imp.log.Info("dry-run: backup is valid", "exercises", len(doc.Exercises),
			"sessions", len(doc.Sessions), "sets", len(doc.Sets))
		return &doc, nil
	}

	done := imp.track(ctx, userID, "backup-cli")
	result := ingest.Result{
		SessionsReceived: len(doc.Sessions),
		SetsReceived:     len(doc.Sets),
	}
	if err := imp.backups.Import(ctx, userID, &doc); err != nil {
		done(result, err)
		return nil, err
	}
	result.SessionsInserted = len(doc.Sessions)
	result.SetsInserted = int64(len(doc.Sets))
	done(result, nil)
	return &doc, nil
}
