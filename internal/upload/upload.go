package upload

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/claude/overload/internal/ingest"
	"github.com/claude/overload/internal/ingest/alpha"
)

// Sender delivers one export to the server.
type Sender interface {
	SendCSV(ctx context.Context, data []byte) (*ingest.Result, error)
}

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	Server ingest.Result
}

// Uploader walks a directory of Alpha Progression exports and POSTs the new or
// changed ones to the Overload server.
type Uploader struct {
	sender Sender
	state  *StateDB
	dir    string
	dryRun bool
	log    *slog.Logger
}

// New creates a new Uploader.
func New(sender Sender, state *StateDB, dir string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		sender: sender,
		state:  state,
		dir:    dir,
		dryRun: dryRun,
		log:    log,
	}
}

// Run makes one pass over the directory. A file that fails to send is counted
// and left unrecorded so the next pass retries it.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	files, err := u.exports()
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.FilesTotal++
		if err := u.process(ctx, f, stats); err != nil {
			u.log.Warn("upload failed", "file", f, "error", err)
			stats.FilesErrored++
		}
	}
	return stats, nil
}

// exports lists every export under the directory in lexical order.
func (u *Uploader) exports() ([]string, error) {
	var files []string
	err := filepath.WalkDir(u.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && alpha.IsExport(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", u.dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func (u *Uploader) process(ctx context.Context, path string, stats *Stats) error {
	relPath, err := filepath.Rel(u.dir, path)
	if err != nil {
		relPath = path
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	hash, err := HashFile(path)
	if err != nil {
		return fmt.Errorf("hash: %w", err)
	}

	uploaded, err := u.state.IsUploaded(ctx, relPath, info.Size(), hash)
	if err != nil {
		return fmt.Errorf("state check: %w", err)
	}
	if uploaded {
		stats.FilesSkipped++
		return nil
	}

	data, err := alpha.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading: %w", err)
	}

	if u.dryRun {
		sessions, err := alpha.Parse(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("parsing: %w", err)
		}
		sets := 0
		for _, s := range sessions {
			for _, ex := range s.Exercises {
				sets += len(ex.Sets)
			}
		}
		u.log.Info("dry-run: would send", "file", relPath, "sessions", len(sessions), "sets", sets)
		stats.Server.SessionsReceived += len(sessions)
		stats.Server.SetsReceived += sets
		stats.FilesUploaded++
		return nil
	}

	result, err := u.sender.SendCSV(ctx, data)
	if err != nil {
		return err
	}
	stats.Server.Add(*result)
	stats.FilesUploaded++

	if err := u.state.MarkUploaded(ctx, Record{
		Path:         relPath,
		Size:         info.Size(),
		Hash:         hash,
		Sessions:     result.SessionsInserted,
		SetsInserted: result.SetsInserted,
	}); err != nil {
		u.log.Warn("failed to mark uploaded", "file", relPath, "error", err)
	}

	u.log.Info("uploaded export",
		"file", relPath,
		"sessions", result.SessionsInserted,
		"replaced", result.SessionsReplaced,
		"sets", result.SetsInserted,
	)
	return nil
}
