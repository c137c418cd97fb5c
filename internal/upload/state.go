package upload

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// StateDB tracks which exports have been successfully uploaded to avoid re-sending.
type StateDB struct {
	db *sql.DB
}

// Record is one uploaded export.
type Record struct {
	Path         string
	Size         int64
	Hash         string
	Sessions     int
	SetsInserted int64
	UploadedAt   time.Time
}

// OpenStateDB opens (or creates) the SQLite state database at dir/state.db.
func OpenStateDB(dir string) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "state.db"))
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS uploaded_exports (
		path          TEXT PRIMARY KEY,
		size          INTEGER NOT NULL,
		hash          TEXT NOT NULL,
		sessions      INTEGER NOT NULL DEFAULT 0,
		sets_inserted INTEGER NOT NULL DEFAULT 0,
		uploaded_at   TIMESTAMP NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &StateDB{db: db}, nil
}

// IsUploaded checks if an export was already uploaded with the same size and hash.
// An edited export (new hash) is sent again.
func (s *StateDB) IsUploaded(ctx context.Context, relPath string, size int64, hash string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM uploaded_exports WHERE path = ? AND size = ? AND hash = ?`,
		relPath, size, hash,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkUploaded records a successful upload, replacing any earlier record for the path.
func (s *StateDB) MarkUploaded(ctx context.Context, r Record) error {
	if r.UploadedAt.IsZero() {
		r.UploadedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO uploaded_exports (path, size, hash, sessions, sets_inserted, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.Path, r.Size, r.Hash, r.Sessions, r.SetsInserted, r.UploadedAt,
	)
	return err
}

// List returns every uploaded export, most recent first.
func (s *StateDB) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, size, hash, sessions, sets_inserted, uploaded_at
		 FROM uploaded_exports ORDER BY uploaded_at DESC, path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Path, &r.Size, &r.Hash, &r.Sessions, &r.SetsInserted, &r.UploadedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the state database.
func (s *StateDB) Close() error {
	return s.db.Close()
}

// HashFile computes the SHA-256 hash of a file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
