package storage

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TestNotFoundMapsNoRows verifies pgx.ErrNoRows surfaces as ErrNotFound.
func TestNotFoundMapsNoRows(t *testing.T) {
	err := notFound(pgx.ErrNoRows, "exercise x")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("notFound(ErrNoRows) = %v, want ErrNotFound", err)
	}
}

// TestNotFoundKeepsOtherErrors verifies unrelated errors are wrapped, not mapped.
func TestNotFoundKeepsOtherErrors(t *testing.T) {
	cause := errors.New("connection reset")
	err := notFound(cause, "exercise x")
	if errors.Is(err, ErrNotFound) {
		t.Error("connection error mapped to ErrNotFound")
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause lost: %v", err)
	}
}

// TestIsUniqueViolation verifies only SQLSTATE 23505 counts as a duplicate.
func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unique", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"check violation", &pgconn.PgError{Code: "23514"}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// TestMigrationSetIndexUnique verifies the schema rejects two sets of one
// exercise sharing an index within a session.
func TestMigrationSetIndexUnique(t *testing.T) {
	data, err := os.ReadFile("../../migrations/000001_init.up.sql")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "UNIQUE (session_id, exercise_id, idx)") {
		t.Error("set_entries lacks a unique (session_id, exercise_id, idx) constraint")
	}
}
