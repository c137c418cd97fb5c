package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/overload/internal/models"
	"github.com/google/uuid"
)

const sessionColumns = `id, user_id, routine_id, name, started_at, ended_at`

func scanSession(row rowScanner) (*models.Session, error) {
	var s models.Session
	if err := row.Scan(&s.ID, &s.UserID, &s.RoutineID, &s.Name, &s.StartedAt, &s.EndedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSession inserts a session, assigning an ID when none is set.
func (db *DB) CreateSession(ctx context.Context, s *models.Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.UserID, s.RoutineID, s.Name, s.StartedAt, s.EndedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("session %q at %s: %w", s.Name, s.StartedAt.Format(time.RFC3339), ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetSession returns one of the user's sessions.
func (db *DB) GetSession(ctx context.Context, userID int, id uuid.UUID) (*models.Session, error) {
	s, err := scanSession(db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 AND id = $2`,
		userID, id))
	if err != nil {
		return nil, notFound(err, "session "+id.String())
	}
	return s, nil
}

// ListSessions returns the user's sessions, most recently started first.
// A limit <= 0 returns every session.
func (db *DB) ListSessions(ctx context.Context, userID, limit int) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1 ORDER BY started_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	result := []models.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

// EndSession stamps the session's end time. A session that already ended keeps
// its original timestamp.
func (db *DB) EndSession(ctx context.Context, userID int, id uuid.UUID, at time.Time) (*models.Session, error) {
	s, err := scanSession(db.Pool.QueryRow(ctx, `
		UPDATE sessions SET ended_at = COALESCE(ended_at, $3)
		WHERE user_id = $1 AND id = $2
		RETURNING `+sessionColumns,
		userID, id, at))
	if err != nil {
		return nil, notFound(err, "session "+id.String())
	}
	return s, nil
}

// LatestSessionForExercise returns the most recently started session that has
// at least one set of the exercise.
func (db *DB) LatestSessionForExercise(ctx context.Context, userID int, exerciseID uuid.UUID) (*models.Session, error) {
	s, err := scanSession(db.Pool.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM sessions s
		WHERE s.user_id = $1 AND EXISTS (
			SELECT 1 FROM set_entries e WHERE e.session_id = s.id AND e.exercise_id = $2
		)
		ORDER BY s.started_at DESC
		LIMIT 1`,
		userID, exerciseID))
	if err != nil {
		return nil, notFound(err, "session for exercise "+exerciseID.String())
	}
	return s, nil
}
