package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/overload/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const setColumns = `id, user_id, session_id, exercise_id, idx, weight, reps,
	is_warmup, completed_at, created_at`

func scanSet(row rowScanner) (*models.SetEntry, error) {
	var s models.SetEntry
	err := row.Scan(&s.ID, &s.UserID, &s.SessionID, &s.ExerciseID, &s.Index,
		&s.Weight, &s.Reps, &s.IsWarmup, &s.CompletedAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectSets(rows pgx.Rows) ([]models.SetEntry, error) {
	defer rows.Close()
	result := []models.SetEntry{}
	for rows.Next() {
		s, err := scanSet(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

// InsertSet stores a set at s.Index. The session and exercise must both belong
// to s.UserID, otherwise ErrNotFound is returned.
func (db *DB) InsertSet(ctx context.Context, s *models.SetEntry) error {
	return db.insertSet(ctx, s, false)
}

// appendAttempts bounds retries when a concurrent append takes the same index.
const appendAttempts = 3

// AppendSet stores a set after the last one logged for the same exercise in
// the session and sets s.Index accordingly.
func (db *DB) AppendSet(ctx context.Context, s *models.SetEntry) error {
	var err error
	for range appendAttempts {
		if err = db.insertSet(ctx, s, true); !errors.Is(err, ErrDuplicate) {
			return err
		}
	}
	return err
}

func (db *DB) insertSet(ctx context.Context, s *models.SetEntry, appendIndex bool) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	var idx *int
	if !appendIndex {
		idx = &s.Index
	}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO set_entries (id, user_id, session_id, exercise_id, idx, weight, reps, is_warmup, completed_at)
		SELECT $1, $2, $3, $4,
			COALESCE($5, (SELECT COALESCE(MAX(idx) + 1, 0) FROM set_entries
				WHERE session_id = $3 AND exercise_id = $4)),
			$6, $7, $8, $9
		WHERE EXISTS (SELECT 1 FROM sessions WHERE id = $3 AND user_id = $2)
		  AND EXISTS (SELECT 1 FROM exercises WHERE id = $4 AND user_id = $2)
		RETURNING idx, created_at`,
		s.ID, s.UserID, s.SessionID, s.ExerciseID, idx,
		s.Weight, s.Reps, s.IsWarmup, s.CompletedAt,
	).Scan(&s.Index, &s.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("set index in session %s is taken: %w", s.SessionID, ErrDuplicate)
	}
	if err != nil {
		return notFound(err, "session or exercise for set")
	}
	return nil
}

// UpdateSet overwrites weight, reps, warm-up flag and completion time.
func (db *DB) UpdateSet(ctx context.Context, s *models.SetEntry) error {
	updated, err := scanSet(db.Pool.QueryRow(ctx, `
		UPDATE set_entries SET weight = $3, reps = $4, is_warmup = $5, completed_at = $6
		WHERE user_id = $1 AND id = $2
		RETURNING `+setColumns,
		s.UserID, s.ID, s.Weight, s.Reps, s.IsWarmup, s.CompletedAt))
	if err != nil {
		return notFound(err, "set "+s.ID.String())
	}
	*s = *updated
	return nil
}

// DeleteSet removes one set.
func (db *DB) DeleteSet(ctx context.Context, userID int, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM set_entries WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting set %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListSessionExerciseSets returns one exercise's sets in a session, ordered by index.
func (db *DB) ListSessionExerciseSets(ctx context.Context, userID int, sessionID, exerciseID uuid.UUID) ([]models.SetEntry, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+setColumns+` FROM set_entries
		WHERE user_id = $1 AND session_id = $2 AND exercise_id = $3
		ORDER BY idx, created_at, id`,
		userID, sessionID, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	return collectSets(rows)
}

// ListSessionSets returns every set of a session, grouped by exercise in the
// order the exercises were first logged, then by index.
func (db *DB) ListSessionSets(ctx context.Context, userID int, sessionID uuid.UUID) ([]models.SetEntry, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+setColumns+` FROM set_entries
		WHERE user_id = $1 AND session_id = $2
		ORDER BY MIN(created_at) OVER (PARTITION BY exercise_id), exercise_id, idx, created_at, id`,
		userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying session sets: %w", err)
	}
	return collectSets(rows)
}

// RecentSessionsForExercise returns up to limit sessions containing the
// exercise, most recent first, each with that exercise's sets in index order.
// Sessions still in progress sort ahead of finished ones.
func (db *DB) RecentSessionsForExercise(ctx context.Context, userID int, exerciseID uuid.UUID, limit int) ([]models.SessionSets, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM sessions s
		WHERE s.user_id = $1 AND EXISTS (
			SELECT 1 FROM set_entries e WHERE e.session_id = s.id AND e.exercise_id = $2
		)
		ORDER BY s.ended_at DESC NULLS FIRST, s.started_at DESC
		LIMIT $3`,
		userID, exerciseID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent sessions: %w", err)
	}
	var (
		result []models.SessionSets
		ids    []uuid.UUID
		pos    = map[uuid.UUID]int{}
	)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		pos[s.ID] = len(result)
		ids = append(ids, s.ID)
		result = append(result, models.SessionSets{Session: *s, Sets: []models.SetEntry{}})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading recent sessions: %w", err)
	}
	if len(ids) == 0 {
		return []models.SessionSets{}, nil
	}

	setRows, err := db.Pool.Query(ctx, `
		SELECT `+setColumns+` FROM set_entries
		WHERE user_id = $1 AND exercise_id = $2 AND session_id = ANY($3)
		ORDER BY session_id, idx, created_at, id`,
		userID, exerciseID, ids)
	if err != nil {
		return nil, fmt.Errorf("querying recent sets: %w", err)
	}
	sets, err := collectSets(setRows)
	if err != nil {
		return nil, err
	}
	for _, s := range sets {
		i := pos[s.SessionID]
		result[i].Sets = append(result[i].Sets, s)
	}
	return result, nil
}
