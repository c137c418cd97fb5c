package storage

import (
	"context"
	"fmt"

	"github.com/claude/overload/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Snapshot is every training row a user owns.
type Snapshot struct {
	Exercises []models.Exercise
	Routines  []models.Routine
	Sessions  []models.Session
	Sets      []models.SetEntry
}

var setCopyColumns = []string{"id", "user_id", "session_id", "exercise_id", "idx",
	"weight", "reps", "is_warmup", "completed_at"}

func copySets(ctx context.Context, tx pgx.Tx, userID int, sets []models.SetEntry) (int64, error) {
	if len(sets) == 0 {
		return 0, nil
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"set_entries"}, setCopyColumns,
		pgx.CopyFromSlice(len(sets), func(i int) ([]any, error) {
			s := sets[i]
			if s.ID == uuid.Nil {
				s.ID = uuid.New()
			}
			return []any{s.ID, userID, s.SessionID, s.ExerciseID, s.Index,
				s.Weight, s.Reps, s.IsWarmup, s.CompletedAt}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("copying sets: %w", err)
	}
	return n, nil
}

// ExportSnapshot reads all of the user's training data.
func (db *DB) ExportSnapshot(ctx context.Context, userID int) (*Snapshot, error) {
	snap := &Snapshot{}
	var err error
	if snap.Exercises, err = db.ListExercises(ctx, userID); err != nil {
		return nil, err
	}
	if snap.Routines, err = db.ListRoutines(ctx, userID); err != nil {
		return nil, err
	}
	if snap.Sessions, err = db.ListSessions(ctx, userID, 0); err != nil {
		return nil, err
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT `+setColumns+` FROM set_entries e
		WHERE e.user_id = $1
		ORDER BY (SELECT started_at FROM sessions s WHERE s.id = e.session_id) DESC,
			e.session_id, e.exercise_id, e.idx, e.created_at, e.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	if snap.Sets, err = collectSets(rows); err != nil {
		return nil, err
	}
	return snap, nil
}

// ReplaceSnapshot discards the user's training data and loads snap in its
// place inside one transaction. Row IDs are kept; user IDs are overridden.
func (db *DB) ReplaceSnapshot(ctx context.Context, userID int, snap *Snapshot) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// sessions first so set rows cascade before their exercises go
	for _, table := range []string{"sessions", "routines", "exercises"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for _, e := range snap.Exercises {
		c := e.Config
		if _, err := tx.Exec(ctx, `
			INSERT INTO exercises (id, user_id, name, equipment, rep_min, rep_max,
				work_sets_target, weight_increment, unit, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			e.ID, userID, e.Name, e.Equipment, c.RepMin, c.RepMax,
			c.WorkSetsTarget, c.WeightIncrement, c.Unit, e.CreatedAt, e.UpdatedAt,
		); err != nil {
			return fmt.Errorf("restoring exercise %q: %w", e.Name, err)
		}
	}
	for _, r := range snap.Routines {
		ids := r.ExerciseIDs
		if ids == nil {
			ids = []uuid.UUID{}
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO routines (id, user_id, name, exercise_ids, created_at)
			VALUES ($1,$2,$3,$4,$5)`,
			r.ID, userID, r.Name, ids, r.CreatedAt,
		); err != nil {
			return fmt.Errorf("restoring routine %q: %w", r.Name, err)
		}
	}
	for _, s := range snap.Sessions {
		if _, err := tx.Exec(ctx, `
			INSERT INTO sessions (`+sessionColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			s.ID, userID, s.RoutineID, s.Name, s.StartedAt, s.EndedAt,
		); err != nil {
			return fmt.Errorf("restoring session %s: %w", s.ID, err)
		}
	}
	if _, err := copySets(ctx, tx, userID, snap.Sets); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing restore: %w", err)
	}
	return nil
}

// InsertImportedSession stores a finished session with its sets in one
// transaction. An existing session with the same start time and name is
// deleted first, so re-importing an export replaces rather than duplicates.
func (db *DB) InsertImportedSession(ctx context.Context, s *models.Session, sets []models.SetEntry) (replaced bool, inserted int64, err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM sessions WHERE user_id = $1 AND started_at = $2 AND name = $3`,
		s.UserID, s.StartedAt, s.Name)
	if err != nil {
		return false, 0, fmt.Errorf("deleting previous import: %w", err)
	}
	replaced = tag.RowsAffected() > 0

	if _, err := tx.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.UserID, s.RoutineID, s.Name, s.StartedAt, s.EndedAt,
	); err != nil {
		return false, 0, fmt.Errorf("inserting session: %w", err)
	}

	for i := range sets {
		sets[i].SessionID = s.ID
	}
	inserted, err = copySets(ctx, tx, s.UserID, sets)
	if err != nil {
		return false, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, fmt.Errorf("committing import: %w", err)
	}
	return replaced, inserted, nil
}
