package storage

import (
	"context"
	"fmt"

	"github.com/claude/overload/internal/models"
	"github.com/google/uuid"
)

// CreateRoutine inserts a routine, assigning an ID when none is set.
func (db *DB) CreateRoutine(ctx context.Context, r *models.Routine) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.ExerciseIDs == nil {
		r.ExerciseIDs = []uuid.UUID{}
	}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO routines (id, user_id, name, exercise_ids)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		r.ID, r.UserID, r.Name, r.ExerciseIDs,
	).Scan(&r.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting routine: %w", err)
	}
	return nil
}

// GetRoutine returns one of the user's routines.
func (db *DB) GetRoutine(ctx context.Context, userID int, id uuid.UUID) (*models.Routine, error) {
	var r models.Routine
	err := db.Pool.QueryRow(ctx, `
		SELECT id, user_id, name, exercise_ids, created_at
		FROM routines WHERE user_id = $1 AND id = $2`, userID, id,
	).Scan(&r.ID, &r.UserID, &r.Name, &r.ExerciseIDs, &r.CreatedAt)
	if err != nil {
		return nil, notFound(err, "routine "+id.String())
	}
	return &r, nil
}

// ListRoutines returns the user's routines ordered by name.
func (db *DB) ListRoutines(ctx context.Context, userID int) ([]models.Routine, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, user_id, name, exercise_ids, created_at
		FROM routines WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying routines: %w", err)
	}
	defer rows.Close()

	result := []models.Routine{}
	for rows.Next() {
		var r models.Routine
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.ExerciseIDs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning routine: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// DeleteRoutine removes a routine. Sessions started from it keep their data
// and lose the reference.
func (db *DB) DeleteRoutine(ctx context.Context, userID int, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM routines WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting routine %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("routine %s: %w", id, ErrNotFound)
	}
	return nil
}
