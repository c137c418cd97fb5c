package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/overload/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate is returned when a write violates a uniqueness constraint,
// e.g. a second exercise with the same name for one user.
var ErrDuplicate = errors.New("already exists")

const exerciseColumns = `id, user_id, name, equipment, rep_min, rep_max, work_sets_target,
	weight_increment, unit, created_at, updated_at`

func scanExercise(row rowScanner) (*models.Exercise, error) {
	var e models.Exercise
	err := row.Scan(&e.ID, &e.UserID, &e.Name, &e.Equipment,
		&e.Config.RepMin, &e.Config.RepMax, &e.Config.WorkSetsTarget,
		&e.Config.WeightIncrement, &e.Config.Unit, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateExercise inserts an exercise. A zero ID is replaced with a new one;
// timestamps are filled from the database.
func (db *DB) CreateExercise(ctx context.Context, e *models.Exercise) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	c := e.Config
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO exercises (id, user_id, name, equipment, rep_min, rep_max,
			work_sets_target, weight_increment, unit)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		e.ID, e.UserID, e.Name, e.Equipment, c.RepMin, c.RepMax,
		c.WorkSetsTarget, c.WeightIncrement, c.Unit,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("exercise %q: %w", e.Name, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("inserting exercise: %w", err)
	}
	return nil
}

// EnsureExercise returns the user's exercise named e.Name, creating it from e
// when absent. The returned bool reports whether a row was created.
func (db *DB) EnsureExercise(ctx context.Context, e *models.Exercise) (*models.Exercise, bool, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	c := e.Config
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO exercises (id, user_id, name, equipment, rep_min, rep_max,
			work_sets_target, weight_increment, unit)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (user_id, name) DO NOTHING
		RETURNING `+exerciseColumns,
		e.ID, e.UserID, e.Name, e.Equipment, c.RepMin, c.RepMax,
		c.WorkSetsTarget, c.WeightIncrement, c.Unit,
	)
	created, err := scanExercise(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("inserting exercise %q: %w", e.Name, err)
	}
	existing, err := db.FindExerciseByName(ctx, e.UserID, e.Name)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetExercise returns one of the user's exercises.
func (db *DB) GetExercise(ctx context.Context, userID int, id uuid.UUID) (*models.Exercise, error) {
	e, err := scanExercise(db.Pool.QueryRow(ctx,
		`SELECT `+exerciseColumns+` FROM exercises WHERE user_id = $1 AND id = $2`,
		userID, id))
	if err != nil {
		return nil, notFound(err, "exercise "+id.String())
	}
	return e, nil
}

// FindExerciseByName looks an exercise up by its exact name.
func (db *DB) FindExerciseByName(ctx context.Context, userID int, name string) (*models.Exercise, error) {
	e, err := scanExercise(db.Pool.QueryRow(ctx,
		`SELECT `+exerciseColumns+` FROM exercises WHERE user_id = $1 AND name = $2`,
		userID, name))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("exercise %q", name))
	}
	return e, nil
}

// ListExercises returns all of the user's exercises ordered by name.
func (db *DB) ListExercises(ctx context.Context, userID int) ([]models.Exercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+exerciseColumns+` FROM exercises WHERE user_id = $1 ORDER BY name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	result := []models.Exercise{}
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

// UpdateExercise overwrites name, equipment and progression setup.
func (db *DB) UpdateExercise(ctx context.Context, e *models.Exercise) error {
	c := e.Config
	err := db.Pool.QueryRow(ctx, `
		UPDATE exercises SET name = $3, equipment = $4, rep_min = $5, rep_max = $6,
			work_sets_target = $7, weight_increment = $8, unit = $9, updated_at = NOW()
		WHERE user_id = $1 AND id = $2
		RETURNING created_at, updated_at`,
		e.UserID, e.ID, e.Name, e.Equipment, c.RepMin, c.RepMax,
		c.WorkSetsTarget, c.WeightIncrement, c.Unit,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("exercise %q: %w", e.Name, ErrDuplicate)
	}
	if err != nil {
		return notFound(err, "exercise "+e.ID.String())
	}
	return nil
}

// DeleteExercise removes an exercise and, through the foreign key, its sets.
// Routines listing it drop the reference in the same transaction.
func (db *DB) DeleteExercise(ctx context.Context, userID int, id uuid.UUID) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM exercises WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting exercise %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("exercise %s: %w", id, ErrNotFound)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE routines SET exercise_ids = array_remove(exercise_ids, $2)
		WHERE user_id = $1 AND $2 = ANY(exercise_ids)`, userID, id); err != nil {
		return fmt.Errorf("removing exercise %s from routines: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing exercise delete: %w", err)
	}
	return nil
}
