package models

import (
	"time"

	"github.com/claude/overload/internal/progression"
	"github.com/google/uuid"
)

// Exercise is a movement the user tracks, with its progression setup.
type Exercise struct {
	ID        uuid.UUID          `json:"id"`
	UserID    int                `json:"-"`
	Name      string             `json:"name"`
	Equipment string             `json:"equipment,omitempty"`
	Config    progression.Config `json:"config"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Routine is a named, ordered list of exercises.
type Routine struct {
	ID          uuid.UUID   `json:"id"`
	UserID      int         `json:"-"`
	Name        string      `json:"name"`
	ExerciseIDs []uuid.UUID `json:"exercise_ids"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Session is one training session. EndedAt is nil while it is in progress.
type Session struct {
	ID        uuid.UUID  `json:"id"`
	UserID    int        `json:"-"`
	RoutineID *uuid.UUID `json:"routine_id,omitempty"`
	Name      string     `json:"name"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Finished reports whether the session has an end timestamp.
func (s Session) Finished() bool {
	return s.EndedAt != nil
}

// SetEntry is one logged set. Index orders the sets of an exercise within a
// session.
type SetEntry struct {
	ID          uuid.UUID  `json:"id"`
	UserID      int        `json:"-"`
	SessionID   uuid.UUID  `json:"session_id"`
	ExerciseID  uuid.UUID  `json:"exercise_id"`
	Index       int        `json:"index"`
	Weight      float64    `json:"weight"`
	Reps        int        `json:"reps"`
	IsWarmup    bool       `json:"is_warmup"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProgressionSet returns the fields the progression engine consumes.
func (s SetEntry) ProgressionSet() progression.Set {
	return progression.Set{
		Weight:      s.Weight,
		Reps:        s.Reps,
		IsWarmup:    s.IsWarmup,
		CompletedAt: s.CompletedAt,
	}
}

// ProgressionSets converts entries, keeping their order.
func ProgressionSets(entries []SetEntry) []progression.Set {
	sets := make([]progression.Set, len(entries))
	for i, e := range entries {
		sets[i] = e.ProgressionSet()
	}
	return sets
}

// SessionSets pairs a session with one exercise's sets in it.
type SessionSets struct {
	Session Session    `json:"session"`
	Sets    []SetEntry `json:"sets"`
}
