// Package backup exports and restores a user's complete training log.
package backup

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/claude/overload/internal/models"
	"github.com/claude/overload/internal/storage"
	"github.com/google/uuid"
)

// Version is the document format written by Export.
const Version = 1

// Document is the JSON backup format.
type Document struct {
	Version    int               `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Exercises  []models.Exercise `json:"exercises"`
	Routines   []models.Routine  `json:"routines"`
	Sessions   []models.Session  `json:"sessions"`
	Sets       []models.SetEntry `json:"sets"`
}

// ValidationError lists every problem found in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid backup: %s", strings.Join(e.Problems, "; "))
}

// Validate checks a document for internal consistency. It returns nil or a
// *ValidationError.
func Validate(doc *Document) error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if doc.Version != Version {
		addf("unsupported version %d", doc.Version)
	}

	seen := map[uuid.UUID]bool{}
	unique := func(kind string, id uuid.UUID) {
		if id == uuid.Nil {
			addf("%s without id", kind)
			return
		}
		if seen[id] {
			addf("duplicate id %s", id)
		}
		seen[id] = true
	}

	exercises := map[uuid.UUID]bool{}
	names := map[string]bool{}
	for _, e := range doc.Exercises {
		unique("exercise", e.ID)
		exercises[e.ID] = true
		if strings.TrimSpace(e.Name) == "" {
			addf("exercise %s has no name", e.ID)
		} else if names[e.Name] {
			addf("exercise name %q used twice", e.Name)
		}
		names[e.Name] = true
		for _, p := range ConfigProblems(e.Config.RepMin, e.Config.RepMax, e.Config.WorkSetsTarget, e.Config.WeightIncrement) {
			addf("exercise %q: %s", e.Name, p)
		}
	}

	routines := map[uuid.UUID]bool{}
	for _, r := range doc.Routines {
		unique("routine", r.ID)
		routines[r.ID] = true
		if strings.TrimSpace(r.Name) == "" {
			addf("routine %s has no name", r.ID)
		}
		for _, id := range r.ExerciseIDs {
			if !exercises[id] {
				addf("routine %q references unknown exercise %s", r.Name, id)
			}
		}
	}

	type sessionKey struct {
		started time.Time
		name    string
	}
	sessions := map[uuid.UUID]bool{}
	starts := map[sessionKey]bool{}
	for _, s := range doc.Sessions {
		unique("session", s.ID)
		sessions[s.ID] = true
		key := sessionKey{s.StartedAt.UTC(), s.Name}
		if starts[key] {
			addf("session %q at %s used twice", s.Name, s.StartedAt.UTC().Format(time.RFC3339))
		}
		starts[key] = true
		if s.RoutineID != nil && !routines[*s.RoutineID] {
			addf("session %s references unknown routine %s", s.ID, *s.RoutineID)
		}
		if s.StartedAt.IsZero() {
			addf("session %s has no start time", s.ID)
		}
		if s.EndedAt != nil && s.EndedAt.Before(s.StartedAt) {
			addf("session %s ends before it starts", s.ID)
		}
	}

	type setKey struct {
		session, exercise uuid.UUID
		index             int
	}
	indexes := map[setKey]bool{}
	for _, s := range doc.Sets {
		unique("set", s.ID)
		key := setKey{s.SessionID, s.ExerciseID, s.Index}
		if indexes[key] {
			addf("set %s repeats index %d in session %s", s.ID, s.Index, s.SessionID)
		}
		indexes[key] = true
		if !sessions[s.SessionID] {
			addf("set %s references unknown session %s", s.ID, s.SessionID)
		}
		if !exercises[s.ExerciseID] {
			addf("set %s references unknown exercise %s", s.ID, s.ExerciseID)
		}
		if s.Weight < 0 {
			addf("set %s has negative weight", s.ID)
		}
		if s.Reps < 0 {
			addf("set %s has negative reps", s.ID)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ConfigProblems describes what is wrong with a progression setup, if anything.
func ConfigProblems(repMin, repMax, workSets int, increment float64) []string {
	var problems []string
	if repMin < 1 {
		problems = append(problems, "rep_min must be at least 1")
	}
	if repMax < repMin {
		problems = append(problems, fmt.Sprintf("rep_max %d is below rep_min %d", repMax, repMin))
	}
	if workSets < 1 {
		problems = append(problems, "work_sets_target must be at least 1")
	}
	if increment <= 0 {
		problems = append(problems, "weight_increment must be positive")
	}
	return problems
}

// Store is the storage a Service reads and restores through.
type Store interface {
	ExportSnapshot(ctx context.Context, userID int) (*storage.Snapshot, error)
	ReplaceSnapshot(ctx context.Context, userID int, snap *storage.Snapshot) error
}

// Service exports and imports backup documents.
type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// NewService creates a backup service.
func NewService(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// Export returns the user's full training log.
func (s *Service) Export(ctx context.Context, userID int) (*Document, error) {
	snap, err := s.store.ExportSnapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("exporting: %w", err)
	}
	return &Document{
		Version:    Version,
		ExportedAt: s.now().UTC(),
		Exercises:  snap.Exercises,
		Routines:   snap.Routines,
		Sessions:   snap.Sessions,
		Sets:       snap.Sets,
	}, nil
}

// Import validates doc and replaces the user's log with it. Nothing is
// written unless the document is valid and the whole restore succeeds.
func (s *Service) Import(ctx context.Context, userID int, doc *Document) error {
	if err := Validate(doc); err != nil {
		return err
	}
	now := s.now().UTC()
	for i := range doc.Exercises {
		if doc.Exercises[i].CreatedAt.IsZero() {
			doc.Exercises[i].CreatedAt = now
		}
		if doc.Exercises[i].UpdatedAt.IsZero() {
			doc.Exercises[i].UpdatedAt = doc.Exercises[i].CreatedAt
		}
	}
	for i := range doc.Routines {
		if doc.Routines[i].CreatedAt.IsZero() {
			doc.Routines[i].CreatedAt = now
		}
	}
	snap := &storage.Snapshot{
		Exercises: doc.Exercises,
		Routines:  doc.Routines,
		Sessions:  doc.Sessions,
		Sets:      doc.Sets,
	}
	if err := s.store.ReplaceSnapshot(ctx, userID, snap); err != nil {
		return fmt.Errorf("restoring backup: %w", err)
	}
	s.log.Info("backup restored", "user_id", userID, "exercises", len(doc.Exercises),
		"sessions", len(doc.Sessions), "sets", len(doc.Sets))
	return nil
}

var csvHeader = []string{"session_id", "session_name", "started_at", "exercise",
	"index", "weight", "reps", "warmup", "completed_at"}

// WriteSetsCSV writes one row per set. Sets whose session or exercise is not
// in the document are written with empty name columns.
func WriteSetsCSV(w io.Writer, doc *Document) error {
	sessions := make(map[uuid.UUID]models.Session, len(doc.Sessions))
	for _, s := range doc.Sessions {
		sessions[s.ID] = s
	}
	exercises := make(map[uuid.UUID]string, len(doc.Exercises))
	for _, e := range doc.Exercises {
		exercises[e.ID] = e.Name
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, set := range doc.Sets {
		sess := sessions[set.SessionID]
		started := ""
		if !sess.StartedAt.IsZero() {
			started = sess.StartedAt.UTC().Format(time.RFC3339)
		}
		completed := ""
		if set.CompletedAt != nil {
			completed = set.CompletedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			set.SessionID.String(),
			sess.Name,
			started,
			exercises[set.ExerciseID],
			strconv.Itoa(set.Index),
			strconv.FormatFloat(set.Weight, 'f', -1, 64),
			strconv.Itoa(set.Reps),
			strconv.FormatBool(set.IsWarmup),
			completed,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing set %s: %w", set.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
