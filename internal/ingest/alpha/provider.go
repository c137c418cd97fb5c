package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/claude/overload/internal/ingest"
	"github.com/claude/overload/internal/models"
	"github.com/claude/overload/internal/progression"
)

// Store is the storage the provider writes through.
type Store interface {
	EnsureExercise(ctx context.Context, e *models.Exercise) (*models.Exercise, bool, error)
	InsertImportedSession(ctx context.Context, s *models.Session, sets []models.SetEntry) (bool, int64, error)
}

// Provider processes Alpha Progression CSV exports.
type Provider struct {
	store    Store
	defaults progression.Config
	log      *slog.Logger
}

// NewProvider creates a provider. defaults seeds the progression setup of
// exercises the export introduces.
func NewProvider(store Store, defaults progression.Config, log *slog.Logger) *Provider {
	return &Provider{store: store, defaults: defaults, log: log}
}

// Ingest parses a CSV export and stores each session with its sets.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	result := &ingest.Result{SessionsReceived: len(sessions)}
	exercises := map[string]*models.Exercise{}

	for _, s := range sessions {
		end := s.EndedAt()
		session := &models.Session{
			UserID:    userID,
			Name:      s.Name,
			StartedAt: s.StartedAt,
			EndedAt:   &end,
		}

		var sets []models.SetEntry
		next := map[string]int{}
		for _, ex := range s.Exercises {
			stored, ok := exercises[ex.Name]
			if !ok {
				var created bool
				stored, created, err = p.store.EnsureExercise(ctx, p.newExercise(userID, ex))
				if err != nil {
					return nil, fmt.Errorf("resolving exercise %q: %w", ex.Name, err)
				}
				if created {
					result.ExercisesCreated++
					p.log.Info("created exercise from import", "name", stored.Name, "rep_min", stored.Config.RepMin,
						"rep_max", stored.Config.RepMax, "work_sets", stored.Config.WorkSetsTarget)
				}
				exercises[ex.Name] = stored
			}

			for _, set := range ex.Sets {
				completed := end
				sets = append(sets, models.SetEntry{
					UserID:      userID,
					ExerciseID:  stored.ID,
					Index:       next[ex.Name],
					Weight:      set.Weight,
					Reps:        set.Reps,
					IsWarmup:    set.IsWarmup,
					CompletedAt: &completed,
				})
				next[ex.Name]++
			}
		}
		result.SetsReceived += len(sets)

		replaced, inserted, err := p.store.InsertImportedSession(ctx, session, sets)
		if err != nil {
			return nil, fmt.Errorf("storing session %q at %s: %w", s.Name, s.StartedAt.Format("2006-01-02 15:04"), err)
		}
		result.SessionsInserted++
		if replaced {
			result.SessionsReplaced++
		}
		result.SetsInserted += inserted
	}

	return result, nil
}

// newExercise derives a progression setup from the export: the target reps
// become the bottom of the range and the logged working sets the target count.
func (p *Provider) newExercise(userID int, ex Exercise) *models.Exercise {
	cfg := p.defaults
	if ex.TargetReps > 0 {
		span := max(p.defaults.RepMax-p.defaults.RepMin, 0)
		cfg.RepMin = ex.TargetReps
		cfg.RepMax = ex.TargetReps + span
	}
	if n := ex.WorkingSets(); n > 0 {
		cfg.WorkSetsTarget = n
	}
	return &models.Exercise{
		UserID:    userID,
		Name:      ex.Name,
		Equipment: ex.Equipment,
		Config:    cfg,
	}
}
