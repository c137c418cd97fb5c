// Package advisor loads an exercise's logged sets and runs them through the
// progression and history calculations.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claude/overload/internal/history"
	"github.com/claude/overload/internal/models"
	"github.com/claude/overload/internal/progression"
	"github.com/claude/overload/internal/storage"
	"github.com/google/uuid"
)

// maxHistoryWindow caps caller-supplied history limits.
const maxHistoryWindow = 100

// Store is the subset of storage the advisor reads from.
type Store interface {
	GetExercise(ctx context.Context, userID int, id uuid.UUID) (*models.Exercise, error)
	GetSession(ctx context.Context, userID int, id uuid.UUID) (*models.Session, error)
	LatestSessionForExercise(ctx context.Context, userID int, exerciseID uuid.UUID) (*models.Session, error)
	ListSessionExerciseSets(ctx context.Context, userID int, sessionID, exerciseID uuid.UUID) ([]models.SetEntry, error)
	RecentSessionsForExercise(ctx context.Context, userID int, exerciseID uuid.UUID, limit int) ([]models.SessionSets, error)
}

// SuggestionObserver is notified of every suggestion kind produced.
type SuggestionObserver interface {
	ObserveSuggestion(kind string)
}

// Advice is the progression state of one exercise within one session.
type Advice struct {
	Exercise   models.Exercise         `json:"exercise"`
	SessionID  *uuid.UUID              `json:"session_id,omitempty"`
	Complete   bool                    `json:"complete"`
	Suggestion *progression.Suggestion `json:"suggestion"`
}

// ExerciseHistory is the 1RM trend of one exercise.
type ExerciseHistory struct {
	Exercise models.Exercise `json:"exercise"`
	history.Summary
}

// Service answers suggestion and history questions for the API and MCP layers.
type Service struct {
	store         Store
	observer      SuggestionObserver
	historyWindow int
	log           *slog.Logger
}

// NewService creates a Service. observer may be nil.
func NewService(store Store, observer SuggestionObserver, historyWindow int, log *slog.Logger) *Service {
	if historyWindow <= 0 {
		historyWindow = 10
	}
	return &Service{store: store, observer: observer, historyWindow: historyWindow, log: log}
}

// Suggest evaluates the exercise's sets in the given session, or in the most
// recent session containing the exercise when sessionID is nil. With no such
// session the advice carries no suggestion.
func (s *Service) Suggest(ctx context.Context, userID int, exerciseID uuid.UUID, sessionID *uuid.UUID) (*Advice, error) {
	ex, err := s.store.GetExercise(ctx, userID, exerciseID)
	if err != nil {
		return nil, err
	}
	advice := &Advice{Exercise: *ex}

	if sessionID != nil {
		if _, err := s.store.GetSession(ctx, userID, *sessionID); err != nil {
			return nil, err
		}
	} else {
		latest, err := s.store.LatestSessionForExercise(ctx, userID, exerciseID)
		if errors.Is(err, storage.ErrNotFound) {
			return advice, nil
		}
		if err != nil {
			return nil, err
		}
		sessionID = &latest.ID
	}
	advice.SessionID = sessionID

	entries, err := s.store.ListSessionExerciseSets(ctx, userID, *sessionID, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("loading sets: %w", err)
	}
	sets := models.ProgressionSets(entries)

	advice.Complete = progression.IsExerciseComplete(ex.Config, sets)
	advice.Suggestion = progression.BuildSuggestion(ex.Config, sets)

	kind := ""
	if advice.Suggestion != nil {
		kind = string(advice.Suggestion.Kind)
	}
	if s.observer != nil {
		s.observer.ObserveSuggestion(kind)
	}
	s.log.Debug("suggestion", "exercise", ex.Name, "session", *sessionID, "kind", kind)
	return advice, nil
}

// History summarizes up to limit recent sessions of the exercise. A limit <= 0
// uses the configured window.
func (s *Service) History(ctx context.Context, userID int, exerciseID uuid.UUID, limit int) (*ExerciseHistory, error) {
	if limit <= 0 {
		limit = s.historyWindow
	}
	limit = min(limit, maxHistoryWindow)

	ex, err := s.store.GetExercise(ctx, userID, exerciseID)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.RecentSessionsForExercise(ctx, userID, exerciseID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading recent sessions: %w", err)
	}

	entries := make([]history.Entry, len(recent))
	for i, r := range recent {
		entries[i] = history.Entry{
			SessionID: r.Session.ID,
			EndedAt:   r.Session.EndedAt,
			Sets:      models.ProgressionSets(r.Sets),
		}
	}
	return &ExerciseHistory{Exercise: *ex, Summary: history.Summarize(entries)}, nil
}

// EstimateOneRepMax returns the Epley estimate for a single set.
func (s *Service) EstimateOneRepMax(weight float64, reps int) float64 {
	return progression.EstimateOneRepMax(weight, reps)
}
