package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/claude/overload/internal/advisor"
	"github.com/claude/overload/internal/models"
	"github.com/claude/overload/internal/storage"
	"github.com/google/uuid"
)

// DataSource abstracts the data layer for MCP tools. Local (direct database
// access) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListExercises(ctx context.Context, userID int) ([]models.Exercise, error)
	ListSessions(ctx context.Context, userID, limit int) ([]models.Session, error)
	Suggest(ctx context.Context, userID int, exerciseID uuid.UUID, sessionID *uuid.UUID) (*advisor.Advice, error)
	History(ctx context.Context, userID int, exerciseID uuid.UUID, limit int) (*advisor.ExerciseHistory, error)
}

// Local answers from the database through the advisor.
type Local struct {
	db      *storage.DB
	advisor *advisor.Service
}

var _ DataSource = (*Local)(nil)

// NewLocal creates a Local data source.
func NewLocal(db *storage.DB, adv *advisor.Service) *Local {
	return &Local{db: db, advisor: adv}
}

func (l *Local) ListExercises(ctx context.Context, userID int) ([]models.Exercise, error) {
	return l.db.ListExercises(ctx, userID)
}

func (l *Local) ListSessions(ctx context.Context, userID, limit int) ([]models.Session, error) {
	return l.db.ListSessions(ctx, userID, limit)
}

func (l *Local) Suggest(ctx context.Context, userID int, exerciseID uuid.UUID, sessionID *uuid.UUID) (*advisor.Advice, error) {
	return l.advisor.Suggest(ctx, userID, exerciseID, sessionID)
}

func (l *Local) History(ctx context.Context, userID int, exerciseID uuid.UUID, limit int) (*advisor.ExerciseHistory, error) {
	return l.advisor.History(ctx, userID, exerciseID, limit)
}

// resolveExercise finds an exercise by ID, exact name (case-insensitive) or a
// unique name fragment.
func resolveExercise(ctx context.Context, ds DataSource, userID int, ref string) (*models.Exercise, error) {
	ref = strings.TrimSpace(ref)
	exercises, err := ds.ListExercises(ctx, userID)
	if err != nil {
		return nil, err
	}

	if id, err := uuid.Parse(ref); err == nil {
		for i := range exercises {
			if exercises[i].ID == id {
				return &exercises[i], nil
			}
		}
		return nil, fmt.Errorf("no exercise with id %s", id)
	}

	var partial []*models.Exercise
	for i := range exercises {
		if strings.EqualFold(exercises[i].Name, ref) {
			return &exercises[i], nil
		}
		if strings.Contains(strings.ToLower(exercises[i].Name), strings.ToLower(ref)) {
			partial = append(partial, &exercises[i])
		}
	}
	switch len(partial) {
	case 0:
		return nil, fmt.Errorf("no exercise matching %q", ref)
	case 1:
		return partial[0], nil
	default:
		names := make([]string, len(partial))
		for i, e := range partial {
			names[i] = e.Name
		}
		return nil, fmt.Errorf("%q matches several exercises: %s", ref, strings.Join(names, ", "))
	}
}
