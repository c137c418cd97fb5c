package alpha

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/claude/overload/internal/models"
	"github.com/claude/overload/internal/progression"
	"github.com/google/uuid"
)

type storedSession struct {
	session models.Session
	sets    []models.SetEntry
}

type fakeStore struct {
	exercises map[string]*models.Exercise
	sessions  map[string]storedSession
}

func newFakeStore() *fakeStore {
	return &fakeStore{exercises: map[string]*models.Exercise{}, sessions: map[string]storedSession{}}
}

func (f *fakeStore) EnsureExercise(_ context.Context, e *models.Exercise) (*models.Exercise, bool, error) {
	if existing, ok := f.exercises[e.Name]; ok {
		return existing, false, nil
	}
	e.ID = uuid.New()
	f.exercises[e.Name] = e
	return e, true, nil
}

func (f *fakeStore) InsertImportedSession(_ context.Context, s *models.Session, sets []models.SetEntry) (bool, int64, error) {
	key := s.StartedAt.String() + "|" + s.Name
	_, replaced := f.sessions[key]
	s.ID = uuid.New()
	f.sessions[key] = storedSession{session: *s, sets: sets}
	return replaced, int64(len(sets)), nil
}

var defaults = progression.Config{RepMin: 6, RepMax: 10, WorkSetsTarget: 3, WeightIncrement: 2.5, Unit: "kg"}

func newTestProvider(store Store) *Provider {
	return NewProvider(store, defaults, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// TestIngestCreatesExercisesAndSessions verifies counts and the derived
// progression setup of exercises first seen in an export.
func TestIngestCreatesExercisesAndSessions(t *testing.T) {
	store := newFakeStore()
	p := newTestProvider(store)

	res, err := p.Ingest(context.Background(), strings.NewReader(sampleCSV), 1)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.SessionsReceived != 2 || res.SessionsInserted != 2 || res.SessionsReplaced != 0 {
		t.Errorf("sessions = %+v", res)
	}
	if res.ExercisesCreated != 5 {
		t.Errorf("exercises created = %d, want 5", res.ExercisesCreated)
	}
	if res.SetsReceived != 20 || res.SetsInserted != 20 {
		t.Errorf("sets = %d/%d, want 20/20", res.SetsReceived, res.SetsInserted)
	}

	hack := store.exercises["Hack Squats"]
	want := progression.Config{RepMin: 8, RepMax: 12, WorkSetsTarget: 3, WeightIncrement: 2.5, Unit: "kg"}
	if hack.Config != want {
		t.Errorf("hack squat config = %+v, want %+v", hack.Config, want)
	}
	if sumo := store.exercises["Sumo Squats"]; sumo.Config.WorkSetsTarget != 2 {
		t.Errorf("sumo work sets = %d, want 2", sumo.Config.WorkSetsTarget)
	}
	if hack.Equipment != "Machine" {
		t.Errorf("equipment = %q, want Machine", hack.Equipment)
	}
}

// TestIngestSessionTiming verifies end time and per-exercise set indexing.
func TestIngestSessionTiming(t *testing.T) {
	store := newFakeStore()
	if _, err := newTestProvider(store).Ingest(context.Background(), strings.NewReader(sampleCSV), 1); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	start := time.Date(2026, 2, 19, 4, 54, 0, 0, time.UTC)
	stored, ok := store.sessions[start.String()+"|Legs · Day 2 · Week 4 · Push-Pull-Legs"]
	if !ok {
		t.Fatal("legs session not stored")
	}
	wantEnd := start.Add(62 * time.Minute)
	if stored.session.EndedAt == nil || !stored.session.EndedAt.Equal(wantEnd) {
		t.Errorf("ended = %v, want %v", stored.session.EndedAt, wantEnd)
	}

	hackID := store.exercises["Hack Squats"].ID
	var idx []int
	for _, s := range stored.sets {
		if s.ExerciseID != hackID {
			continue
		}
		idx = append(idx, s.Index)
		if s.CompletedAt == nil || !s.CompletedAt.Equal(wantEnd) {
			t.Errorf("completed = %v, want session end", s.CompletedAt)
		}
	}
	if len(idx) != 5 || idx[0] != 0 || idx[4] != 4 {
		t.Errorf("hack squat indexes = %v, want 0..4", idx)
	}
	if !stored.sets[0].IsWarmup || stored.sets[2].IsWarmup {
		t.Errorf("warm-ups should precede working sets: %+v", stored.sets[:3])
	}
}

// TestIngestReimportReplaces verifies a second import of the same export
// replaces sessions and reuses exercises.
func TestIngestReimportReplaces(t *testing.T) {
	store := newFakeStore()
	p := newTestProvider(store)
	if _, err := p.Ingest(context.Background(), strings.NewReader(sampleCSV), 1); err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	res, err := p.Ingest(context.Background(), strings.NewReader(sampleCSV), 1)
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if res.SessionsReplaced != 2 {
		t.Errorf("replaced = %d, want 2", res.SessionsReplaced)
	}
	if res.ExercisesCreated != 0 {
		t.Errorf("exercises created on re-import = %d, want 0", res.ExercisesCreated)
	}
	if len(store.sessions) != 2 {
		t.Errorf("stored sessions = %d, want 2", len(store.sessions))
	}
}

// TestIngestBadInput verifies parse failures are returned before anything is stored.
func TestIngestBadInput(t *testing.T) {
	store := newFakeStore()
	_, err := newTestProvider(store).Ingest(context.Background(), strings.NewReader(`"1. Bench · Barbell · 6 reps"`), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(store.sessions) != 0 {
		t.Error("session stored despite parse error")
	}
}
