package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestProgressionSetsKeepsOrder verifies conversion preserves index order and
// carries completion and warm-up flags through.
func TestProgressionSetsKeepsOrder(t *testing.T) {
	done := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	entries := []SetEntry{
		{ID: uuid.New(), Index: 0, Weight: 40, Reps: 10, IsWarmup: true},
		{ID: uuid.New(), Index: 1, Weight: 80, Reps: 8, CompletedAt: &done},
		{ID: uuid.New(), Index: 2, Weight: 80, Reps: 7},
	}

	sets := ProgressionSets(entries)
	if len(sets) != 3 {
		t.Fatalf("len = %d, want 3", len(sets))
	}
	if !sets[0].IsWarmup {
		t.Error("sets[0] lost warm-up flag")
	}
	if !sets[1].Completed() || sets[1].Reps != 8 {
		t.Errorf("sets[1] = %+v, want completed 80x8", sets[1])
	}
	if sets[2].Completed() {
		t.Error("sets[2] should not be completed")
	}
}

// TestSessionFinished verifies the end timestamp drives the finished state.
func TestSessionFinished(t *testing.T) {
	s := Session{ID: uuid.New(), StartedAt: time.Now()}
	if s.Finished() {
		t.Error("session without end time reported finished")
	}
	end := s.StartedAt.Add(time.Hour)
	s.EndedAt = &end
	if !s.Finished() {
		t.Error("session with end time reported unfinished")
	}
}
