// Package history summarizes an exercise's best estimated 1RM across sessions.
package history

import (
	"time"

	"github.com/claude/overload/internal/progression"
	"github.com/google/uuid"
)

// Entry is one past session's sets for a single exercise.
type Entry struct {
	SessionID uuid.UUID
	EndedAt   *time.Time
	Sets      []progression.Set
}

// SessionMetric is the best work set of one finished session.
type SessionMetric struct {
	SessionID     uuid.UUID        `json:"session_id"`
	EndedAt       *time.Time       `json:"ended_at,omitempty"`
	BestOneRepMax float64          `json:"best_one_rep_max"`
	BestSet       *progression.Set `json:"best_set,omitempty"`
}

// Summary is the trend view over a window of sessions, most recent first.
type Summary struct {
	Sessions            []SessionMetric  `json:"sessions"`
	BestRecentSet       *progression.Set `json:"best_recent_set,omitempty"`
	BestRecentOneRepMax float64          `json:"best_recent_one_rep_max"`
	TrendDeltaOneRepMax float64          `json:"trend_delta_one_rep_max"`
}

// Summarize computes per-session bests and the net 1RM movement across the
// window. Entries must be ordered most recent first. Sessions without an end
// time are excluded entirely.
func Summarize(entries []Entry) Summary {
	summary := Summary{Sessions: make([]SessionMetric, 0, len(entries))}

	for _, e := range entries {
		if e.EndedAt == nil {
			continue
		}
		best, score := bestSet(e.Sets)
		summary.Sessions = append(summary.Sessions, SessionMetric{
			SessionID:     e.SessionID,
			EndedAt:       e.EndedAt,
			BestOneRepMax: score,
			BestSet:       best,
		})
	}

	for _, m := range summary.Sessions {
		if m.BestSet == nil {
			continue
		}
		if summary.BestRecentSet == nil || m.BestOneRepMax > summary.BestRecentOneRepMax {
			summary.BestRecentSet = m.BestSet
			summary.BestRecentOneRepMax = m.BestOneRepMax
		}
	}

	if n := len(summary.Sessions); n >= 2 {
		summary.TrendDeltaOneRepMax = summary.Sessions[0].BestOneRepMax - summary.Sessions[n-1].BestOneRepMax
	}

	return summary
}

// bestSet returns the work set with the highest estimated 1RM. The first set
// wins ties.
func bestSet(sets []progression.Set) (*progression.Set, float64) {
	var best *progression.Set
	var score float64
	for _, s := range sets {
		if s.IsWarmup {
			continue
		}
		e := progression.EstimateOneRepMax(s.Weight, s.Reps)
		if best == nil || e > score {
			set := s
			best = &set
			score = e
		}
	}
	return best, score
}
