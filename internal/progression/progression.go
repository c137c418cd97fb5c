// Package progression implements double-progression suggestions for a single
// exercise in a single session.
package progression

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which branch of the progression policy produced a suggestion.
type Kind string

const (
	KindCollectMoreSets Kind = "collect_more_sets"
	KindAddReps         Kind = "add_reps"
	KindIncreaseWeight  Kind = "increase_weight"
)

// Config is the per-exercise progression setup. Callers must ensure
// RepMin <= RepMax, WorkSetsTarget >= 1 and WeightIncrement > 0.
type Config struct {
	RepMin          int     `json:"rep_min"`
	RepMax          int     `json:"rep_max"`
	WorkSetsTarget  int     `json:"work_sets_target"`
	WeightIncrement float64 `json:"weight_increment"`
	Unit            string  `json:"unit"`
}

// Set is the minimal view of a logged set the engine needs.
type Set struct {
	Weight      float64    `json:"weight"`
	Reps        int        `json:"reps"`
	IsWarmup    bool       `json:"is_warmup"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Completed reports whether the set has been marked done.
func (s Set) Completed() bool {
	return s.CompletedAt != nil
}

// Suggestion is the recommendation for the next attempt. NextReps lines up
// positionally with the considered work sets.
type Suggestion struct {
	Kind            Kind    `json:"kind"`
	Message         string  `json:"message"`
	SuggestedWeight float64 `json:"suggested_weight"`
	NextReps        []int   `json:"next_reps"`
}

// EstimateOneRepMax returns the Epley estimate weight * (1 + reps/30).
func EstimateOneRepMax(weight float64, reps int) float64 {
	return weight * (1 + float64(reps)/30)
}

// WorkSets returns the non-warm-up sets in input order.
func WorkSets(sets []Set) []Set {
	work := make([]Set, 0, len(sets))
	for _, s := range sets {
		if !s.IsWarmup {
			work = append(work, s)
		}
	}
	return work
}

// IsExerciseComplete reports whether the first WorkSetsTarget work sets have
// all been completed. Extra work sets beyond the target are ignored.
func IsExerciseComplete(cfg Config, sets []Set) bool {
	work := WorkSets(sets)
	if len(work) < cfg.WorkSetsTarget {
		return false
	}
	for _, s := range work[:max(cfg.WorkSetsTarget, 0)] {
		if !s.Completed() {
			return false
		}
	}
	return true
}

// consideredSets returns completed work sets, in order, capped at the target.
func consideredSets(cfg Config, sets []Set) []Set {
	var out []Set
	for _, s := range sets {
		if len(out) == cfg.WorkSetsTarget {
			break
		}
		if s.IsWarmup || !s.Completed() {
			continue
		}
		out = append(out, s)
	}
	return out
}

// BuildSuggestion decides the next step for an exercise. It returns nil when
// no work set has been completed yet.
func BuildSuggestion(cfg Config, sets []Set) *Suggestion {
	considered := consideredSets(cfg, sets)
	if len(considered) == 0 {
		return nil
	}

	workingWeight := considered[0].Weight

	if len(considered) < cfg.WorkSetsTarget {
		remaining := cfg.WorkSetsTarget - len(considered)
		return &Suggestion{
			Kind: KindCollectMoreSets,
			Message: fmt.Sprintf("Log %d more work %s to reach %d and get a progression suggestion.",
				remaining, plural(remaining, "set", "sets"), cfg.WorkSetsTarget),
			SuggestedWeight: workingWeight,
			NextReps:        currentReps(considered),
		}
	}

	sameWeight := true
	atCeiling := true
	for _, s := range considered {
		if s.Weight != workingWeight {
			sameWeight = false
		}
		if s.Reps < cfg.RepMax {
			atCeiling = false
		}
	}

	if sameWeight && atCeiling {
		next := cfg.weightAfterIncrement(workingWeight)
		nextReps := make([]int, len(considered))
		for i := range nextReps {
			nextReps[i] = cfg.RepMin
		}
		return &Suggestion{
			Kind: KindIncreaseWeight,
			Message: fmt.Sprintf("All %d sets reached %d reps. Increase to %s and aim for %d reps per set.",
				len(considered), cfg.RepMax, cfg.formatLoad(next), cfg.RepMin),
			SuggestedWeight: next,
			NextReps:        nextReps,
		}
	}

	lowest := considered[0].Reps
	for _, s := range considered[1:] {
		if s.Reps < lowest {
			lowest = s.Reps
		}
	}

	nextReps := currentReps(considered)
	bumped := 0
	for i, reps := range nextReps {
		if reps == lowest {
			nextReps[i] = min(reps+1, cfg.RepMax)
			bumped++
		}
	}

	return &Suggestion{
		Kind: KindAddReps,
		Message: fmt.Sprintf("Stay at %s and add one rep to your lowest %s (%d reps).",
			cfg.formatLoad(workingWeight), plural(bumped, "set", "sets"), lowest),
		SuggestedWeight: workingWeight,
		NextReps:        nextReps,
	}
}

func (c Config) weightAfterIncrement(w float64) float64 {
	return w + c.WeightIncrement
}

func (c Config) formatLoad(w float64) string {
	s := strconv.FormatFloat(w, 'f', -1, 64)
	if unit := strings.TrimSpace(c.Unit); unit != "" {
		return s + " " + unit
	}
	return s
}

func currentReps(sets []Set) []int {
	reps := make([]int, len(sets))
	for i, s := range sets {
		reps[i] = s.Reps
	}
	return reps
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
