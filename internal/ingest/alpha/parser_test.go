package alpha

import (
	"strings"
	"testing"
	"time"
)

const sampleCSV = `
"Legs · Day 2 · Week 4 · Push-Pull-Legs";"2026-02-19 4:54 h";"1:02 hr"
"1. Hack Squats · Machine · 8 reps";"WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps"
#;KG;REPS;RIR
1;115;8;1
2;115;10;1
3;115;10;1
"2. Sumo Squats · Smith machine · 10 reps";"WU1 · 35 kg · 8 reps"
#;KG;REPS;RIR
1;70;8;1
2;70;12;1
"3. Hyperextensions on Roman Chair · Bodyweight · 10 reps";"WU1 · +0 kg · 8 reps"
#;KG;REPS;RIR
1;+35;10;0
2;+35;9;1
3;+35;10;0
"4. Hanging Leg Raises · Bodyweight · 12 reps · 2 dropsets"
#;KG;REPS;RIR
1;+0;12;1
2;+0;12;0,5

"Push · Day 1 · Week 4 · Push-Pull-Legs";"2026-02-17 17:04 h";"45 min"
"1. Bench Press · Barbell · 6 reps";"WU1 · 22,5 kg · 10 reps<br>WU2 · 47,5 kg · 8 reps<br>WU3 · 77,5 kg · 6 reps"
#;KG;REPS;RIR
1;102,5;6;0
2;102,5;6;0
3;100;6;0
`

// TestParseSessions walks a two-session export end to end.
func TestParseSessions(t *testing.T) {
	sessions, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}

	legs := sessions[0]
	if legs.Name != "Legs · Day 2 · Week 4 · Push-Pull-Legs" {
		t.Errorf("name = %q", legs.Name)
	}
	if want := time.Date(2026, 2, 19, 4, 54, 0, 0, time.UTC); !legs.StartedAt.Equal(want) {
		t.Errorf("start = %v, want %v", legs.StartedAt, want)
	}
	if legs.Duration != 62*time.Minute {
		t.Errorf("duration = %v, want 1h2m", legs.Duration)
	}
	if len(legs.Exercises) != 4 {
		t.Fatalf("exercises = %d, want 4", len(legs.Exercises))
	}

	tests := []struct {
		name      string
		equipment string
		target    int
		sets      int
		working   int
	}{
		{"Hack Squats", "Machine", 8, 5, 3},
		{"Sumo Squats", "Smith machine", 10, 3, 2},
		{"Hyperextensions on Roman Chair", "Bodyweight", 10, 4, 3},
		{"Hanging Leg Raises", "Bodyweight", 12, 2, 2},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := legs.Exercises[i]
			if ex.Name != tt.name || ex.Equipment != tt.equipment {
				t.Errorf("exercise = %q/%q, want %q/%q", ex.Name, ex.Equipment, tt.name, tt.equipment)
			}
			if ex.TargetReps != tt.target {
				t.Errorf("target reps = %d, want %d", ex.TargetReps, tt.target)
			}
			if len(ex.Sets) != tt.sets {
				t.Errorf("sets = %d, want %d", len(ex.Sets), tt.sets)
			}
			if got := ex.WorkingSets(); got != tt.working {
				t.Errorf("working sets = %d, want %d", got, tt.working)
			}
		})
	}

	if rir := legs.Exercises[3].Sets[1].RIR; rir != 0.5 {
		t.Errorf("fractional RIR = %v, want 0.5", rir)
	}

	push := sessions[1]
	if push.StartedAt.Hour() != 17 {
		t.Errorf("24h start hour = %d, want 17", push.StartedAt.Hour())
	}
	if push.Duration != 45*time.Minute {
		t.Errorf("duration = %v, want 45m", push.Duration)
	}
	if got := push.EndedAt(); !got.Equal(push.StartedAt.Add(45 * time.Minute)) {
		t.Errorf("end = %v", got)
	}
	bench := push.Exercises[0]
	if bench.Sets[3].Weight != 102.5 || bench.Sets[3].IsWarmup {
		t.Errorf("first working set = %+v, want 102.5 working", bench.Sets[3])
	}
}

// TestParseDuration covers the duration notations seen in exports.
func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1:02 hr", 62 * time.Minute},
		{"0:58 hr", 58 * time.Minute},
		{"2 hr", 2 * time.Hour},
		{"45 min", 45 * time.Minute},
		{"", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := parseDuration(tt.in); got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestParseWeight covers comma decimals and bodyweight-plus notation.
func TestParseWeight(t *testing.T) {
	tests := []struct {
		in     string
		weight float64
		bw     bool
	}{
		{"102,5", 102.5, false},
		{"115", 115, false},
		{"+35", 35, true},
		{"+0", 0, true},
		{"+2,5", 2.5, true},
	}
	for _, tt := range tests {
		w, bw := parseWeight(tt.in)
		if w != tt.weight || bw != tt.bw {
			t.Errorf("parseWeight(%q) = (%v, %v), want (%v, %v)", tt.in, w, bw, tt.weight, tt.bw)
		}
	}
}

// TestParseWarmups verifies warm-up extraction from the header's second field.
func TestParseWarmups(t *testing.T) {
	sets := parseWarmups("WU1 · 37,5 kg · 9 reps<br>WU2 · +0 kg · 7 reps")
	if len(sets) != 2 {
		t.Fatalf("warm-up sets = %d, want 2", len(sets))
	}
	if sets[0].Weight != 37.5 || sets[0].Reps != 9 || !sets[0].IsWarmup {
		t.Errorf("wu1 = %+v", sets[0])
	}
	if !sets[1].IsBodyweightPlus || sets[1].Weight != 0 {
		t.Errorf("wu2 = %+v, want bodyweight +0", sets[1])
	}
}

// TestParseEmpty verifies empty input returns no sessions without error.
func TestParseEmpty(t *testing.T) {
	sessions, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions = %d, want 0", len(sessions))
	}
}

// TestParseOrphans verifies exercise and set lines outside their parent are rejected.
func TestParseOrphans(t *testing.T) {
	for _, in := range []string{
		`"1. Bench Press · Barbell · 6 reps"`,
		"\"Push\";\"2026-02-17 5:04 h\";\"1:12 hr\"\n1;100;6;0",
	} {
		if _, err := Parse(strings.NewReader(in)); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", in)
		}
	}
}
