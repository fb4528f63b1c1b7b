package pianoroll

import (
	"errors"
	"testing"
)

// artAt returns the articulation of pitch at step, or "" if absent
func artAt(roll []Chord, step int, pitch uint8) Articulation {
	if step >= len(roll) {
		return ""
	}
	for _, n := range roll[step] {
		if n.Pitch == pitch {
			return n.Art
		}
	}
	return ""
}

func assemble(t *testing.T, ticksPerStep int, pedalAware bool, notes []NoteInterval, pedals []PedalInterval) []Chord {
	t.Helper()
	g, err := NewGridAssembler(ticksPerStep, pedalAware)
	if err != nil {
		t.Fatalf("NewGridAssembler() error = %v", err)
	}
	g.Add(notes, pedals)
	roll, err := g.Steps()
	if err != nil {
		t.Fatalf("Steps() error = %v", err)
	}
	return roll
}

func TestGridQuantizationBoundary(t *testing.T) {
	roll := assemble(t, 64, false, []NoteInterval{{60, 100, 500}}, nil)

	if len(roll) != 8 {
		t.Fatalf("roll length = %d, want 8", len(roll))
	}
	for step := 0; step < 2; step++ {
		if len(roll[step]) != 0 {
			t.Errorf("step %d = %v, want empty", step, roll[step])
		}
	}
	if got := artAt(roll, 2, 60); got != Staccato {
		t.Errorf("step 2 articulation = %q, want %q", got, Staccato)
	}
	for step := 3; step <= 7; step++ {
		if got := artAt(roll, step, 60); got != Legato {
			t.Errorf("step %d articulation = %q, want %q", step, got, Legato)
		}
	}
}

func TestGridExactMultiple(t *testing.T) {
	g, err := NewGridAssembler(64, false)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		tick int64
		want int
	}{
		{0, 0},
		{1, 1},
		{64, 1},
		{127, 2},
		{128, 2},
		{129, 3},
	}
	for _, tt := range tests {
		if got := g.Step(tt.tick); got != tt.want {
			t.Errorf("Step(%d) = %d, want %d", tt.tick, got, tt.want)
		}
	}

	roll := assemble(t, 64, false, []NoteInterval{{60, 128, 192}}, nil)
	if got := artAt(roll, 2, 60); got != Staccato {
		t.Errorf("step 2 articulation = %q, want %q", got, Staccato)
	}
	if len(roll) != 3 {
		t.Errorf("roll length = %d, want 3", len(roll))
	}
}

func TestGridPedalExtension(t *testing.T) {
	notes := []NoteInterval{{60, 100, 500}}
	pedals := []PedalInterval{{450, 600}}

	roll := assemble(t, 64, true, notes, pedals)
	if len(roll) != 10 {
		t.Fatalf("pedal aware roll length = %d, want 10", len(roll))
	}
	for step := 3; step <= 9; step++ {
		if got := artAt(roll, step, 60); got != Legato {
			t.Errorf("step %d articulation = %q, want %q", step, got, Legato)
		}
	}

	roll = assemble(t, 64, false, notes, pedals)
	if len(roll) != 8 {
		t.Errorf("pedal unaware roll length = %d, want 8", len(roll))
	}
}

func TestGridPedalMustStrictlyContainEnd(t *testing.T) {
	tests := []struct {
		name  string
		pedal PedalInterval
		want  int
	}{
		{"pedal down at note end", PedalInterval{500, 900}, 8},
		{"pedal up at note end", PedalInterval{100, 500}, 8},
		{"pedal released before note end", PedalInterval{100, 400}, 8},
		{"pedal holds note end", PedalInterval{499, 900}, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roll := assemble(t, 64, true, []NoteInterval{{60, 100, 500}}, []PedalInterval{tt.pedal})
			if len(roll) != tt.want {
				t.Errorf("roll length = %d, want %d", len(roll), tt.want)
			}
		})
	}
}

func TestGridLongestPedalWins(t *testing.T) {
	pedals := []PedalInterval{{450, 600}, {300, 1000}, {0, 200}}
	roll := assemble(t, 64, true, []NoteInterval{{60, 0, 500}}, pedals)

	// ceil(1000/64) = 16
	if len(roll) != 16 {
		t.Errorf("roll length = %d, want 16", len(roll))
	}
}

func TestGridStaccatoWins(t *testing.T) {
	tests := []struct {
		name  string
		notes []NoteInterval
	}{
		{"legato placed first", []NoteInterval{{60, 0, 300}, {60, 128, 400}}},
		{"staccato placed first", []NoteInterval{{60, 128, 400}, {60, 0, 300}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roll := assemble(t, 64, false, tt.notes, nil)
			if got := artAt(roll, 2, 60); got != Staccato {
				t.Errorf("step 2 articulation = %q, want %q", got, Staccato)
			}
			if got := artAt(roll, 0, 60); got != Staccato {
				t.Errorf("step 0 articulation = %q, want %q", got, Staccato)
			}
			if n := len(roll[3]); n != 1 {
				t.Errorf("step 3 has %d notes, want 1", n)
			}
		})
	}
}

func TestGridPedalOnlyAppliesWithinAdd(t *testing.T) {
	g, err := NewGridAssembler(64, true)
	if err != nil {
		t.Fatal(err)
	}
	g.Add([]NoteInterval{{60, 0, 500}}, nil)
	g.Add(nil, []PedalInterval{{450, 1000}})

	roll, err := g.Steps()
	if err != nil {
		t.Fatal(err)
	}
	if len(roll) != 8 {
		t.Errorf("roll length = %d, want 8", len(roll))
	}
}

func TestGridEmpty(t *testing.T) {
	g, err := NewGridAssembler(64, true)
	if err != nil {
		t.Fatal(err)
	}
	g.Add(nil, []PedalInterval{{0, 100}})

	if _, err := g.Steps(); !errors.Is(err, ErrEmptyRoll) {
		t.Errorf("Steps() error = %v, want %v", err, ErrEmptyRoll)
	}
}

func TestGridInvalidResolution(t *testing.T) {
	if _, err := NewGridAssembler(0, false); !errors.Is(err, ErrInvalidResolution) {
		t.Errorf("NewGridAssembler(0) error = %v, want %v", err, ErrInvalidResolution)
	}
}
