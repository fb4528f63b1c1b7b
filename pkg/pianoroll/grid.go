package pianoroll

import (
	"cmp"
	"slices"
)

// GridAssembler quantizes note intervals onto a step grid
type GridAssembler struct {
	ticksPerStep int64
	pedalAware   bool
	cells        map[int]map[uint8]Articulation
	maxStep      int
}

// NewGridAssembler creates an assembler for the given step resolution.
// When pedalAware is set, note endings inside a sustain pedal interval are
// extended to the pedal release.
func NewGridAssembler(ticksPerStep int, pedalAware bool) (*GridAssembler, error) {
	if ticksPerStep <= 0 {
		return nil, ErrInvalidResolution
	}
	return &GridAssembler{
		ticksPerStep: int64(ticksPerStep),
		pedalAware:   pedalAware,
		cells:        make(map[int]map[uint8]Articulation),
		maxStep:      -1,
	}, nil
}

// Step returns the step index a tick quantizes to (rounding up)
func (g *GridAssembler) Step(tick int64) int {
	return int(ceilDiv(tick, g.ticksPerStep))
}

// Add places the notes of one track. Pedal intervals only affect notes
// added in the same call.
func (g *GridAssembler) Add(notes []NoteInterval, pedals []PedalInterval) {
	for _, n := range notes {
		end := n.End
		if g.pedalAware {
			end = max(end, pedalEnd(n.End, pedals))
		}

		start := g.Step(n.Start)
		g.mark(start, n.Pitch, Staccato)
		for i := start + 1; i < g.Step(end); i++ {
			g.mark(i, n.Pitch, Legato)
		}
	}
}

// pedalEnd returns the latest release of a pedal interval strictly
// containing tick, or 0 if there is none
func pedalEnd(tick int64, pedals []PedalInterval) int64 {
	var end int64
	for _, p := range pedals {
		if p.Down < tick && tick < p.Up {
			end = max(end, p.Up)
		}
	}
	return end
}

// mark sets the articulation of pitch at step. Staccato always wins.
func (g *GridAssembler) mark(step int, pitch uint8, art Articulation) {
	cell, ok := g.cells[step]
	if !ok {
		cell = make(map[uint8]Articulation)
		g.cells[step] = cell
	}
	if art == Legato && cell[pitch] == Staccato {
		return
	}
	cell[pitch] = art
	g.maxStep = max(g.maxStep, step)
}

// Steps returns the assembled roll, one chord per step up to the last
// occupied step
func (g *GridAssembler) Steps() ([]Chord, error) {
	if g.maxStep < 0 {
		return nil, ErrEmptyRoll
	}

	roll := make([]Chord, g.maxStep+1)
	for i := range roll {
		chord := Chord{}
		for pitch, art := range g.cells[i] {
			chord = append(chord, Note{Pitch: pitch, Art: art})
		}
		slices.SortFunc(chord, func(a, b Note) int { return cmp.Compare(a.Pitch, b.Pitch) })
		roll[i] = chord
	}
	return roll, nil
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}
