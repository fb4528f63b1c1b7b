// Package pianoroll provides conversion between MIDI event streams and
// quantized piano-roll grids
package pianoroll

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Default quantization settings
const (
	DefaultTicksPerStep = 64
	DefaultDiv          = 4

	// SustainPedal is the MIDI controller number of the damper pedal
	SustainPedal = 64
	PedalDown    = 127
	PedalUp      = 0

	emitChannel  = 0
	emitVelocity = 100
)

var (
	// ErrEmptyRoll is returned when quantization leaves no occupied steps
	ErrEmptyRoll = errors.New("parsed piano-roll is empty")
	// ErrInvalidResolution is returned when ticks per step would be zero
	ErrInvalidResolution = errors.New("invalid step resolution")
	// ErrMissingMetaEvents is returned when metadata has no meta_events key
	ErrMissingMetaEvents = errors.New("metadata is missing meta_events")
	// ErrUnsupportedTimeFormat is returned for SMPTE timed MIDI files
	ErrUnsupportedTimeFormat = errors.New("unsupported MIDI time format")
	// ErrUnknownMetaEvent is returned when emitting an unsupported meta event type
	ErrUnknownMetaEvent = errors.New("unknown meta event type")
	// ErrInvalidMetadata is returned when a typed metadata key has a value of the wrong shape
	ErrInvalidMetadata = errors.New("invalid metadata value")
)

// Articulation describes how a note occupies a step
type Articulation string

const (
	// Staccato marks the attack step of a note
	Staccato Articulation = "s"
	// Legato marks a step where the note is held from a previous step
	Legato Articulation = "l"
)

// Valid reports whether a is a known articulation
func (a Articulation) Valid() bool {
	return a == Staccato || a == Legato
}

// Note is a single pitch sounding in a step
type Note struct {
	Pitch uint8        `json:"val"`
	Art   Articulation `json:"art"`
}

// Chord is the set of notes active during one step
type Chord []Note

// Pitches returns the distinct pitches of the chord in ascending order
func (c Chord) Pitches() []uint8 {
	pitches := make([]uint8, 0, len(c))
	for _, n := range c {
		pitches = append(pitches, n.Pitch)
	}
	slices.Sort(pitches)
	return slices.Compact(pitches)
}

// Has reports whether pitch sounds in the chord
func (c Chord) Has(pitch uint8) bool {
	return slices.ContainsFunc(c, func(n Note) bool { return n.Pitch == pitch })
}

// NoteInterval is a closed note span in absolute ticks
type NoteInterval struct {
	Pitch uint8
	Start int64
	End   int64
}

// PedalInterval is a span during which the sustain pedal is held
type PedalInterval struct {
	Down int64
	Up   int64
}

// MetaEvent types carried through a round trip
const (
	MetaSetTempo     = "set_tempo"
	MetaKeySignature = "key_signature"
)

// MetaEventData holds the type specific fields of a MetaEvent
type MetaEventData struct {
	Tempo int    `json:"tempo,omitempty"` // microseconds per beat
	Key   string `json:"key,omitempty"`
}

// MetaEvent is a non-sounding event positioned on a step
type MetaEvent struct {
	Type string        `json:"type"`
	Time int           `json:"time"`
	Data MetaEventData `json:"data"`
}

// MetaData holds quantization settings, meta events and free-form metadata
type MetaData struct {
	TicksPerStep int
	Div          int
	MetaEvents   []MetaEvent
	Extra        map[string]any
}

// NewMetaData returns metadata with default settings and empty containers
func NewMetaData() MetaData {
	return MetaData{
		TicksPerStep: DefaultTicksPerStep,
		Div:          DefaultDiv,
		MetaEvents:   []MetaEvent{},
		Extra:        map[string]any{},
	}
}

// PianoRoll is a step-indexed grid of chords with its metadata
type PianoRoll struct {
	Roll     []Chord  `json:"roll"`
	MetaData MetaData `json:"meta_data"`
}

// New creates an empty PianoRoll with default metadata
func New() *PianoRoll {
	return &PianoRoll{
		Roll:     []Chord{},
		MetaData: NewMetaData(),
	}
}

// Len returns the number of steps
func (p *PianoRoll) Len() int {
	return len(p.Roll)
}

// AddMetadata merges md into the roll metadata, overwriting existing keys.
// ticks_per_step and div must be integers and meta_events a list of meta
// events (typed, or decoded from JSON or YAML). On error the metadata is
// left unchanged.
func (p *PianoRoll) AddMetadata(md map[string]any) error {
	merged := p.MetaData
	merged.Extra = maps.Clone(p.MetaData.Extra)
	if merged.Extra == nil {
		merged.Extra = map[string]any{}
	}

	for k, v := range md {
		switch k {
		case "ticks_per_step":
			n, ok := toInt(v)
			if !ok {
				return fmt.Errorf("%w: ticks_per_step %v", ErrInvalidMetadata, v)
			}
			merged.TicksPerStep = n
		case "div":
			n, ok := toInt(v)
			if !ok {
				return fmt.Errorf("%w: div %v", ErrInvalidMetadata, v)
			}
			merged.Div = n
		case "meta_events":
			events, err := toMetaEvents(v)
			if err != nil {
				return fmt.Errorf("%w: meta_events: %v", ErrInvalidMetadata, err)
			}
			merged.MetaEvents = events
		default:
			merged.Extra[k] = v
		}
	}

	p.MetaData = merged
	return nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
