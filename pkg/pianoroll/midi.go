package pianoroll

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"
)

// Options controls MIDI to piano-roll quantization
type Options struct {
	Div   int  // steps per beat
	Pedal bool // extend notes held by the sustain pedal
}

// DefaultOptions returns the quantization used by the dataset builder
func DefaultOptions() Options {
	return Options{Div: DefaultDiv, Pedal: true}
}

// FromSMF quantizes a parsed MIDI file into a PianoRoll
func FromSMF(s *smf.SMF, opts Options) (*PianoRoll, error) {
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, ErrUnsupportedTimeFormat
	}
	if opts.Div <= 0 {
		return nil, fmt.Errorf("%w: div %d", ErrInvalidResolution, opts.Div)
	}

	// Fractional remainders are truncated.
	ticksPerStep := int(mt.Resolution()) / opts.Div
	grid, err := NewGridAssembler(ticksPerStep, opts.Pedal)
	if err != nil {
		return nil, fmt.Errorf("%w: %d ticks per beat with div %d", err, mt.Resolution(), opts.Div)
	}

	tracks := make([][]TimedEvent, 0, len(s.Tracks))
	for _, tr := range s.Tracks {
		tracks = append(tracks, AbsoluteTicks(tr))
	}

	for _, events := range tracks {
		grid.Add(ExtractNotes(events), ExtractPedal(events))
	}

	roll, err := grid.Steps()
	if err != nil {
		return nil, err
	}

	md := NewMetaData()
	md.TicksPerStep = ticksPerStep
	md.Div = opts.Div
	md.MetaEvents = ExtractMetaEvents(tracks, ticksPerStep)

	return &PianoRoll{Roll: roll, MetaData: md}, nil
}

// ReadMIDI parses MIDI data into a PianoRoll
func ReadMIDI(r io.Reader, opts Options) (*PianoRoll, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}
	return FromSMF(s, opts)
}

// FromMIDI parses raw MIDI bytes into a PianoRoll
func FromMIDI(data []byte, opts Options) (*PianoRoll, error) {
	return ReadMIDI(bytes.NewReader(data), opts)
}

// ReadMIDIFile reads a MIDI file into a PianoRoll
func ReadMIDIFile(filename string, opts Options) (*PianoRoll, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadMIDI(f, opts)
}

// ToSMF renders the roll as a two track MIDI file: a meta track and a note
// track. Ticks per beat is div * ticks_per_step.
func (p *PianoRoll) ToSMF() (*smf.SMF, error) {
	tps := p.MetaData.TicksPerStep
	div := p.MetaData.Div
	if tps <= 0 || div <= 0 || tps*div > 0x7FFF {
		return nil, fmt.Errorf("%w: ticks_per_step %d, div %d", ErrInvalidResolution, tps, div)
	}
	if p.MetaData.MetaEvents == nil {
		return nil, ErrMissingMetaEvents
	}

	metaTrack, err := EmitMetaTrack(p.MetaData.MetaEvents, tps)
	if err != nil {
		return nil, fmt.Errorf("failed to emit meta events: %w", err)
	}

	s := smf.NewSMF1()
	s.TimeFormat = smf.MetricTicks(tps * div)

	if err := s.Add(metaTrack); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}
	if err := s.Add(EmitNotes(p.Roll, tps)); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}
	return s, nil
}

// ToMIDI renders the roll as MIDI file bytes
func (p *PianoRoll) ToMIDI() ([]byte, error) {
	s, err := p.ToSMF()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteMIDIFile writes the roll to a MIDI file
func (p *PianoRoll) WriteMIDIFile(filename string) error {
	data, err := p.ToMIDI()
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
