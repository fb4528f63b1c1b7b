package pianoroll

import (
	"slices"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func on(tick int64, key uint8) TimedEvent {
	return TimedEvent{Tick: tick, Message: smf.Message(midi.NoteOn(0, key, 100))}
}

func off(tick int64, key uint8) TimedEvent {
	return TimedEvent{Tick: tick, Message: smf.Message(midi.NoteOff(0, key))}
}

// onZero is a note-on with velocity 0, which ends a note
func onZero(tick int64, key uint8) TimedEvent {
	return TimedEvent{Tick: tick, Message: smf.Message{0x90, key, 0x00}}
}

func cc(tick int64, controller, value uint8) TimedEvent {
	return TimedEvent{Tick: tick, Message: smf.Message(midi.ControlChange(0, controller, value))}
}

func TestAbsoluteTicks(t *testing.T) {
	var track smf.Track
	track.Add(10, midi.NoteOn(0, 60, 100))
	track.Add(0, midi.NoteOn(0, 64, 100))
	track.Add(90, midi.NoteOff(0, 60))
	track.Close(5)

	got := AbsoluteTicks(track)
	want := []int64{10, 10, 100, 105}

	if len(got) != len(want) {
		t.Fatalf("AbsoluteTicks() returned %d events, want %d", len(got), len(want))
	}
	for i, ev := range got {
		if ev.Tick != want[i] {
			t.Errorf("event %d tick = %d, want %d", i, ev.Tick, want[i])
		}
	}
	if !got[3].IsMeta() {
		t.Error("end of track should be a meta event")
	}
}

func TestExtractNotes(t *testing.T) {
	tests := []struct {
		name   string
		events []TimedEvent
		want   []NoteInterval
	}{
		{
			name:   "simple pair",
			events: []TimedEvent{on(100, 60), off(500, 60)},
			want:   []NoteInterval{{60, 100, 500}},
		},
		{
			name:   "velocity zero note-on ends note",
			events: []TimedEvent{on(0, 62), onZero(64, 62)},
			want:   []NoteInterval{{62, 0, 64}},
		},
		{
			name:   "note-off without note-on is ignored",
			events: []TimedEvent{off(10, 60), on(20, 60), off(30, 60)},
			want:   []NoteInterval{{60, 20, 30}},
		},
		{
			name:   "retrigger without release closes both",
			events: []TimedEvent{on(0, 60), on(100, 60), off(200, 60)},
			want:   []NoteInterval{{60, 0, 200}, {60, 100, 200}},
		},
		{
			name:   "note-off on retrigger tick keeps the new note open",
			events: []TimedEvent{on(0, 60), on(100, 60), off(100, 60), off(300, 60)},
			want:   []NoteInterval{{60, 0, 100}, {60, 100, 300}},
		},
		{
			name:   "zero length note alone is dropped",
			events: []TimedEvent{on(100, 60), off(100, 60), off(200, 60)},
			want:   nil,
		},
		{
			name:   "pitches are independent",
			events: []TimedEvent{on(0, 60), on(10, 64), off(20, 60), off(30, 64)},
			want:   []NoteInterval{{60, 0, 20}, {64, 10, 30}},
		},
		{
			name: "meta events are skipped",
			events: []TimedEvent{
				{Tick: 0, Message: smf.Message{0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20}},
				on(0, 60),
				off(64, 60),
			},
			want: []NoteInterval{{60, 0, 64}},
		},
		{
			name:   "unterminated note is dropped",
			events: []TimedEvent{on(0, 60)},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractNotes(tt.events)
			if !slices.Equal(got, tt.want) {
				t.Errorf("ExtractNotes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractPedal(t *testing.T) {
	tests := []struct {
		name   string
		events []TimedEvent
		want   []PedalInterval
	}{
		{
			name:   "down then up",
			events: []TimedEvent{cc(450, SustainPedal, PedalDown), cc(600, SustainPedal, PedalUp)},
			want:   []PedalInterval{{450, 600}},
		},
		{
			name:   "up without down starts at zero",
			events: []TimedEvent{cc(300, SustainPedal, PedalUp)},
			want:   []PedalInterval{{0, 300}},
		},
		{
			name: "only the latest down is remembered",
			events: []TimedEvent{
				cc(100, SustainPedal, PedalDown),
				cc(200, SustainPedal, PedalDown),
				cc(300, SustainPedal, PedalUp),
			},
			want: []PedalInterval{{200, 300}},
		},
		{
			name: "other controllers and values are ignored",
			events: []TimedEvent{
				cc(100, 7, PedalDown),
				cc(150, SustainPedal, 64),
				on(200, 60),
				cc(250, 7, PedalUp),
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPedal(tt.events)
			if !slices.Equal(got, tt.want) {
				t.Errorf("ExtractPedal() = %v, want %v", got, tt.want)
			}
		})
	}
}
