package pianoroll

import (
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// TimedEvent is a track event positioned at an absolute tick
type TimedEvent struct {
	Tick    int64
	Message smf.Message
}

// IsMeta reports whether the event is a non-sounding meta event
func (e TimedEvent) IsMeta() bool {
	return len(e.Message) > 0 && e.Message[0] == 0xFF
}

// AbsoluteTicks converts the delta times of a track into absolute ticks
func AbsoluteTicks(track smf.Track) []TimedEvent {
	events := make([]TimedEvent, 0, len(track))
	var tick int64
	for _, ev := range track {
		tick += int64(ev.Delta)
		events = append(events, TimedEvent{Tick: tick, Message: ev.Message})
	}
	return events
}

// ExtractNotes pairs note-on and note-off events per pitch into intervals.
//
// A pitch may hold several open starts when it is struck again before being
// released. A note-off at tick T closes every open start that differs from T;
// starts equal to T stay open, but only if something else was closed with them.
func ExtractNotes(events []TimedEvent) []NoteInterval {
	var notes []NoteInterval
	open := make(map[uint8][]int64)

	for _, ev := range events {
		if ev.IsMeta() {
			continue
		}

		msg := midi.Message(ev.Message)
		var ch, key, vel uint8

		if msg.GetNoteStart(&ch, &key, &vel) {
			open[key] = append(open[key], ev.Tick)
			continue
		}

		if !msg.GetNoteEnd(&ch, &key) {
			continue
		}

		starts, ok := open[key]
		if !ok {
			continue
		}

		var keep []int64
		closed := 0
		for _, start := range starts {
			if start == ev.Tick {
				keep = append(keep, start)
				continue
			}
			notes = append(notes, NoteInterval{Pitch: key, Start: start, End: ev.Tick})
			closed++
		}

		if closed > 0 && len(keep) > 0 {
			open[key] = keep
		} else {
			delete(open, key)
		}
	}

	return notes
}

// ExtractPedal pairs sustain pedal down/up events into intervals. Only the
// latest down tick is remembered; an up without a down starts at tick 0.
func ExtractPedal(events []TimedEvent) []PedalInterval {
	var pedal []PedalInterval
	var lastDown int64

	for _, ev := range events {
		var ch, controller, value uint8
		if !midi.Message(ev.Message).GetControlChange(&ch, &controller, &value) {
			continue
		}
		if controller != SustainPedal {
			continue
		}
		switch value {
		case PedalDown:
			lastDown = ev.Tick
		case PedalUp:
			pedal = append(pedal, PedalInterval{Down: lastDown, Up: ev.Tick})
		}
	}

	return pedal
}
