package pianoroll

import (
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// EmitNotes renders a roll as a single note track. Each step releases
// pitches that are no longer present and (re)strikes pitches that are new
// or marked staccato. Steps that change nothing only advance time.
func EmitNotes(roll []Chord, ticksPerStep int) smf.Track {
	var track smf.Track
	on := make(map[uint8]bool)
	var delta uint32

	for _, chord := range roll {
		var turnOn []uint8
		for _, n := range chord {
			if !on[n.Pitch] || n.Art == Staccato {
				turnOn = append(turnOn, n.Pitch)
			}
		}
		slices.Sort(turnOn)
		turnOn = slices.Compact(turnOn)

		var turnOff []uint8
		for pitch := range on {
			if !chord.Has(pitch) {
				turnOff = append(turnOff, pitch)
			}
		}
		slices.Sort(turnOff)

		if len(turnOn) == 0 && len(turnOff) == 0 {
			delta += uint32(ticksPerStep)
			continue
		}

		// Only the first event of the batch carries the accumulated delta.
		next := func() uint32 {
			d := delta
			delta = 0
			return d
		}

		for _, pitch := range turnOff {
			track.Add(next(), midi.NoteOffVelocity(emitChannel, pitch, emitVelocity))
			delete(on, pitch)
		}
		for _, pitch := range turnOn {
			track.Add(next(), midi.NoteOffVelocity(emitChannel, pitch, emitVelocity))
			track.Add(0, midi.NoteOn(emitChannel, pitch, emitVelocity))
			on[pitch] = true
		}

		delta = uint32(ticksPerStep)
	}

	track.Close(0)
	return track
}
