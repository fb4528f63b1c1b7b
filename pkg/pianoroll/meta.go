package pianoroll

import (
	"cmp"
	"fmt"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Meta message layouts (FF type len data...)
const (
	metaStatus   = 0xFF
	metaTempo    = 0x51
	metaKeySig   = 0x59
	defaultTempo = 1_000_000
)

// Key signature names indexed by sharps/flats count + 7
var (
	majorKeys = [15]string{"Cb", "Gb", "Db", "Ab", "Eb", "Bb", "F", "C", "G", "D", "A", "E", "B", "F#", "C#"}
	minorKeys = [15]string{"Abm", "Ebm", "Bbm", "Fm", "Cm", "Gm", "Dm", "Am", "Em", "Bm", "F#m", "C#m", "G#m", "D#m", "A#m"}
)

// ExtractMetaEvents collects tempo and key signature events from all tracks,
// dropping exact duplicates. Event times are converted to step indices and
// the result is ordered by time, ties kept in encounter order.
func ExtractMetaEvents(tracks [][]TimedEvent, ticksPerStep int) []MetaEvent {
	events := []MetaEvent{}
	if ticksPerStep <= 0 {
		return events
	}

	for _, track := range tracks {
		for _, ev := range track {
			data, typ, ok := decodeMeta(ev.Message)
			if !ok {
				continue
			}
			me := MetaEvent{
				Type: typ,
				Time: int(ev.Tick / int64(ticksPerStep)),
				Data: data,
			}
			if !slices.Contains(events, me) {
				events = append(events, me)
			}
		}
	}

	slices.SortStableFunc(events, func(a, b MetaEvent) int {
		return cmp.Compare(a.Time, b.Time)
	})
	return events
}

func decodeMeta(msg smf.Message) (MetaEventData, string, bool) {
	if len(msg) < 3 || msg[0] != metaStatus {
		return MetaEventData{}, "", false
	}

	switch msg[1] {
	case metaTempo:
		// FF 51 03 tt tt tt
		if len(msg) < 6 || msg[2] != 0x03 {
			return MetaEventData{}, "", false
		}
		tempo := int(msg[3])<<16 | int(msg[4])<<8 | int(msg[5])
		return MetaEventData{Tempo: tempo}, MetaSetTempo, true
	case metaKeySig:
		// FF 59 02 sf mi
		if len(msg) < 5 || msg[2] != 0x02 {
			return MetaEventData{}, "", false
		}
		name, ok := keyName(int8(msg[3]), msg[4] == 1)
		if !ok {
			return MetaEventData{}, "", false
		}
		return MetaEventData{Key: name}, MetaKeySignature, true
	}

	return MetaEventData{}, "", false
}

func keyName(sharps int8, minor bool) (string, bool) {
	idx := int(sharps) + 7
	if idx < 0 || idx >= len(majorKeys) {
		return "", false
	}
	if minor {
		return minorKeys[idx], true
	}
	return majorKeys[idx], true
}

func keySignature(name string) (sharps int8, minor bool, ok bool) {
	if i := slices.Index(majorKeys[:], name); i >= 0 {
		return int8(i - 7), false, true
	}
	if i := slices.Index(minorKeys[:], name); i >= 0 {
		return int8(i - 7), true, true
	}
	return 0, false, false
}

// MetaMessage encodes a MetaEvent as a raw SMF meta message
func MetaMessage(ev MetaEvent) (smf.Message, error) {
	switch ev.Type {
	case MetaSetTempo:
		t := ev.Data.Tempo
		if t <= 0 || t > 0xFFFFFF {
			return nil, fmt.Errorf("invalid tempo %d", t)
		}
		return smf.Message{metaStatus, metaTempo, 0x03, byte(t >> 16), byte(t >> 8), byte(t)}, nil
	case MetaKeySignature:
		sharps, minor, ok := keySignature(ev.Data.Key)
		if !ok {
			return nil, fmt.Errorf("invalid key %q", ev.Data.Key)
		}
		var mi byte
		if minor {
			mi = 1
		}
		return smf.Message{metaStatus, metaKeySig, 0x02, byte(sharps), mi}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetaEvent, ev.Type)
	}
}

// EmitMetaTrack builds the meta track of a rendered file: a program change
// and default tempo at time zero followed by the meta events in time order,
// each delayed by (time - previous time) * ticksPerStep.
func EmitMetaTrack(events []MetaEvent, ticksPerStep int) (smf.Track, error) {
	var track smf.Track

	track.Add(0, midi.ProgramChange(emitChannel, 0))
	tempo, err := MetaMessage(MetaEvent{Type: MetaSetTempo, Data: MetaEventData{Tempo: defaultTempo}})
	if err != nil {
		return nil, err
	}
	track.Add(0, tempo)

	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b MetaEvent) int {
		return cmp.Compare(a.Time, b.Time)
	})

	prev := 0
	for _, ev := range sorted {
		msg, err := MetaMessage(ev)
		if err != nil {
			return nil, err
		}
		delta := (ev.Time - prev) * ticksPerStep
		if delta < 0 {
			return nil, fmt.Errorf("meta event at negative step %d", ev.Time)
		}
		track.Add(uint32(delta), msg)
		prev = ev.Time
	}

	track.Close(0)
	return track, nil
}
