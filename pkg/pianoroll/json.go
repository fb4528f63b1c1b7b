package pianoroll

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
)

// MarshalJSON encodes an empty chord as [] rather than null
func (c Chord) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Note(c))
}

// UnmarshalJSON validates pitch range and articulation
func (n *Note) UnmarshalJSON(data []byte) error {
	var raw struct {
		Val *int         `json:"val"`
		Art Articulation `json:"art"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Val == nil {
		return fmt.Errorf("note is missing val")
	}
	if *raw.Val < 0 || *raw.Val > 127 {
		return fmt.Errorf("note value %d out of range", *raw.Val)
	}
	if !raw.Art.Valid() {
		return fmt.Errorf("invalid articulation %q", raw.Art)
	}
	n.Pitch = uint8(*raw.Val)
	n.Art = raw.Art
	return nil
}

// MarshalJSON flattens the typed fields and Extra into one object
func (m MetaData) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+3)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["ticks_per_step"] = m.TicksPerStep
	out["div"] = m.Div
	events := m.MetaEvents
	if events == nil {
		events = []MetaEvent{}
	}
	out["meta_events"] = events
	return json.Marshal(out)
}

// UnmarshalJSON decodes metadata. ticks_per_step and div fall back to their
// defaults; meta_events is required.
func (m *MetaData) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	md := NewMetaData()

	if v, ok := raw["ticks_per_step"]; ok {
		if err := json.Unmarshal(v, &md.TicksPerStep); err != nil {
			return fmt.Errorf("ticks_per_step: %w", err)
		}
		delete(raw, "ticks_per_step")
	}
	if v, ok := raw["div"]; ok {
		if err := json.Unmarshal(v, &md.Div); err != nil {
			return fmt.Errorf("div: %w", err)
		}
		delete(raw, "div")
	}

	v, ok := raw["meta_events"]
	if !ok {
		return ErrMissingMetaEvents
	}
	if err := decodeMetaEvents(v, &md.MetaEvents); err != nil {
		return fmt.Errorf("meta_events: %w", err)
	}
	delete(raw, "meta_events")

	for k, v := range raw {
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		md.Extra[k] = val
	}

	*m = md
	return nil
}

// decodeMetaEvents accepts a list, null, or an empty object (written by
// older tools for rolls without meta events)
func decodeMetaEvents(data json.RawMessage, events *[]MetaEvent) error {
	var list []MetaEvent
	if err := json.Unmarshal(data, &list); err == nil {
		if list != nil {
			*events = list
		}
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || len(obj) > 0 {
		return fmt.Errorf("expected a list of meta events")
	}
	return nil
}

// toMetaEvents converts a meta_events metadata value, either a typed list or
// the generic form produced by JSON and YAML decoders
func toMetaEvents(v any) ([]MetaEvent, error) {
	if events, ok := v.([]MetaEvent); ok {
		return slices.Clone(events), nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var events []MetaEvent
	if err := decodeMetaEvents(data, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = []MetaEvent{}
	}
	return events, nil
}

// ReadJSON decodes a single roll record
func ReadJSON(r io.Reader) (*PianoRoll, error) {
	var p PianoRoll
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode piano-roll: %w", err)
	}
	if p.Roll == nil {
		p.Roll = []Chord{}
	}
	return &p, nil
}

// UnmarshalJSON requires both roll and meta_data to be present
func (p *PianoRoll) UnmarshalJSON(data []byte) error {
	var raw struct {
		Roll     *[]Chord  `json:"roll"`
		MetaData *MetaData `json:"meta_data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Roll == nil {
		return fmt.Errorf("piano-roll is missing roll")
	}
	if raw.MetaData == nil {
		return fmt.Errorf("piano-roll is missing meta_data: %w", ErrMissingMetaEvents)
	}
	p.Roll = *raw.Roll
	p.MetaData = *raw.MetaData
	return nil
}

// ReadJSONFile reads a single roll record from a file
func ReadJSONFile(filename string) (*PianoRoll, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read piano-roll file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadJSON(f)
}

// WriteJSON encodes the roll as a {"roll", "meta_data"} record
func (p *PianoRoll) WriteJSON(w io.Writer) error {
	return json.NewEncoder(w).Encode(p)
}

// WriteJSONFile writes the roll record to a file
func (p *PianoRoll) WriteJSONFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create piano-roll file: %w", err)
	}
	if err := p.WriteJSON(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write piano-roll: %w", err)
	}
	return f.Close()
}
