package pianoroll

import (
	"bytes"
	"errors"
	"maps"
	"slices"
	"strings"
	"testing"
)

func TestReadJSON(t *testing.T) {
	doc := `{
		"roll": [[{"val": 60, "art": "s"}, {"val": 64, "art": "s"}], [], [{"val": 60, "art": "l"}]],
		"meta_data": {
			"meta_events": [{"type": "set_tempo", "time": 0, "data": {"tempo": 500000}}],
			"file_name": "a.mid",
			"composer": "Bach"
		}
	}`

	p, err := ReadJSON(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if p.Len() != 3 {
		t.Errorf("Len() = %d, want 3", p.Len())
	}
	if p.MetaData.TicksPerStep != DefaultTicksPerStep || p.MetaData.Div != DefaultDiv {
		t.Errorf("defaults = %d/%d, want %d/%d", p.MetaData.TicksPerStep, p.MetaData.Div, DefaultTicksPerStep, DefaultDiv)
	}
	if p.MetaData.Extra["file_name"] != "a.mid" {
		t.Errorf("file_name = %v, want a.mid", p.MetaData.Extra["file_name"])
	}
	if got := p.MetaData.MetaEvents[0].Data.Tempo; got != 500000 {
		t.Errorf("tempo = %d, want 500000", got)
	}
	if p.Roll[2][0].Art != Legato {
		t.Errorf("step 2 articulation = %q, want %q", p.Roll[2][0].Art, Legato)
	}
}

func TestReadJSONErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{"missing meta_events", `{"roll": [], "meta_data": {"div": 4}}`, ErrMissingMetaEvents},
		{"missing meta_data", `{"roll": []}`, ErrMissingMetaEvents},
		{"pitch out of range", `{"roll": [[{"val": 128, "art": "s"}]], "meta_data": {"meta_events": []}}`, nil},
		{"bad articulation", `{"roll": [[{"val": 60, "art": "x"}]], "meta_data": {"meta_events": []}}`, nil},
		{"missing roll", `{"meta_data": {"meta_events": []}}`, nil},
		{"meta_events not a list", `{"roll": [], "meta_data": {"meta_events": 3}}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("ReadJSON() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ReadJSON() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReadJSONEmptyMetaEventsObject(t *testing.T) {
	p, err := ReadJSON(strings.NewReader(`{"roll": [[{"val": 1, "art": "s"}]], "meta_data": {"meta_events": {}}}`))
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if p.MetaData.MetaEvents == nil || len(p.MetaData.MetaEvents) != 0 {
		t.Errorf("meta events = %v, want empty list", p.MetaData.MetaEvents)
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	p := New()
	p.Roll = []Chord{{{Pitch: 60, Art: Staccato}}, nil, {{Pitch: 60, Art: Legato}}}
	if err := p.AddMetadata(map[string]any{"file_name": "x.mid", "div": 8}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := p.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"roll":[[{"val":60,"art":"s"}],[],[{"val":60,"art":"l"}]]`) {
		t.Errorf("WriteJSON() = %s", buf.String())
	}

	back, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if back.MetaData.Div != 8 {
		t.Errorf("div = %d, want 8", back.MetaData.Div)
	}
	if back.MetaData.Extra["file_name"] != "x.mid" {
		t.Errorf("file_name = %v, want x.mid", back.MetaData.Extra["file_name"])
	}
	if back.Len() != 3 || len(back.Roll[1]) != 0 {
		t.Errorf("roll = %v", back.Roll)
	}
}

func TestAddMetadata(t *testing.T) {
	a := New()
	b := New()

	err := a.AddMetadata(map[string]any{
		"ticks_per_step": 32,
		"div":            float64(2),
		"meta_events":    []MetaEvent{{Type: MetaSetTempo, Data: MetaEventData{Tempo: 1}}},
		"license":        "CC0",
	})
	if err != nil {
		t.Fatalf("AddMetadata() error = %v", err)
	}
	a.MetaData.MetaEvents = append(a.MetaData.MetaEvents, MetaEvent{Type: MetaKeySignature})

	if a.MetaData.TicksPerStep != 32 || a.MetaData.Div != 2 {
		t.Errorf("typed fields = %d/%d, want 32/2", a.MetaData.TicksPerStep, a.MetaData.Div)
	}
	if a.MetaData.Extra["license"] != "CC0" {
		t.Errorf("license = %v, want CC0", a.MetaData.Extra["license"])
	}

	// instances never share default containers
	if len(b.MetaData.MetaEvents) != 0 || len(b.MetaData.Extra) != 0 {
		t.Errorf("fresh roll metadata was modified: %+v", b.MetaData)
	}
}

func TestAddMetadataDecodedMetaEvents(t *testing.T) {
	p := New()

	// the shape JSON and YAML decoders produce for a meta_events list
	err := p.AddMetadata(map[string]any{
		"meta_events": []any{
			map[string]any{"type": "set_tempo", "time": 0, "data": map[string]any{"tempo": 500000}},
			map[string]any{"type": "key_signature", "time": float64(4), "data": map[string]any{"key": "D"}},
		},
	})
	if err != nil {
		t.Fatalf("AddMetadata() error = %v", err)
	}

	want := []MetaEvent{
		{Type: MetaSetTempo, Time: 0, Data: MetaEventData{Tempo: 500000}},
		{Type: MetaKeySignature, Time: 4, Data: MetaEventData{Key: "D"}},
	}
	if !slices.Equal(p.MetaData.MetaEvents, want) {
		t.Errorf("MetaEvents = %v, want %v", p.MetaData.MetaEvents, want)
	}
	if _, ok := p.MetaData.Extra["meta_events"]; ok {
		t.Error("meta_events must not be stored in Extra")
	}
}

func TestAddMetadataRejectsMalformedTypedKeys(t *testing.T) {
	tests := []struct {
		name string
		md   map[string]any
	}{
		{"div", map[string]any{"div": "eight"}},
		{"ticks_per_step", map[string]any{"ticks_per_step": 1.5}},
		{"meta_events", map[string]any{"meta_events": "tempo 120"}},
		{"meta_event time", map[string]any{"meta_events": []any{map[string]any{"type": "set_tempo", "time": "soon"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			md := maps.Clone(tt.md)
			md["license"] = "CC0"

			err := p.AddMetadata(md)
			if !errors.Is(err, ErrInvalidMetadata) {
				t.Fatalf("AddMetadata() error = %v, want %v", err, ErrInvalidMetadata)
			}
			if p.MetaData.Div != DefaultDiv || p.MetaData.TicksPerStep != DefaultTicksPerStep || len(p.MetaData.Extra) != 0 {
				t.Errorf("metadata changed after error: %+v", p.MetaData)
			}
		})
	}
}
