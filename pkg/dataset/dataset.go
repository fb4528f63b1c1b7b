// Package dataset builds, stores and splits collections of piano-rolls
package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"math"
	"os"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/james-see/midiroll/pkg/pianoroll"
)

// Dataset is an ordered collection of piano-rolls with dataset level metadata
type Dataset struct {
	Data     []*pianoroll.PianoRoll `json:"data"`
	MetaData map[string]any         `json:"meta_data"`
}

// New creates a dataset. Nil arguments are replaced with fresh empty
// containers.
func New(data []*pianoroll.PianoRoll, metaData map[string]any) *Dataset {
	if data == nil {
		data = []*pianoroll.PianoRoll{}
	}
	if metaData == nil {
		metaData = map[string]any{}
	}
	return &Dataset{Data: data, MetaData: metaData}
}

// Len returns the number of piano-rolls
func (d *Dataset) Len() int {
	return len(d.Data)
}

// At returns the piano-roll at index i
func (d *Dataset) At(i int) *pianoroll.PianoRoll {
	return d.Data[i]
}

// Split divides the dataset into train and validation sets. The train set
// gets the first round(len * ratio) items.
func (d *Dataset) Split(ratio float64) (train, validation *Dataset, err error) {
	if !(ratio > 0 && ratio < 1) {
		return nil, nil, fault.New(fmt.Sprintf("invalid split ratio %v", ratio), ftag.With(KindInvalidInput))
	}

	idx := int(math.Round(float64(len(d.Data)) * ratio))
	train = New(append([]*pianoroll.PianoRoll(nil), d.Data[:idx]...), maps.Clone(d.MetaData))
	validation = New(append([]*pianoroll.PianoRoll(nil), d.Data[idx:]...), maps.Clone(d.MetaData))
	return train, validation, nil
}

// WriteTo encodes the dataset as a {"data", "meta_data"} JSON document
func (d *Dataset) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	if err := json.NewEncoder(cw).Encode(New(d.Data, d.MetaData)); err != nil {
		return cw.n, fault.Wrap(err, fmsg.With("failed to encode dataset"))
	}
	return cw.n, nil
}

// Save writes the dataset to a JSON file
func (d *Dataset) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fault.Wrap(err, fmsg.With("failed to create dataset file"))
	}
	if _, err := d.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadFrom decodes a dataset JSON document
func ReadFrom(r io.Reader) (*Dataset, error) {
	var raw struct {
		Data     *[]*pianoroll.PianoRoll `json:"data"`
		MetaData *map[string]any         `json:"meta_data"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, Tag(err, "failed to decode dataset")
	}
	if raw.Data == nil || raw.MetaData == nil {
		return nil, fault.New("dataset document needs data and meta_data", ftag.With(KindInvalidInput))
	}
	return New(*raw.Data, *raw.MetaData), nil
}

// Load reads a dataset from a JSON file
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("failed to open dataset file"))
	}
	defer func() { _ = f.Close() }()
	return ReadFrom(f)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
