package dataset

import (
	"errors"
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/james-see/midiroll/pkg/pianoroll"
)

// Error kinds attached to dataset and conversion failures
const (
	KindParse        ftag.Kind = "parse_error"
	KindEmptyRoll    ftag.Kind = "empty_roll"
	KindInvalidInput ftag.Kind = "invalid_input"
)

// ParseError records a file that could not be turned into a PianoRoll
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Tag wraps a conversion error with a message and an ftag kind derived from
// the underlying cause
func Tag(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fault.Wrap(err, fmsg.With(msg), ftag.With(KindOf(err)))
}

// KindOf classifies a conversion error
func KindOf(err error) ftag.Kind {
	if k := ftag.Get(err); k != "" && k != ftag.Internal {
		return k
	}
	switch {
	case errors.Is(err, pianoroll.ErrEmptyRoll):
		return KindEmptyRoll
	case errors.Is(err, pianoroll.ErrMissingMetaEvents),
		errors.Is(err, pianoroll.ErrInvalidResolution),
		errors.Is(err, pianoroll.ErrUnknownMetaEvent),
		errors.Is(err, pianoroll.ErrInvalidMetadata):
		return KindInvalidInput
	default:
		return KindParse
	}
}
