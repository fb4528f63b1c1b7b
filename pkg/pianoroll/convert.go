package pianoroll

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format represents a file format
type Format string

const (
	FormatMIDI    Format = "midi"
	FormatRoll    Format = "roll"
	FormatTokens  Format = "tokens"
	FormatUnknown Format = "unknown"
)

// Extension returns the default file extension of the format
func (f Format) Extension() string {
	switch f {
	case FormatMIDI:
		return ".mid"
	case FormatRoll:
		return ".json"
	case FormatTokens:
		return ".txt"
	default:
		return ""
	}
}

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mid", ".midi":
		return FormatMIDI
	case ".json":
		return FormatRoll
	case ".txt", ".tok":
		return FormatTokens
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) >= 4 && string(data[:4]) == "MThd" {
		return FormatMIDI
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return FormatUnknown
	}
	if trimmed[0] == '{' {
		return FormatRoll
	}
	return FormatTokens
}

// Read decodes data of the given format into a PianoRoll
func Read(data []byte, format Format, opts Options) (*PianoRoll, error) {
	switch format {
	case FormatMIDI:
		return FromMIDI(data, opts)
	case FormatRoll:
		return ReadJSON(bytes.NewReader(data))
	case FormatTokens:
		return ReadSequence(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported input format: %s", format)
	}
}

// Encode renders the roll in the given format
func (p *PianoRoll) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatMIDI:
		return p.ToMIDI()
	case FormatRoll:
		var buf bytes.Buffer
		if err := p.WriteJSON(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatTokens:
		return []byte(strings.Join(p.Sequence(), " ") + "\n"), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// ConvertFile converts a file from one format to another, detecting both
// formats from the file names
func ConvertFile(inputPath, outputPath string, opts Options) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	inputFormat := DetectFormat(inputPath)
	if inputFormat == FormatUnknown {
		inputFormat = DetectFormatFromContent(data)
	}

	outputFormat := DetectFormat(outputPath)
	if outputFormat == FormatUnknown {
		return errors.New("cannot determine output format from filename")
	}
	if inputFormat == outputFormat {
		return fmt.Errorf("unsupported conversion: %s to %s", inputFormat, outputFormat)
	}

	roll, err := Read(data, inputFormat, opts)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	out, err := roll.Encode(outputFormat)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	if err := os.WriteFile(outputPath, out, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// GetSupportedConversions returns a list of supported conversion paths
func GetSupportedConversions() []string {
	return []string{
		"midi -> roll",
		"midi -> tokens",
		"roll -> midi",
		"roll -> tokens",
		"tokens -> midi",
		"tokens -> roll",
	}
}
