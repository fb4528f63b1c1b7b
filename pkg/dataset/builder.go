package dataset

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/charmbracelet/log"
	"github.com/james-see/midiroll/pkg/pianoroll"
)

// FileParser turns a file into a PianoRoll
type FileParser interface {
	Parse(path string) (*pianoroll.PianoRoll, error)
}

// ParserFunc adapts a function to FileParser
type ParserFunc func(path string) (*pianoroll.PianoRoll, error)

// Parse calls f(path)
func (f ParserFunc) Parse(path string) (*pianoroll.PianoRoll, error) { return f(path) }

// MetadataProvider returns extra metadata for a file
type MetadataProvider interface {
	Metadata(path string) (map[string]any, error)
}

// MetadataFunc adapts a function to MetadataProvider
type MetadataFunc func(path string) (map[string]any, error)

// Metadata calls f(path)
func (f MetadataFunc) Metadata(path string) (map[string]any, error) { return f(path) }

// Filter decides whether a parsed PianoRoll joins the dataset
type Filter interface {
	Keep(p *pianoroll.PianoRoll) bool
}

// FilterFunc adapts a function to Filter
type FilterFunc func(p *pianoroll.PianoRoll) bool

// Keep calls f(p)
func (f FilterFunc) Keep(p *pianoroll.PianoRoll) bool { return f(p) }

// MIDIParser is the default FileParser, quantizing MIDI files
type MIDIParser struct {
	Options pianoroll.Options
}

// Parse reads and quantizes the MIDI file at path
func (m MIDIParser) Parse(path string) (*pianoroll.PianoRoll, error) {
	return pianoroll.ReadMIDIFile(path, m.Options)
}

// Report summarises a build
type Report struct {
	Found    int
	Parsed   int
	Filtered int
	Failures []*ParseError
}

// Failed returns the number of files that could not be parsed
func (r Report) Failed() int {
	return len(r.Failures)
}

// Builder collects the files of a directory into a Dataset
type Builder struct {
	Dir        string
	Recursive  bool
	Extensions []string // defaults to [".mid"]

	Parser   FileParser       // defaults to MIDIParser with div 4
	Metadata MetadataProvider // optional
	Filter   Filter           // optional

	Logger *log.Logger
}

func (b *Builder) logger() *log.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return log.Default()
}

func (b *Builder) extensions() []string {
	if len(b.Extensions) == 0 {
		return []string{".mid"}
	}
	exts := make([]string, 0, len(b.Extensions))
	for _, ext := range b.Extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return exts
}

func (b *Builder) parser() (FileParser, error) {
	if b.Parser != nil {
		return b.Parser, nil
	}
	for _, ext := range b.extensions() {
		if pianoroll.DetectFormat("x"+ext) != pianoroll.FormatMIDI {
			return nil, fault.New(fmt.Sprintf("extension %s needs a custom parser", ext), ftag.With(KindInvalidInput))
		}
	}
	return MIDIParser{Options: pianoroll.DefaultOptions()}, nil
}

// Files lists the files the builder would parse, in lexical order
func (b *Builder) Files() ([]string, error) {
	exts := b.extensions()
	match := func(name string) bool {
		return slices.Contains(exts, strings.ToLower(filepath.Ext(name)))
	}

	var files []string
	if !b.Recursive {
		entries, err := os.ReadDir(b.Dir)
		if err != nil {
			return nil, fault.Wrap(err, fmsg.With("failed to read dataset directory"))
		}
		for _, e := range entries {
			if !e.IsDir() && match(e.Name()) {
				files = append(files, filepath.Join(b.Dir, e.Name()))
			}
		}
		return files, nil
	}

	err := filepath.WalkDir(b.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && match(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("failed to walk dataset directory"))
	}
	return files, nil
}

// Build parses every matching file. A file that fails to parse is logged and
// counted in the report, it never aborts the build.
func (b *Builder) Build(ctx context.Context) (*Dataset, Report, error) {
	var report Report
	logger := b.logger()

	parser, err := b.parser()
	if err != nil {
		return nil, report, err
	}

	files, err := b.Files()
	if err != nil {
		return nil, report, err
	}
	report.Found = len(files)
	logger.Info("building dataset", "dir", b.Dir, "files", len(files), "recursive", b.Recursive)

	rolls := []*pianoroll.PianoRoll{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, report, fault.Wrap(err, fmsg.With("dataset build cancelled"))
		}

		roll, err := b.parseFile(parser, path)
		if err != nil {
			perr := &ParseError{Path: path, Err: err}
			report.Failures = append(report.Failures, perr)
			logger.Error("failed to parse file", "path", path, "err", err)
			continue
		}
		report.Parsed++

		if b.Filter != nil && !b.Filter.Keep(roll) {
			report.Filtered++
			logger.Debug("filtered file", "path", path)
			continue
		}
		rolls = append(rolls, roll)
	}

	logger.Info("finished building dataset",
		"parsed", report.Parsed, "failed", report.Failed(), "filtered", report.Filtered)

	return New(rolls, nil), report, nil
}

func (b *Builder) parseFile(parser FileParser, path string) (roll *pianoroll.PianoRoll, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fault.New(fmt.Sprintf("parser panicked: %v", r), ftag.With(KindParse))
		}
	}()

	roll, err = parser.Parse(path)
	if err != nil {
		return nil, Tag(err, "parse failed")
	}
	if roll == nil {
		return nil, fault.New("parser returned no piano-roll", ftag.With(KindParse))
	}

	if b.Metadata != nil {
		md, err := b.Metadata.Metadata(path)
		if err != nil {
			return nil, fault.Wrap(err, fmsg.With("metadata failed"), ftag.With(KindParse))
		}
		if err := roll.AddMetadata(md); err != nil {
			return nil, Tag(err, "metadata rejected")
		}
	}
	if err := roll.AddMetadata(map[string]any{"file_name": filepath.Base(path)}); err != nil {
		return nil, Tag(err, "metadata rejected")
	}

	return roll, nil
}
