package pianoroll

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
)

// StepBoundary is the token that closes the pending chord
const StepBoundary = "<T>"

// FromSequence builds a PianoRoll from a flat token sequence. Integer tokens
// within 0-127 are pitches of the pending chord, StepBoundary closes it and
// every other token is ignored. Tokens after the last boundary are dropped.
//
// Tokens carry no articulation, so every decoded note is Staccato.
func FromSequence(tokens []string) *PianoRoll {
	p := New()

	var chord []uint8
	for _, tok := range tokens {
		if tok == StepBoundary {
			p.Roll = append(p.Roll, seqChord(chord))
			chord = chord[:0]
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil || n < 0 || n > 127 {
			continue
		}
		chord = append(chord, uint8(n))
	}

	return p
}

func seqChord(pitches []uint8) Chord {
	sorted := slices.Clone(pitches)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	chord := make(Chord, 0, len(sorted))
	for _, pitch := range sorted {
		chord = append(chord, Note{Pitch: pitch, Art: Staccato})
	}
	return chord
}

// ReadSequence reads whitespace separated tokens and decodes them
func ReadSequence(r io.Reader) (*PianoRoll, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	var tokens []string
	for sc.Scan() {
		tokens = append(tokens, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read token sequence: %w", err)
	}
	return FromSequence(tokens), nil
}

// ReadSequenceFile reads a token sequence file
func ReadSequenceFile(filename string) (*PianoRoll, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadSequence(f)
}

// Sequence flattens the roll back into tokens, one boundary per step
func (p *PianoRoll) Sequence() []string {
	var tokens []string
	for _, chord := range p.Roll {
		for _, pitch := range chord.Pitches() {
			tokens = append(tokens, strconv.Itoa(int(pitch)))
		}
		tokens = append(tokens, StepBoundary)
	}
	return tokens
}
