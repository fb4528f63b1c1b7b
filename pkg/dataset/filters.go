package dataset

import "github.com/james-see/midiroll/pkg/pianoroll"

// MinSteps keeps rolls with at least n steps
func MinSteps(n int) Filter {
	return FilterFunc(func(p *pianoroll.PianoRoll) bool { return p.Len() >= n })
}

// MaxSteps keeps rolls with at most n steps
func MaxSteps(n int) Filter {
	return FilterFunc(func(p *pianoroll.PianoRoll) bool { return p.Len() <= n })
}

// All keeps rolls accepted by every filter
func All(filters ...Filter) Filter {
	return FilterFunc(func(p *pianoroll.PianoRoll) bool {
		for _, f := range filters {
			if !f.Keep(p) {
				return false
			}
		}
		return true
	})
}
