package watermark

import (
	"strings"

	"golang.org/x/text/unicode/bidi"
)

// visualOrder reorders s for left-to-right drawing. Contextual shaping is not applied.
func visualOrder(s string) string {
	dir, ok := paragraphDirection(s)
	if !ok {
		return s
	}
	var p bidi.Paragraph
	if _, err := p.SetString(s, bidi.DefaultDirection(dir)); err != nil {
		return s
	}
	o, err := p.Order()
	if err != nil {
		return s
	}
	// Runs come back in logical order; a right-to-left paragraph lays them out from the right.
	n := o.NumRuns()
	var b strings.Builder
	for k := 0; k < n; k++ {
		i := k
		if dir == bidi.RightToLeft {
			i = n - 1 - k
		}
		run := o.Run(i)
		text := run.String()
		if run.Direction() == bidi.RightToLeft {
			text = reverse(text)
		}
		b.WriteString(text)
	}
	return b.String()
}

// paragraphDirection returns the direction of the first strong character and
// whether s contains any right-to-left text at all.
func paragraphDirection(s string) (bidi.Direction, bool) {
	dir := bidi.LeftToRight
	first := true
	hasRTL := false
	for _, r := range s {
		props, _ := bidi.LookupRune(r)
		switch props.Class() {
		case bidi.R, bidi.AL:
			hasRTL = true
			if first {
				dir = bidi.RightToLeft
				first = false
			}
		case bidi.L:
			first = false
		}
	}
	return dir, hasRTL
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
