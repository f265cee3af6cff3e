package services

import (
	"fmt"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// HeaderMismatch describes a header cell that differs from the declared label.
type HeaderMismatch struct {
	Column     int
	Expected   string
	Found      string
	Suggestion string
}

func (m HeaderMismatch) String() string {
	s := fmt.Sprintf("column %d: expected %q, found %q", m.Column, m.Expected, m.Found)
	if m.Suggestion != "" && m.Suggestion != m.Found {
		s += fmt.Sprintf(" (%q looks closest)", m.Suggestion)
	}
	return s
}

// CheckHeader compares the sheet header with the declared labels. Columns are
// read by position, so mismatches only warrant a warning; Suggestion names
// the found header closest to the expected label.
func CheckHeader(expected, found []string) []HeaderMismatch {
	var out []HeaderMismatch
	for i, want := range expected {
		got := ""
		if i < len(found) {
			got = found[i]
		}
		if got == want {
			continue
		}
		m := HeaderMismatch{Column: i, Expected: want, Found: got}
		if ranks := fuzzy.RankFindNormalizedFold(want, found); len(ranks) > 0 {
			best := ranks[0]
			for _, r := range ranks[1:] {
				if r.Distance < best.Distance {
					best = r
				}
			}
			m.Suggestion = best.Target
		}
		out = append(out, m)
	}
	return out
}
