package spreadsheet

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type cellKind int

const (
	cellEmpty cellKind = iota
	cellText
	cellNumber
	cellBool
	cellFormula
	cellError
	// cellUnreadable marks a cell whose value the decoder cannot recover;
	// raw carries the reason.
	cellUnreadable
)

// cell is the format-independent view of one spreadsheet cell.
type cell struct {
	kind cellKind
	raw  string
}

// text renders c the way every reader reports it: numbers in "0" pattern,
// booleans as true/false, formulas as their source, errors as their code.
// ASCII whitespace is removed from the result, then leading and trailing
// control characters are trimmed. Other Unicode spaces such as U+3000 are kept.
func (c cell) text() string {
	var s string
	switch c.kind {
	case cellEmpty:
		return ""
	case cellNumber:
		s = formatNumber(c.raw)
	case cellBool:
		s = formatBool(c.raw)
	default:
		s = c.raw
	}
	return stripSpace(s)
}

// formatNumber applies the "0" decimal pattern: round half-even to an
// integer, no grouping, no decimal point. Non-numeric input is returned as is.
func formatNumber(raw string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	out := d.RoundBank(0).String()
	if out == "-0" {
		return "0"
	}
	return out
}

func formatBool(raw string) string {
	switch strings.TrimSpace(raw) {
	case "1":
		return "true"
	case "0":
		return "false"
	}
	if b, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
		return strconv.FormatBool(b)
	}
	return raw
}

func stripSpace(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\v', '\f', '\r':
			return -1
		}
		return r
	}, s)
	return strings.TrimFunc(s, func(r rune) bool { return r <= ' ' })
}

// looksLikeRenderedFloat reports whether s is a decimal rendering such as
// "1500.0" or "1.5E3" rather than plain digits.
func looksLikeRenderedFloat(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, ".eE") {
		return false
	}
	_, err := decimal.NewFromString(s)
	return err == nil
}
