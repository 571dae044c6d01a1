package sorter

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// numberWidth is the fixed width every digit run is padded to.
// Runs holding values above 999999 keep their natural width and no longer order numerically.
const numberWidth = 6

// ExpandNumbers rewrites every maximal run of decimal digits in tag as a zero-padded run of
// numberWidth digits. Leading zeros of a run are dropped before padding, so "007" and "7" expand
// identically. All other bytes are copied verbatim and in place.
//
// Example: ExpandNumbers("123.1-X") == "000123.000001-X".
func ExpandNumbers(tag string) string {
	var out strings.Builder

	out.Grow(len(tag) + numberWidth)

	for i := 0; i < len(tag); {
		if !isDigit(tag[i]) {
			out.WriteByte(tag[i])
			i++

			continue
		}

		start := i
		for i < len(tag) && isDigit(tag[i]) {
			i++
		}

		run := strings.TrimLeft(tag[start:i], "0")
		if run == "" {
			run = "0"
		}

		if pad := numberWidth - len(run); pad > 0 {
			out.WriteString(strings.Repeat("0", pad))
		}

		out.WriteString(run)
	}

	return out.String()
}

// Biggest returns whichever of first and second has the lexicographically greater expanded
// form. Ties return second.
func Biggest(first, second string) string {
	if ExpandNumbers(first) > ExpandNumbers(second) {
		return first
	}

	return second
}

// Latest folds tags through Biggest, seeded with the empty string.
//
// The empty seed expands to the empty string, which sorts before any tag, so any non-empty
// tag replaces it. An empty input yields "".
func Latest(tags []string) string {
	latest := ""
	for _, tag := range tags {
		latest = Biggest(latest, tag)
	}

	logrus.WithFields(logrus.Fields{
		"candidates": len(tags),
		"latest":     latest,
	}).Debug("Resolved latest tag")

	return latest
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
