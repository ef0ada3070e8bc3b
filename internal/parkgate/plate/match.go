// Package plate holds the tolerant license-plate comparison used to
// reconcile the plate read at exit with the one recorded at entry.
package plate

import (
	"strings"
	"unicode"
)

// MaxMismatches is the number of differing positions still treated as the
// same plate.
const MaxMismatches = 2

// Normalize uppercases s and strips every whitespace rune.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}

// Match reports whether a and b name the same plate under OCR noise.
//
// Empty input never matches. After normalization, identical strings match;
// strings of different length never match; otherwise they match when at
// most MaxMismatches positions differ. Insertions and deletions are not
// aligned, so a dropped character always fails the comparison.
func Match(a, b string) bool {
	if a == "" || b == "" {
		return false
	}

	na := []rune(Normalize(a))
	nb := []rune(Normalize(b))

	if string(na) == string(nb) {
		return true
	}
	if len(na) != len(nb) {
		return false
	}

	diff := 0
	for i := range na {
		if na[i] != nb[i] {
			diff++
			if diff > MaxMismatches {
				return false
			}
		}
	}
	return true
}
