package geocode

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var fold = cases.Fold()

// Normalize produces the cache key for an address: NFKC-normalized,
// case-folded, trimmed, with internal whitespace runs collapsed to one space.
func Normalize(address string) string {
	s := norm.NFKC.String(address)
	s = fold.String(s)
	return strings.Join(strings.Fields(s), " ")
}
