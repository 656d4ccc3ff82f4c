// Package cursor encodes read offsets into opaque page tokens.
package cursor

import (
	"encoding/base64"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 200
	MaxLimit     = 500

	prefix = "o:"
)

// Encode returns the token for offset. Negative offsets encode as 0.
func Encode(offset int) string {
	if offset < 0 {
		offset = 0
	}
	return base64.RawURLEncoding.EncodeToString([]byte(prefix + strconv.Itoa(offset)))
}

// Decode returns the offset carried by token. Missing or malformed tokens
// decode to 0.
func Decode(token string) int {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0
	}
	s, ok := strings.CutPrefix(string(raw), prefix)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ClampLimit parses a requested page size, defaulting to DefaultLimit and
// clamping to [1, MaxLimit].
func ClampLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultLimit
	}
	if n < 1 {
		return 1
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Page trims a limit+1 fetch to limit rows. next is the cursor for the
// following page, or "" at the end of results.
func Page[T any](rows []T, offset, limit int) (items []T, next string) {
	if len(rows) > limit {
		return rows[:limit], Encode(offset + limit)
	}
	return rows, ""
}
