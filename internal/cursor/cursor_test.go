package cursor

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 2, 199, 200, 500, 12345, 1 << 40} {
		assert.Equal(t, n, Decode(Encode(n)), "offset %d", n)
	}
}

func TestDecodeMalformed(t *testing.T) {
	junk := []string{
		"",
		"   ",
		"!!!not-base64",
		base64.RawURLEncoding.EncodeToString([]byte("42")),
		base64.RawURLEncoding.EncodeToString([]byte("o:-5")),
		base64.RawURLEncoding.EncodeToString([]byte("o:abc")),
		base64.RawURLEncoding.EncodeToString([]byte("o:99999999999999999999999")),
	}
	for _, s := range junk {
		assert.Equal(t, 0, Decode(s), "token %q", s)
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(""))
	assert.Equal(t, DefaultLimit, ClampLimit("lots"))
	assert.Equal(t, 1, ClampLimit("0"))
	assert.Equal(t, 1, ClampLimit("-10"))
	assert.Equal(t, 50, ClampLimit("50"))
	assert.Equal(t, MaxLimit, ClampLimit("100000"))
}

func TestPage(t *testing.T) {
	items, next := Page([]int{1, 2, 3}, 0, 2)
	assert.Equal(t, []int{1, 2}, items)
	assert.Equal(t, 2, Decode(next))

	items, next = Page([]int{3}, 2, 2)
	assert.Equal(t, []int{3}, items)
	assert.Empty(t, next)
}
