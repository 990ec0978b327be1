package evtx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeTransposedSwapsAngleBrackets(t *testing.T) {
	assert.Equal(t, "a &gt; b &lt; c", escapeTransposed("a < b > c"))
}

// TestGUIDReadsFromRootOffsetNotCursor pins the quirk that decodeGUID
// must read its 16 bytes from the record root's start offset, not from
// wherever the value's own descriptor placed it. A buffer with two
// distinct 16-byte regions makes the two behaviors observably different.
func TestGUIDReadsFromRootOffsetNotCursor(t *testing.T) {
	buf := make([]byte, 64)
	rootGUIDBytes := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	copy(buf[0:16], rootGUIDBytes)
	// Bytes at the value's own cursor position are deliberately different.
	copy(buf[40:56], []byte{0xff, 0xee, 0xdd, 0xcc, 0xbb, 0xaa, 0x99, 0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11, 0x00})

	v, err := decodeValue(buf, 0x0F, 40, 16, 0)
	require.NoError(t, err)
	assert.Equal(t, "03020100-0504-0706-0809-0a0b0c0d0e0f", v.Raw)
}

func TestDecodeSIDEmitsDecimalSubAuthorities(t *testing.T) {
	// version=1, numElements=2, authority=5, sub-authorities 32 and 544.
	slice := []byte{
		1, 2, 0, 0, 0, 0, 0, 5,
		32, 0, 0, 0,
		32, 2, 0, 0,
	}
	got, err := decodeSID(slice)
	require.NoError(t, err)
	assert.Equal(t, "S-1-5-32-544", got)
}

func TestDecodeSIDTruncatedHeaderErrors(t *testing.T) {
	_, err := decodeSID([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDecodeWStringArraySplitsOnDoubleAndTripleNUL(t *testing.T) {
	// Two UTF-16LE strings "ab" and "cd" separated by a double-NUL
	// boundary, with a trailing empty fragment dropped.
	raw := append([]byte{'a', 0, 'b', 0}, 0, 0)
	raw = append(raw, 'c', 0, 'd', 0)
	raw = append(raw, 0, 0, 0)

	parts, err := decodeWStringArray(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"ab", "cd"}, parts)
}

func TestReversedHexPrefixesAndReversesBytes(t *testing.T) {
	assert.Equal(t, "0x0201", reversedHex([]byte{0x01, 0x02}))
}

func TestDecodeValueUnknownTypeErrors(t *testing.T) {
	_, err := decodeValue([]byte{0, 0, 0, 0}, 0x7F, 0, 4, 0)
	assert.Error(t, err)
}

func TestDecodeValueSizeTypeRejectsBadWidth(t *testing.T) {
	_, err := decodeValue(make([]byte, 8), 0x10, 0, 3, 0)
	assert.Error(t, err)
}
