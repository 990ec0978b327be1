package evtx

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

func TestRootHasResidentTemplateNumSubsOver100IsResidentImmediately(t *testing.T) {
	buf := make([]byte, 64)
	putU32(buf, 10, 101)
	assert.True(t, rootHasResidentTemplate(buf, 0, 64))
}

func TestRootHasResidentTemplateAllZeroDescriptorsAreNonResident(t *testing.T) {
	buf := make([]byte, 64)
	putU32(buf, 10, 2) // maybeNumSubs=2, within bounds
	// Descriptor slots begin at offset 14, 4 bytes each: [size lo, size
	// hi, type, zero].
	buf[16] = 1 // TypeWStringUTF16, valid
	buf[17] = 0 // zero byte, zero
	buf[20] = 8 // TypeUDword, valid
	buf[21] = 0 // zero byte, zero
	assert.False(t, rootHasResidentTemplate(buf, 0, 64))
}

func TestRootHasResidentTemplateNonzeroZeroByteIsResident(t *testing.T) {
	buf := make([]byte, 64)
	putU32(buf, 10, 2)
	buf[16] = 1
	buf[17] = 7 // nonzero: triggers resident
	assert.True(t, rootHasResidentTemplate(buf, 0, 64))
}

func TestRootHasResidentTemplateInvalidTypeByteIsResident(t *testing.T) {
	buf := make([]byte, 64)
	putU32(buf, 10, 2)
	buf[16] = 0x7F // not a recognized substitution type
	buf[17] = 0
	buf[20] = 8
	buf[21] = 0
	assert.True(t, rootHasResidentTemplate(buf, 0, 64))
}

func TestRootHasResidentTemplateInsufficientBufferIsNonResident(t *testing.T) {
	buf := make([]byte, 20)
	putU32(buf, 10, 2)
	assert.False(t, rootHasResidentTemplate(buf, 0, 20))
}

func TestExtractRootSubstitutionsNonResident(t *testing.T) {
	buf := make([]byte, 64)
	putU32(buf, 10, 1) // numSubs=1, also read again as the real numSubs
	// Descriptor at offset 14: size=4, type=TypeUDword(8), zero=0.
	buf[14] = 4
	buf[16] = 8
	putU32(buf, 18, 42) // the UDword value itself

	subs, err := extractRootSubstitutions(buf, 0, 64, 0)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, byte(8), subs[0].Type)
	assert.Equal(t, uint32(42), subs[0].Value.Raw)
}

func TestExtractRootSubstitutionsRejectsOversizedNumSubs(t *testing.T) {
	buf := make([]byte, 64)
	putU32(buf, 10, 101) // forces resident, per the >100 rule
	// Resident layout from offset 0: preamble(6) + next_offset(4) = 10,
	// then a 16-byte guid occupies [10:26), then templateLength at
	// [26:30), then (zero-length) template body, then the real numSubs.
	putU32(buf, 26, 0)   // zero-length template body
	putU32(buf, 30, 150) // the real numSubs, read after the template

	_, err := extractRootSubstitutions(buf, 0, 64, 0)
	assert.Error(t, err)
}

func TestExtractRootSubstitutionsRecursionDepthGuard(t *testing.T) {
	_, err := extractRootSubstitutions(make([]byte, 64), 0, 64, maxBXmlRecursionDepth+1)
	assert.Error(t, err)
}

// TestExtractRootSubstitutionsResidentTemplateByteMath pins the exact
// byte advance the resident branch uses before reading template_length:
// preamble(6) + next_offset(4) + guid(0x10) = 26 bytes from offset, landing
// template_length at offset+26 and the real num_subs right after the
// (here zero-length) template body at offset+30. If that advance ever
// changes, the descriptor and value built below would be misread and this
// test would fail.
func TestExtractRootSubstitutionsResidentTemplateByteMath(t *testing.T) {
	buf := make([]byte, 64)
	putU32(buf, 10, 200) // maybeNumSubs sentinel: forces the resident path
	putU32(buf, 26, 0)   // template_length = 0
	putU32(buf, 30, 1)   // real num_subs, read right after the template body
	buf[34] = 4          // descriptor: size=4
	buf[36] = 8          // descriptor: type=TypeUDword
	putU32(buf, 38, 999) // the UDword value itself

	subs, err := extractRootSubstitutions(buf, 0, 64, 0)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, byte(8), subs[0].Type)
	assert.Equal(t, uint32(999), subs[0].Value.Raw)
}
