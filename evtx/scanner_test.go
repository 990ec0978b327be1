package evtx

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williballenthin/EVTXtract/internal/format"
)

// validChunkAt builds a structurally valid, empty (zero-record) chunk at
// the given offset within a larger buffer, for exercising the scanner
// without needing a real EVTX fixture file.
func validChunkAt(buf []byte, offset int) {
	chunk := buf[offset : offset+format.ChunkSize]
	copy(chunk[:format.ChunkSignatureSize], format.ChunkSignature)
	putU32(chunk, format.ChunkHeaderSizeOffset, format.ChunkHeaderSizeMin)
	putU32(chunk, format.ChunkFreeSpaceOffsetOffset, format.ChunkSize)

	// The data checksum field lies inside the header checksum's region, so
	// it must be written before the header checksum is computed.
	data := crc32.NewIEEE()
	data.Write(chunk[0x200:format.ChunkSize])
	putU32(chunk, format.ChunkDataCRCOffset, data.Sum32())

	header := crc32.NewIEEE()
	header.Write(chunk[:format.ChunkHeaderCRCRegionLen])
	header.Write(chunk[format.ChunkHeaderCRCRegion2Start:0x200])
	putU32(chunk, format.ChunkHeaderCRCOffset, header.Sum32())
}

func TestFindChunksLocatesValidChunkAndSkipsGarbageMagic(t *testing.T) {
	buf := make([]byte, 3*format.ChunkSize)
	// A bare signature with no valid header/checksums elsewhere in the
	// buffer must not be reported.
	copy(buf[format.ChunkSize:], format.ChunkSignature)
	validChunkAt(buf, 2*format.ChunkSize)

	var found []int
	for off := range FindChunks(buf) {
		found = append(found, off)
	}
	require.Len(t, found, 1)
	assert.Equal(t, 2*format.ChunkSize, found[0])
}

func TestFindRecordsLocatesCandidateAndSkipsGarbageMagic(t *testing.T) {
	buf := make([]byte, 128)
	copy(buf[10:], format.RecordSignature) // bare magic, no valid size framing
	putU32(buf, 40, format.RecordMagic)
	putU32(buf, 44, 64) // size
	putU32(buf, 40+64-4, 64) // trailer, at absolute offset 100

	var found []int
	for off := range FindRecords(buf) {
		found = append(found, off)
	}
	require.Len(t, found, 1)
	assert.Equal(t, 40, found[0])
}

func TestFindAllYieldsAscendingNonOverlappingOffsets(t *testing.T) {
	buf := []byte("aXaXaXa")
	var offsets []int
	for off := range FindAll(buf, []byte("a")) {
		offsets = append(offsets, off)
	}
	assert.Equal(t, []int{0, 2, 4, 6}, offsets)
}
