package format

import (
	"bytes"
	"fmt"
	"hash/crc32"

	"github.com/williballenthin/EVTXtract/internal/buf"
)

// ChunkHeader captures the minimal subset of an EVTX chunk header required to
// validate the chunk and iterate its records.
//
// Layout (little-endian), matching the on-disk structure:
//
//	Offset  Size  Description
//	0x00    8     "ElfChnk\x00"
//	0x08    8     Number of the first record stored in this chunk
//	0x10    8     Number of the last record stored in this chunk
//	0x18    4     Offset of the first record within the chunk
//	0x20    4     Offset of the last record within the chunk
//	0x28    4     Header size; valid range [0x80, 0x200]
//	0x30    4     Free-space offset: end of the last record's data, start of
//	              the region covered by the data checksum
//	0x34    4     Data checksum (CRC32)
//	0x7C    4     Header checksum (CRC32)
//
// The header checksum covers bytes [0x00,0x78) and [0x80,0x200); the data
// checksum covers the record payload from 0x200 to the free-space offset.
type ChunkHeader struct {
	FirstRecordNumber uint64
	LastRecordNumber  uint64
	HeaderSize        uint32
	FreeSpaceOffset   uint32
	HeaderChecksum    uint32
	DataChecksum      uint32
}

// ParseChunkHeader validates and extracts the chunk header at the start of b.
// b must be at least ChunkSize bytes (the caller slices the candidate chunk
// out of the larger buffer before calling).
func ParseChunkHeader(b []byte) (ChunkHeader, error) {
	if len(b) < ChunkSize {
		return ChunkHeader{}, fmt.Errorf("chunk header: %w", ErrTruncated)
	}
	if !bytes.Equal(b[:ChunkSignatureSize], ChunkSignature) {
		return ChunkHeader{}, fmt.Errorf("chunk header: %w", ErrSignatureMismatch)
	}
	headerSize := buf.U32LE(b[ChunkHeaderSizeOffset:])
	if headerSize < ChunkHeaderSizeMin || headerSize > ChunkHeaderSizeMax {
		return ChunkHeader{}, fmt.Errorf("chunk header: %w: header size 0x%x", ErrBadSize, headerSize)
	}
	return ChunkHeader{
		FirstRecordNumber: buf.U64LE(b[ChunkFirstRecordNumberOffset:]),
		LastRecordNumber:  buf.U64LE(b[ChunkLastRecordNumberOffset:]),
		HeaderSize:        headerSize,
		FreeSpaceOffset:   buf.U32LE(b[ChunkFreeSpaceOffsetOffset:]),
		HeaderChecksum:    buf.U32LE(b[ChunkHeaderCRCOffset:]),
		DataChecksum:      buf.U32LE(b[ChunkDataCRCOffset:]),
	}, nil
}

// VerifyChunkChecksums recomputes both CRC32 checksums native to the EVTX
// chunk format and reports whether they match the stored values. b must be
// exactly (or at least) ChunkSize bytes.
func VerifyChunkChecksums(b []byte) (bool, error) {
	if len(b) < ChunkSize {
		return false, fmt.Errorf("chunk checksum: %w", ErrTruncated)
	}
	h, err := ParseChunkHeader(b)
	if err != nil {
		return false, err
	}

	header := crc32.NewIEEE()
	header.Write(b[:ChunkHeaderCRCRegionLen])
	header.Write(b[ChunkHeaderCRCRegion2Start:0x200])
	if header.Sum32() != h.HeaderChecksum {
		return false, nil
	}

	if h.FreeSpaceOffset < 0x200 || h.FreeSpaceOffset > ChunkSize {
		return false, nil
	}

	data := crc32.NewIEEE()
	data.Write(b[0x200:h.FreeSpaceOffset])
	if data.Sum32() != h.DataChecksum {
		return false, nil
	}

	return true, nil
}
