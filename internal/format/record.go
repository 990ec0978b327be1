package format

import (
	"fmt"

	"github.com/williballenthin/EVTXtract/internal/buf"
)

// RecordHeader is the fixed prefix shared by every EVTX record, whether it
// lives inside a valid chunk or was carved as an orphan.
type RecordHeader struct {
	Size      uint32
	Number    uint64
	Timestamp uint64 // raw FILETIME; see FiletimeToTime
}

// ParseRecordHeader validates the record magic and the matching prefix/suffix
// size fields, then extracts the fixed header. b is the candidate record
// starting at its magic; it need not extend past the record's declared size.
func ParseRecordHeader(b []byte) (RecordHeader, error) {
	if len(b) < 8 {
		return RecordHeader{}, fmt.Errorf("record header: %w", ErrTruncated)
	}
	magic := buf.U32LE(b[RecordMagicOffset:])
	if magic != RecordMagic {
		return RecordHeader{}, fmt.Errorf("record header: %w", ErrSignatureMismatch)
	}

	size := buf.U32LE(b[RecordSizeOffset:])
	if size < RecordSizeMin || size > RecordSizeMax {
		return RecordHeader{}, fmt.Errorf("record header: %w: size 0x%x", ErrBadSize, size)
	}
	if uint64(len(b)) < uint64(size) {
		return RecordHeader{}, fmt.Errorf("record header: %w", ErrTruncated)
	}

	trailer := buf.U32LE(b[size-4:])
	if trailer != size {
		return RecordHeader{}, fmt.Errorf("record header: %w: prefix/suffix size mismatch", ErrBadSize)
	}

	return RecordHeader{
		Size:      size,
		Number:    buf.U64LE(b[RecordNumberOffset:]),
		Timestamp: buf.U64LE(b[RecordTimestampOffset:]),
	}, nil
}
