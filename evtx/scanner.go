package evtx

import (
	"bytes"

	"github.com/williballenthin/EVTXtract/evtx/logger"
	"github.com/williballenthin/EVTXtract/internal/format"
)

// FindAll returns an ascending iterator over every offset at which needle
// occurs in buf. Non-overlapping iteration is acceptable here because
// neither the chunk nor the record magic can self-overlap.
func FindAll(b []byte, needle []byte) func(yield func(int) bool) {
	return func(yield func(int) bool) {
		offset := 0
		for {
			idx := bytes.Index(b[offset:], needle)
			if idx < 0 {
				return
			}
			pos := offset + idx
			if !yield(pos) {
				return
			}
			offset = pos + 1
		}
	}
}

// IsChunkHeader reports whether a structurally valid, checksum-verified
// chunk header starts at offset off in b.
func IsChunkHeader(b []byte, off int) bool {
	if len(b) < off+0x2C {
		return false
	}
	chunkSlice := b[off:]
	if len(chunkSlice) < format.ChunkSize {
		return false
	}
	header, err := format.ParseChunkHeader(chunkSlice[:format.ChunkSize])
	if err != nil {
		logger.L.Debug("chunk header failed to parse", "offset", off, "err", err)
		return false
	}
	_ = header

	ok, err := format.VerifyChunkChecksums(chunkSlice[:format.ChunkSize])
	if err != nil {
		logger.L.Debug("chunk checksum verification failed", "offset", off, "err", err)
		return false
	}
	return ok
}

// IsRecord reports whether a structurally valid record header (magic, size,
// and matching trailer) starts at offset off in b.
func IsRecord(b []byte, off int) bool {
	if len(b) < off+8 {
		return false
	}
	_, err := format.ParseRecordHeader(b[off:])
	return err == nil
}

// FindChunks yields ascending offsets of valid EVTX chunks in b.
func FindChunks(b []byte) func(yield func(int) bool) {
	return func(yield func(int) bool) {
		for off := range FindAll(b, format.ChunkSignature) {
			if IsChunkHeader(b, off) {
				if !yield(off) {
					return
				}
			}
		}
	}
}

// FindRecords yields ascending offsets of candidate EVTX records in b
// (records that pass IsRecord, whether or not they live inside a chunk
// that was also separately discovered by FindChunks).
func FindRecords(b []byte) func(yield func(int) bool) {
	return func(yield func(int) bool) {
		for off := range FindAll(b, format.RecordSignature) {
			if IsRecord(b, off) {
				if !yield(off) {
					return
				}
			}
		}
	}
}
