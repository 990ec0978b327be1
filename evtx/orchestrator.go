package evtx

import (
	"github.com/williballenthin/EVTXtract/evtx/logger"
	"github.com/williballenthin/EVTXtract/internal/format"
)

// Complete is a fully reconstructed record, its template resolved either
// from chunk context (pass 1) or by matching against the TemplateStore
// (pass 2).
type Complete struct {
	Offset  uint64
	EventID uint32
	XML     string
}

// Incomplete is a record whose substitutions were recovered but whose
// template could not be uniquely identified; its raw substitutions are
// preserved rather than discarded, so a caller can still inspect what was
// found.
type Incomplete struct {
	Offset        uint64
	EventID       uint32
	Substitutions []Substitution
}

// Record is the sum type an Extract pull-sequence yields: exactly one of
// Complete or Incomplete is non-nil.
type Record struct {
	Complete   *Complete
	Incomplete *Incomplete
}

// minSubstitutionsForOrphan is the floor below which an orphan record's
// substitution array cannot plausibly carry a System block (computer name,
// event id, ...).
const minSubstitutionsForOrphan = 4

// Extract runs the two-pass reconstruction pipeline over buf and returns a
// pull-sequence of records. Pass 1 walks every valid chunk, yielding one
// Complete per chunk record and populating the TemplateStore along the
// way. Pass 2 walks the whole buffer for record magic, skips anything
// already covered by pass 1, and resolves the rest against the templates
// pass 1 collected.
func Extract(buf []byte) func(yield func(Record) bool) {
	return func(yield func(Record) bool) {
		store := NewTemplateStore()
		seen := make(map[int]bool)

		for chunkOffset := range FindChunks(buf) {
			for _, rec := range ReadChunkRecords(buf, chunkOffset) {
				seen[rec.Offset] = true
				store.Insert(rec.Template)
				if !yield(Record{Complete: &Complete{
					Offset:  uint64(rec.Offset),
					EventID: rec.EventID,
					XML:     rec.XML,
				}}) {
					return
				}
			}
		}

		for offset := range FindRecords(buf) {
			if seen[offset] {
				continue
			}
			if !yield(resolveOrphan(buf, offset, store)) {
				return
			}
		}
	}
}

// resolveOrphan parses a candidate orphan record's substitutions, gives up
// (as an Incomplete result) if there are too few to plausibly carry a
// System block, then matches against the template store.
func resolveOrphan(buf []byte, offset int, store *TemplateStore) Record {
	header, err := format.ParseRecordHeader(sliceFrom(buf, offset))
	if err != nil {
		logger.Info("orphan record header invalid", "offset", offset, "err", err)
		return Record{Incomplete: &Incomplete{Offset: uint64(offset)}}
	}

	rootOffset := offset + format.RecordRootOffset
	maxOffset := offset + int(header.Size)
	subs, err := extractRootSubstitutions(buf, rootOffset, maxOffset, 0)
	if err != nil {
		logger.Info("orphan substitution parse failed", "offset", offset, "err", err)
		return Record{Incomplete: &Incomplete{Offset: uint64(offset)}}
	}
	if len(subs) < minSubstitutionsForOrphan {
		return Record{Incomplete: &Incomplete{Offset: uint64(offset), Substitutions: subs}}
	}

	eventID, _ := subs[3].Value.AsUint32()
	result := MatchInStore(store, eventID, subs)
	if !result.Matched {
		return Record{Incomplete: &Incomplete{Offset: uint64(offset), EventID: eventID, Substitutions: subs}}
	}

	xml := InsertSubstitutions(result.Template.XML, subs)
	return Record{Complete: &Complete{Offset: uint64(offset), EventID: eventID, XML: xml}}
}

// sliceFrom returns buf[offset:], or nil if offset is out of range, so
// format.ParseRecordHeader can apply its own bounds checks uniformly.
func sliceFrom(buf []byte, offset int) []byte {
	if offset < 0 || offset > len(buf) {
		return nil
	}
	return buf[offset:]
}
