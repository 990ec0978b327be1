package evtx

import (
	"fmt"

	"github.com/williballenthin/EVTXtract/internal/buf"
	"github.com/williballenthin/EVTXtract/internal/format"
)

// Substitution is one decoded (type, value) pair of a root node's
// substitution array.
type Substitution struct {
	Type  byte
	Value Value
}

const (
	maxSubstitutionCount = 100
	streamStartToken     = 0x0F
	maxBXmlRecursionDepth = 16
)

// rootHasResidentTemplate guesses whether the root node at offset embeds
// its template inline, without any surrounding chunk to consult. This
// heuristic only runs for orphan records; a record read with full chunk
// context resolves its template exactly instead (see chunkreader.go).
func rootHasResidentTemplate(b []byte, offset, maxOffset int) bool {
	ofs := offset
	if len(b) > ofs && b[ofs] == streamStartToken {
		ofs += 4
	}
	ofs += 6 // template-offset preamble

	ofs += 4 // next_offset or num_subs
	maybeNumSubs, ok := readU32(b, ofs)
	if !ok {
		return false
	}
	if maybeNumSubs > maxSubstitutionCount {
		return true
	}
	ofs += 4 // template_id or first descriptor size

	probes := maybeNumSubs
	if probes == 0 {
		probes = 2
	}
	if probes > 4 {
		probes = 4
	}

	if maxOffset < ofs+4+4*int(probes) {
		return false
	}

	for i := 0; i < int(probes); i++ {
		zeroByte, ok := readByte(b, ofs+3+4*i)
		if !ok || zeroByte != 0 {
			return true
		}
	}
	for i := 0; i < int(probes); i++ {
		typeByte, ok := readByte(b, ofs+2+4*i)
		if !ok || !format.ValidSubstitutionType(typeByte) {
			return true
		}
	}
	return false
}

func readU32(b []byte, off int) (uint32, bool) {
	s, ok := buf.Slice(b, off, 4)
	if !ok {
		return 0, false
	}
	return buf.U32LE(s), true
}

func readByte(b []byte, off int) (byte, bool) {
	s, ok := buf.Slice(b, off, 1)
	if !ok {
		return 0, false
	}
	return s[0], true
}

// extractRootSubstitutions parses a root node's substitution array starting
// at offset, never reading past maxOffset. depth guards against unbounded
// BXml (type 0x21) recursion.
func extractRootSubstitutions(b []byte, offset, maxOffset int, depth int) ([]Substitution, error) {
	if depth > maxBXmlRecursionDepth {
		return nil, &ParseError{Kind: UnknownNodeType, Offset: uint64(offset), Msg: "BXml recursion too deep"}
	}

	ofs := offset
	if len(b) > ofs && b[ofs] == streamStartToken {
		ofs += 4
	}
	ofs += 6 // template-offset preamble

	if rootHasResidentTemplate(b, offset, maxOffset) {
		ofs += 4    // next_offset
		ofs += 0x10 // guid
		templateLength, ok := readU32(b, ofs)
		if !ok {
			return nil, &MaxOffsetReachedError{Offset: uint64(ofs + 4), MaxOffset: uint64(maxOffset)}
		}
		ofs += 4
		ofs += int(templateLength)
	} else {
		ofs += 4 // num_subs
	}

	numSubs, ok := readU32(b, ofs)
	if !ok {
		return nil, &MaxOffsetReachedError{Offset: uint64(ofs), MaxOffset: uint64(maxOffset)}
	}
	if numSubs > maxSubstitutionCount {
		return nil, &ParseError{Kind: UnexpectedSubstitutionCount, Offset: uint64(ofs), Msg: fmt.Sprintf("num_subs=%d", numSubs)}
	}
	ofs += 4

	type descriptor struct {
		size uint16
		typ  byte
	}
	descriptors := make([]descriptor, 0, numSubs)
	for i := uint32(0); i < numSubs; i++ {
		dslice, ok := buf.Slice(b, ofs, 4)
		if !ok {
			return nil, &MaxOffsetReachedError{Offset: uint64(ofs + 4), MaxOffset: uint64(maxOffset)}
		}
		size := buf.U16LE(dslice[0:2])
		typ := dslice[2]
		if !format.ValidSubstitutionType(typ) {
			return nil, &ParseError{Kind: InvalidSubstitutionType, Offset: uint64(ofs), Msg: fmt.Sprintf("type=0x%x", typ)}
		}
		descriptors = append(descriptors, descriptor{size: size, typ: typ})
		ofs += 4
	}

	result := make([]Substitution, 0, len(descriptors))
	for i, d := range descriptors {
		if ofs > maxOffset {
			return nil, &MaxOffsetReachedError{Offset: uint64(ofs), MaxOffset: uint64(maxOffset)}
		}

		if d.typ == format.TypeBXml {
			child, err := extractRootSubstitutions(b, ofs, maxOffset, depth+1)
			if err != nil {
				return nil, err
			}
			result = append(result, child...)
			ofs += int(d.size)
			continue
		}

		v, err := decodeValue(b, d.typ, ofs, int(d.size), offset)
		if err != nil {
			return nil, fmt.Errorf("substitution %d/%d: %w", i+1, len(descriptors), err)
		}
		result = append(result, Substitution{Type: d.typ, Value: v})
		ofs += int(d.size)
	}

	return result, nil
}
