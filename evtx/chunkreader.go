package evtx

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/williballenthin/EVTXtract/evtx/logger"
	"github.com/williballenthin/EVTXtract/internal/buf"
	"github.com/williballenthin/EVTXtract/internal/format"
)

// ChunkRecord is one fully-rendered record read out of a valid chunk,
// alongside the template that produced it — everything
// the Template Extractor needs without re-parsing.
type ChunkRecord struct {
	Offset   int
	EventID  uint32
	XML      string
	Template Template
}

// templateDef is a template body cached for the lifetime of one chunk,
// keyed by the template id its TemplateInstance token names.
type templateDef struct {
	xml          string
	placeholders []Placeholder
}

// ReadChunkRecords iterates every record in the valid chunk starting at
// chunkOffset, in on-disk order, rendering each to XML and extracting (or
// reusing) its template. Per-record failures are logged at info level and
// skipped; they never abort the chunk.
func ReadChunkRecords(b []byte, chunkOffset int) []ChunkRecord {
	templates := make(map[uint32]templateDef)
	var out []ChunkRecord

	chunkEnd := chunkOffset + format.ChunkSize
	if chunkEnd > len(b) {
		return nil
	}

	pos := chunkOffset + 0x200
	for pos+format.RecordHeaderSize <= chunkEnd {
		header, err := format.ParseRecordHeader(b[pos:])
		if err != nil {
			// Not a record boundary (end of used chunk space, e.g.):
			// stop scanning this chunk.
			break
		}

		rec, err := readOneChunkRecord(b, pos, int(header.Size), templates)
		if err != nil {
			logger.Info("chunk record read failed", "offset", pos, "err", err)
			pos += int(header.Size)
			continue
		}
		out = append(out, rec)
		pos += int(header.Size)
	}
	return out
}

func readOneChunkRecord(b []byte, recordOffset, recordSize int, templates map[uint32]templateDef) (ChunkRecord, error) {
	rootOffset := recordOffset + format.RecordRootOffset
	maxOffset := recordOffset + recordSize

	tmpl, subs, err := decodeChunkRootNode(b, rootOffset, maxOffset, templates)
	if err != nil {
		return ChunkRecord{}, err
	}

	renderedXML := InsertSubstitutions(tmpl.XML, subs)
	eventID, err := extractEventID(renderedXML)
	if err != nil {
		return ChunkRecord{}, fmt.Errorf("event id: %w", err)
	}
	tmpl = NewTemplate(eventID, tmpl.XML, tmpl.Placeholders)

	return ChunkRecord{
		Offset:   recordOffset,
		EventID:  eventID,
		XML:      renderedXML,
		Template: tmpl,
	}, nil
}

// decodeChunkRootNode decodes a record's root node when full chunk context
// is available: a TemplateInstance token names its template by a template
// id; if this is the first time that id is seen in the chunk, the
// template body follows inline and is cached; otherwise the cached
// definition is reused. This is the chunk-context counterpart to
// rootHasResidentTemplate's heuristic, which exists only because orphan
// records lack this exact bookkeeping.
func decodeChunkRootNode(b []byte, offset, maxOffset int, templates map[uint32]templateDef) (Template, []Substitution, error) {
	ofs := offset
	if tok, ok := readByte(b, ofs); ok && tok == streamStartToken {
		ofs += 4
	}

	tiToken, ok := readByte(b, ofs)
	if !ok || format.TokenKind(tiToken) != format.TokenTemplateInstance {
		return Template{}, nil, fmt.Errorf("expected TemplateInstance token at 0x%x", ofs)
	}
	ofs++

	marker, ok := readByte(b, ofs)
	if !ok || marker != 0x01 {
		return Template{}, nil, fmt.Errorf("expected template-instance marker at 0x%x", ofs)
	}
	ofs++

	templateID, ok := readU32(b, ofs)
	if !ok {
		return Template{}, nil, fmt.Errorf("truncated template id at 0x%x", ofs)
	}
	ofs += 4
	ofs += 4 // unknown/next-template-offset field; unused

	tentativeNarg, ok := readU32(b, ofs)
	if !ok {
		return Template{}, nil, fmt.Errorf("truncated narg at 0x%x", ofs)
	}
	ofs += 4

	def, known := templates[templateID]
	var narg uint32
	if !known {
		ofs += 16 // template guid
		templateLength, ok := readU32(b, ofs)
		if !ok {
			return Template{}, nil, fmt.Errorf("truncated template length at 0x%x", ofs)
		}
		ofs += 4
		bodyStart := ofs

		xml, placeholders, err := renderTemplateBody(b, bodyStart)
		if err != nil {
			return Template{}, nil, err
		}
		def = templateDef{xml: xml, placeholders: placeholders}
		templates[templateID] = def

		ofs = bodyStart + int(templateLength)
		narg, ok = readU32(b, ofs)
		if !ok {
			return Template{}, nil, fmt.Errorf("truncated narg (post-body) at 0x%x", ofs)
		}
		ofs += 4
	} else {
		narg = tentativeNarg
	}
	if narg > maxSubstitutionCount {
		return Template{}, nil, &ParseError{Kind: UnexpectedSubstitutionCount, Offset: uint64(ofs), Msg: fmt.Sprintf("narg=%d", narg)}
	}

	type descriptor struct {
		size uint16
		typ  byte
	}
	descriptors := make([]descriptor, 0, narg)
	for i := uint32(0); i < narg; i++ {
		dslice, ok := buf.Slice(b, ofs, 4)
		if !ok {
			return Template{}, nil, &MaxOffsetReachedError{Offset: uint64(ofs + 4), MaxOffset: uint64(maxOffset)}
		}
		descriptors = append(descriptors, descriptor{size: buf.U16LE(dslice[0:2]), typ: dslice[2]})
		ofs += 4
	}

	subs := make([]Substitution, 0, len(descriptors))
	for i, d := range descriptors {
		if ofs > maxOffset {
			return Template{}, nil, &MaxOffsetReachedError{Offset: uint64(ofs), MaxOffset: uint64(maxOffset)}
		}

		if d.typ == format.TypeBXml {
			// A nested sub-template: resolve it depth-first and splice
			// its own substitutions in place, rather than surfacing the
			// raw binary-XML fragment as one opaque value.
			child, err := extractRootSubstitutions(b, ofs, maxOffset, 1)
			if err != nil {
				return Template{}, nil, err
			}
			subs = append(subs, child...)
			ofs += int(d.size)
			continue
		}

		v, err := decodeValue(b, d.typ, ofs, int(d.size), offset)
		if err != nil {
			return Template{}, nil, fmt.Errorf("substitution %d/%d: %w", i+1, len(descriptors), err)
		}
		subs = append(subs, Substitution{Type: d.typ, Value: v})
		ofs += int(d.size)
	}

	return Template{XML: def.xml, Placeholders: def.placeholders}, subs, nil
}

// extractEventID reads /Event/System/EventID out of a rendered record XML.
func extractEventID(recordXML string) (uint32, error) {
	type system struct {
		EventID uint32 `xml:"EventID"`
	}
	type event struct {
		System system `xml:"System"`
	}
	var e event
	if err := xml.NewDecoder(bytes.NewReader([]byte(recordXML))).Decode(&e); err != nil {
		return 0, err
	}
	return e.System.EventID, nil
}
