// Package format houses low-level decoders for the Windows Event Log (EVTX)
// binary container format. The goal is to keep the parsing focused,
// allocation-free where possible, and independent from the higher-level
// carving packages so they can orchestrate the data in a more ergonomic form.
package format

var (
	// ChunkSignature is the seven-byte magic at the start of every EVTX
	// chunk; the eighth header byte is a NUL pad and is not part of the
	// comparison the original carver performs.
	ChunkSignature = []byte("ElfChnk")

	// RecordSignature is the four-byte magic at the start of every EVTX
	// record, encoded here for byte-comparison; RecordMagic holds the
	// little-endian uint32 form used by most callers.
	RecordSignature = []byte{0x2a, 0x2a, 0x00, 0x00}
)

// RecordMagic is the little-endian uint32 reading of RecordSignature.
const RecordMagic uint32 = 0x00002a2a

const (
	// ChunkSize is the fixed size of an EVTX chunk in bytes.
	ChunkSize = 0x10000

	// ChunkHeaderSizeMin and ChunkHeaderSizeMax bound the header-size field
	// stored at ChunkHeaderSizeOffset.
	ChunkHeaderSizeMin = 0x80
	ChunkHeaderSizeMax = 0x200

	// ChunkSignatureSize is the length of the chunk magic in bytes.
	ChunkSignatureSize = 7

	// Chunk header field offsets (relative to the start of the chunk).
	ChunkFirstRecordNumberOffset = 0x08
	ChunkLastRecordNumberOffset  = 0x10
	ChunkFirstRecordOffsetOffset = 0x18
	ChunkLastRecordOffsetOffset  = 0x20
	ChunkHeaderSizeOffset        = 0x28
	ChunkFreeSpaceOffsetOffset   = 0x30 // offset of the first unused byte after the last record
	ChunkDataCRCOffset           = 0x34
	ChunkHeaderCRCOffset         = 0x7C

	// ChunkHeaderCRCRegionLen is the length of the first span covered by the
	// header checksum, [0x00,ChunkHeaderCRCRegionLen). The second span runs
	// from ChunkHeaderCRCRegion2Start to 0x200.
	ChunkHeaderCRCRegionLen    = 0x78
	ChunkHeaderCRCRegion2Start = 0x80
)

const (
	// RecordSizeMin and RecordSizeMax bound the inclusive size field that
	// follows the record magic, and which is repeated at the tail.
	RecordSizeMin = 0x30
	RecordSizeMax = 0x10000

	// RecordHeaderSize is the size, in bytes, of the fixed record prefix:
	// magic (4) + size (4) + record number (8) + timestamp (8).
	RecordHeaderSize = 0x18

	// RecordMagicOffset, RecordSizeOffset, RecordNumberOffset and
	// RecordTimestampOffset are field offsets relative to the start of a
	// record.
	RecordMagicOffset     = 0x00
	RecordSizeOffset      = 0x04
	RecordNumberOffset    = 0x08
	RecordTimestampOffset = 0x10
	RecordRootOffset      = 0x18
)

// Substitution type codes, per the binary-XML value-node grammar.
const (
	TypeNull          = 0x00
	TypeWStringUTF16  = 0x01
	TypeStringUTF8    = 0x02
	TypeSByte         = 0x03
	TypeUByte         = 0x04
	TypeSWord         = 0x05
	TypeUWord         = 0x06
	TypeSDword        = 0x07
	TypeUDword        = 0x08
	TypeSQword        = 0x09
	TypeUQword        = 0x0A
	TypeFloat         = 0x0B
	TypeDouble        = 0x0C
	TypeBool          = 0x0D
	TypeBinary        = 0x0E
	TypeGUID          = 0x0F
	TypeSizeType      = 0x10
	TypeFileTime      = 0x11
	TypeSystemTime    = 0x12
	TypeSID           = 0x13
	TypeHex32         = 0x14
	TypeHex64         = 0x15
	TypeBXml          = 0x21
	TypeWStringArray  = 0x81

	// substitutionTypeCount bounds the plain 0..21 run of scalar types; the
	// BXml and WStringArray kinds live outside that contiguous range.
	substitutionTypeCount = 22
)

// ValidSubstitutionType reports whether t is one of the 24 recognized
// substitution type codes.
func ValidSubstitutionType(t byte) bool {
	if int(t) < substitutionTypeCount {
		return true
	}
	return t == TypeBXml || t == TypeWStringArray
}

// Binary-XML stream token kinds, used by the root-node substitution parser
// and the chunk-record renderer alike.
const (
	TokenEOF                    = 0x00
	TokenOpenStartElement       = 0x01
	TokenCloseStartElement      = 0x02
	TokenCloseEmptyElement      = 0x03
	TokenCloseElement           = 0x04
	TokenValue                  = 0x05
	TokenAttribute              = 0x06
	TokenCDataSection           = 0x07
	TokenCharReference          = 0x08
	TokenEntityReference        = 0x09
	TokenProcessingInstrTarget  = 0x0A
	TokenProcessingInstrData    = 0x0B
	TokenTemplateInstance       = 0x0C
	TokenNormalSubstitution     = 0x0D
	TokenConditionalSubstitution = 0x0E
	TokenStreamStart            = 0x0F

	// flagHasMore marks element/attribute tokens that are immediately
	// followed by another of the same kind (bit 0x40 of the token byte).
	flagHasMore = 0x40
)

// TokenKind strips the "has more" flag bit from a raw token byte.
func TokenKind(b byte) byte { return b &^ flagHasMore }
