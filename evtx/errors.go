// Package evtx carves and reconstructs Windows Event Log (EVTX) records
// from arbitrary binary data, including records whose surrounding chunk
// structure is damaged or absent entirely.
package evtx

import "fmt"

// ParseErrorKind enumerates the carving-level failure modes a record or
// root-node parse can hit. These are distinct from the structural decode
// sentinels in internal/format, which only concern raw byte layout.
type ParseErrorKind int

const (
	// BufferOverrun means a read would extend past the buffer or the
	// record's own declared bounds.
	BufferOverrun ParseErrorKind = iota
	// UnexpectedSubstitutionCount means num_subs exceeded the 100-entry cap.
	UnexpectedSubstitutionCount
	// InvalidSubstitutionType means a descriptor named a type code outside
	// the recognized set.
	InvalidSubstitutionType
	// InvalidSizeTypeSize means a SizeType (0x10) descriptor had a size
	// other than 4 or 8.
	InvalidSizeTypeSize
	// InvalidTimestamp means a FileTime tick value did not map to a valid
	// UTC moment.
	InvalidTimestamp
	// UnevenWStringArray means a WStringArray fragment could not be
	// interpreted as UTF-16 even after the odd-length pad.
	UnevenWStringArray
	// UnknownNodeType means BXml (0x21) substitutions nested deeper than
	// the root-node parser's recursion limit. The binary-XML renderer does
	// not report it: it skips node kinds it does not handle.
	UnknownNodeType
)

func (k ParseErrorKind) String() string {
	switch k {
	case BufferOverrun:
		return "BufferOverrun"
	case UnexpectedSubstitutionCount:
		return "UnexpectedSubstitutionCount"
	case InvalidSubstitutionType:
		return "InvalidSubstitutionType"
	case InvalidSizeTypeSize:
		return "InvalidSizeTypeSize"
	case InvalidTimestamp:
		return "InvalidTimestamp"
	case UnevenWStringArray:
		return "UnevenWStringArray"
	case UnknownNodeType:
		return "UnknownNodeType"
	default:
		return "ParseError"
	}
}

// ParseError reports a carving-level failure local to one record or chunk.
// Per the propagation policy, callers of the orchestrator never see these
// surface directly — they are logged and the extraction moves to the next
// candidate — but lower-level functions return them so that intent is
// unambiguous at each call site.
type ParseError struct {
	Kind   ParseErrorKind
	Offset uint64
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at 0x%x: %s", e.Kind, e.Offset, e.Msg)
}

// MaxOffsetReachedError means a value decode would read past the max_offset
// boundary supplied by the caller (typically the end of the record).
type MaxOffsetReachedError struct {
	Offset, MaxOffset uint64
}

func (e *MaxOffsetReachedError) Error() string {
	return fmt.Sprintf("substitution parse overran record buffer: offset 0x%x > max 0x%x", e.Offset, e.MaxOffset)
}

// InvalidRecordError means the bytes at an offset failed record validation.
type InvalidRecordError struct {
	Offset uint64
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid record at 0x%x: %s", e.Offset, e.Reason)
}

// UnicodeDecodeError wraps a string-decode failure (UTF-16LE or UTF-8) at a
// given offset, mirroring the distinct encode/decode failure categories the
// original implementation logs and skips past.
type UnicodeDecodeError struct {
	Offset uint64
	Err    error
}

func (e *UnicodeDecodeError) Error() string {
	return fmt.Sprintf("unicode decode error at 0x%x: %v", e.Offset, e.Err)
}

func (e *UnicodeDecodeError) Unwrap() error { return e.Err }

// InvalidArgumentError is returned for programmer errors: e.g., asking to
// parse a record at an offset that is not in fact a record.
type InvalidArgumentError struct {
	Msg string
}

func (e *InvalidArgumentError) Error() string { return "invalid argument: " + e.Msg }
