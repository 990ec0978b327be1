package format

import "errors"

var (
	// ErrSignatureMismatch indicates a structure had an unexpected magic.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrBadSize indicates a declared size field fell outside its valid range.
	ErrBadSize = errors.New("format: size out of range")
	// ErrChecksumMismatch indicates a computed CRC32 did not match the stored value.
	ErrChecksumMismatch = errors.New("format: checksum mismatch")
)
