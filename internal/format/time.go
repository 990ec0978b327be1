package format

import (
	"fmt"
	"time"

	"github.com/williballenthin/EVTXtract/internal/buf"
)

const (
	filetimeOffset = 116444736000000000 // FILETIME ticks between 1601-01-01 and the Unix epoch
	filetimeUnit   = 100                // FILETIME ticks are 100ns each

	// SystemTimeSize is the on-disk width of a SYSTEMTIME value: eight
	// little-endian uint16 fields.
	SystemTimeSize = 16
)

// FiletimeToTime converts a raw little-endian FILETIME (100ns ticks since
// 1601-01-01 UTC) to a time.Time.
func FiletimeToTime(v uint64) time.Time {
	if v <= filetimeOffset {
		return time.Unix(0, 0).UTC()
	}
	ns := int64((v - filetimeOffset) * filetimeUnit)
	sec := ns / int64(time.Second)
	nsec := ns % int64(time.Second)
	return time.Unix(sec, nsec).UTC()
}

// SystemTimeToTime decodes a 16-byte SYSTEMTIME structure: year, month,
// day-of-week, day, hour, minute, second, milliseconds, each a little-endian
// uint16. The day-of-week field is read but discarded, matching how the
// structure is actually consumed: it is redundant with the date and carries
// no information the constructed timestamp needs.
func SystemTimeToTime(b []byte) (time.Time, error) {
	if len(b) < SystemTimeSize {
		return time.Time{}, fmt.Errorf("system time: %w", ErrTruncated)
	}
	year := buf.U16LE(b[0:2])
	month := buf.U16LE(b[2:4])
	// b[4:6] is day-of-week; unused.
	day := buf.U16LE(b[6:8])
	hour := buf.U16LE(b[8:10])
	minute := buf.U16LE(b[10:12])
	second := buf.U16LE(b[12:14])
	millis := buf.U16LE(b[14:16])

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("system time: %w: month=%d day=%d", ErrBadSize, month, day)
	}

	return time.Date(
		int(year), time.Month(month), int(day),
		int(hour), int(minute), int(second),
		int(millis)*int(time.Millisecond),
		time.UTC,
	), nil
}
