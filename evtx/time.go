package evtx

import (
	"fmt"
	"time"
)

// fileTimeEpochOffset is the number of 100ns ticks between the FILETIME
// epoch (1601-01-01 UTC) and the Unix epoch (1970-01-01 UTC).
const fileTimeEpochOffset = 116444736000000000

// fileTimeNanosPerTick is the width of one FILETIME tick in nanoseconds.
const fileTimeNanosPerTick = 100

// fileTimeToTime converts a raw FILETIME tick count to a UTC time.Time,
// failing rather than clamping when the value does not correspond to a
// representable UTC moment, for substitution type 0x11 (FileTime).
// (internal/format.FiletimeToTime clamps instead; nothing in this package
// calls it.)
func fileTimeToTime(ticks uint64) (time.Time, error) {
	signedTicks := int64(ticks)
	if signedTicks < 0 {
		return time.Time{}, fmt.Errorf("filetime tick count overflows int64: %d", ticks)
	}
	// Split into whole seconds and remaining ticks so that no intermediate
	// nanosecond count overflows int64.
	const ticksPerSecond = int64(time.Second) / fileTimeNanosPerTick
	secs := signedTicks/ticksPerSecond - fileTimeEpochOffset/ticksPerSecond
	nanos := (signedTicks % ticksPerSecond) * fileTimeNanosPerTick
	t := time.Unix(secs, nanos).UTC()
	if t.Year() < 1601 || t.Year() > 30827 {
		return time.Time{}, fmt.Errorf("filetime does not map to a valid UTC moment: ticks=%d", ticks)
	}
	return t, nil
}
