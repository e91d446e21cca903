package clock

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/user/livedrops/internal/types"
)

// zoned layouts carry an explicit offset or Z.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z0700",
}

// naive layouts have no zone marker and are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// epochSecondsCutoff separates epoch seconds from epoch milliseconds;
// 1e11 seconds is the year 5138, 1e11 milliseconds is 1973.
const epochSecondsCutoff = 1e11

// Parse interprets a backend timestamp. Strings without a zone marker are
// UTC, never local time. Numbers are epoch seconds or milliseconds.
func Parse(raw types.RawTime) (time.Time, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := parseEpoch(s); ok {
		return t, true
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// maxEpoch keeps both the seconds and milliseconds paths inside int64
// milliseconds.
const maxEpoch = math.MaxInt64 / 1000

// parseEpoch accepts plain decimal numbers only: digits with an optional
// fractional part. Signs, exponents, hex and NaN/Inf spellings are not
// epochs.
func parseEpoch(s string) (time.Time, bool) {
	if !isDecimal(s) {
		return time.Time{}, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f > maxEpoch {
		return time.Time{}, false
	}
	if f < epochSecondsCutoff {
		return time.UnixMilli(int64(f * 1000)).UTC(), true
	}
	return time.UnixMilli(int64(f)).UTC(), true
}

func isDecimal(s string) bool {
	digits, dot := 0, false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return digits > 0
}

// Normalize is Parse with a fallback for unparseable input, so a single
// malformed record cannot stall the rest of a batch.
func Normalize(raw types.RawTime, fallback time.Time) time.Time {
	if t, ok := Parse(raw); ok {
		return t
	}
	return fallback
}

// Reference picks the "now" used for age computation: the server time
// when it was supplied and parses, the local reading otherwise.
func Reference(serverTime types.RawTime, local time.Time) time.Time {
	return Normalize(serverTime, local)
}

// Age returns ref - at, clamped to zero when the event appears to be from
// the future.
func Age(at, ref time.Time) time.Duration {
	age := ref.Sub(at)
	if age < 0 {
		return 0
	}
	return age
}
