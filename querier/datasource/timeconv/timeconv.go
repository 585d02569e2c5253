package timeconv

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/janhoon/vizor/querier/datasource/fields"
)

// logTimeLayout is RFC3339 with a fixed width nanosecond fraction. The fixed
// width keeps lexicographic order equal to chronological order, which the
// log sorting relies on.
const logTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// layouts are tried in order against string timestamps.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type unit int

const (
	unitUnknown unit = iota
	unitSeconds
	unitMillis
	unitMicros
	unitNanos
)

// unitFromName derives the time unit from the column name the value came
// from. A name hint always beats the magnitude heuristic.
func unitFromName(name string) unit {
	n := fields.Normalize(name)
	switch {
	case n == "":
		return unitUnknown
	case strings.Contains(n, "nano") || strings.HasSuffix(n, "ns"):
		return unitNanos
	case strings.Contains(n, "micro") || strings.HasSuffix(n, "us"):
		return unitMicros
	case strings.Contains(n, "milli") || strings.HasSuffix(n, "ms"):
		return unitMillis
	case strings.Contains(n, "sec"):
		return unitSeconds
	default:
		return unitUnknown
	}
}

// unitFromMagnitude guesses the epoch unit from the size of the value:
// >=1e18 nanoseconds, >=1e15 microseconds, >=1e12 milliseconds, else seconds.
func unitFromMagnitude(v float64) unit {
	a := math.Abs(v)
	switch {
	case a >= 1e18:
		return unitNanos
	case a >= 1e15:
		return unitMicros
	case a >= 1e12:
		return unitMillis
	default:
		return unitSeconds
	}
}

// parseNumeric accepts the numeric shapes result rows actually carry,
// including 64 bit integers rendered as strings by ClickHouse JSON output.
func parseNumeric(v interface{}) (f float64, i int64, isInt bool, ok bool) {
	switch t := v.(type) {
	case float64:
		return t, 0, false, true
	case int:
		return float64(t), int64(t), true, true
	case int64:
		return float64(t), t, true, true
	case uint64:
		return float64(t), int64(t), true, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, 0, false, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return float64(n), n, true, true
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n, 0, false, true
		}
	}
	return 0, 0, false, false
}

func resolveUnit(f float64, hint string) unit {
	if u := unitFromName(hint); u != unitUnknown {
		return u
	}
	return unitFromMagnitude(f)
}

// UnixNanos converts a temporal value to epoch nanoseconds. The hint is the
// name of the column the value was read from, empty when unknown. Integer
// inputs stay exact.
func UnixNanos(v interface{}, hint string) (int64, bool) {
	if t, ok := v.(time.Time); ok {
		return t.UnixNano(), true
	}
	if s, ok := v.(string); ok {
		if t, ok2 := parseLayouts(s); ok2 {
			return t.UnixNano(), true
		}
	}
	f, i, isInt, ok := parseNumeric(v)
	if !ok {
		return 0, false
	}
	switch resolveUnit(f, hint) {
	case unitNanos:
		if isInt {
			return i, true
		}
		return int64(f), true
	case unitMicros:
		if isInt {
			return i * int64(time.Microsecond), true
		}
		return int64(f * 1e3), true
	case unitMillis:
		if isInt {
			return i * int64(time.Millisecond), true
		}
		return int64(f * 1e6), true
	default:
		if isInt {
			return i * int64(time.Second), true
		}
		return int64(f * 1e9), true
	}
}

// UnixSeconds converts a temporal value to epoch seconds as float64, the
// representation matrix points use.
func UnixSeconds(v interface{}, hint string) (float64, bool) {
	if t, ok := v.(time.Time); ok {
		return float64(t.UnixNano()) / 1e9, true
	}
	if s, ok := v.(string); ok {
		if t, ok2 := parseLayouts(s); ok2 {
			return float64(t.UnixNano()) / 1e9, true
		}
	}
	f, _, _, ok := parseNumeric(v)
	if !ok {
		return 0, false
	}
	switch resolveUnit(f, hint) {
	case unitNanos:
		return f / 1e9, true
	case unitMicros:
		return f / 1e6, true
	case unitMillis:
		return f / 1e3, true
	default:
		return f, true
	}
}

// DurationNanos converts a duration-like value to nanoseconds using the same
// hint-then-magnitude policy. Negative results clamp to zero.
func DurationNanos(v interface{}, hint string) (int64, bool) {
	f, i, isInt, ok := parseNumeric(v)
	if !ok {
		return 0, false
	}
	var ns int64
	switch resolveUnit(f, hint) {
	case unitNanos:
		if isInt {
			ns = i
		} else {
			ns = int64(f)
		}
	case unitMicros:
		if isInt {
			ns = i * int64(time.Microsecond)
		} else {
			ns = int64(f * 1e3)
		}
	case unitMillis:
		if isInt {
			ns = i * int64(time.Millisecond)
		} else {
			ns = int64(f * 1e6)
		}
	default:
		if isInt {
			ns = i * int64(time.Second)
		} else {
			ns = int64(f * 1e9)
		}
	}
	if ns < 0 {
		return 0, true
	}
	return ns, true
}

// ParseTime converts a native time, a layout string or a bare epoch number
// to time.Time.
func ParseTime(v interface{}, hint string) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	if s, ok := v.(string); ok {
		if t, ok2 := parseLayouts(s); ok2 {
			return t, true
		}
	}
	ns, ok := UnixNanos(v, hint)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(0, ns).UTC(), true
}

// FormatLogTime renders t the way LogEntry carries timestamps: UTC, RFC3339,
// zero padded nanoseconds.
func FormatLogTime(t time.Time) string {
	return t.UTC().Format(logTimeLayout)
}

func parseLayouts(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
