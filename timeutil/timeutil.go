// Package timeutil provides small time helpers shared by the platform packages,
// primarily conversion between time.Time and the epoch-millisecond integers used
// on the wire.
package timeutil

import "time"

// ToEpochMillis converts t to epoch milliseconds.
func ToEpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromEpochMillis converts epoch milliseconds to a time.Time in UTC.
func FromEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// NowRFC3339 returns the current time in RFC3339 format.
func NowRFC3339() string {
	return time.Now().Format(time.RFC3339)
}

// ParseRFC3339 parses a time string in RFC3339 format.
func ParseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// DurationToSeconds converts d to whole seconds, rounding toward zero and
// never returning a negative value.
func DurationToSeconds(d time.Duration) int32 {
	if d <= 0 {
		return 0
	}
	return int32(d / time.Second)
}
