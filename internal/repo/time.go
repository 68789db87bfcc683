package repo

import "time"

// NormalizeTime is the stored form of timestamps: UTC, millisecond precision,
// no monotonic reading. Stored values then sort lexically in time order.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
