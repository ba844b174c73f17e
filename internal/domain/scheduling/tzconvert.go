package scheduling

import "time"

// LocalToUTC reinterprets the wall-clock components of naive (its
// Location is irrelevant, only Y/M/D/h/m/s are used) as a local instant
// in loc, resolving DST ambiguity the way time.Date does, then converts
// to UTC. Storage must never receive a naive instant (spec §4.5/§9).
func LocalToUTC(loc *time.Location, naive time.Time) time.Time {
	localized := time.Date(
		naive.Year(), naive.Month(), naive.Day(),
		naive.Hour(), naive.Minute(), naive.Second(), naive.Nanosecond(),
		loc,
	)
	return localized.UTC()
}

// UTCToLocal converts a stored UTC instant into the naive-local
// representation the in-memory engine works with: the wall-clock time
// an observer in loc would read, carried on a time.Time value (its
// Location is loc, consistent with how Calendar.StartDate is
// constructed, but callers must treat these values as "naive local",
// never re-converting them through another timezone).
func UTCToLocal(loc *time.Location, utc time.Time) time.Time {
	return utc.In(loc)
}
