package planflow

import "time"

// NeedsSnapshot implements the day-bucket copy-on-write rule: a new
// snapshot is due only when the current calendar day (local time) is
// strictly after the day of the version's last update. Edits within the
// same day accumulate on one version.
func NeedsSnapshot(now, lastUpdated time.Time) bool {
	return truncateToDay(now).After(truncateToDay(lastUpdated))
}

func truncateToDay(t time.Time) time.Time {
	local := t.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}
