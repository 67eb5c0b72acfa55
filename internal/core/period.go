package core

import "time"

// Period is an inclusive time window covering one calendar month.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MonthPeriod returns the calendar month containing now, from its first
// millisecond to its last (23:59:59.999 on the last day), in now's location.
func MonthPeriod(now time.Time) Period {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return Period{Start: start, End: end}
}

// Contains reports whether t lies in [Start, End].
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Key identifies the period's month, e.g. "2025-02".
func (p Period) Key() string {
	return p.Start.Format("2006-01")
}
