// Package period derives the lifecycle status of an entity from its
// optional start/end dates. Contacts carry a working period, job sites an
// active period; both share the same rules.
package period

import "time"

// Status is the computed lifecycle label of a dated entity.
type Status int

const (
	// StatusUnknown means the entity has no period at all.
	StatusUnknown Status = iota
	// StatusActive means the reference date falls inside the period.
	StatusActive
	// StatusPassive means the reference date falls outside the period.
	StatusPassive
)

// String returns the lowercase wire form used in filter query parameters.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPassive:
		return "passive"
	default:
		return "unknown"
	}
}

// ParseStatus maps a query-parameter value onto a Status. The second return
// is false for anything that is not one of active/passive/unknown.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "active":
		return StatusActive, true
	case "passive":
		return StatusPassive, true
	case "unknown":
		return StatusUnknown, true
	default:
		return StatusUnknown, false
	}
}

// Compute returns the status of a period [start, end] (both bounds
// inclusive, either may be nil) relative to asOf.
//
// An open-ended period with only a start is always Active, even when the
// start lies in the future. An inverted period (start after end) is
// evaluated literally and therefore always comes out Passive.
//
// Comparison is by calendar date; time-of-day is discarded.
func Compute(start, end *time.Time, asOf time.Time) Status {
	if start == nil && end == nil {
		return StatusUnknown
	}

	day := DateOnly(asOf)

	if end == nil {
		return StatusActive
	}
	if start == nil {
		if !day.After(DateOnly(*end)) {
			return StatusActive
		}
		return StatusPassive
	}

	if !DateOnly(*start).After(day) && !day.After(DateOnly(*end)) {
		return StatusActive
	}
	return StatusPassive
}

// DateOnly truncates t to midnight UTC so periods compare by calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
