// Package availability answers "can a visitor enter this event at instant t"
// and derives the display fields shown on event cards. Nothing here is
// persisted; snapshots are recomputed on every query.
package availability

import (
	"time"
)

// NoTimeInfo is the display marker used when an event has no opening hours.
const NoTimeInfo = "no time information"

// Window is an event's resolved date/time availability window. EndDate nil
// means the event runs on StartDate only. StartTime/EndTime are "HH:MM" or
// empty; an empty value on either side means the event is open all day within
// the date range. A window whose end time is numerically earlier than its
// start time wraps past midnight.
type Window struct {
	StartDate time.Time
	EndDate   *time.Time
	StartTime string
	EndTime   string
}

// Snapshot is the per-request availability result attached to event responses.
type Snapshot struct {
	IsAvailableNow bool   `json:"is_available_now"`
	AvailableHours string `json:"available_hours"`
	DaysUntilStart int    `json:"days_until_start"`
}

// IsAvailable reports whether the window admits a visitor at the target
// instant. Date containment is checked first; time containment only applies
// when both clock bounds are present and well-formed.
func IsAvailable(w Window, at time.Time) bool {
	target := dateOnly(at)
	start := dateOnly(w.StartDate)
	end := start
	if w.EndDate != nil {
		end = dateOnly(*w.EndDate)
	}
	if target.Before(start) || target.After(end) {
		return false
	}

	open, okOpen := clockMinutes(w.StartTime)
	close_, okClose := clockMinutes(w.EndTime)
	if !okOpen || !okClose {
		return true
	}

	now := at.Hour()*60 + at.Minute()
	if open <= close_ {
		return open <= now && now <= close_
	}
	// Overnight window (rare)
	return now >= open || now <= close_
}

// ComputeSnapshot derives the availability fields for one event at one
// instant. DaysUntilStart may be negative once the event has started; callers
// use the sign to split upcoming from ongoing/past.
func ComputeSnapshot(w Window, at time.Time) Snapshot {
	hours := NoTimeInfo
	if w.StartTime != "" || w.EndTime != "" {
		hours = orPlaceholder(w.StartTime) + " - " + orPlaceholder(w.EndTime)
	}

	days := int(dateOnly(w.StartDate).Sub(dateOnly(at)).Hours() / 24)

	return Snapshot{
		IsAvailableNow: IsAvailable(w, at),
		AvailableHours: hours,
		DaysUntilStart: days,
	}
}

func orPlaceholder(t string) string {
	if t == "" {
		return "--:--"
	}
	return t
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// clockMinutes parses a strict "HH:MM" value into minutes since midnight.
func clockMinutes(v string) (int, bool) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
