// Package schedule resolves the facility's effective opening hours for any
// calendar date from three precedence tiers: one-off overrides, recurring
// weekly schedules, and the default weekly template.
package schedule

import (
	"context"
	"time"
)

// Source tags which precedence tier produced a resolved DayHours.
type Source string

const (
	SourceOverride Source = "override"
	SourceSchedule Source = "schedule"
	SourceDefault  Source = "default"
	SourceNone     Source = "none"
)

// DayHours is the resolved opening hours for exactly one calendar date,
// expressed in business-local time. When Closed is false, Open and Close are
// both set and Open <= Close. DayHours is computed on demand and never
// persisted.
type DayHours struct {
	Closed bool
	Open   TimeOfDay
	Close  TimeOfDay
	Source Source
}

// Contains reports whether the time of day falls inside the open window,
// inclusive on both bounds.
func (h DayHours) Contains(tod TimeOfDay) bool {
	return !h.Closed && tod >= h.Open && tod <= h.Close
}

// WeekdayHours is one row of a weekly template: the hours for a single ISO
// weekday (1 Monday .. 7 Sunday).
type WeekdayHours struct {
	Weekday int
	Closed  bool
	Open    TimeOfDay
	Close   TimeOfDay
}

// RecurringSchedule is a date-range-bounded weekly template that supersedes
// the default template for dates inside [StartDate, EndDate] on the weekdays
// present in Days. When several schedules cover the same date, the one with
// the greatest ID wins.
type RecurringSchedule struct {
	ID        int64
	Name      string
	StartDate Date
	EndDate   Date
	Days      map[int]WeekdayHours
}

// Covers reports whether the schedule's date range includes date.
func (s RecurringSchedule) Covers(date Date) bool {
	return !date.Before(s.StartDate) && !date.After(s.EndDate)
}

// OverrideKind distinguishes exceptional closures from exceptional openings.
type OverrideKind string

const (
	OverrideClosed OverrideKind = "closed"
	OverrideOpen   OverrideKind = "open"
)

// OneOffOverride is an exceptional closure or opening covering a UTC instant
// range. Overrides outrank every recurring schedule; among overlapping
// overrides the greatest ID wins.
type OneOffOverride struct {
	ID       int64
	Label    string
	StartsAt time.Time
	EndsAt   time.Time
	Kind     OverrideKind
}

// Store provides read access to the three schedule tiers.
type Store interface {
	// DefaultWeekday returns the default template row for an ISO weekday,
	// or nil when that weekday is unconfigured.
	DefaultWeekday(ctx context.Context, weekday int) (*WeekdayHours, error)
	// RecurringSchedulesCovering returns every recurring schedule whose
	// date range includes date.
	RecurringSchedulesCovering(ctx context.Context, date Date) ([]RecurringSchedule, error)
	// OverridesCovering returns every one-off override whose UTC range
	// intersects [startUTC, endUTC].
	OverridesCovering(ctx context.Context, startUTC, endUTC time.Time) ([]OneOffOverride, error)
}
