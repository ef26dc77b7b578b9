package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Resolver computes effective opening hours by precedence: one-off override,
// then recurring schedule, then default weekday template. A date with no
// configuration at any tier resolves closed: an unconfigured facility is
// never reported bookable.
type Resolver struct {
	store Store
	tz    *TimeZoneContext
}

// NewResolver returns a Resolver over the given store and timezone context.
func NewResolver(store Store, tz *TimeZoneContext) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("resolver requires a schedule store")
	}
	if tz == nil {
		return nil, errors.New("resolver requires a timezone context")
	}
	return &Resolver{store: store, tz: tz}, nil
}

// TimeZones returns the timezone context the resolver operates in.
func (r *Resolver) TimeZones() *TimeZoneContext { return r.tz }

// ResolveDay returns the effective opening hours for a business-local
// calendar date.
func (r *Resolver) ResolveDay(ctx context.Context, date Date) (DayHours, error) {
	dayStart, dayEnd := r.tz.DaySpanUTC(date)

	overrides, err := r.store.OverridesCovering(ctx, dayStart, dayEnd)
	if err != nil {
		return DayHours{}, fmt.Errorf("query overrides for %s: %w", date, err)
	}
	if winner, ok := latestOverride(overrides); ok {
		log.Ctx(ctx).Debug().
			Str("date", date.String()).
			Int64("override_id", winner.ID).
			Str("kind", string(winner.Kind)).
			Msg("Day resolved from one-off override")
		if winner.Kind == OverrideClosed {
			return DayHours{Closed: true, Source: SourceOverride}, nil
		}
		return DayHours{Open: Midnight, Close: EndOfDay, Source: SourceOverride}, nil
	}

	weekday := date.ISOWeekday()

	schedules, err := r.store.RecurringSchedulesCovering(ctx, date)
	if err != nil {
		return DayHours{}, fmt.Errorf("query recurring schedules for %s: %w", date, err)
	}
	if entry, ok := latestScheduleEntry(schedules, weekday); ok {
		return dayHoursFromWeekday(entry, SourceSchedule), nil
	}

	fallback, err := r.store.DefaultWeekday(ctx, weekday)
	if err != nil {
		return DayHours{}, fmt.Errorf("query default hours for weekday %d: %w", weekday, err)
	}
	if fallback != nil {
		return dayHoursFromWeekday(*fallback, SourceDefault), nil
	}

	return DayHours{Closed: true, Source: SourceNone}, nil
}

// latestOverride picks the override with the greatest ID: the most recently
// created override wins on overlap.
func latestOverride(overrides []OneOffOverride) (OneOffOverride, bool) {
	var winner OneOffOverride
	found := false
	for _, o := range overrides {
		if !found || o.ID > winner.ID {
			winner = o
			found = true
		}
	}
	return winner, found
}

// latestScheduleEntry picks, among schedules defining the weekday, the entry
// of the schedule with the greatest ID.
func latestScheduleEntry(schedules []RecurringSchedule, weekday int) (WeekdayHours, bool) {
	var winner WeekdayHours
	var winnerID int64
	found := false
	for _, s := range schedules {
		entry, ok := s.Days[weekday]
		if !ok {
			continue
		}
		if !found || s.ID > winnerID {
			winner = entry
			winnerID = s.ID
			found = true
		}
	}
	return winner, found
}

func dayHoursFromWeekday(entry WeekdayHours, source Source) DayHours {
	if entry.Closed {
		return DayHours{Closed: true, Source: source}
	}
	return DayHours{Open: entry.Open, Close: entry.Close, Source: source}
}
