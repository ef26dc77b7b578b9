// Package capacity finds the next bookable instant honoring both opening
// hours and a configurable concurrent-usage capacity.
package capacity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GrainHologram/SnipeScheduler-sub001/internal/schedule"
)

// DefaultHorizonDays bounds the forward search.
const DefaultHorizonDays = 14

// Event is a reservation or checkout as seen by the capacity search: a pair
// of UTC instants. Only active-status events reach the finder; the store
// filters by status.
type Event struct {
	StartsAt time.Time
	EndsAt   time.Time
}

// EventStore provides the active events that count toward capacity.
type EventStore interface {
	ActiveReservationsInWindow(ctx context.Context, startUTC, endUTC time.Time) ([]Event, error)
	ActiveCheckoutsInWindow(ctx context.Context, startUTC, endUTC time.Time) ([]Event, error)
}

// Finder searches forward from an instant for the first slot that is inside
// opening hours and under capacity. Occupancy is counted per fixed-width
// bucket aligned to business-local midnight; each event boundary (start and
// end alike) counts one unit in its bucket. This is a boundary count, not a
// true overlap count, and is relied on as-is by the duration-limit policy.
type Finder struct {
	resolver *schedule.Resolver
	events   EventStore

	// Capacity is the maximum boundary-events per bucket; 0 is unlimited.
	Capacity int
	// HorizonDays bounds the search; day offsets 0..HorizonDays are scanned.
	HorizonDays int
}

// NewFinder returns a Finder with the default horizon.
func NewFinder(resolver *schedule.Resolver, events EventStore, capacity int) (*Finder, error) {
	if resolver == nil {
		return nil, errors.New("slot finder requires a resolver")
	}
	if events == nil {
		return nil, errors.New("slot finder requires an event store")
	}
	if capacity < 0 {
		return nil, fmt.Errorf("slot capacity must not be negative, got %d", capacity)
	}
	return &Finder{
		resolver:    resolver,
		events:      events,
		Capacity:    capacity,
		HorizonDays: DefaultHorizonDays,
	}, nil
}

// FirstAvailableSlot returns the first slot-aligned UTC instant at or after
// fromUTC that is within opening hours and under capacity. The second return
// is false when no slot exists within the horizon; callers treat that as a
// hard limit, not a retryable condition.
func (f *Finder) FirstAvailableSlot(ctx context.Context, fromUTC time.Time, intervalMinutes int) (time.Time, bool, error) {
	if intervalMinutes <= 0 {
		return time.Time{}, false, fmt.Errorf("slot interval must be positive, got %d", intervalMinutes)
	}

	tz := f.resolver.TimeZones()
	baseDate := tz.LocalDate(fromUTC)
	interval := time.Duration(intervalMinutes) * time.Minute

	for offset := 0; offset <= f.HorizonDays; offset++ {
		date := baseDate.AddDays(offset)
		hours, err := f.resolver.ResolveDay(ctx, date)
		if err != nil {
			return time.Time{}, false, err
		}
		if hours.Closed {
			continue
		}

		openUTC := tz.At(date, hours.Open)
		closeUTC := tz.At(date, hours.Close)

		// On day 0 the search starts at fromUTC; on later days at opening.
		lower := openUTC
		if offset == 0 && fromUTC.After(openUTC) {
			lower = fromUTC
		}
		if lower.After(closeUTC) {
			continue
		}

		if f.Capacity == 0 {
			if slot, ok := alignSinceOpening(openUTC, closeUTC, lower, interval); ok {
				return slot, true, nil
			}
			continue
		}

		slot, ok, err := f.firstBucketUnderCapacity(ctx, date, hours, openUTC, closeUTC, lower, intervalMinutes)
		if err != nil {
			return time.Time{}, false, err
		}
		if ok {
			return slot, true, nil
		}
	}

	log.Ctx(ctx).Debug().
		Time("from", fromUTC).
		Int("interval_minutes", intervalMinutes).
		Int("horizon_days", f.HorizonDays).
		Msg("No available slot within horizon")
	return time.Time{}, false, nil
}

// alignSinceOpening rounds lower up to the next multiple of interval since
// opening, staying within [openUTC, closeUTC].
func alignSinceOpening(openUTC, closeUTC, lower time.Time, interval time.Duration) (time.Time, bool) {
	slot := openUTC
	if lower.After(openUTC) {
		steps := (lower.Sub(openUTC) + interval - 1) / interval
		slot = openUTC.Add(steps * interval)
	}
	if slot.After(closeUTC) {
		return time.Time{}, false
	}
	return slot, true
}

// firstBucketUnderCapacity buckets every active event boundary for the day
// into intervalMinutes-wide buckets aligned to business-local midnight, then
// scans chronologically for the first bucket at or after lower whose count is
// strictly below capacity.
func (f *Finder) firstBucketUnderCapacity(ctx context.Context, date schedule.Date, hours schedule.DayHours, openUTC, closeUTC, lower time.Time, intervalMinutes int) (time.Time, bool, error) {
	reservations, err := f.events.ActiveReservationsInWindow(ctx, openUTC, closeUTC)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query reservations for %s: %w", date, err)
	}
	checkouts, err := f.events.ActiveCheckoutsInWindow(ctx, openUTC, closeUTC)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query checkouts for %s: %w", date, err)
	}

	tz := f.resolver.TimeZones()
	intervalSec := intervalMinutes * 60
	counts := make(map[int]int)
	bucketBoundary := func(at time.Time) {
		if at.Before(openUTC) || at.After(closeUTC) {
			return
		}
		idx := int(schedule.TimeOfDayOf(tz.ToBusiness(at))) / intervalSec
		key := schedule.TimeOfDay(idx * intervalSec)
		if key < hours.Open || key > hours.Close {
			return
		}
		counts[idx]++
	}
	for _, ev := range reservations {
		bucketBoundary(ev.StartsAt)
		bucketBoundary(ev.EndsAt)
	}
	for _, ev := range checkouts {
		bucketBoundary(ev.StartsAt)
		bucketBoundary(ev.EndsAt)
	}

	lowerSec := int(schedule.TimeOfDayOf(tz.ToBusiness(lower)))
	for idx := (lowerSec + intervalSec - 1) / intervalSec; ; idx++ {
		key := schedule.TimeOfDay(idx * intervalSec)
		if key > hours.Close {
			return time.Time{}, false, nil
		}
		if key < hours.Open {
			continue
		}
		if counts[idx] < f.Capacity {
			return tz.At(date, key), true, nil
		}
	}
}
