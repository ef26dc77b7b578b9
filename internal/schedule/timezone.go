package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimeZoneContext holds the three zones the engine converts between: UTC for
// everything persisted, the business zone opening hours are expressed in, and
// the zone of the external inventory system. It is threaded explicitly through
// every resolver call; there is no process-wide default.
type TimeZoneContext struct {
	business *time.Location
	external *time.Location
}

// NewTimeZoneContext loads the configured zones. The business zone is
// required and an invalid identifier is a configuration error. An empty
// external zone falls back to the business zone; an invalid one does not.
func NewTimeZoneContext(business, external string) (*TimeZoneContext, error) {
	business = strings.TrimSpace(business)
	if business == "" {
		return nil, errors.New("business timezone is required")
	}
	businessLoc, err := time.LoadLocation(business)
	if err != nil {
		return nil, fmt.Errorf("invalid business timezone %q: %w", business, err)
	}

	externalLoc := businessLoc
	if external = strings.TrimSpace(external); external != "" {
		externalLoc, err = time.LoadLocation(external)
		if err != nil {
			return nil, fmt.Errorf("invalid external timezone %q: %w", external, err)
		}
	}

	return &TimeZoneContext{business: businessLoc, external: externalLoc}, nil
}

// Business returns the business-local location.
func (c *TimeZoneContext) Business() *time.Location { return c.business }

// External returns the external system's location.
func (c *TimeZoneContext) External() *time.Location { return c.external }

// ToBusiness converts an instant to business-local time.
func (c *TimeZoneContext) ToBusiness(t time.Time) time.Time { return t.In(c.business) }

// ToExternal converts an instant to the external system's time.
func (c *TimeZoneContext) ToExternal(t time.Time) time.Time { return t.In(c.external) }

// At returns the UTC instant of the given business-local wall-clock time.
func (c *TimeZoneContext) At(date Date, tod TimeOfDay) time.Time {
	local := time.Date(date.Year, date.Month, date.Day, tod.Hour(), tod.Minute(), tod.Second(), 0, c.business)
	return local.UTC()
}

// LocalDate returns the business-local calendar date of an instant.
func (c *TimeZoneContext) LocalDate(t time.Time) Date {
	return DateOf(t.In(c.business))
}

// DaySpanUTC returns the UTC instants of the business-local day span
// [00:00:00, 23:59:59] for the given date.
func (c *TimeZoneContext) DaySpanUTC(date Date) (start, end time.Time) {
	return c.At(date, Midnight), c.At(date, EndOfDay)
}
