package schedule

import (
	"context"
	"fmt"
	"time"
)

// Checker answers instant-level openness questions on top of a Resolver.
type Checker struct {
	resolver *Resolver
}

// NewChecker returns a Checker over the given resolver.
func NewChecker(resolver *Resolver) *Checker {
	return &Checker{resolver: resolver}
}

// IsOpenAt reports whether the facility is open at a precise UTC instant.
func (c *Checker) IsOpenAt(ctx context.Context, at time.Time) (bool, error) {
	local := c.resolver.tz.ToBusiness(at)
	hours, err := c.resolver.ResolveDay(ctx, DateOf(local))
	if err != nil {
		return false, err
	}
	return hours.Contains(TimeOfDayOf(local)), nil
}

// ValidateWindow checks both endpoints of a reservation window against
// opening hours and returns a human-readable message per violation. A
// reservation may start on a valid day and end on an invalid one, so the two
// endpoints are checked independently; an empty result means the window is
// fully valid.
func (c *Checker) ValidateWindow(ctx context.Context, startUTC, endUTC time.Time) ([]string, error) {
	var violations []string
	for _, endpoint := range []struct {
		label string
		at    time.Time
	}{
		{label: "start", at: startUTC},
		{label: "end", at: endUTC},
	} {
		local := c.resolver.tz.ToBusiness(endpoint.at)
		date := DateOf(local)
		hours, err := c.resolver.ResolveDay(ctx, date)
		if err != nil {
			return nil, err
		}
		if hours.Closed {
			violations = append(violations, fmt.Sprintf(
				"The reservation %s falls on %s, %s, when the facility is closed.",
				endpoint.label, date.Weekday(), date.Format()))
			continue
		}
		if tod := TimeOfDayOf(local); tod < hours.Open || tod > hours.Close {
			violations = append(violations, fmt.Sprintf(
				"The reservation %s time %s is outside opening hours on %s (%s to %s).",
				endpoint.label, tod, date.Weekday(), hours.Open, hours.Close))
		}
	}
	return violations, nil
}
