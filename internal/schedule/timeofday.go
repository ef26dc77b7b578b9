package schedule

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time expressed as seconds since local midnight.
// Opening hours are stored as "HH:MM" text, so most values are whole minutes;
// the seconds component exists for the 23:59:59 end-of-day bound.
type TimeOfDay int

const (
	// Midnight is the first instant of a local day.
	Midnight TimeOfDay = 0
	// EndOfDay is the last second of a local day, 23:59:59.
	EndOfDay TimeOfDay = 24*3600 - 1
)

// ParseTimeOfDay parses "15:04" or "15:04:05" text.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return TimeOfDayOf(parsed), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q: expected HH:MM or HH:MM:SS", value)
}

// TimeOfDayOf extracts the wall-clock time of t in t's own location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return int(t) % 3600 / 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

// Duration returns the offset from local midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Second
}

func (t TimeOfDay) String() string {
	if t.Second() == 0 {
		return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
	}
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}
