// Package clock provides the time source used by the scheduling engine.
package clock

import "time"

// Clock supplies the current instant. Components take a Clock instead of
// calling time.Now so tests can pin "now".
type Clock interface {
	Now() time.Time
}

// New returns a Clock backed by the system time.
func New() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Fake is a Clock whose current instant is set explicitly.
type Fake struct {
	Current time.Time
}

func (f *Fake) Now() time.Time { return f.Current }

// Advance moves the fake clock forward.
func (f *Fake) Advance(d time.Duration) { f.Current = f.Current.Add(d) }
