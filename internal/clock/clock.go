// Package clock provides the server time source used for every presence deadline.
package clock

import "time"

// Clock returns the current server time. Deadlines are always computed from a Clock,
// never from client-reported timestamps.
type Clock interface {
	Now() time.Time
}

// System is the wall clock in UTC.
type System struct{}

// Now returns time.Now in UTC.
func (System) Now() time.Time { return time.Now().UTC() }

// Func adapts a plain function to Clock.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time { return f() }
