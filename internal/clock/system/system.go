// Package system supplies the wall clock shared by the cache, the rate limiters and the
// orchestrator. Tests substitute their own Now() implementations.
package system

import "time"

// Clock reads wall time in UTC.
type Clock struct{}

// New returns the wall clock.
func New() Clock {
	return Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
