// Package clock abstracts timers so request deadlines and debounce windows
// can be driven deterministically in tests.
package clock

import "time"

// Timer is a scheduled callback.
type Timer interface {
	// Stop cancels the callback; it reports false if it already fired or was stopped.
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// Real returns the wall clock.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
