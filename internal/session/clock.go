package session

import "time"

// Clock abstracts time.Now and time.AfterFunc so tests can drive timer
// expiry deterministically instead of sleeping for real durations.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the subset of *time.Timer the registry needs.
type Timer interface {
	Stop() bool
}

// realClock delegates to the time package.
type realClock struct{}

// RealClock is the production Clock implementation.
var RealClock Clock = realClock{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
