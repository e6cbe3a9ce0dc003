package playout

import "time"

// realClock implements Clock against the actual wall clock.
type realClock struct{}

// RealClock is the production Clock implementation.
var RealClock Clock = realClock{}

func (realClock) NowMS() int64 {
	return time.Now().UnixMilli()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
