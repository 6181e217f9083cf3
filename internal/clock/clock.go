// Package clock abstracts time so duration and day-boundary logic is
// deterministic in tests.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
