package clock

import "time"

// Clock abstracts time.Now so services can be tested against fixed dates.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }
