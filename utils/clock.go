package utils

import "time"

// Clock abstracts time.Now so schedulers and timestamps can be tested.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}
