package realtime

import "time"

// Clock abstracts time.Now() to allow deterministic testing. The Source uses
// it for cache expiry and for the local-clock fallback.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
