package services

import "time"

// Clock returns the current time. Services default to time.Now; tests swap
// it with WithClock.
type Clock func() time.Time
