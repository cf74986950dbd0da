package service

import "time"

// Resolution is the finest time step services observe. Every timestamp they
// produce is representable exactly by both store drivers and by token claims.
const Resolution = time.Millisecond

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC().Truncate(Resolution)
	}
	return c().UTC().Truncate(Resolution)
}
