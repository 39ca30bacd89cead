package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock stamps ProcessedAt on enriched flights.
var clock = clockwork.NewRealClock()

// SetClock replaces the enrichment time source. Nil restores the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now is the current time in UTC from the enrichment clock.
func Now() time.Time {
	return clock.Now().UTC()
}
