package dataset

import "github.com/jonboulle/clockwork"

// clock stamps snapshot load times. It is package-level rather than injected
// because every snapshot in a process should share one time source; tests
// freeze it through SetClock to make Version/LoadedAt assertions exact.
var clock = clockwork.NewRealClock()

// SetClock replaces the snapshot time source, typically with a fake from
// clockwork. A nil argument restores the real clock, which keeps test
// cleanups a one-liner.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
