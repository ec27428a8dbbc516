package domain

import "github.com/jonboulle/clockwork"

// clock supplies the fallback creation time for incidents that arrive without
// one. Tests freeze it via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the normalization time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
