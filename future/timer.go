package future

import "time"

// Clock schedules one-shot callbacks. The returned stop function disarms the
// timer; stopping after the callback ran is harmless. Implementations used
// inside a dispatcher must deliver the callback on the dispatcher thread.
type Clock interface {
	AfterFunc(d time.Duration, f func()) (stop func())
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func(d time.Duration, f func()) (stop func())

// AfterFunc implements Clock.
func (c ClockFunc) AfterFunc(d time.Duration, f func()) (stop func()) { return c(d, f) }

// WallClock is a Clock over time.AfterFunc. Callbacks arrive on the runtime
// timer goroutine, so it is only suitable outside a dispatcher.
var WallClock Clock = ClockFunc(func(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
})

// Timeout builds a teleprompter whose cues reveal an empty prompt after d.
// Each cue arms its own timer on begin and disarms it when cancelled.
func Timeout(clock Clock, d time.Duration) Teleprompter {
	return TeleprompterFunc(func() *Cue {
		var stop func()
		return Once(
			func(reveal func(Signal), c *Cue) {
				stop = clock.AfterFunc(d, func() {
					if c.Pending() {
						reveal(Prompt(nil))
					}
				})
			},
			func(revealing bool, _ *Cue) {
				if !revealing && stop != nil {
					stop()
				}
			},
		)
	})
}
