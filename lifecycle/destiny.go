package lifecycle

import (
	"github.com/dohr-michael/theater/future"
)

// pendingWaiter is one registered reveal closure. Cancellation marks the
// entry instead of splicing so that insertion order survives.
type pendingWaiter struct {
	reveal    func(future.Signal)
	cancelled bool
}

// Destiny is an object whose completion is signalled at most once. It acts
// as a teleprompter over its own completion: every Autocue returns a fresh
// cue that reveals when the destiny is sealed — immediately, if it already
// is.
type Destiny struct {
	fate    *future.Signal
	waiters []*pendingWaiter
}

// Sealed reports whether the fate has been fixed.
func (d *Destiny) Sealed() bool { return d.fate != nil }

// Fate returns the sealed signal, if any.
func (d *Destiny) Fate() (future.Signal, bool) {
	if d.fate == nil {
		return future.Signal{}, false
	}
	return *d.fate, true
}

// Finish seals the destiny and reveals every pending waiter in insertion
// order. Sealing twice is a fatal programming error.
func (d *Destiny) Finish(sig future.Signal) {
	if d.fate != nil {
		panic("lifecycle: destiny finished twice")
	}
	d.fate = &sig
	waiters := d.waiters
	d.waiters = nil
	for _, w := range waiters {
		if !w.cancelled {
			w.reveal(sig)
		}
	}
}

// Autocue returns a fresh cue over the destiny's completion, making Destiny
// a future.Teleprompter.
func (d *Destiny) Autocue() *future.Cue {
	var entry *pendingWaiter
	return future.Once(
		func(reveal func(future.Signal), _ *future.Cue) {
			if d.fate != nil {
				reveal(*d.fate)
				return
			}
			entry = &pendingWaiter{reveal: reveal}
			d.waiters = append(d.waiters, entry)
		},
		func(revealing bool, _ *future.Cue) {
			if !revealing && entry != nil {
				entry.cancelled = true
			}
		},
	)
}
