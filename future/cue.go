package future

// Hint is anything that can become a one-shot asynchronous event: a *Cue, a
// Teleprompter, a foreign Thenable, or one of the composite hints built by
// Capture, All, Any, Race and Settle.
type Hint = any

// BeginFunc runs exactly once when a cue transitions from unused to pending.
// It receives the reveal closure for the cue; calling reveal synchronously
// from inside begin is allowed.
type BeginFunc func(reveal func(Signal), c *Cue)

// EndFunc runs exactly once when a cue leaves the pending state. revealing is
// true when a signal propagated, false when the cue was cancelled.
type EndFunc func(revealing bool, c *Cue)

// Teleprompter is a restartable source of fresh cues for one completion.
type Teleprompter interface {
	Autocue() *Cue
}

// TeleprompterFunc adapts a plain factory function to the Teleprompter
// interface.
type TeleprompterFunc func() *Cue

// Autocue returns a fresh cue.
func (f TeleprompterFunc) Autocue() *Cue { return f() }

// Thenable is a foreign promise: something that eventually calls back with a
// signal. The callback may arrive on any goroutine; callers that live inside
// a dispatcher must domesticate thenables before committing to them.
type Thenable interface {
	Then(effect func(Signal))
}

type cueState uint8

const (
	cueUnused cueState = iota
	cuePending
	cueUsed
)

// Cue is a one-shot asynchronous event with an explicit begin/end lifecycle.
// A cue moves unused → pending (block) → used (reveal or cancel), each
// transition exactly once.
type Cue struct {
	state  cueState
	parent parent
	self   node
	begin  BeginFunc
	end    EndFunc
}

// Once builds a single-use leaf cue. begin runs when the cue is blocked, end
// (optional) when it is revealed or cancelled.
func Once(begin BeginFunc, end EndFunc) *Cue {
	if begin == nil {
		panic("future: once requires a begin callback")
	}
	return &Cue{begin: begin, end: end}
}

// Often builds a teleprompter that produces a fresh Once cue on every demand.
func Often(begin BeginFunc, end EndFunc) Teleprompter {
	if begin == nil {
		panic("future: often requires a begin callback")
	}
	return TeleprompterFunc(func() *Cue { return Once(begin, end) })
}

// Spark builds a cue that reveals the given signal the moment it is blocked.
func Spark(sig Signal) *Cue {
	return Once(func(reveal func(Signal), _ *Cue) { reveal(sig) }, nil)
}

// Pending reports whether the cue awaits its signal.
func (c *Cue) Pending() bool { return c.state == cuePending }

// Used reports whether the cue has been revealed or cancelled.
func (c *Cue) Used() bool { return c.state == cueUsed }

// block transitions the cue to pending under the given tree position and runs
// begin. Revelation during begin is reentrant: state is switched before begin
// runs.
func (c *Cue) block(self node, p parent) {
	if c.state != cueUnused {
		panic("future: blocking a cue that is not unused")
	}
	c.state = cuePending
	c.self = self
	c.parent = p
	c.begin(c.reveal, c)
}

// reveal seals the cue with a signal and propagates it to the parent event.
func (c *Cue) reveal(sig Signal) {
	if c.state != cuePending {
		panic("future: revealing a cue that is not pending")
	}
	c.state = cueUsed
	p, self := c.parent, c.self
	c.parent, c.self = nil, nil
	if c.end != nil {
		c.end(true, c)
	}
	p.propagate(self, sig)
}

// unblock cancels a pending cue without propagating anything.
func (c *Cue) unblock() {
	if c.state != cuePending {
		return
	}
	c.state = cueUsed
	c.parent, c.self = nil, nil
	if c.end != nil {
		c.end(false, c)
	}
}
