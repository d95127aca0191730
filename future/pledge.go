package future

import "sync"

// Pledge is a plain foreign promise: a thread-safe, one-shot signal holder
// implementing Thenable. It bridges work living outside a dispatcher into
// the hint world.
type Pledge struct {
	mu   sync.Mutex
	sig  *Signal
	subs []func(Signal)
}

// NewPledge creates an unsettled pledge.
func NewPledge() *Pledge { return &Pledge{} }

// Resolve settles the pledge with a prompt. Settling twice is a no-op.
func (p *Pledge) Resolve(v any) { p.settle(Prompt(v)) }

// Reject settles the pledge with a blooper. Settling twice is a no-op.
func (p *Pledge) Reject(err error) { p.settle(Blooper(err)) }

func (p *Pledge) settle(sig Signal) {
	p.mu.Lock()
	if p.sig != nil {
		p.mu.Unlock()
		return
	}
	p.sig = &sig
	subs := p.subs
	p.subs = nil
	p.mu.Unlock()

	for _, effect := range subs {
		effect(sig)
	}
}

// Then implements Thenable: effect runs once the pledge settles, immediately
// if it already has.
func (p *Pledge) Then(effect func(Signal)) {
	p.mu.Lock()
	if p.sig != nil {
		sig := *p.sig
		p.mu.Unlock()
		effect(sig)
		return
	}
	p.subs = append(p.subs, effect)
	p.mu.Unlock()
}
