package future

import (
	"errors"
	"fmt"
)

// node is a position in a committed cue tree. Opening happens top-down so a
// synchronously revealed leaf always finds its ancestors pending.
type node interface {
	open(p parent)
	cancel()
	pending() bool
}

// parent receives at most one propagated signal per child node.
type parent interface {
	propagate(from node, sig Signal)
}

// leafNode anchors a single cue in the tree.
type leafNode struct {
	cue *Cue
}

func (l *leafNode) open(p parent) { l.cue.block(l, p) }
func (l *leafNode) cancel()       { l.cue.unblock() }
func (l *leafNode) pending() bool { return l.cue.Pending() }

// captureNode applies a synchronous trap to its child's signal.
type captureNode struct {
	child node
	trap  func(Signal) Signal
	p     parent
	done  bool
}

func (n *captureNode) open(p parent) {
	n.p = p
	n.child.open(n)
}

func (n *captureNode) cancel() {
	if n.done {
		return
	}
	n.done = true
	n.child.cancel()
}

func (n *captureNode) pending() bool { return !n.done }

func (n *captureNode) propagate(from node, sig Signal) {
	if from != n.child || n.done {
		panic("future: propagation from an unknown child")
	}
	n.done = true
	n.p.propagate(n, applyTrap(n.trap, sig))
}

// applyTrap shields the tree from a panicking trap by folding the panic into
// a blooper.
func applyTrap(trap func(Signal) Signal, sig Signal) (out Signal) {
	defer func() {
		if r := recover(); r != nil {
			out = Blooper(fmt.Errorf("future: trap panicked: %v", r))
		}
	}()
	return trap(sig)
}

type familyMode uint8

const (
	familyAll familyMode = iota
	familyAny
	familyRace
	familySettle
)

func (m familyMode) String() string {
	switch m {
	case familyAll:
		return "all"
	case familyAny:
		return "any"
	case familyRace:
		return "race"
	default:
		return "settle"
	}
}

// familyNode owns one or more children (an empty family is rejected by
// materialize) and combines their signals in child insertion order.
type familyNode struct {
	mode      familyMode
	children  []node
	received  []bool
	results   []Signal
	remaining int
	p         parent
	done      bool
}

func (n *familyNode) open(p parent) {
	n.p = p
	for _, child := range n.children {
		if n.done {
			// An earlier sibling short-circuited the family; the rest
			// are never blocked.
			return
		}
		child.open(n)
	}
}

func (n *familyNode) cancel() {
	if n.done {
		return
	}
	n.done = true
	for _, child := range n.children {
		if child.pending() {
			child.cancel()
		}
	}
}

func (n *familyNode) pending() bool { return !n.done }

func (n *familyNode) propagate(from node, sig Signal) {
	idx := -1
	for i, child := range n.children {
		if child == from {
			idx = i
			break
		}
	}
	if idx < 0 || n.done || n.received[idx] {
		panic("future: propagation from an unknown child")
	}
	n.received[idx] = true
	n.results[idx] = sig
	n.remaining--

	switch n.mode {
	case familyAll:
		if sig.Failed() {
			n.resolve(sig)
			return
		}
		if n.remaining == 0 {
			values := make([]any, len(n.results))
			for i, r := range n.results {
				values[i] = r.Value()
			}
			n.resolve(Prompt(values))
		}
	case familyAny:
		if !sig.Failed() {
			n.resolve(sig)
			return
		}
		if n.remaining == 0 {
			bloopers := make([]error, len(n.results))
			for i, r := range n.results {
				bloopers[i] = r.Err()
			}
			n.resolve(Blooper(errors.Join(bloopers...)))
		}
	case familyRace:
		n.resolve(sig)
	case familySettle:
		if n.remaining == 0 {
			settled := make([]Signal, len(n.results))
			copy(settled, n.results)
			n.resolve(Prompt(settled))
		}
	}
}

// resolve seals the family: still-pending children are unblocked before the
// combined signal travels up.
func (n *familyNode) resolve(sig Signal) {
	n.done = true
	for _, child := range n.children {
		if child.pending() {
			child.cancel()
		}
	}
	n.p.propagate(n, sig)
}

// captureHint and familyHint are the composite hint forms; they materialize
// into event nodes when committed.
type captureHint struct {
	hint Hint
	trap func(Signal) Signal
}

type familyHint struct {
	mode  familyMode
	hints []Hint
}

// Capture decorates a hint with a synchronous Signal→Signal trap.
func Capture(h Hint, trap func(Signal) Signal) Hint {
	if trap == nil {
		panic("future: capture requires a trap")
	}
	return captureHint{hint: h, trap: trap}
}

// All combines hints into a prompt vector; the first blooper short-circuits.
func All(hints ...Hint) Hint { return familyHint{mode: familyAll, hints: hints} }

// Any resolves with the first prompt; if every member bloops, the bloopers
// are joined into one aggregate.
func Any(hints ...Hint) Hint { return familyHint{mode: familyAny, hints: hints} }

// Race resolves with the first signal, prompt or blooper.
func Race(hints ...Hint) Hint { return familyHint{mode: familyRace, hints: hints} }

// Settle waits for every member and resolves with the full []Signal.
func Settle(hints ...Hint) Hint { return familyHint{mode: familySettle, hints: hints} }

// materialize turns a hint into an unopened event node.
func materialize(h Hint) (node, error) {
	switch v := h.(type) {
	case nil:
		return nil, errors.New("future: nil hint")
	case *Cue:
		return &leafNode{cue: v}, nil
	case Teleprompter:
		return &leafNode{cue: v.Autocue()}, nil
	case captureHint:
		child, err := materialize(v.hint)
		if err != nil {
			return nil, err
		}
		return &captureNode{child: child, trap: v.trap}, nil
	case familyHint:
		if len(v.hints) == 0 {
			return nil, fmt.Errorf("future: empty %s family", v.mode)
		}
		children := make([]node, len(v.hints))
		for i, hint := range v.hints {
			child, err := materialize(hint)
			if err != nil {
				return nil, err
			}
			children[i] = child
		}
		return &familyNode{
			mode:      v.mode,
			children:  children,
			received:  make([]bool, len(children)),
			results:   make([]Signal, len(children)),
			remaining: len(children),
		}, nil
	case Thenable:
		return &leafNode{cue: adoptThenable(v)}, nil
	default:
		return nil, fmt.Errorf("future: %T is not a hint", h)
	}
}

// adoptThenable turns a foreign promise into a leaf cue. A callback that
// arrives after cancellation is dropped.
func adoptThenable(t Thenable) *Cue {
	return Once(func(reveal func(Signal), c *Cue) {
		t.Then(func(sig Signal) {
			if c.Pending() {
				reveal(sig)
			}
		})
	}, nil)
}

// Domesticate rewrites a hint tree, replacing every foreign thenable through
// wrap. Dispatchers use it to route foreign callbacks back onto their own
// thread before committing.
func Domesticate(h Hint, wrap func(Thenable) Hint) Hint {
	switch v := h.(type) {
	case *Cue, Teleprompter:
		return h
	case captureHint:
		return captureHint{hint: Domesticate(v.hint, wrap), trap: v.trap}
	case familyHint:
		hints := make([]Hint, len(v.hints))
		for i, hint := range v.hints {
			hints[i] = Domesticate(hint, wrap)
		}
		return familyHint{mode: v.mode, hints: hints}
	case Thenable:
		return wrap(v)
	default:
		return h
	}
}
