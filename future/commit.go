package future

// commitNode terminates a cue tree: revelation fires the external effect.
type commitNode struct {
	child  node
	effect func(Signal)
	done   bool
}

func (c *commitNode) propagate(from node, sig Signal) {
	if from != c.child || c.done {
		panic("future: propagation from an unknown child")
	}
	c.done = true
	c.effect(sig)
}

// Commit is the engine's entry point: it materializes the hint, blocks the
// whole tree and wires the external effect. If the tree resolves while being
// blocked, the effect fires inline and Commit returns nil. Otherwise the
// returned rollback cancels the commitment and every still-pending descendant
// exactly once; calling it after the effect fired is a no-op.
//
// A hint that cannot become a pending cue is reported as a blooper through
// the effect.
func Commit(h Hint, effect func(Signal)) (rollback func()) {
	if effect == nil {
		panic("future: commit requires an effect")
	}
	n, err := materialize(h)
	if err != nil {
		effect(Blooper(err))
		return nil
	}
	c := &commitNode{child: n, effect: effect}
	n.open(c)
	if c.done {
		return nil
	}
	return func() {
		if c.done {
			return
		}
		c.done = true
		c.child.cancel()
	}
}
