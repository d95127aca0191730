package theater

import (
	"context"
	"errors"

	"github.com/dohr-michael/theater/future"
	"github.com/dohr-michael/theater/lifecycle"
)

var (
	// ErrGhost is the blooper stopping gigs posted on a dead agent.
	ErrGhost = errors.New("theater: agent is dead")
	// ErrReset is the blooper stopping pending gigs when their agent is
	// reset or buried.
	ErrReset = errors.New("theater: agent reset")
	// ErrUnfinishedSurprise reports a surprise scene that needed more than
	// one step.
	ErrUnfinishedSurprise = errors.New("theater: surprise scene did not finish in one step")
)

// Gig is one unit of work: a scene performed by an agent. A gig is inert
// until posted, then waits in one of its agent's queues, takes the stage one
// step at a time, and settles into a fate exactly once.
type Gig struct {
	id       string
	th       *Theater
	agent    *Agent
	selector any
	params   []any

	scene    *scene
	progress *future.Signal
	rollback func()

	destiny lifecycle.Destiny
	cell    lifecycle.Cell[*Gig]
}

func newGig(a *Agent, selector any, params []any) *Gig {
	return &Gig{
		id:       shortID("gig"),
		th:       a.th,
		agent:    a,
		selector: selector,
		params:   params,
	}
}

// StatusCell implements lifecycle.Member.
func (g *Gig) StatusCell() *lifecycle.Cell[*Gig] { return &g.cell }

// ID returns the gig's identifier.
func (g *Gig) ID() string { return g.id }

// Completion returns a teleprompter over the gig's fate, for scenes that
// want to yield until this gig settles. It does not start the gig.
func (g *Gig) Completion() future.Teleprompter { return &g.destiny }

// Fate returns the gig's final signal, if settled.
func (g *Gig) Fate() (future.Signal, bool) { return g.destiny.Fate() }

// Finished reports whether the gig has settled.
func (g *Gig) Finished() bool { return g.destiny.Sealed() }

// inert reports whether the gig has never been posted nor started.
func (g *Gig) inert() bool {
	return !g.destiny.Sealed() && !g.cell.Linked() && g.scene == nil && g.agent != nil
}

// Run starts an inert gig. Safe from any goroutine; no-op otherwise.
func (g *Gig) Run() *Gig {
	g.th.loop.Post(g.start)
	return g
}

// Stop finishes a pending gig with the given blooper and rolls back its
// commitment. Stopping an inert or settled gig is a no-op.
func (g *Gig) Stop(reason error) {
	g.th.loop.Post(func() {
		if g.inert() {
			return
		}
		g.stopNow(reason)
	})
}

// Wait forces the gig to run if it is still inert and blocks until its fate
// settles or the context ends. The bridge to the caller is a helper gig on
// the janitor, so completion travels through the theater like every other
// signal. Wait must not be called from a scene — yield on Completion there.
func (g *Gig) Wait(ctx context.Context) (any, error) {
	ch := make(chan future.Signal, 1)
	g.th.loop.Post(func() {
		g.start()
		g.th.runJanitor(func(f *Flow, _ ...any) (any, error) {
			v, err := f.When(&g.destiny)
			if err != nil {
				ch <- future.Blooper(err)
			} else {
				ch <- future.Prompt(v)
			}
			return nil, nil
		})
	})
	select {
	case sig := <-ch:
		return sig.Unpack()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// start posts an inert gig on its agent. On-loop context.
func (g *Gig) start() {
	if !g.inert() {
		return
	}
	g.agent.post(g)
}

// takeStage performs one step of the scene. The stage has already linked the
// gig into active and its agent into busy; both are emptied again on exit.
func (g *Gig) takeStage() {
	agent := g.agent
	stage := g.th.stage

	defer func() {
		if stage.active.Contains(g) {
			stage.active.Delete(g)
		}
		if stage.busy.Contains(agent) {
			stage.busy.Delete(agent)
		}
		agent.negotiate()
	}()

	var sig future.Signal
	if g.progress != nil {
		sig = *g.progress
		g.progress = nil
	}

	if g.scene == nil {
		fn, err := agent.createScene(g.selector, g.params)
		if err != nil {
			g.judge(err)
			return
		}
		g.scene = newScene(g, fn, g.params)
	}

	st := g.scene.resumeWith(sig)
	switch {
	case st.yielded:
		g.commitHint(st.hint)
		if !g.destiny.Sealed() {
			agent.post(g)
		}
	case st.err == nil:
		g.finish(future.Prompt(st.value))
	case errors.Is(st.err, errPoison):
		g.finish(future.Prompt(true))
		g.th.poisoned(agent)
	default:
		g.judge(st.err)
	}
}

// commitHint commits the yielded hint. A synchronous firing leaves progress
// set so the gig goes straight back to the workload; otherwise the rollback
// is held and the gig waits on the agenda.
func (g *Gig) commitHint(h future.Hint) {
	committing := true
	h = g.th.domesticate(h)
	rollback := future.Commit(h, func(sig future.Signal) {
		if committing {
			g.progress = &sig
			return
		}
		g.signalled(sig)
	})
	committing = false
	if rollback != nil {
		g.rollback = rollback
	}
}

// signalled is the asynchronous effect of the gig's commitment: the hint has
// revealed and the gig is ready for another step.
func (g *Gig) signalled(sig future.Signal) {
	if g.destiny.Sealed() {
		return
	}
	g.rollback = nil
	g.progress = &sig
	a := g.agent
	a.workload.Add(g)
	a.negotiate()
}

// judge settles the gig as a blooper and routes the incident through the
// offender's manager.
func (g *Gig) judge(err error) {
	incident := Incident{
		Offender:   g.agent,
		Blooper:    err,
		Selector:   g.selector,
		Parameters: g.params,
	}
	g.finish(future.Blooper(err))
	g.th.adjudicate(incident)
}

// stopNow settles the gig with a blooper, rolls back its commitment, and
// unwinds its coroutine. On-loop context.
func (g *Gig) stopNow(reason error) {
	if g.destiny.Sealed() {
		return
	}
	rb := g.rollback
	g.rollback = nil
	sc := g.scene
	g.finish(future.Blooper(reason))
	if rb != nil {
		rb()
	}
	if sc != nil {
		sc.dispose()
	}
}

// finish fixes the gig's fate exactly once and clears everything else.
func (g *Gig) finish(sig future.Signal) {
	if g.destiny.Sealed() {
		panic("theater: gig finished twice")
	}
	lifecycle.Remove[*Gig](g)
	agent := g.agent
	g.agent = nil
	g.selector = nil
	g.params = nil
	g.scene = nil
	g.progress = nil
	g.rollback = nil
	if agent != nil && agent.initializing == g {
		agent.initializationDone()
	}
	g.destiny.Finish(sig)
	g.th.publishGigFinished(g, sig)
}
