package theater

import (
	"fmt"
	"log/slog"

	"github.com/dohr-michael/theater/events"

	"github.com/dohr-michael/theater/future"
	"github.com/dohr-michael/theater/lifecycle"
)

// Agent owns a role, a team of child agents, and three gig queues. It is
// identified by an opaque handle and dies at most once.
type Agent struct {
	id string
	th *Theater

	manager *Agent
	team    map[*Agent]Guard
	members []*Agent // cast order

	suspended    bool
	initializing *Gig

	workload  *lifecycle.Status[*Gig]
	agenda    *lifecycle.Status[*Gig]
	postponed *lifecycle.Status[*Gig]

	role    Role
	destiny lifecycle.Destiny
	cell    lifecycle.Cell[*Agent]
}

func newAgent(t *Theater, manager *Agent) *Agent {
	a := &Agent{
		id:      shortID("agent"),
		th:      t,
		manager: manager,
		team:    make(map[*Agent]Guard),
	}
	a.workload = lifecycle.NewStatus[*Gig](a.id + "/workload")
	a.agenda = lifecycle.NewStatus[*Gig](a.id + "/agenda")
	a.postponed = lifecycle.NewStatus[*Gig](a.id + "/postponed")
	return a
}

// StatusCell implements lifecycle.Member.
func (a *Agent) StatusCell() *lifecycle.Cell[*Agent] { return &a.cell }

// ID returns the agent's handle.
func (a *Agent) ID() string { return a.id }

// Alive reports whether the agent has not been buried.
func (a *Agent) Alive() bool { return !a.destiny.Sealed() }

// Manager returns the supervising agent. The director manages itself.
func (a *Agent) Manager() *Agent { return a.manager }

// Mourning returns a teleprompter that reveals when the agent dies —
// immediately, if it already has.
func (a *Agent) Mourning() future.Teleprompter { return &a.destiny }

// Play builds an inert gig for a scene on this agent.
func (a *Agent) Play(selector any, params ...any) *Gig {
	return newGig(a, selector, params)
}

// Run posts a scene on this agent and returns its gig. Safe from any
// goroutine.
func (a *Agent) Run(selector any, params ...any) *Gig {
	return a.Play(selector, params...).Run()
}

// Kill schedules the agent's death and returns a gig that settles to true
// once the agent is buried. Killing a dead agent settles immediately.
func (a *Agent) Kill() *Gig {
	t := a.th
	g := newGig(t.janitor, SceneFunc(func(f *Flow, _ ...any) (any, error) {
		if a.Alive() {
			a.post(newGig(a, poisonScene, nil))
		}
		if _, err := f.When(&a.destiny); err != nil {
			return nil, err
		}
		return true, nil
	}), nil)
	t.loop.Post(g.start)
	return g
}

// poisonScene kills the performing agent from inside.
func poisonScene(*Flow, ...any) (any, error) {
	panic(poisonPanic{})
}

// showing reports whether one of this agent's gigs currently holds the
// stage.
func (a *Agent) showing() bool {
	return a.th.stage.busy.Contains(a)
}

// post routes a gig into the right queue and renegotiates. Posting on a dead
// agent stops the gig with a ghost blooper.
func (a *Agent) post(g *Gig) {
	if g.agent != a {
		panic(fmt.Sprintf("theater: posting a foreign gig on agent %s", a.id))
	}
	if a.destiny.Sealed() {
		g.stopNow(ErrGhost)
		return
	}
	switch {
	case a.initializing != nil && g != a.initializing:
		a.postponed.Add(g)
	case g.rollback != nil:
		a.agenda.Add(g)
	default:
		a.workload.Add(g)
	}
	a.th.publishGigPosted(g, a)
	a.negotiate()
}

// negotiate moves the agent between the stage's exclusive statuses. A busy
// agent is left alone; the stage renegotiates when the gig returns.
func (a *Agent) negotiate() {
	s := a.th.stage
	if s.busy.Contains(a) {
		return
	}
	switch {
	case a.destiny.Sealed():
		lifecycle.Remove[*Agent](a)
	case a.suspended:
		s.suspended.Add(a)
	case a.workload.Size() > 0:
		if !s.ready.Contains(a) {
			s.ready.Add(a)
		}
		s.entertain(priorityFast)
	case a.agenda.Size() > 0 || a.postponed.Size() > 0:
		s.waiting.Add(a)
	default:
		s.idle.Add(a)
	}
}

// createScene resolves a selector into a scene body: a function selector is
// used as-is, a string is looked up in the role's repertoire, and anything
// else is offered to the role's improviser.
func (a *Agent) createScene(selector any, params []any) (SceneFunc, error) {
	switch sel := selector.(type) {
	case SceneFunc:
		return sel, nil
	case func(*Flow, ...any) (any, error):
		return sel, nil
	case string:
		if a.role != nil {
			if fn, ok := a.role.Repertoire()[sel]; ok {
				return fn, nil
			}
		}
	}
	if imp, ok := a.role.(Improviser); ok {
		return imp.Improvise(selector, params)
	}
	return nil, fmt.Errorf("theater: agent %s has no scene for selector %v", a.id, selector)
}

// installRole builds the casting's role, binds it, and posts the warmup gig
// when the role warms up.
func (a *Agent) installRole(c Casting) {
	if c.Role == nil {
		panic("theater: casting requires a role factory")
	}
	role := c.Role()
	if b, ok := role.(roleBinder); ok {
		b.bindAgent(a)
	}
	a.role = role
	if w, ok := role.(Warmer); ok {
		g := newGig(a, SceneFunc(func(f *Flow, params ...any) (any, error) {
			return nil, w.Warmup(f, params...)
		}), c.Params)
		a.initializing = g
		a.post(g)
	}
}

// initializationDone promotes postponed gigs into the workload.
func (a *Agent) initializationDone() {
	a.initializing = nil
	for _, g := range a.postponed.Snapshot() {
		a.workload.Add(g)
	}
	a.negotiate()
}

// suspendTree suspends the agent and all of its descendants.
func (a *Agent) suspendTree() {
	if !a.suspended {
		a.suspended = true
		a.th.publishAgent(events.EventAgentSuspended, a)
	}
	for _, m := range a.members {
		m.suspendTree()
	}
	a.negotiate()
}

// reset stops every pending gig, buries the team in reverse cast order, and
// retires the role via a janitor scene.
func (a *Agent) reset() {
	a.initializing = nil
	for _, g := range a.agenda.Snapshot() {
		g.stopNow(ErrReset)
	}
	for _, g := range a.workload.Snapshot() {
		g.stopNow(ErrReset)
	}
	for _, g := range a.postponed.Snapshot() {
		g.stopNow(ErrReset)
	}
	members := a.members
	a.members = nil
	a.team = make(map[*Agent]Guard)
	for i := len(members) - 1; i >= 0; i-- {
		members[i].bury()
	}
	role := a.role
	a.role = nil
	if r, ok := role.(Retirer); ok {
		a.th.runJanitor(func(f *Flow, _ ...any) (any, error) {
			if err := r.Retire(f); err != nil {
				slog.Warn("theater: role retirement failed", "agent", a.id, "error", err)
			}
			return nil, nil
		})
	}
}

// bury resets the agent and seals its destiny. Idempotent.
func (a *Agent) bury() {
	if a.destiny.Sealed() {
		return
	}
	a.suspended = true
	a.reset()
	if a.manager != nil && a.manager != a {
		a.manager.dropMember(a)
	}
	lifecycle.Remove[*Agent](a)
	a.destiny.Finish(future.Prompt(true))
	a.th.publishAgent(events.EventAgentBuried, a)
}

// recast re-installs a fresh role after killing every descendant.
func (a *Agent) recast(c Casting) {
	if a.destiny.Sealed() {
		return
	}
	a.reset()
	a.suspended = false
	a.installRole(c)
	a.negotiate()
	a.th.publishAgent(events.EventAgentResumed, a)
}

// dropMember detaches a buried child from the team.
func (a *Agent) dropMember(m *Agent) {
	delete(a.team, m)
	for i, member := range a.members {
		if member == m {
			a.members = append(a.members[:i], a.members[i+1:]...)
			break
		}
	}
}

// guardFor returns the guard engaged for a member.
func (a *Agent) guardFor(member *Agent) Guard {
	if g, ok := a.team[member]; ok && g != nil {
		return g
	}
	return a.th.rootGuard
}
