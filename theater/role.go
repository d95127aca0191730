package theater

import "fmt"

// SceneFunc is the body of a scene: it runs on its own coroutine, may yield
// through the flow, and completes with a value or an error.
type SceneFunc func(f *Flow, params ...any) (any, error)

// Playbook is a role's table of named scenes — the structurally verifiable
// "play" marker. Only selectors present in the playbook (or answered by an
// Improviser) can be invoked on the role.
type Playbook map[string]SceneFunc

// Role encapsulates an agent's current transient behaviour.
type Role interface {
	Repertoire() Playbook
}

// Warmer is an optional role interface: Warmup runs as the agent's
// initialization gig; every other gig is postponed until it finishes.
type Warmer interface {
	Warmup(f *Flow, params ...any) error
}

// Retirer is an optional role interface: Retire runs as a fire-and-forget
// janitor scene when the role is disposed.
type Retirer interface {
	Retire(f *Flow) error
}

// Improviser is an optional role interface consulted for selectors missing
// from the repertoire.
type Improviser interface {
	Improvise(selector any, params []any) (SceneFunc, error)
}

// roleBinder is satisfied by roles embedding RoleBase.
type roleBinder interface {
	bindAgent(a *Agent)
}

// RoleBase is the mixin roles embed to gain stagecraft helpers. The helpers
// are valid only while the role's agent is showing; calling them off-stage is
// a protocol violation surfaced as a blooper on the offending gig.
type RoleBase struct {
	agent *Agent
}

func (r *RoleBase) bindAgent(a *Agent) { r.agent = a }

// Agent returns the agent the role is installed on.
func (r *RoleBase) Agent() *Agent { return r.agent }

// Theater returns the owning theater.
func (r *RoleBase) Theater() *Theater { return r.agent.th }

// PlayScene builds an inert gig for a scene on the role's own agent.
func (r *RoleBase) PlayScene(selector any, params ...any) *Gig {
	r.assertShowing("PlayScene")
	return newGig(r.agent, selector, params)
}

// RunScene posts a scene on the role's own agent and returns its gig.
func (r *RoleBase) RunScene(selector any, params ...any) *Gig {
	r.assertShowing("RunScene")
	g := newGig(r.agent, selector, params)
	r.agent.post(g)
	return g
}

// CastChild engages a new agent under the role's agent.
func (r *RoleBase) CastChild(c Casting) *Agent {
	r.assertShowing("CastChild")
	return r.agent.th.cast(c, r.agent)
}

func (r *RoleBase) assertShowing(op string) {
	a := r.agent
	if a == nil {
		panic(fmt.Sprintf("theater: %s on an unbound role", op))
	}
	if !a.showing() {
		panic(fmt.Sprintf("theater: %s while agent %s is off-stage", op, a.id))
	}
}
