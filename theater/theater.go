// Package theater implements a cooperative actor runtime: agents perform
// scene coroutines one gig at a time on a budget-limited stage, organised in
// a supervision tree with per-child verdicts. The asynchronous substrate the
// scenes yield into lives in package future.
package theater

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dohr-michael/theater/events"
	"github.com/dohr-michael/theater/future"
	"github.com/dohr-michael/theater/internal/kernel"
)

var (
	errSurpriseOpenStage    = errors.New("theater: surprise with the stage open")
	errSurpriseNotInert     = errors.New("theater: surprise requires an inert gig")
	errSurpriseUnemployable = errors.New("theater: surprise requires an employable agent")
)

// Config holds construction options for a theater. The zero value works.
type Config struct {
	// Bus receives runtime lifecycle events when set.
	Bus *events.Bus
	// Interrupt budgets; zero values take the defaults.
	ImmediateBudget time.Duration
	FastBudget      time.Duration
	NormalBudget    time.Duration
}

// Theater is the runtime context: the dispatcher loop, the stage scheduler,
// and the three immortal agents bootstrapped at construction. All public
// methods are safe from any goroutine.
type Theater struct {
	loop  *kernel.Loop
	stage *stage
	bus   *events.Bus
	clock future.Clock

	director *Agent
	janitor  *Agent
	troupe   *Agent
}

// New builds a theater and synchronously bootstraps its immortal agents.
func New(cfg Config) *Theater {
	immediate := cfg.ImmediateBudget
	if immediate <= 0 {
		immediate = DefaultImmediateBudget
	}
	fast := cfg.FastBudget
	if fast <= 0 {
		fast = DefaultFastBudget
	}
	normal := cfg.NormalBudget
	if normal <= 0 {
		normal = DefaultNormalBudget
	}

	t := &Theater{
		loop: kernel.New(),
		bus:  cfg.Bus,
	}
	t.stage = newStage(t, immediate, fast, normal)
	t.clock = future.ClockFunc(t.loop.AfterFunc)
	t.loop.Start()
	t.loop.Do(t.bootstrap)
	slog.Debug("theater: opened", "director", t.director.id,
		"janitor", t.janitor.id, "troupe", t.troupe.id)
	return t
}

// bootstrap constructs the immortal director, janitor and troupe. Each
// warmup is driven through a synchronous surprise, so the theater is fully
// employable before New returns.
func (t *Theater) bootstrap() {
	t.director = newAgent(t, nil)
	t.director.manager = t.director
	t.castImmortal(t.director, Casting{Role: newHouseRole("director")})

	t.janitor = newAgent(t, t.director)
	t.engage(t.director, t.janitor, t.immortalGuard("janitor"))
	t.castImmortal(t.janitor, Casting{Role: newHouseRole("janitor")})

	t.troupe = newAgent(t, t.director)
	t.engage(t.director, t.troupe, t.immortalGuard("troupe"))
	t.castImmortal(t.troupe, Casting{Role: newHouseRole("troupe")})
}

// castImmortal installs a role and drives its warmup in one synchronous step.
func (t *Theater) castImmortal(a *Agent, c Casting) {
	role := c.Role()
	if b, ok := role.(roleBinder); ok {
		b.bindAgent(a)
	}
	a.role = role
	if w, ok := role.(Warmer); ok {
		g := newGig(a, SceneFunc(func(f *Flow, params ...any) (any, error) {
			return nil, w.Warmup(f, params...)
		}), c.Params)
		if _, err := t.stage.surprise(g); err != nil {
			panic(fmt.Sprintf("theater: bootstrap warmup failed: %v", err))
		}
	}
	a.negotiate()
}

func (t *Theater) engage(manager, member *Agent, guard Guard) {
	manager.team[member] = guard
	manager.members = append(manager.members, member)
}

// immortalGuard forgives with a log line: the house agents must survive
// whatever their gigs throw at them.
func (t *Theater) immortalGuard(name string) Guard {
	return func(inc Incident) Verdict {
		slog.Warn("theater: scene failed on house agent",
			"agent", name, "selector", fmt.Sprint(inc.Selector), "error", inc.Blooper)
		return Forgive()
	}
}

// rootGuard backs incidents with no engaged guard, including the director's
// own escalations.
func (t *Theater) rootGuard(inc Incident) Verdict {
	slog.Error("theater: unguarded incident reached the root",
		"offender", inc.Offender.id, "error", inc.Blooper)
	return Forgive()
}

// Play builds an inert gig performing a free scene on the troupe.
func (t *Theater) Play(selector any, params ...any) *Gig {
	return newGig(t.troupe, selector, params)
}

// Run posts a free scene on the troupe and returns its running gig.
func (t *Theater) Run(selector any, params ...any) *Gig {
	return t.Play(selector, params...).Run()
}

// Cast engages a new agent under the director and returns its handle.
func (t *Theater) Cast(c Casting) (*Agent, error) {
	if c.Role == nil {
		return nil, errors.New("theater: casting requires a role factory")
	}
	var a *Agent
	t.loop.Do(func() { a = t.cast(c, t.director) })
	return a, nil
}

// Surprise synchronously drives a single inert gig to completion. The stage
// must be closed and the scene must finish in one step.
func (t *Theater) Surprise(g *Gig) (any, error) {
	var (
		v   any
		err error
	)
	t.loop.Do(func() { v, err = t.stage.surprise(g) })
	return v, err
}

// Mourn returns a teleprompter that reveals when the agent dies.
func (t *Theater) Mourn(a *Agent) future.Teleprompter { return a.Mourning() }

// Timeout returns a teleprompter whose cues reveal after d on the theater's
// own clock.
func (t *Theater) Timeout(d time.Duration) future.Teleprompter {
	return future.Timeout(t.clock, d)
}

// Clock exposes the loop-backed clock for custom timer cues.
func (t *Theater) Clock() future.Clock { return t.clock }

// Janitor returns the house agent running disposal and bridge gigs.
func (t *Theater) Janitor() *Agent { return t.janitor }

// Troupe returns the house agent performing free scenes.
func (t *Theater) Troupe() *Agent { return t.troupe }

// Director returns the root of the supervision tree.
func (t *Theater) Director() *Agent { return t.director }

// Close buries the whole supervision tree and stops the dispatcher. The bus,
// if any, stays open — it belongs to the caller.
func (t *Theater) Close() {
	t.loop.Do(func() { t.director.bury() })
	t.loop.Stop()
	slog.Debug("theater: closed")
}

// cast engages a new agent under the given manager. On-loop context.
func (t *Theater) cast(c Casting, manager *Agent) *Agent {
	if manager.destiny.Sealed() {
		panic(fmt.Sprintf("theater: casting under dead agent %s", manager.id))
	}
	a := newAgent(t, manager)
	guard := c.Guard
	if guard == nil {
		guard = DefaultGuard
	}
	t.engage(manager, a, guard)
	a.installRole(c)
	a.negotiate()
	t.publishAgent(events.EventAgentCast, a)
	return a
}

// adjudicate routes an incident through the offender's manager and applies
// the verdict. Escalation re-raises one supervision level up until a guard
// answers something else.
func (t *Theater) adjudicate(inc Incident) {
	offender := inc.Offender
	manager := offender.manager
	verdict := manager.guardFor(offender)(inc)
	t.publishIncident(inc, verdict)

	switch verdict.kind {
	case verdictForgive:
	case verdictPunish:
		offender.suspendTree()
		t.scheduleBurial(offender)
	case verdictEscalate:
		offender.suspendTree()
		t.scheduleBurial(offender)
		if manager != offender {
			t.adjudicate(Incident{
				Offender:   manager,
				Blooper:    fmt.Errorf("theater: escalated from %s: %w", offender.id, inc.Blooper),
				Selector:   inc.Selector,
				Parameters: inc.Parameters,
			})
		}
	case verdictRecast:
		offender.suspendTree()
		t.scheduleRecast(offender, *verdict.casting)
	}
}

// poisoned handles a poison throw: the agent is suspended with its
// descendants and buried by the janitor.
func (t *Theater) poisoned(a *Agent) {
	a.suspendTree()
	t.scheduleBurial(a)
}

func (t *Theater) scheduleBurial(a *Agent) {
	t.runJanitor(func(*Flow, ...any) (any, error) {
		a.bury()
		return nil, nil
	})
}

func (t *Theater) scheduleRecast(a *Agent, c Casting) {
	t.runJanitor(func(*Flow, ...any) (any, error) {
		a.recast(c)
		return nil, nil
	})
}

// runJanitor posts a fire-and-forget scene on the janitor. On-loop context.
func (t *Theater) runJanitor(fn SceneFunc) *Gig {
	g := newGig(t.janitor, fn, nil)
	t.janitor.post(g)
	return g
}

// domesticate rewrites a hint so foreign thenable callbacks land back on the
// dispatcher before revealing anything.
func (t *Theater) domesticate(h future.Hint) future.Hint {
	return future.Domesticate(h, func(f future.Thenable) future.Hint {
		live := false
		return future.Once(
			func(reveal func(future.Signal), _ *future.Cue) {
				live = true
				f.Then(func(sig future.Signal) {
					t.loop.Post(func() {
						if live {
							live = false
							reveal(sig)
						}
					})
				})
			},
			func(revealing bool, _ *future.Cue) {
				if !revealing {
					live = false
				}
			},
		)
	})
}

// houseRole is the role of the immortal bootstrap agents.
type houseRole struct {
	RoleBase
	name string
}

func newHouseRole(name string) func() Role {
	return func() Role { return &houseRole{name: name} }
}

func (r *houseRole) Repertoire() Playbook { return nil }

func (r *houseRole) Warmup(*Flow, ...any) error { return nil }

// publish helpers; all nil-safe on the bus.

func (t *Theater) publish(eventType events.EventType, source events.EventSource, payload map[string]any) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(events.NewEvent(eventType, source, payload))
}

func (t *Theater) publishGigPosted(g *Gig, a *Agent) {
	t.publish(events.EventGigPosted, events.SourceGig, map[string]any{
		"gig":   g.id,
		"agent": a.id,
	})
}

func (t *Theater) publishGigFinished(g *Gig, sig future.Signal) {
	payload := map[string]any{"gig": g.id, "failed": sig.Failed()}
	if err := sig.Err(); err != nil {
		payload["error"] = err.Error()
	}
	t.publish(events.EventGigFinished, events.SourceGig, payload)
}

func (t *Theater) publishAgent(eventType events.EventType, a *Agent) {
	t.publish(eventType, events.SourceAgent, map[string]any{"agent": a.id})
}

func (t *Theater) publishIncident(inc Incident, v Verdict) {
	t.publish(events.EventIncidentJudged, events.SourceAgent, map[string]any{
		"offender": inc.Offender.id,
		"verdict":  v.String(),
		"error":    inc.Blooper.Error(),
	})
}

func (t *Theater) publishInterrupt(priority string, performed int) {
	if performed == 0 {
		return
	}
	t.publish(events.EventStageInterrupt, events.SourceStage, map[string]any{
		"priority":  priority,
		"performed": performed,
	})
}

// shortID builds a prefixed eight-character identifier.
func shortID(prefix string) string {
	u := uuid.New().String()
	return prefix + "_" + strings.ReplaceAll(u[:8], "-", "")
}
