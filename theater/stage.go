package theater

import (
	"iter"
	"log/slog"
	"time"

	"github.com/dohr-michael/theater/lifecycle"
)

type priority uint8

const (
	priorityImmediate priority = iota
	priorityFast
	priorityNormal
)

func (p priority) String() string {
	switch p {
	case priorityImmediate:
		return "immediate"
	case priorityFast:
		return "fast"
	default:
		return "normal"
	}
}

// Default interrupt budgets per dispatch priority.
const (
	DefaultImmediateBudget = 4 * time.Millisecond
	DefaultFastBudget      = 6 * time.Millisecond
	DefaultNormalBudget    = 10 * time.Millisecond
)

// interrupt is one scheduled opportunity to run gigs under a time budget.
type interrupt struct {
	priority priority
	budget   time.Duration
	playlist iter.Seq[*Gig]
}

// stage is the global scheduler: it owns the exclusive agent statuses and
// drives one gig at a time.
type stage struct {
	th *Theater

	active *lifecycle.Status[*Gig]
	busy   *lifecycle.Status[*Agent]

	suspended *lifecycle.Status[*Agent]
	ready     *lifecycle.Status[*Agent]
	waiting   *lifecycle.Status[*Agent]
	idle      *lifecycle.Status[*Agent]

	handling      *interrupt
	willEntertain bool

	budgets [3]time.Duration
}

func newStage(t *Theater, immediate, fast, normal time.Duration) *stage {
	return &stage{
		th:        t,
		active:    lifecycle.NewStatus[*Gig]("active"),
		busy:      lifecycle.NewStatus[*Agent]("busy"),
		suspended: lifecycle.NewStatus[*Agent]("suspended"),
		ready:     lifecycle.NewStatus[*Agent]("ready"),
		waiting:   lifecycle.NewStatus[*Agent]("waiting"),
		idle:      lifecycle.NewStatus[*Agent]("idle"),
		budgets:   [3]time.Duration{immediate, fast, normal},
	}
}

// handle runs an interrupt: one gig at a time, stage emptied between gigs,
// until the playlist or the budget runs out. Interrupt handling never nests.
func (s *stage) handle(i *interrupt) {
	if s.handling != nil {
		panic("theater: nested interrupt")
	}
	s.handling = i
	defer func() { s.handling = nil }()

	start := time.Now()
	performed := 0
	for g := range i.playlist {
		if s.active.Size() != 0 || s.busy.Size() != 0 {
			panic("theater: the stage is not empty")
		}
		s.active.Add(g)
		s.busy.Add(g.agent)
		g.takeStage()
		if s.active.Size() != 0 || s.busy.Size() != 0 {
			panic("theater: a gig left the stage occupied")
		}
		performed++
		if time.Since(start) >= i.budget {
			slog.Debug("theater: interrupt budget exhausted",
				"priority", i.priority.String(), "performed", performed)
			break
		}
	}
	s.th.publishInterrupt(i.priority.String(), performed)

	if s.ready.Size() > 0 {
		s.entertain(priorityNormal)
	}
}

// entertain arms a regular-entertainment interrupt at the given priority,
// debounced through willEntertain.
func (s *stage) entertain(p priority) {
	if s.willEntertain || s.ready.Size() == 0 {
		return
	}
	s.willEntertain = true
	run := func() {
		s.willEntertain = false
		s.handle(&interrupt{
			priority: p,
			budget:   s.budgets[p],
			playlist: s.regularPlaylist,
		})
	}
	if p == priorityFast {
		s.th.loop.Microtask(run)
		return
	}
	s.th.loop.Post(run)
}

// regularPlaylist yields the first workload gig of each ready agent, in the
// order the agents became ready. The membership is snapshotted so gigs moving
// between statuses mid-interrupt cannot disturb the walk.
func (s *stage) regularPlaylist(yield func(*Gig) bool) {
	for _, a := range s.ready.Snapshot() {
		if !s.ready.Contains(a) || a.suspended {
			continue
		}
		g, ok := a.workload.First()
		if !ok {
			continue
		}
		if !yield(g) {
			return
		}
	}
}

// surprise drives a single inert gig through an immediate interrupt. The
// stage must be closed, the agent employable, and the scene must finish in
// one step.
func (s *stage) surprise(g *Gig) (any, error) {
	if s.handling != nil {
		return nil, errSurpriseOpenStage
	}
	if g == nil || !g.inert() {
		return nil, errSurpriseNotInert
	}
	a := g.agent
	if !a.Alive() || a.suspended {
		return nil, errSurpriseUnemployable
	}

	s.handle(&interrupt{
		priority: priorityImmediate,
		budget:   s.budgets[priorityImmediate],
		playlist: func(yield func(*Gig) bool) { yield(g) },
	})

	fate, ok := g.destiny.Fate()
	if !ok {
		g.stopNow(ErrUnfinishedSurprise)
		return nil, ErrUnfinishedSurprise
	}
	return fate.Unpack()
}
