package theater

import (
	"errors"
	"fmt"
	"time"

	"github.com/dohr-michael/theater/future"
)

// errPoison is the sentinel delivered when a scene is being killed. Scenes
// must not recover it.
var errPoison = errors.New("theater: poison")

// poisonPanic unwinds a scene coroutine through user defers.
type poisonPanic struct{}

// step is one observable advance of a scene coroutine.
type step struct {
	yielded bool
	hint    future.Hint
	value   any
	err     error
}

// scene is a coroutine: a goroutine that rendezvouses with the stage over
// unbuffered channels. Exactly one of {stage, scene} runs at any instant, so
// a scene body may touch theater state directly while it holds the turn.
type scene struct {
	fn      SceneFunc
	flow    *Flow
	params  []any
	resume  chan future.Signal
	steps   chan step
	started bool
	dead    bool
}

func newScene(g *Gig, fn SceneFunc, params []any) *scene {
	s := &scene{
		fn:     fn,
		params: params,
		resume: make(chan future.Signal),
		steps:  make(chan step),
	}
	s.flow = &Flow{gig: g, scene: s}
	return s
}

// resumeWith hands the turn to the scene and blocks until it yields a hint,
// returns, or throws.
func (s *scene) resumeWith(sig future.Signal) step {
	if s.dead {
		panic("theater: resuming a dead scene")
	}
	if !s.started {
		s.started = true
		go s.run()
	}
	s.resume <- sig
	st := <-s.steps
	if !st.yielded {
		s.dead = true
	}
	return st
}

func (s *scene) run() {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(poisonPanic); ok {
				s.steps <- step{err: errPoison}
				return
			}
			s.steps <- step{err: asError(r)}
		}
	}()
	<-s.resume
	v, err := s.fn(s.flow, s.params...)
	if err != nil {
		s.steps <- step{err: err}
		return
	}
	s.steps <- step{value: v}
}

// dispose unwinds a suspended coroutine with poison so its goroutine exits
// and its defers run. The outcome is discarded.
func (s *scene) dispose() {
	for s.started && !s.dead {
		s.resumeWith(future.Blooper(errPoison))
	}
	s.dead = true
}

func asError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("theater: scene panicked: %v", r)
}

// Flow is the in-scene face of a gig. All of its methods are only valid on
// the scene coroutine while the gig is on stage.
type Flow struct {
	gig   *Gig
	scene *scene
}

// When yields the hint and suspends the scene until the commitment signals.
// The signal comes back as (value, error).
func (f *Flow) When(h future.Hint) (any, error) {
	f.scene.steps <- step{yielded: true, hint: h}
	sig := <-f.scene.resume
	if errors.Is(sig.Err(), errPoison) {
		panic(poisonPanic{})
	}
	return sig.Unpack()
}

// Sleep yields into a timeout cue.
func (f *Flow) Sleep(d time.Duration) error {
	_, err := f.When(f.Theater().Timeout(d))
	return err
}

// Surprise is the in-scene counterpart of Theater.Surprise. It always fails:
// a scene holds the stage open, and surprise requires it closed.
func (f *Flow) Surprise(g *Gig) (any, error) {
	return f.gig.th.stage.surprise(g)
}

// Cast engages a new agent under the performing agent. Scenes must use this
// instead of Theater.Cast, which marshals onto the dispatcher and would
// deadlock against the stage.
func (f *Flow) Cast(c Casting) *Agent {
	return f.gig.th.cast(c, f.gig.agent)
}

// Theater returns the owning theater.
func (f *Flow) Theater() *Theater { return f.gig.th }

// Agent returns the agent performing the scene.
func (f *Flow) Agent() *Agent { return f.gig.agent }

// Gig returns the gig carrying the scene.
func (f *Flow) Gig() *Gig { return f.gig }
