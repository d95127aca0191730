package future

import (
	"errors"
	"testing"
)

// collect returns an effect that records every signal it receives.
func collect(out *[]Signal) func(Signal) {
	return func(sig Signal) { *out = append(*out, sig) }
}

func TestSparkFiresInline(t *testing.T) {
	var got []Signal
	rollback := Commit(Spark(Prompt(42)), collect(&got))

	if rollback != nil {
		t.Fatal("expected no rollback for a synchronous commit")
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(got))
	}
	if got[0].Failed() || got[0].Value() != 42 {
		t.Fatalf("unexpected signal: %+v", got[0])
	}
}

func TestCaptureEquivalentToTrappedSpark(t *testing.T) {
	trap := func(sig Signal) Signal {
		return Prompt(sig.Value().(int) * 2)
	}

	var viaCapture, viaSpark []Signal
	Commit(Capture(Spark(Prompt(21)), trap), collect(&viaCapture))
	Commit(Spark(trap(Prompt(21))), collect(&viaSpark))

	if len(viaCapture) != 1 || len(viaSpark) != 1 {
		t.Fatalf("expected both commits to fire once, got %d and %d", len(viaCapture), len(viaSpark))
	}
	if viaCapture[0].Value() != viaSpark[0].Value() {
		t.Fatalf("capture %v differs from trapped spark %v", viaCapture[0].Value(), viaSpark[0].Value())
	}
}

func TestCaptureTrapsBloopers(t *testing.T) {
	cause := errors.New("boom")
	trap := func(sig Signal) Signal {
		if sig.Failed() {
			return Prompt("recovered")
		}
		return sig
	}

	var got []Signal
	Commit(Capture(Spark(Blooper(cause)), trap), collect(&got))

	if len(got) != 1 || got[0].Failed() || got[0].Value() != "recovered" {
		t.Fatalf("expected recovered prompt, got %+v", got)
	}
}

func TestAllRevealsVectorSynchronously(t *testing.T) {
	var got []Signal
	rollback := Commit(All(Spark(Prompt("a")), Spark(Prompt("b"))), collect(&got))

	if rollback != nil {
		t.Fatal("expected synchronous resolution")
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(got))
	}
	values, ok := got[0].Value().([]any)
	if !ok || len(values) != 2 || values[0] != "a" || values[1] != "b" {
		t.Fatalf("unexpected vector: %#v", got[0].Value())
	}
}

func TestAllShortCircuitsOnBlooper(t *testing.T) {
	cause := errors.New("first failure")
	cancelled := 0
	pending := Once(func(func(Signal), *Cue) {}, func(revealing bool, _ *Cue) {
		if !revealing {
			cancelled++
		}
	})

	var got []Signal
	rollback := Commit(All(Spark(Blooper(cause)), pending), collect(&got))

	if rollback != nil {
		t.Fatal("expected synchronous short-circuit")
	}
	if len(got) != 1 || !errors.Is(got[0].Err(), cause) {
		t.Fatalf("expected the blooper, got %+v", got)
	}
	if cancelled != 0 {
		// The pending sibling was never blocked: the family resolved
		// before reaching it, so no end callback may run.
		t.Fatalf("unblocked sibling saw %d cancellations", cancelled)
	}
}

func TestAnyAggregatesBloopers(t *testing.T) {
	e1 := errors.New("e1")
	e2 := errors.New("e2")

	var got []Signal
	Commit(Any(Spark(Blooper(e1)), Spark(Blooper(e2))), collect(&got))

	if len(got) != 1 || !got[0].Failed() {
		t.Fatalf("expected one aggregate blooper, got %+v", got)
	}
	if !errors.Is(got[0].Err(), e1) || !errors.Is(got[0].Err(), e2) {
		t.Fatalf("aggregate %v misses a member", got[0].Err())
	}
}

func TestAnyTakesFirstPrompt(t *testing.T) {
	var got []Signal
	Commit(Any(Spark(Blooper(errors.New("e1"))), Spark(Prompt("winner"))), collect(&got))

	if len(got) != 1 || got[0].Failed() || got[0].Value() != "winner" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestRaceCancelsLosersOnce(t *testing.T) {
	ends := 0
	slow := Once(func(func(Signal), *Cue) {}, func(revealing bool, _ *Cue) {
		if revealing {
			t.Fatal("the slow leaf must not reveal")
		}
		ends++
	})

	var got []Signal
	rollback := Commit(Race(slow, Spark(Prompt("x"))), collect(&got))

	if rollback != nil {
		t.Fatal("expected synchronous resolution")
	}
	if len(got) != 1 || got[0].Value() != "x" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if ends != 1 {
		t.Fatalf("slow leaf ended %d times, want exactly 1", ends)
	}
}

func TestSettleCollectsEverySignal(t *testing.T) {
	cause := errors.New("middle")

	var got []Signal
	Commit(Settle(Spark(Prompt(1)), Spark(Blooper(cause)), Spark(Prompt(3))), collect(&got))

	if len(got) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(got))
	}
	settled, ok := got[0].Value().([]Signal)
	if !ok || len(settled) != 3 {
		t.Fatalf("unexpected settle payload: %#v", got[0].Value())
	}
	if settled[0].Value() != 1 || !errors.Is(settled[1].Err(), cause) || settled[2].Value() != 3 {
		t.Fatalf("settle order lost: %+v", settled)
	}
}

func TestRollbackCancelsPendingTree(t *testing.T) {
	begun, ended := 0, 0
	leaf := Once(
		func(func(Signal), *Cue) { begun++ },
		func(revealing bool, _ *Cue) {
			if revealing {
				t.Fatal("cancelled leaf must not reveal")
			}
			ended++
		},
	)

	var got []Signal
	rollback := Commit(leaf, collect(&got))
	if rollback == nil {
		t.Fatal("expected a rollback for a pending commit")
	}
	if begun != 1 {
		t.Fatalf("begin ran %d times", begun)
	}

	rollback()
	rollback() // second call is a no-op

	if ended != 1 {
		t.Fatalf("end ran %d times, want 1", ended)
	}
	if len(got) != 0 {
		t.Fatalf("effect fired after rollback: %+v", got)
	}
}

func TestAsynchronousRevealReachesEffect(t *testing.T) {
	var reveal func(Signal)
	leaf := Once(func(r func(Signal), _ *Cue) { reveal = r }, nil)

	var got []Signal
	rollback := Commit(leaf, collect(&got))
	if rollback == nil {
		t.Fatal("expected a pending commit")
	}

	reveal(Prompt("late"))

	if len(got) != 1 || got[0].Value() != "late" {
		t.Fatalf("unexpected result: %+v", got)
	}
	// The effect fired, so the rollback has nothing left to undo.
	rollback()
}

func TestCommittingUsedCuePanics(t *testing.T) {
	cue := Spark(Prompt(1))
	Commit(cue, func(Signal) {})

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic committing a used cue")
		}
	}()
	Commit(cue, func(Signal) {})
}

func TestBadHintReportsBlooperThroughEffect(t *testing.T) {
	var got []Signal
	rollback := Commit(42, collect(&got))

	if rollback != nil {
		t.Fatal("expected no rollback for a failed commitment")
	}
	if len(got) != 1 || !got[0].Failed() {
		t.Fatalf("expected a blooper, got %+v", got)
	}
}

func TestBadHintInsideFamilyFailsWholeCommit(t *testing.T) {
	var got []Signal
	Commit(All(Spark(Prompt(1)), "nope"), collect(&got))

	if len(got) != 1 || !got[0].Failed() {
		t.Fatalf("expected a blooper, got %+v", got)
	}
}

func TestTeleprompterProducesFreshCues(t *testing.T) {
	begun := 0
	tele := Often(func(reveal func(Signal), _ *Cue) {
		begun++
		reveal(Prompt(begun))
	}, nil)

	var first, second []Signal
	Commit(tele, collect(&first))
	Commit(tele, collect(&second))

	if first[0].Value() != 1 || second[0].Value() != 2 {
		t.Fatalf("teleprompter reused a cue: %v, %v", first[0].Value(), second[0].Value())
	}
}

func TestPledgeBridgesAsForeignHint(t *testing.T) {
	p := NewPledge()

	var got []Signal
	rollback := Commit(p, collect(&got))
	if rollback == nil {
		t.Fatal("expected a pending commit")
	}

	p.Resolve("settled")
	if len(got) != 1 || got[0].Value() != "settled" {
		t.Fatalf("unexpected result: %+v", got)
	}

	// Settling twice must not re-fire.
	p.Reject(errors.New("ignored"))
	if len(got) != 1 {
		t.Fatalf("pledge fired twice: %+v", got)
	}
}

func TestSettledPledgeFiresInline(t *testing.T) {
	p := NewPledge()
	p.Resolve(7)

	var got []Signal
	rollback := Commit(p, collect(&got))
	if rollback != nil {
		t.Fatal("expected synchronous commit on a settled pledge")
	}
	if len(got) != 1 || got[0].Value() != 7 {
		t.Fatalf("unexpected result: %+v", got)
	}
}
