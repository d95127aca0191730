package lifecycle

import "testing"

// thing is a minimal status member.
type thing struct {
	name string
	cell Cell[*thing]
}

func (t *thing) StatusCell() *Cell[*thing] { return &t.cell }

func names(s *Status[*thing]) []string {
	var out []string
	for m := range s.All() {
		out = append(out, m.name)
	}
	return out
}

func TestStatusMembershipIsExclusive(t *testing.T) {
	ready := NewStatus[*thing]("ready")
	waiting := NewStatus[*thing]("waiting")

	a := &thing{name: "a"}
	ready.Add(a)

	if !ready.Contains(a) || ready.Size() != 1 {
		t.Fatal("a should be ready")
	}
	if !In(&a.cell, ready) {
		t.Fatal("cell should point at ready")
	}

	waiting.Add(a)
	if ready.Contains(a) || ready.Size() != 0 {
		t.Fatal("moving to waiting must unlink from ready")
	}
	if !waiting.Contains(a) || waiting.Size() != 1 {
		t.Fatal("a should be waiting")
	}
}

func TestStatusKeepsInsertionOrder(t *testing.T) {
	s := NewStatus[*thing]("s")
	a, b, c := &thing{name: "a"}, &thing{name: "b"}, &thing{name: "c"}
	s.Add(a)
	s.Add(b)
	s.Add(c)

	got := names(s)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected order: %v", got)
	}

	// Re-adding moves to the tail.
	s.Add(a)
	got = names(s)
	if got[0] != "b" || got[2] != "a" {
		t.Fatalf("re-add did not move to tail: %v", got)
	}

	first, ok := s.First()
	if !ok || first.name != "b" {
		t.Fatalf("unexpected first: %v", first)
	}
}

func TestStatusDeleteAndClear(t *testing.T) {
	s := NewStatus[*thing]("s")
	a, b := &thing{name: "a"}, &thing{name: "b"}
	s.Add(a)
	s.Add(b)

	s.Delete(a)
	if s.Size() != 1 || a.cell.Linked() {
		t.Fatal("delete did not unlink")
	}

	s.Clear()
	if s.Size() != 0 || b.cell.Linked() {
		t.Fatal("clear did not unlink")
	}
}

func TestDeletingNonMemberPanics(t *testing.T) {
	s := NewStatus[*thing]("s")
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	s.Delete(&thing{name: "stranger"})
}

func TestIterationDetectsModification(t *testing.T) {
	s := NewStatus[*thing]("s")
	a, b := &thing{name: "a"}, &thing{name: "b"}
	s.Add(a)
	s.Add(b)

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on concurrent modification")
		}
	}()
	for m := range s.All() {
		if m == a {
			s.Delete(b)
		}
	}
}

func TestSnapshotSurvivesModification(t *testing.T) {
	s := NewStatus[*thing]("s")
	other := NewStatus[*thing]("other")
	a, b := &thing{name: "a"}, &thing{name: "b"}
	s.Add(a)
	s.Add(b)

	for _, m := range s.Snapshot() {
		other.Add(m)
	}
	if s.Size() != 0 || other.Size() != 2 {
		t.Fatalf("snapshot walk went wrong: %d, %d", s.Size(), other.Size())
	}
}
