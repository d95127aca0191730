// Package lifecycle provides the intrusive bookkeeping primitives of the
// runtime: exclusive-status membership lists and one-shot destinies.
// Everything is single-threaded by contract.
package lifecycle

import (
	"fmt"
	"iter"
)

// Member is implemented by anything that can be linked into a Status. The
// cell is embedded in the member and owned by whichever status currently
// holds it.
type Member[M any] interface {
	comparable
	StatusCell() *Cell[M]
}

// Cell is the intrusive link. Its zero value means "no status".
type Cell[M any] struct {
	owner      M
	status     any // *Status[M]; asserted back in unlink
	prev, next *Cell[M]
}

// In reports whether the cell is currently linked into s.
func In[M Member[M]](c *Cell[M], s *Status[M]) bool { return c.status == s }

// Linked reports whether the cell belongs to any status.
func (c *Cell[M]) Linked() bool { return c.status != nil }

// Status is a named exclusive membership list: a circular doubly-linked list
// in which every member appears at most once across all statuses. Adding a
// member to one status unlinks it from its previous one. A revision counter
// turns modification during iteration into a fatal programming error.
type Status[M Member[M]] struct {
	name string
	head Cell[M] // sentinel
	size int
	rev  uint64
}

// NewStatus creates an empty status with a diagnostic name.
func NewStatus[M Member[M]](name string) *Status[M] {
	s := &Status[M]{name: name}
	s.head.prev = &s.head
	s.head.next = &s.head
	return s
}

// Name returns the diagnostic name.
func (s *Status[M]) Name() string { return s.name }

// Size returns the number of members.
func (s *Status[M]) Size() int { return s.size }

// Contains reports whether m is currently in this status.
func (s *Status[M]) Contains(m M) bool { return m.StatusCell().status == s }

// Add links m at the tail, unlinking it from its previous status first.
// Re-adding a member moves it to the tail.
func (s *Status[M]) Add(m M) {
	c := m.StatusCell()
	if c.status != nil {
		unlink[M](c)
	}
	c.owner = m
	c.status = s
	c.prev = s.head.prev
	c.next = &s.head
	s.head.prev.next = c
	s.head.prev = c
	s.size++
	s.rev++
}

// Delete unlinks m. It is a fatal error to delete a non-member.
func (s *Status[M]) Delete(m M) {
	c := m.StatusCell()
	if c.status != s {
		panic(fmt.Sprintf("lifecycle: deleting non-member from status %q", s.name))
	}
	unlink[M](c)
}

// Remove unlinks m from whatever status holds it, if any.
func Remove[M Member[M]](m M) {
	c := m.StatusCell()
	if c.status != nil {
		unlink[M](c)
	}
}

// Clear unlinks every member.
func (s *Status[M]) Clear() {
	for s.head.next != &s.head {
		unlink[M](s.head.next)
	}
}

// First returns the oldest member.
func (s *Status[M]) First() (M, bool) {
	if s.size == 0 {
		var zero M
		return zero, false
	}
	return s.head.next.owner, true
}

// All iterates members in insertion order. Modifying the status while
// iterating is a fatal programming error.
func (s *Status[M]) All() iter.Seq[M] {
	return func(yield func(M) bool) {
		rev := s.rev
		for c := s.head.next; c != &s.head; c = c.next {
			if !yield(c.owner) {
				return
			}
			if s.rev != rev {
				panic(fmt.Sprintf("lifecycle: status %q modified during iteration", s.name))
			}
		}
	}
}

// Snapshot copies the current membership into a slice, for walks that will
// move members between statuses.
func (s *Status[M]) Snapshot() []M {
	members := make([]M, 0, s.size)
	for c := s.head.next; c != &s.head; c = c.next {
		members = append(members, c.owner)
	}
	return members
}

func unlink[M Member[M]](c *Cell[M]) {
	s := c.status.(*Status[M])
	c.prev.next = c.next
	c.next.prev = c.prev
	c.prev, c.next = nil, nil
	c.status = nil
	var zero M
	c.owner = zero
	s.size--
	s.rev++
}
