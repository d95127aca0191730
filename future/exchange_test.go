package future

import "testing"

func TestRendezvousProducerFirst(t *testing.T) {
	x := NewExchange(0)

	var produced, consumed []Signal
	if rb := Commit(x.Produce(7), collect(&produced)); rb == nil {
		t.Fatal("producer should block on an empty rendezvous")
	}
	if !x.IsOverflowing() {
		t.Fatal("expected a blocked producer")
	}

	if rb := Commit(x.Consume(), collect(&consumed)); rb != nil {
		t.Fatal("consumer should complete synchronously against a blocked producer")
	}

	if len(consumed) != 1 || consumed[0].Value() != 7 {
		t.Fatalf("consumer got %+v", consumed)
	}
	if len(produced) != 1 || produced[0].Failed() || produced[0].Value() != nil {
		t.Fatalf("producer got %+v", produced)
	}
	if x.IsOverflowing() || x.IsUnderflowing() || !x.IsEmpty() {
		t.Fatal("exchange queues not drained")
	}
}

func TestRendezvousConsumerFirst(t *testing.T) {
	x := NewExchange(0)

	var produced, consumed []Signal
	if rb := Commit(x.Consume(), collect(&consumed)); rb == nil {
		t.Fatal("consumer should block on an empty rendezvous")
	}
	if !x.IsUnderflowing() {
		t.Fatal("expected a blocked consumer")
	}

	if rb := Commit(x.Produce("direct"), collect(&produced)); rb != nil {
		t.Fatal("producer should complete synchronously against a blocked consumer")
	}

	if len(consumed) != 1 || consumed[0].Value() != "direct" {
		t.Fatalf("consumer got %+v", consumed)
	}
	if len(produced) != 1 {
		t.Fatalf("producer got %+v", produced)
	}
	if x.IsOverflowing() || x.IsUnderflowing() {
		t.Fatal("exchange queues not drained")
	}
}

func TestBufferingUpToCapacity(t *testing.T) {
	x := NewExchange(2)

	var produced []Signal
	Commit(x.Produce(1), collect(&produced))
	Commit(x.Produce(2), collect(&produced))
	if len(produced) != 2 {
		t.Fatalf("expected 2 buffered produces, got %d", len(produced))
	}
	if !x.IsFull() || x.Size() != 2 {
		t.Fatalf("expected a full buffer, size %d", x.Size())
	}

	// The third producer overflows.
	rb := Commit(x.Produce(3), collect(&produced))
	if rb == nil {
		t.Fatal("third producer should block")
	}
	if !x.IsOverflowing() {
		t.Fatal("expected overflow")
	}

	// Consuming drains FIFO and wakes the blocked producer.
	var consumed []Signal
	Commit(x.Consume(), collect(&consumed))
	if consumed[0].Value() != 1 {
		t.Fatalf("expected oldest item first, got %v", consumed[0].Value())
	}
	if len(produced) != 3 {
		t.Fatal("blocked producer was not woken")
	}
	if x.IsOverflowing() || !x.IsFull() {
		t.Fatal("woken producer should have refilled the buffer")
	}
}

func TestCancellingBlockedProducer(t *testing.T) {
	x := NewExchange(0)

	rb := Commit(x.Produce("doomed"), func(Signal) { t.Fatal("cancelled producer must not reveal") })
	rb()

	if x.IsOverflowing() {
		t.Fatal("cancelled producer still queued")
	}

	// A later consumer blocks instead of receiving the withdrawn item.
	if rb := Commit(x.Consume(), func(Signal) { t.Fatal("no item to consume") }); rb == nil {
		t.Fatal("consumer should block")
	}
}

func TestCancellingBlockedConsumer(t *testing.T) {
	x := NewExchange(0)

	rb := Commit(x.Consume(), func(Signal) { t.Fatal("cancelled consumer must not reveal") })
	rb()

	if x.IsUnderflowing() {
		t.Fatal("cancelled consumer still queued")
	}

	var produced []Signal
	if rb := Commit(x.Produce(1), collect(&produced)); rb == nil {
		t.Fatal("producer should block: the consumer is gone")
	}
}

func TestExchangeInvariants(t *testing.T) {
	x := NewExchange(1)

	Commit(x.Produce("a"), func(Signal) {})
	if x.IsOverflowing() && !x.IsFull() {
		t.Fatal("overflowing implies full")
	}

	Commit(x.Produce("b"), func(Signal) {})
	if x.IsOverflowing() && x.IsUnderflowing() {
		t.Fatal("overflow and underflow cannot coexist")
	}
	if !x.IsFull() {
		t.Fatal("expected a full buffer")
	}
}
