package future

// blockedProducer is a producer waiting for buffer room.
type blockedProducer struct {
	item      any
	reveal    func(Signal)
	cancelled bool
}

// blockedConsumer is a consumer waiting for an item.
type blockedConsumer struct {
	reveal    func(Signal)
	cancelled bool
}

// Exchange is a bounded producer/consumer buffer. At most one of the two
// waiting queues is non-empty; producers wait only when the buffer is full
// and consumers only when it is empty.
type Exchange struct {
	capacity  int
	items     []any
	producers []*blockedProducer
	consumers []*blockedConsumer
}

// NewExchange creates an exchange with the given capacity. Capacity zero is a
// rendezvous: every item travels directly from a producer to a consumer.
func NewExchange(capacity int) *Exchange {
	if capacity < 0 {
		panic("future: negative exchange capacity")
	}
	return &Exchange{capacity: capacity}
}

// Capacity returns the buffer capacity.
func (x *Exchange) Capacity() int { return x.capacity }

// Size returns the number of buffered items.
func (x *Exchange) Size() int { return len(x.items) }

// IsFull reports whether the buffer is at capacity.
func (x *Exchange) IsFull() bool { return len(x.items) >= x.capacity }

// IsEmpty reports whether the buffer holds nothing.
func (x *Exchange) IsEmpty() bool { return len(x.items) == 0 }

// IsOverflowing reports whether producers are blocked.
func (x *Exchange) IsOverflowing() bool { return x.pendingProducers() > 0 }

// IsUnderflowing reports whether consumers are blocked.
func (x *Exchange) IsUnderflowing() bool { return x.pendingConsumers() > 0 }

func (x *Exchange) pendingProducers() int {
	n := 0
	for _, p := range x.producers {
		if !p.cancelled {
			n++
		}
	}
	return n
}

func (x *Exchange) pendingConsumers() int {
	n := 0
	for _, c := range x.consumers {
		if !c.cancelled {
			n++
		}
	}
	return n
}

// Produce returns a cue that reveals an empty prompt once the item has been
// handed to a consumer or buffered. Cancelling the cue withdraws the blocked
// producer.
func (x *Exchange) Produce(item any) *Cue {
	var entry *blockedProducer
	return Once(
		func(reveal func(Signal), _ *Cue) {
			if c := x.popConsumer(); c != nil {
				c.reveal(Prompt(item))
				reveal(Prompt(nil))
				return
			}
			if len(x.items) < x.capacity {
				x.items = append(x.items, item)
				reveal(Prompt(nil))
				return
			}
			entry = &blockedProducer{item: item, reveal: reveal}
			x.producers = append(x.producers, entry)
		},
		func(revealing bool, _ *Cue) {
			if !revealing && entry != nil {
				entry.cancelled = true
			}
		},
	)
}

// Consume returns a cue that reveals an item. Cancelling the cue withdraws
// the blocked consumer.
func (x *Exchange) Consume() *Cue {
	var entry *blockedConsumer
	return Once(
		func(reveal func(Signal), _ *Cue) {
			if p := x.popProducer(); p != nil {
				// The woken producer pushes into the buffer first, so the
				// oldest buffered item is delivered even at capacity zero.
				x.items = append(x.items, p.item)
				p.reveal(Prompt(nil))
			}
			if len(x.items) > 0 {
				item := x.items[0]
				x.items = x.items[1:]
				reveal(Prompt(item))
				return
			}
			entry = &blockedConsumer{reveal: reveal}
			x.consumers = append(x.consumers, entry)
		},
		func(revealing bool, _ *Cue) {
			if !revealing && entry != nil {
				entry.cancelled = true
			}
		},
	)
}

// popProducer removes and returns the oldest live blocked producer.
func (x *Exchange) popProducer() *blockedProducer {
	for len(x.producers) > 0 {
		p := x.producers[0]
		x.producers = x.producers[1:]
		if !p.cancelled {
			return p
		}
	}
	return nil
}

// popConsumer removes and returns the oldest live blocked consumer.
func (x *Exchange) popConsumer() *blockedConsumer {
	for len(x.consumers) > 0 {
		c := x.consumers[0]
		x.consumers = x.consumers[1:]
		if !c.cancelled {
			return c
		}
	}
	return nil
}
