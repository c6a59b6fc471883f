package netclient

import (
	"sync"

	"github.com/skirmish/client/internal/protocol"
)

// inbound is a decoded high-frequency message waiting for its handlers.
type inbound struct {
	op  protocol.Opcode
	msg any
}

// pendingQueue is the bounded FIFO between the socket callback and the
// frame loop. Decoding happens on receipt; handler execution is deferred
// here so the receive path never does unbounded work. When the queue is
// full the oldest entry is evicted: bounded staleness over unbounded
// memory.
type pendingQueue struct {
	mu       sync.Mutex
	items    []inbound
	capacity int

	onEvict func(inbound)
}

func newPendingQueue(capacity int, onEvict func(inbound)) *pendingQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &pendingQueue{
		items:    make([]inbound, 0, capacity),
		capacity: capacity,
		onEvict:  onEvict,
	}
}

// Push appends an entry, evicting the oldest if the queue is at capacity.
func (q *pendingQueue) Push(entry inbound) {
	q.mu.Lock()
	var evicted *inbound
	if len(q.items) >= q.capacity {
		head := q.items[0]
		evicted = &head
		copy(q.items, q.items[1:])
		q.items = q.items[:len(q.items)-1]
	}
	q.items = append(q.items, entry)
	q.mu.Unlock()

	if evicted != nil && q.onEvict != nil {
		q.onEvict(*evicted)
	}
}

// PopBatch removes and returns up to budget entries in FIFO order.
func (q *pendingQueue) PopBatch(budget int) []inbound {
	q.mu.Lock()
	defer q.mu.Unlock()

	if budget <= 0 || len(q.items) == 0 {
		return nil
	}
	if budget > len(q.items) {
		budget = len(q.items)
	}
	batch := make([]inbound, budget)
	copy(batch, q.items[:budget])
	remaining := copy(q.items, q.items[budget:])
	q.items = q.items[:remaining]
	return batch
}

// Len returns the number of pending entries.
func (q *pendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
