// Package ring implements the bounded multi-producer/multi-consumer queues
// that decouple the USB poll from the NCM reassembly/segmentation engine,
// and the engine from the attached Ethernet link.
//
// Each queue is backed by a buffered channel: pushes and pops never block,
// returning ok=false instead so callers can apply the engine's documented
// backpressure policy (drop, retry next tick, or drain) rather than
// stalling the cooperative loop.
package ring

// Queue is a bounded FIFO of T with non-blocking Push/Pop.
type Queue[T any] struct {
	ch chan T
}

// New returns a Queue with the given capacity. Capacity must be >= 1.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{ch: make(chan T, capacity)}
}

// Push enqueues v. It returns false without blocking if the queue is full.
func (q *Queue[T]) Push(v T) bool {
	select {
	case q.ch <- v:
		return true
	default:
		return false
	}
}

// Pop dequeues the oldest value. It returns ok=false without blocking if
// the queue is empty.
func (q *Queue[T]) Pop() (v T, ok bool) {
	select {
	case v = <-q.ch:
		return v, true
	default:
		return v, false
	}
}

// Len returns the number of items currently queued.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Cap returns the queue's capacity.
func (q *Queue[T]) Cap() int {
	return cap(q.ch)
}

// Full reports whether the queue is at capacity.
func (q *Queue[T]) Full() bool {
	return q.Len() == q.Cap()
}

// Drain removes every queued item, discarding them, and reports how many
// were dropped. Used when a producer must recover from a diverged peer
// (see usbip.Manager's usb_rx_q-full policy).
func (q *Queue[T]) Drain() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}
