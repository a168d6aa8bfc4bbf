package eventbus

import (
	"context"
	"sync"
)

// overflowRing buffers envelopes that did not fit the subscriber channel on
// order-critical topics. A drain goroutine feeds them back into the channel
// as it frees up, so bursts reorder nothing and drop nothing until the ring
// itself is full.
type overflowRing struct {
	mu    sync.Mutex
	buf   []Envelope
	head  int // oldest item
	count int
	cap   int

	notify chan struct{} // pinged on push so drainLoop wakes up
	done   chan struct{} // closed when drainLoop exits
}

func newOverflowRing(maxSize int) *overflowRing {
	if maxSize <= 0 {
		maxSize = defaultMaxOverflow
	}
	return &overflowRing{
		buf:    make([]Envelope, maxSize),
		cap:    maxSize,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// push appends an envelope, reporting false when the ring is full.
func (o *overflowRing) push(env Envelope) bool {
	o.mu.Lock()
	if o.count >= o.cap {
		o.mu.Unlock()
		return false
	}
	o.buf[(o.head+o.count)%o.cap] = env
	o.count++
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
	return true
}

// pop removes the oldest envelope, reporting false when the ring is empty.
func (o *overflowRing) pop() (Envelope, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.count == 0 {
		return Envelope{}, false
	}
	env := o.buf[o.head]
	o.buf[o.head] = Envelope{} // release the payload
	o.head = (o.head + 1) % o.cap
	o.count--
	return env, true
}

// drainLoop moves envelopes from the ring into ch in arrival order until ctx
// is cancelled, parking on notify between sweeps.
func (o *overflowRing) drainLoop(ctx context.Context, ch chan<- Envelope) {
	defer close(o.done)
	for {
		for env, ok := o.pop(); ok; env, ok = o.pop() {
			select {
			case ch <- env:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-o.notify:
		}
	}
}
