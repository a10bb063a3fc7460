package bus

import (
	"sync"

	"github.com/haasonsaas/nexus/pkg/models"
)

// subscriber is one fan-out destination. done is closed exactly once, by
// Unsubscribe, to abort any in-flight send to ch without racing a close of
// ch itself — ch is only ever closed by run()'s own end-of-source cleanup,
// after the subscriber has already been removed from Fanout.subs, so no
// goroutine can be selecting on a send to it when that happens.
type subscriber struct {
	ch        chan models.Event
	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscriber) signalDone() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Fanout converts a single event source into a broadcaster: a background
// goroutine drains the source and pushes each event into every currently
// subscribed channel. New subscribers join at the moment of Subscribe and do
// not observe events emitted earlier. A slow subscriber experiences
// backpressure on its own bounded channel without losing events, and
// without ever silently dropping delivery to the other subscribers for the
// same event (invariant: fan-out fairness — see SPEC_FULL.md §8 #7). A
// subscriber that stops draining entirely must be Unsubscribed — until
// then its backpressure is scoped to that one subscriber, not the others,
// but the round can't complete without either its send or its Unsubscribe.
type Fanout struct {
	mu   sync.Mutex
	subs []*subscriber

	capacity int
}

// NewFanout starts the broadcaster goroutine draining source, with each
// subscriber channel bounded at capacity (DefaultCapacity if <= 0).
func NewFanout(source <-chan models.Event, capacity int) *Fanout {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	f := &Fanout{capacity: capacity}
	go f.run(source)
	return f
}

func (f *Fanout) run(source <-chan models.Event) {
	for event := range source {
		f.mu.Lock()
		subs := make([]*subscriber, len(f.subs))
		copy(subs, f.subs)
		f.mu.Unlock()

		var wg sync.WaitGroup
		wg.Add(len(subs))
		for _, s := range subs {
			go func(s *subscriber) {
				defer wg.Done()
				select {
				case s.ch <- event:
				case <-s.done:
				}
			}(s)
		}
		wg.Wait()
	}

	f.mu.Lock()
	subs := f.subs
	f.subs = nil
	f.mu.Unlock()
	for _, s := range subs {
		s.signalDone()
		close(s.ch)
	}
}

// Subscribe registers a new subscriber and returns its receive channel along
// with an unsubscribe function. Calling unsubscribe removes the subscriber
// from the broadcast set and releases any broadcast round currently blocked
// waiting on its send; it is safe to call more than once and from any
// goroutine. The returned channel is not closed by unsubscribe — a caller
// that unsubscribes already knows it's done reading — only by Fanout
// draining its source to completion.
func (f *Fanout) Subscribe() (<-chan models.Event, func()) {
	s := &subscriber{
		ch:   make(chan models.Event, f.capacity),
		done: make(chan struct{}),
	}
	f.mu.Lock()
	f.subs = append(f.subs, s)
	f.mu.Unlock()

	unsubscribe := func() {
		f.mu.Lock()
		for i, existing := range f.subs {
			if existing == s {
				f.subs = append(f.subs[:i], f.subs[i+1:]...)
				break
			}
		}
		f.mu.Unlock()
		s.signalDone()
	}
	return s.ch, unsubscribe
}
