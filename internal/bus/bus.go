// Package bus implements the Event Bus: a bounded, typed, multi-producer/
// single-consumer channel of models.Event, with a fan-out operator that
// turns the single consumer into N independent subscribers.
//
// Grounded on the teacher's internal/agent/event_sink.go (ChanSink,
// MultiSink, BackpressureSink) generalized from the agent package's
// AgentEvent to the shared models.Event union, and on the default channel
// capacities used by the Rust ancestor's single-threaded runtime.
package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/haasonsaas/nexus/pkg/models"
)

// DefaultCapacity is the default bound for a handle-owned event bus. See
// SPEC_FULL.md §9 open question 2.
const DefaultCapacity = 256

// ErrBackpressure is returned by TrySend when the bus is full.
var ErrBackpressure = errors.New("bus: backpressure, channel full")

// ErrClosed is returned by Send/TrySend after Close.
var ErrClosed = errors.New("bus: closed")

// Bus is a bounded FIFO channel of Event with one producer side and one
// consumer side.
type Bus struct {
	ch     chan models.Event
	closed atomic.Bool
	once   sync.Once
}

// New creates a Bus with the given capacity. A capacity of 0 uses
// DefaultCapacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{ch: make(chan models.Event, capacity)}
}

// TrySend attempts a non-blocking send. Returns ErrBackpressure if the
// channel is full and ErrClosed if the bus has been closed. Non-fatal
// telemetry sends (everything except internal runtime routing messages)
// should use TrySend and ignore ErrBackpressure.
func (b *Bus) TrySend(e models.Event) error {
	if b.closed.Load() {
		return ErrClosed
	}
	select {
	case b.ch <- e:
		return nil
	default:
		return ErrBackpressure
	}
}

// Send blocks until the event is enqueued, the context is cancelled, or the
// bus is closed. The Tool Processor and runtime routing paths use Send: they
// must never drop an event because of backpressure.
func (b *Bus) Send(ctx context.Context, e models.Event) error {
	if b.closed.Load() {
		return ErrClosed
	}
	select {
	case b.ch <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns the receive side of the bus. Once fan-out has been engaged
// via NewFanout(bus.Events(), ...), the caller must not continue reading
// from this channel directly — the fan-out goroutine becomes the sole
// consumer.
func (b *Bus) Events() <-chan models.Event {
	return b.ch
}

// Close closes the bus. Safe to call more than once.
func (b *Bus) Close() {
	b.once.Do(func() {
		b.closed.Store(true)
		close(b.ch)
	})
}
