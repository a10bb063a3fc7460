// Package runtime implements the Actor Runtime: a single-threaded
// cooperative reactor that owns a set of registered agents, routes
// publish/subscribe and direct-send messages between them, and exposes a
// single external event stream to observers.
//
// Grounded on the Rust ancestor's
// crates/core/src/runtime/single_threaded.rs: internal event queue for
// agent-originated routing, external event queue for observers, and an
// intercepting sender per registered agent.
package runtime

import "reflect"

// Topic names a publish/subscribe channel. Two topics with the same Name
// but different T are distinct: subscriptions are keyed by (Name,
// element_type_tag), not Name alone, so Topic[OrderPlaced]("events") and
// Topic[AlertRaised]("events") never reach each other even though they
// share a name.
type Topic[T any] struct {
	Name string
}

// NewTopic builds a Topic under the given name.
func NewTopic[T any](name string) Topic[T] {
	return Topic[T]{Name: name}
}

// Key returns this topic's subscription-map key: its name joined with a
// tag derived from T, so distinct element types never collide even when
// Name is shared.
func (t Topic[T]) Key() string {
	return topicKey(t.Name, typeTag[T]())
}

// untypedTag is the element-type tag used by the plain string-keyed
// SubscribeTopic/Publish entry points, which carry no T. It is kept
// distinct from any real reflect.Type string so untyped and typed topics
// of the same Name never alias each other either.
const untypedTag = "untyped:string-payload"

func topicKey(name, tag string) string {
	return name + "\x00" + tag
}

func typeTag[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}
