package runtime

import (
	"github.com/haasonsaas/nexus/pkg/ids"
)

// ActorHandle is a registered agent's address within one Runtime. Send and
// Subscribe both route through the runtime's internal queue rather than
// touching the agent directly — the reactor decides when the agent
// actually runs.
type ActorHandle struct {
	id ids.ActorID
	rt *Runtime
}

// Addr returns the actor's identity.
func (h *ActorHandle) Addr() ids.ActorID { return h.id }

// SubscribeTopic registers this actor as a subscriber of topic (the
// untyped, string-payload form) and returns the handle, so subscriptions
// can be chained:
//
//	handle.SubscribeTopic("orders").SubscribeTopic("alerts")
//
// This is keyed distinctly from any Subscribe[T] call on the same name —
// see Topic.Key.
func (h *ActorHandle) SubscribeTopic(topic string) *ActorHandle {
	h.rt.subscribe(h.id, topicKey(topic, untypedTag))
	return h
}

// Subscribe is the generic-typed form of SubscribeTopic, taking a Topic[T]
// built with NewTopic so the payload type is pinned at every call site and
// keyed by (name, T) rather than name alone.
func Subscribe[T any](h *ActorHandle, topic Topic[T]) *ActorHandle {
	h.rt.subscribe(h.id, topic.Key())
	return h
}

// Send addresses a payload directly at this actor, bypassing topic
// subscriptions.
func (h *ActorHandle) Send(payload string) {
	h.rt.SendTo(h.id, payload)
}
