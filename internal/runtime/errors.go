package runtime

import "errors"

// ErrUnknownActor is wrapped into a RuntimeError when a routed event
// targets an ActorID that was never registered with this Runtime.
var ErrUnknownActor = errors.New("runtime: unknown actor")
