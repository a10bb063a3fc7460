// Package ids defines the opaque identifier types shared across the runtime:
// RuntimeID, ActorID, and SubmissionID. All three are UUIDs under the hood,
// compare by value, and are safe to print or log directly.
package ids

import "github.com/google/uuid"

// RuntimeID identifies one Runtime instance.
type RuntimeID uuid.UUID

// ActorID identifies an agent's stable identity within a Runtime.
type ActorID uuid.UUID

// SubmissionID identifies one submitted Task.
type SubmissionID uuid.UUID

// NewRuntimeID generates a fresh random RuntimeID.
func NewRuntimeID() RuntimeID { return RuntimeID(uuid.New()) }

// NewActorID generates a fresh random ActorID.
func NewActorID() ActorID { return ActorID(uuid.New()) }

// NewSubmissionID generates a fresh random SubmissionID.
func NewSubmissionID() SubmissionID { return SubmissionID(uuid.New()) }

func (r RuntimeID) String() string { return uuid.UUID(r).String() }
func (a ActorID) String() string   { return uuid.UUID(a).String() }
func (s SubmissionID) String() string { return uuid.UUID(s).String() }

// IsZero reports whether the id was never assigned.
func (a ActorID) IsZero() bool { return uuid.UUID(a) == uuid.Nil }
