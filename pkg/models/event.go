package models

import (
	"encoding/json"

	"github.com/haasonsaas/nexus/pkg/ids"
)

// EventKind discriminates the Event tagged union.
type EventKind string

const (
	EventNewTask            EventKind = "new_task"
	EventTaskStarted        EventKind = "task_started"
	EventTaskComplete       EventKind = "task_complete"
	EventTaskError          EventKind = "task_error"
	EventTurnStarted        EventKind = "turn_started"
	EventTurnCompleted      EventKind = "turn_completed"
	EventToolCallRequested  EventKind = "tool_call_requested"
	EventToolCallCompleted  EventKind = "tool_call_completed"
	EventToolCallFailed     EventKind = "tool_call_failed"
	EventStreamChunk        EventKind = "stream_chunk"
	EventStreamToolCall     EventKind = "stream_tool_call"
	EventStreamComplete     EventKind = "stream_complete"
	EventPublishMessage     EventKind = "publish_message"
	EventSendMessage        EventKind = "send_message"
)

// Event is the tagged union carried on every Event Bus. Every variant
// carries SubID; most also carry ActorID. Only the fields relevant to Kind
// are populated — the others are zero.
type Event struct {
	Kind EventKind `json:"kind"`

	SubID   ids.SubmissionID `json:"sub_id"`
	ActorID ids.ActorID      `json:"actor_id,omitempty"`

	// TaskComplete / TaskError
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`

	// TurnStarted / TurnCompleted
	TurnIndex int  `json:"turn_index,omitempty"`
	MaxTurns  int  `json:"max_turns,omitempty"`
	Final     bool `json:"final,omitempty"`

	// ToolCallRequested / Completed / Failed
	ToolCallID   string          `json:"tool_call_id,omitempty"`
	ToolName     string          `json:"tool_name,omitempty"`
	ToolArgs     json.RawMessage `json:"tool_args,omitempty"`
	ToolResult   json.RawMessage `json:"tool_result,omitempty"`
	ToolError    string          `json:"tool_error,omitempty"`

	// StreamChunk / StreamToolCall
	Chunk         string          `json:"chunk,omitempty"`
	ToolCallPayload json.RawMessage `json:"tool_call_payload,omitempty"`

	// NewTask (routing)
	Task *Task `json:"task,omitempty"`

	// PublishMessage / SendMessage (internal routing events)
	Topic   string `json:"topic,omitempty"`
	Payload string `json:"payload,omitempty"`
}

// NewTaskStarted builds a TaskStarted event.
func NewTaskStarted(sub ids.SubmissionID, actor ids.ActorID) Event {
	return Event{Kind: EventTaskStarted, SubID: sub, ActorID: actor}
}

// NewTaskComplete builds a TaskComplete event.
func NewTaskComplete(sub ids.SubmissionID, actor ids.ActorID, result json.RawMessage) Event {
	return Event{Kind: EventTaskComplete, SubID: sub, ActorID: actor, Result: result}
}

// NewTaskError builds a TaskError event.
func NewTaskError(sub ids.SubmissionID, actor ids.ActorID, err error) Event {
	return Event{Kind: EventTaskError, SubID: sub, ActorID: actor, Error: err.Error()}
}

// NewTurnStarted builds a TurnStarted event.
func NewTurnStarted(sub ids.SubmissionID, actor ids.ActorID, turnIndex, maxTurns int) Event {
	return Event{Kind: EventTurnStarted, SubID: sub, ActorID: actor, TurnIndex: turnIndex, MaxTurns: maxTurns}
}

// NewTurnCompleted builds a TurnCompleted event.
func NewTurnCompleted(sub ids.SubmissionID, actor ids.ActorID, turnIndex int, final bool) Event {
	return Event{Kind: EventTurnCompleted, SubID: sub, ActorID: actor, TurnIndex: turnIndex, Final: final}
}

// NewToolCallRequested builds a ToolCallRequested event.
func NewToolCallRequested(sub ids.SubmissionID, actor ids.ActorID, id, name string, args json.RawMessage) Event {
	return Event{Kind: EventToolCallRequested, SubID: sub, ActorID: actor, ToolCallID: id, ToolName: name, ToolArgs: args}
}

// NewToolCallCompleted builds a ToolCallCompleted event.
func NewToolCallCompleted(sub ids.SubmissionID, actor ids.ActorID, id, name string, result json.RawMessage) Event {
	return Event{Kind: EventToolCallCompleted, SubID: sub, ActorID: actor, ToolCallID: id, ToolName: name, ToolResult: result}
}

// NewToolCallFailed builds a ToolCallFailed event.
func NewToolCallFailed(sub ids.SubmissionID, actor ids.ActorID, id, name, errMsg string) Event {
	return Event{Kind: EventToolCallFailed, SubID: sub, ActorID: actor, ToolCallID: id, ToolName: name, ToolError: errMsg}
}

// NewStreamChunk builds a StreamChunk event.
func NewStreamChunk(sub ids.SubmissionID, chunk string) Event {
	return Event{Kind: EventStreamChunk, SubID: sub, Chunk: chunk}
}

// NewStreamToolCall builds a StreamToolCall event.
func NewStreamToolCall(sub ids.SubmissionID, payload json.RawMessage) Event {
	return Event{Kind: EventStreamToolCall, SubID: sub, ToolCallPayload: payload}
}

// NewStreamComplete builds a StreamComplete event.
func NewStreamComplete(sub ids.SubmissionID) Event {
	return Event{Kind: EventStreamComplete, SubID: sub}
}

// NewNewTask builds a NewTask event (routing-internal, forwarded externally
// with Task populated).
func NewNewTask(sub ids.SubmissionID, actor ids.ActorID, task Task) Event {
	t := task
	return Event{Kind: EventNewTask, SubID: sub, ActorID: actor, Task: &t}
}

// NewPublishMessage builds an internal PublishMessage routing event.
func NewPublishMessage(topic, payload string) Event {
	return Event{Kind: EventPublishMessage, Topic: topic, Payload: payload}
}

// NewSendMessage builds an internal SendMessage routing event.
func NewSendMessage(actor ids.ActorID, payload string) Event {
	return Event{Kind: EventSendMessage, ActorID: actor, Payload: payload}
}
