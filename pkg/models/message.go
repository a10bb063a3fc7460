// Package models defines the core data model shared by the turn engine,
// tool processor, and runtime: tasks, chat messages, tool calls and their
// results, memory policy, and the runtime event union.
package models

import (
	"encoding/json"
	"time"

	"github.com/haasonsaas/nexus/pkg/ids"
)

// Role identifies who produced a ChatMessage.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// MessageType discriminates the payload carried by a ChatMessage.
type MessageType string

const (
	MessageText       MessageType = "text"
	MessageImage      MessageType = "image"
	MessageImageURL   MessageType = "image_url"
	MessagePdf        MessageType = "pdf"
	MessageToolUse    MessageType = "tool_use"
	MessageToolResult MessageType = "tool_result"
	MessageSummary    MessageType = "summary"
)

// ChatMessage is one entry in a conversation. Produced and consumed as
// ordered sequences; message order is significant — in particular the
// pairing between a ToolUse message and the ToolResult message(s) that
// follow it relies on call id matching, not proximity alone.
type ChatMessage struct {
	Role    Role        `json:"role"`
	Type    MessageType `json:"type"`
	Content string      `json:"content"`

	// ToolCalls is populated when Type == MessageToolUse.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolResults is populated when Type == MessageToolResult.
	ToolResults []ToolCallResult `json:"tool_results,omitempty"`

	// Image/ImageURL/Pdf payload, populated when Type is one of those kinds.
	MimeType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Text constructs a plain-text message.
func Text(role Role, content string) ChatMessage {
	return ChatMessage{Role: role, Type: MessageText, Content: content}
}

// ToolUse constructs an assistant message carrying tool-call requests.
func ToolUse(content string, calls []ToolCall) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Type: MessageToolUse, Content: content, ToolCalls: calls}
}

// ToolResultMessage constructs a tool-role message carrying tool results.
func ToolResultMessage(results []ToolCallResult) ChatMessage {
	return ChatMessage{Role: RoleTool, Type: MessageToolResult, ToolResults: results}
}

// ToolCall is an LLM's request to invoke a named tool with raw JSON
// arguments. The same ID appears on the request and its matching result and
// is preserved across memory persistence so later turns can reference it.
type ToolCall struct {
	ID       string `json:"id"`
	CallType string `json:"call_type"` // always "function"
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"` // raw JSON
	} `json:"function"`
}

// NewToolCall builds a function-style ToolCall.
func NewToolCall(id, name, arguments string) ToolCall {
	tc := ToolCall{ID: id, CallType: "function"}
	tc.Function.Name = name
	tc.Function.Arguments = arguments
	return tc
}

// ToolCallResult is the outcome of dispatching one ToolCall. On failure
// Result is always of shape {"error": "<reason>"}.
type ToolCallResult struct {
	ToolName  string          `json:"tool_name"`
	Success   bool            `json:"success"`
	Arguments json.RawMessage `json:"arguments"`
	Result    json.RawMessage `json:"result"`
}

// Task is a submission: a prompt plus optional overrides. Immutable after
// construction.
type Task struct {
	SubmissionID ids.SubmissionID `json:"submission_id"`
	Prompt       string           `json:"prompt"`
	SystemPrompt string           `json:"system_prompt,omitempty"`
	Image        *TaskImage       `json:"image,omitempty"`
	TargetActor  *ids.ActorID     `json:"target_actor,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// TaskImage is the optional image attachment of a Task.
type TaskImage struct {
	MimeType string `json:"mime_type"`
	Bytes    []byte `json:"bytes"`
}

// NewTask constructs a Task with a freshly minted SubmissionID and the
// current time as CreatedAt.
func NewTask(prompt string) Task {
	return Task{
		SubmissionID: ids.NewSubmissionID(),
		Prompt:       prompt,
		CreatedAt:    time.Now(),
	}
}

// WithSystemPrompt returns a copy of the task carrying the given system prompt.
func (t Task) WithSystemPrompt(prompt string) Task {
	t.SystemPrompt = prompt
	return t
}

// WithImage returns a copy of the task carrying the given image attachment.
func (t Task) WithImage(mimeType string, data []byte) Task {
	t.Image = &TaskImage{MimeType: mimeType, Bytes: data}
	return t
}

// WithTargetActor returns a copy of the task addressed to a specific actor.
func (t Task) WithTargetActor(actor ids.ActorID) Task {
	t.TargetActor = &actor
	return t
}

// UserMessage renders the task's prompt (and optional image) as the
// ChatMessage the turn engine appends inline when eligible.
func (t Task) UserMessage() ChatMessage {
	if t.Image != nil {
		return ChatMessage{
			Role:     RoleUser,
			Type:     MessageImage,
			Content:  t.Prompt,
			MimeType: t.Image.MimeType,
			Data:     t.Image.Bytes,
		}
	}
	return Text(RoleUser, t.Prompt)
}

// MemoryPolicy controls which message kinds a Memory Adapter persists and
// whether it recalls prior history at all.
type MemoryPolicy struct {
	StoreSystem    bool
	StoreUser      bool
	StoreAssistant bool
	StoreTool      bool
	Recall         bool
}

// BasicMemoryPolicy stores only user+assistant text; no tool persistence.
func BasicMemoryPolicy() MemoryPolicy {
	return MemoryPolicy{StoreUser: true, StoreAssistant: true, Recall: true}
}

// ReActMemoryPolicy stores everything: system, user, assistant-with-calls,
// tool calls, and tool results, in write order.
func ReActMemoryPolicy() MemoryPolicy {
	return MemoryPolicy{
		StoreSystem:    true,
		StoreUser:      true,
		StoreAssistant: true,
		StoreTool:      true,
		Recall:         true,
	}
}
