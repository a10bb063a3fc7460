package agent

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/nexus/pkg/models"
)

// LLMProvider is the capability interface the turn engine drives. A
// provider need not support every mode — Stream is optional; callers that
// only need batched completions can leave it returning ErrStreamingUnsupported.
//
// Implementations must be safe for concurrent use: multiple goroutines may
// call Chat/ChatWithTools/Stream simultaneously for different submissions.
type LLMProvider interface {
	// Chat produces a single assistant ChatMessage from a message history, with
	// no tool definitions offered (ToolMode Disabled).
	Chat(ctx context.Context, req *CompletionRequest) (models.ChatMessage, error)

	// ChatWithTools produces a single assistant ChatMessage, offering the given
	// tool schemas. The returned message's Type is MessageToolUse when the
	// model requests tool calls, MessageText otherwise.
	ChatWithTools(ctx context.Context, req *CompletionRequest) (models.ChatMessage, error)

	// Stream produces a channel of incremental chunks for either mode,
	// terminated by a chunk with Done set.
	Stream(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)

	// Name returns the provider name ("anthropic", "openai", ...).
	Name() string

	// Models returns available models.
	Models() []Model

	// SupportsTools returns whether the provider supports tool use at all.
	SupportsTools() bool
}

// CompletionRequest contains all parameters for an LLM completion request:
// the conversation history built by Turn Engine.build_messages, the tool
// schemas on offer (empty when ToolMode is Disabled), and generation
// parameters.
type CompletionRequest struct {
	// Model selects which LLM model to use. Empty uses the provider default.
	Model string `json:"model"`

	// Messages is the full conversation in chronological order, system
	// message first when present.
	Messages []models.ChatMessage `json:"messages"`

	// Tools defines available tools the LLM can request. Empty means no tool
	// calling is offered for this request.
	Tools []Tool `json:"tools,omitempty"`

	// MaxTokens limits the generated response length. 0 uses the provider
	// default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// EnableThinking enables extended thinking mode for supporting models.
	EnableThinking bool `json:"enable_thinking,omitempty"`

	// ThinkingBudgetTokens bounds extended thinking when EnableThinking is set.
	ThinkingBudgetTokens int `json:"thinking_budget_tokens,omitempty"`

	// OutputSchema, when set, is a JSON Schema the provider should constrain
	// its response to. Providers that don't support structured output are
	// free to ignore it; the turn engine validates the response against it
	// regardless, so an ignoring provider's malformed output still surfaces
	// as a SchemaError instead of silently passing through.
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
}

// CompletionChunk is one increment of a streaming LLM response. Exactly one
// of Text, ToolCall, Error is meaningful per chunk; Done marks stream end.
type CompletionChunk struct {
	Text string `json:"text,omitempty"`

	// ToolCall is populated when the model has finished emitting one complete
	// tool call mid-stream (StreamMode Tool).
	ToolCall *models.ToolCall `json:"tool_call,omitempty"`

	Done  bool  `json:"done,omitempty"`
	Error error `json:"-"`

	Thinking      string `json:"thinking,omitempty"`
	ThinkingStart bool   `json:"thinking_start,omitempty"`
	ThinkingEnd   bool   `json:"thinking_end,omitempty"`

	// InputTokens/OutputTokens are only populated on the final (Done) chunk.
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// Model describes an available LLM model and its capabilities.
type Model struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ContextSize    int    `json:"context_size"`
	SupportsVision bool   `json:"supports_vision"`
}

// Tool defines the interface for a callable tool. Dispatch is always
// sequential — the Tool Processor never calls Execute concurrently for two
// calls within the same turn.
type Tool interface {
	// Name returns the tool name used in LLM function calling. Must be a
	// valid function name.
	Name() string

	// Description is shown to the LLM to help it decide when to call the tool.
	Description() string

	// Schema returns the JSON Schema for the tool's parameters.
	Schema() json.RawMessage

	// Execute runs the tool against params matching Schema(). A non-nil error
	// becomes a synthetic failed ToolCallResult; Tools that want structured
	// failure detail should instead return a ToolResult with IsError set.
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolResult is a tool's raw output before it is folded into a
// models.ToolCallResult for memory persistence.
type ToolResult struct {
	Content   string     `json:"content"`
	IsError   bool       `json:"is_error,omitempty"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// Artifact is a file or media payload produced by a tool execution.
type Artifact struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	MimeType string `json:"mime_type"`
	Filename string `json:"filename,omitempty"`
	Data     []byte `json:"data,omitempty"`
	URL      string `json:"url,omitempty"`
}

// DrainStream consumes a CompletionChunk stream to completion and folds it
// into a single assistant ChatMessage, carrying accumulated ToolCalls when
// any were emitted. Providers use this to implement Chat/ChatWithTools in
// terms of their Stream method.
func DrainStream(chunks <-chan *CompletionChunk) (models.ChatMessage, error) {
	var text string
	var calls []models.ToolCall
	for chunk := range chunks {
		if chunk.Error != nil {
			return models.ChatMessage{}, chunk.Error
		}
		if chunk.Text != "" {
			text += chunk.Text
		}
		if chunk.ToolCall != nil {
			calls = append(calls, *chunk.ToolCall)
		}
	}
	if len(calls) > 0 {
		return models.ToolUse(text, calls), nil
	}
	return models.Text(models.RoleAssistant, text), nil
}

// ToolEventStore persists tool calls and results out-of-band from message
// history, for audit/replay/analytics. Optional: nil disables persistence.
type ToolEventStore interface {
	AddToolCall(ctx context.Context, subID, turnID string, call models.ToolCall) error
	AddToolResult(ctx context.Context, subID, turnID string, call models.ToolCall, result models.ToolCallResult) error
}
