// Package agenttest provides deterministic LLMProvider and Tool test
// doubles for exercising the turn engine, tool processor, and executors
// without a network call. Grounded on the tape package's record/replay
// idiom: a ScriptedLLM is a tape's responses with the recording step
// skipped, fed straight in as a fixed replay sequence.
package agenttest

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/pkg/models"
)

// ScriptedLLM replays a fixed sequence of ChatMessage responses, one per
// Chat/ChatWithTools call, regardless of which method is called. Once
// Responses is exhausted it keeps returning an empty assistant message
// rather than erroring, so a test that over-calls it fails on an assertion
// instead of a panic.
type ScriptedLLM struct {
	ProviderName string
	Responses    []models.ChatMessage

	call int
}

func (l *ScriptedLLM) next() models.ChatMessage {
	if l.call >= len(l.Responses) {
		return models.Text(models.RoleAssistant, "")
	}
	r := l.Responses[l.call]
	l.call++
	return r
}

func (l *ScriptedLLM) Chat(ctx context.Context, req *agent.CompletionRequest) (models.ChatMessage, error) {
	return l.next(), nil
}

func (l *ScriptedLLM) ChatWithTools(ctx context.Context, req *agent.CompletionRequest) (models.ChatMessage, error) {
	return l.next(), nil
}

func (l *ScriptedLLM) Stream(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	ch := make(chan *agent.CompletionChunk, 1)
	close(ch)
	return ch, nil
}

func (l *ScriptedLLM) Name() string { return l.ProviderName }

func (l *ScriptedLLM) Models() []agent.Model { return nil }

func (l *ScriptedLLM) SupportsTools() bool { return true }

// FlaggingLLM sets *Executed on any call, for asserting an LLM was never
// reached (e.g. a hook aborted the run before execution).
type FlaggingLLM struct {
	Executed *bool
	Response models.ChatMessage
}

func (l *FlaggingLLM) mark() models.ChatMessage {
	*l.Executed = true
	return l.Response
}

func (l *FlaggingLLM) Chat(ctx context.Context, req *agent.CompletionRequest) (models.ChatMessage, error) {
	return l.mark(), nil
}

func (l *FlaggingLLM) ChatWithTools(ctx context.Context, req *agent.CompletionRequest) (models.ChatMessage, error) {
	return l.mark(), nil
}

func (l *FlaggingLLM) Stream(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	*l.Executed = true
	ch := make(chan *agent.CompletionChunk)
	close(ch)
	return ch, nil
}

func (l *FlaggingLLM) Name() string { return "flag" }

func (l *FlaggingLLM) Models() []agent.Model { return nil }

func (l *FlaggingLLM) SupportsTools() bool { return false }

// EchoTool returns its arguments verbatim as its result, or a synthetic
// IsError result when Fail is set.
type EchoTool struct {
	ToolName string
	Fail     bool
}

func (e *EchoTool) Name() string             { return e.ToolName }
func (e *EchoTool) Description() string      { return "echoes its input" }
func (e *EchoTool) Schema() json.RawMessage  { return json.RawMessage(`{"type":"object"}`) }
func (e *EchoTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	if e.Fail {
		return &agent.ToolResult{Content: "boom", IsError: true}, nil
	}
	return &agent.ToolResult{Content: string(params)}, nil
}

// FuncTool dispatches to an arbitrary function, useful for asserting call
// order across several tools registered together.
type FuncTool struct {
	ToolName string
	Fn       func(context.Context, json.RawMessage) (*agent.ToolResult, error)
}

func (t FuncTool) Name() string             { return t.ToolName }
func (t FuncTool) Description() string      { return "" }
func (t FuncTool) Schema() json.RawMessage  { return json.RawMessage(`{}`) }
func (t FuncTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	return t.Fn(ctx, params)
}
