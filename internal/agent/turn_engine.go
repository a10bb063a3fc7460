package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haasonsaas/nexus/internal/bus"
	"github.com/haasonsaas/nexus/internal/memory"
	"github.com/haasonsaas/nexus/pkg/models"
)

// ToolMode controls whether a turn offers tool schemas to the LLM at all.
type ToolMode int

const (
	ToolModeDisabled ToolMode = iota
	ToolModeEnabled
)

// StreamMode selects how RunTurnStream decodes the provider's stream:
// Structured expects plain text only, Tool expects interleaved text and
// complete tool-call chunks.
type StreamMode int

const (
	StreamStructured StreamMode = iota
	StreamTool
)

// TurnEngineConfig is immutable per executor profile. Basic and ReAct give
// the two prebuilt profiles the spec names; other combinations are valid
// but unnamed.
type TurnEngineConfig struct {
	MaxTurns     int
	ToolMode     ToolMode
	StreamMode   StreamMode
	MemoryPolicy models.MemoryPolicy
}

// BasicTurnEngineConfig is the single-turn, no-tools, minimal-memory profile.
func BasicTurnEngineConfig() TurnEngineConfig {
	return TurnEngineConfig{
		MaxTurns:     1,
		ToolMode:     ToolModeDisabled,
		StreamMode:   StreamStructured,
		MemoryPolicy: models.BasicMemoryPolicy(),
	}
}

// ReActTurnEngineConfig is the multi-turn, tool-using, full-history profile.
// maxTurns <= 0 normalizes to 1.
func ReActTurnEngineConfig(maxTurns int) TurnEngineConfig {
	return TurnEngineConfig{
		MaxTurns:     normalizeMaxTurns(maxTurns, 1),
		ToolMode:     ToolModeEnabled,
		StreamMode:   StreamTool,
		MemoryPolicy: models.ReActMemoryPolicy(),
	}
}

func normalizeMaxTurns(maxTurns, fallback int) int {
	if maxTurns == 0 {
		if fallback < 1 {
			fallback = 1
		}
		return fallback
	}
	return maxTurns
}

// TurnEngineOutput is what a completed or continuing turn produced. Done
// marks an executor-level conclusion — set on TurnComplete and also on
// ReAct turn-budget exhaustion, which finishes a run without ever seeing
// TurnComplete from the engine itself.
type TurnEngineOutput struct {
	Response    models.ChatMessage
	ToolCalls   []models.ToolCall
	ToolResults []models.ToolCallResult
	Done        bool
}

// TurnStatus discriminates TurnResult: Continue means another turn should
// run, Complete means the executor should stop.
type TurnStatus int

const (
	TurnContinue TurnStatus = iota
	TurnComplete
)

// TurnResult is the outcome of one RunTurn call.
type TurnResult struct {
	Status TurnStatus
	Output TurnEngineOutput
}

// TurnDeltaKind discriminates streaming increments from RunTurnStream.
type TurnDeltaKind int

const (
	DeltaText TurnDeltaKind = iota
	DeltaToolResults
	DeltaDone
)

// TurnDelta is one increment from RunTurnStream's channel. A DeltaDone
// delta is always the last one sent, and the TurnCompleted event always
// precedes it on the event bus (see ordering invariant in the open
// questions).
type TurnDelta struct {
	Kind        TurnDeltaKind
	Text        string
	ToolResults []models.ToolCallResult
	Result      TurnResult
	Err         error
}

// TurnState threads the "has the user prompt been stored yet" bit across
// turns within one run — a multi-turn ReAct run stores the user's prompt
// exactly once, on the first turn that persists it.
type TurnState struct {
	storedUser bool
}

// MarkUserStored records that the user prompt has been persisted for this run.
func (s *TurnState) MarkUserStored() { s.storedUser = true }

// TurnEngine runs one turn of a conversation: build the message list,
// get an LLM response, optionally dispatch tool calls, and decide whether
// the executor should continue or stop.
type TurnEngine struct {
	llm       LLMProvider
	tools     *ToolRegistry
	processor *ToolProcessor
	mem       *memory.Adapter
	hooks     Hooks
	out       *bus.Bus
	config    TurnEngineConfig

	// description is the system prompt fallback used when a Task doesn't
	// supply its own SystemPrompt.
	description string

	// outputSchema, when set, is passed to the provider on every LLM call
	// and validated against the final text response in complete.
	outputSchema json.RawMessage

	metrics *Metrics
	tracer  *Tracer
}

// SetDescription sets the system prompt fallback applied by buildMessages.
func (e *TurnEngine) SetDescription(description string) {
	e.description = description
}

// SetOutputSchema sets the JSON Schema every completed turn's response must
// validate against. A nil/empty schema disables the check.
func (e *TurnEngine) SetOutputSchema(schema json.RawMessage) {
	e.outputSchema = schema
}

// NewTurnEngine builds a turn engine. A nil hooks defaults to NopHooks.
func NewTurnEngine(llm LLMProvider, tools *ToolRegistry, mem *memory.Adapter, hooks Hooks, out *bus.Bus, config TurnEngineConfig) *TurnEngine {
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &TurnEngine{
		llm:       llm,
		tools:     tools,
		processor: NewToolProcessor(tools, hooks, out),
		mem:       mem,
		hooks:     hooks,
		out:       out,
		config:    config,
		metrics:   GlobalMetrics(),
		tracer:    GlobalTracer(),
	}
}

// RunTurn executes exactly one turn of the seven-step algorithm: emit
// TurnStarted, decide whether to inline the user prompt, build the message
// list, persist the user prompt if this is its first appearance, get an LLM
// response, dispatch any tool calls, and emit TurnCompleted.
func (e *TurnEngine) RunTurn(ctx context.Context, sub ToolCallContext, task models.Task, turnIndex int, state *TurnState) (TurnResult, error) {
	ctx, span := e.tracer.StartTurn(ctx, turnIndex)
	defer span.End()
	start := time.Now()

	result, err := e.runTurn(ctx, sub, task, turnIndex, state)
	e.metrics.RecordTurn(turnStatusLabel(result, err), time.Since(start).Seconds())
	return result, err
}

func turnStatusLabel(result TurnResult, err error) string {
	switch {
	case err != nil:
		return "error"
	case result.Status == TurnComplete:
		return "complete"
	default:
		return "continue"
	}
}

func (e *TurnEngine) runTurn(ctx context.Context, sub ToolCallContext, task models.Task, turnIndex int, state *TurnState) (TurnResult, error) {
	e.emit(models.NewTurnStarted(sub.SubID, sub.ActorID, turnIndex, e.config.MaxTurns))
	e.hooks.OnTurnStart(ctx, turnIndex)

	messages, err := e.buildMessages(ctx, sub, task, state)
	if err != nil {
		return TurnResult{}, &MemoryError{Op: "recall", Cause: err}
	}

	if e.shouldStoreUser(state) {
		if err := e.mem.StoreUser(ctx, sub.SubID, task.UserMessage()); err != nil {
			return TurnResult{}, &MemoryError{Op: "store_user", Cause: err}
		}
		state.MarkUserStored()
	}

	response, err := e.getLLMResponse(ctx, messages)
	if err != nil {
		return TurnResult{}, &LLMError{Provider: e.llm.Name(), Cause: err}
	}

	if response.Type == models.MessageToolUse && len(response.ToolCalls) > 0 {
		return e.continueWithToolCalls(ctx, sub, turnIndex, response)
	}
	return e.complete(ctx, sub, turnIndex, response)
}

func (e *TurnEngine) buildMessages(ctx context.Context, sub ToolCallContext, task models.Task, state *TurnState) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	switch {
	case task.SystemPrompt != "":
		messages = append(messages, models.Text(models.RoleSystem, task.SystemPrompt))
	case e.description != "":
		messages = append(messages, models.Text(models.RoleSystem, e.description))
	}
	if e.mem != nil {
		recalled, err := e.mem.RecallMessages(ctx, sub.SubID)
		if err != nil {
			return nil, err
		}
		messages = append(messages, recalled...)
	}
	if e.shouldIncludeUserPrompt(state) {
		messages = append(messages, task.UserMessage())
	}
	return messages, nil
}

// shouldIncludeUserPrompt inlines the user prompt into this turn's message
// list whenever memory won't otherwise surface it on recall: no memory
// configured, recall disabled, user messages not persisted, or — even with
// all of those true — this is the first turn that has stored it (so recall
// on a later turn would double it).
func (e *TurnEngine) shouldIncludeUserPrompt(state *TurnState) bool {
	if e.mem == nil {
		return true
	}
	policy := e.mem.Policy()
	if !e.mem.IsEnabled() || !policy.StoreUser {
		return true
	}
	return !state.storedUser
}

func (e *TurnEngine) shouldStoreUser(state *TurnState) bool {
	if e.mem == nil || state.storedUser {
		return false
	}
	return e.mem.Policy().StoreUser
}

func (e *TurnEngine) getLLMResponse(ctx context.Context, messages []models.ChatMessage) (models.ChatMessage, error) {
	req := &CompletionRequest{Messages: messages, OutputSchema: e.outputSchema}

	variant := "chat"
	call := e.llm.Chat
	if e.config.ToolMode == ToolModeEnabled && e.tools != nil {
		if tools := e.tools.List(); len(tools) > 0 {
			req.Tools = tools
			variant = "chat_with_tools"
			call = e.llm.ChatWithTools
		}
	}

	ctx, span := e.tracer.StartLLMRequest(ctx, e.llm.Name(), variant)
	defer span.End()
	start := time.Now()
	response, err := call(ctx, req)
	e.metrics.RecordLLMRequest(e.llm.Name(), llmStatusLabel(err), time.Since(start).Seconds())
	if err != nil {
		e.tracer.RecordError(span, err)
	}
	return response, err
}

func llmStatusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (e *TurnEngine) continueWithToolCalls(ctx context.Context, sub ToolCallContext, turnIndex int, response models.ChatMessage) (TurnResult, error) {
	results := e.processor.ProcessToolCalls(ctx, sub, response.ToolCalls)
	if e.mem != nil {
		if err := e.mem.StoreToolInteraction(ctx, sub.SubID, response, results); err != nil {
			return TurnResult{}, &MemoryError{Op: "store_tool_interaction", Cause: err}
		}
	}
	e.emit(models.NewTurnCompleted(sub.SubID, sub.ActorID, turnIndex, false))
	e.hooks.OnTurnComplete(ctx, turnIndex)
	return TurnResult{
		Status: TurnContinue,
		Output: TurnEngineOutput{Response: response, ToolCalls: response.ToolCalls, ToolResults: results},
	}, nil
}

func (e *TurnEngine) complete(ctx context.Context, sub ToolCallContext, turnIndex int, response models.ChatMessage) (TurnResult, error) {
	if len(e.outputSchema) > 0 && response.Content != "" {
		if err := validateAgainstSchema(e.outputSchema, []byte(response.Content)); err != nil {
			return TurnResult{}, &SchemaError{Subject: "output", Cause: err}
		}
	}
	if response.Content != "" && e.mem != nil {
		if err := e.mem.StoreAssistant(ctx, sub.SubID, response); err != nil {
			return TurnResult{}, &MemoryError{Op: "store_assistant", Cause: err}
		}
	}
	e.emit(models.NewTurnCompleted(sub.SubID, sub.ActorID, turnIndex, true))
	e.hooks.OnTurnComplete(ctx, turnIndex)
	return TurnResult{Status: TurnComplete, Output: TurnEngineOutput{Response: response, Done: true}}, nil
}

// RunTurnStream is the streaming counterpart of RunTurn: it returns a
// channel of increments instead of computing the whole response at once.
// The final TurnResult always arrives as the last delta (Kind DeltaDone),
// and the TurnCompleted event is always emitted before that delta is sent.
func (e *TurnEngine) RunTurnStream(ctx context.Context, sub ToolCallContext, task models.Task, turnIndex int, state *TurnState) <-chan TurnDelta {
	out := make(chan TurnDelta, 8)
	go func() {
		defer close(out)

		e.emit(models.NewTurnStarted(sub.SubID, sub.ActorID, turnIndex, e.config.MaxTurns))
		e.hooks.OnTurnStart(ctx, turnIndex)

		messages, err := e.buildMessages(ctx, sub, task, state)
		if err != nil {
			out <- TurnDelta{Kind: DeltaDone, Err: &MemoryError{Op: "recall", Cause: err}}
			return
		}
		if e.shouldStoreUser(state) {
			if err := e.mem.StoreUser(ctx, sub.SubID, task.UserMessage()); err != nil {
				out <- TurnDelta{Kind: DeltaDone, Err: &MemoryError{Op: "store_user", Cause: err}}
				return
			}
			state.MarkUserStored()
		}

		req := &CompletionRequest{Messages: messages}
		if e.config.StreamMode == StreamTool && e.tools != nil {
			req.Tools = e.tools.List()
		}
		chunks, err := e.llm.Stream(ctx, req)
		if err != nil {
			out <- TurnDelta{Kind: DeltaDone, Err: &LLMError{Provider: e.llm.Name(), Cause: err}}
			return
		}

		if e.config.StreamMode == StreamTool {
			e.streamWithTools(ctx, sub, turnIndex, chunks, out)
		} else {
			e.streamStructured(ctx, sub, turnIndex, chunks, out)
		}
	}()
	return out
}

func (e *TurnEngine) streamStructured(ctx context.Context, sub ToolCallContext, turnIndex int, chunks <-chan *CompletionChunk, out chan<- TurnDelta) {
	var text string
	for chunk := range chunks {
		if chunk.Error != nil {
			out <- TurnDelta{Kind: DeltaDone, Err: &LLMError{Provider: e.llm.Name(), Cause: chunk.Error}}
			return
		}
		if chunk.Text != "" {
			text += chunk.Text
			e.emit(models.NewStreamChunk(sub.SubID, chunk.Text))
			out <- TurnDelta{Kind: DeltaText, Text: chunk.Text}
		}
		if chunk.Done {
			break
		}
	}
	response := models.Text(models.RoleAssistant, text)
	result, err := e.complete(ctx, sub, turnIndex, response)
	out <- TurnDelta{Kind: DeltaDone, Result: result, Err: err}
}

func (e *TurnEngine) streamWithTools(ctx context.Context, sub ToolCallContext, turnIndex int, chunks <-chan *CompletionChunk, out chan<- TurnDelta) {
	var text string
	var calls []models.ToolCall
	seen := make(map[string]bool)

	for chunk := range chunks {
		if chunk.Error != nil {
			out <- TurnDelta{Kind: DeltaDone, Err: &LLMError{Provider: e.llm.Name(), Cause: chunk.Error}}
			return
		}
		if chunk.Text != "" {
			text += chunk.Text
			e.emit(models.NewStreamChunk(sub.SubID, chunk.Text))
			out <- TurnDelta{Kind: DeltaText, Text: chunk.Text}
		}
		if chunk.ToolCall != nil && !seen[chunk.ToolCall.ID] {
			seen[chunk.ToolCall.ID] = true
			calls = append(calls, *chunk.ToolCall)
			payload := []byte(fmt.Sprintf(`{"id":%q,"name":%q}`, chunk.ToolCall.ID, chunk.ToolCall.Function.Name))
			e.emit(models.NewStreamToolCall(sub.SubID, payload))
		}
		if chunk.Done {
			break
		}
	}

	if len(calls) == 0 {
		response := models.Text(models.RoleAssistant, text)
		result, err := e.complete(ctx, sub, turnIndex, response)
		out <- TurnDelta{Kind: DeltaDone, Result: result, Err: err}
		return
	}

	response := models.ToolUse(text, calls)
	result, err := e.continueWithToolCalls(ctx, sub, turnIndex, response)
	if err != nil {
		out <- TurnDelta{Kind: DeltaDone, Err: err}
		return
	}
	out <- TurnDelta{Kind: DeltaToolResults, ToolResults: result.Output.ToolResults}
	out <- TurnDelta{Kind: DeltaDone, Result: result}
}

func (e *TurnEngine) emit(ev models.Event) {
	if e.out == nil {
		return
	}
	_ = e.out.Send(context.Background(), ev)
}
