package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haasonsaas/nexus/internal/bus"
	"github.com/haasonsaas/nexus/pkg/ids"
	"github.com/haasonsaas/nexus/pkg/models"
)

// ToolCallContext identifies the submission and actor a batch of tool calls
// belongs to, used to tag the events the processor emits.
type ToolCallContext struct {
	SubID   ids.SubmissionID
	ActorID ids.ActorID
}

// ToolProcessor dispatches ToolCall batches strictly sequentially: one call
// is fully resolved (hooks, execution, event emission) before the next
// begins. Parallel dispatch is never offered — the turn engine's tool
// result ordering invariant depends on it.
type ToolProcessor struct {
	tools   *ToolRegistry
	hooks   Hooks
	out     *bus.Bus
	metrics *Metrics
	tracer  *Tracer
}

// NewToolProcessor builds a processor over the given registry, hook set,
// and event sink. A nil hooks defaults to NopHooks.
func NewToolProcessor(tools *ToolRegistry, hooks Hooks, out *bus.Bus) *ToolProcessor {
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &ToolProcessor{tools: tools, hooks: hooks, out: out, metrics: GlobalMetrics(), tracer: GlobalTracer()}
}

// ProcessToolCalls dispatches every call in order and returns the results
// for the ones that were not vetoed by OnToolCall. A shorter result slice
// than the input is expected behavior, not an error — vetoed calls are
// simply absent.
func (p *ToolProcessor) ProcessToolCalls(ctx context.Context, sub ToolCallContext, calls []models.ToolCall) []models.ToolCallResult {
	results := make([]models.ToolCallResult, 0, len(calls))
	for _, call := range calls {
		if result, ok := p.processSingleWithHooks(ctx, sub, call); ok {
			results = append(results, result)
		}
	}
	return results
}

func (p *ToolProcessor) processSingleWithHooks(ctx context.Context, sub ToolCallContext, call models.ToolCall) (models.ToolCallResult, bool) {
	ctx = ContextWithActor(ctx, sub.ActorID)
	if p.hooks.OnToolCall(ctx, call) == Abort {
		return models.ToolCallResult{}, false
	}
	p.hooks.OnToolStart(ctx, call)

	result := p.processSingle(ctx, sub, call)

	if result.Success {
		p.hooks.OnToolResult(ctx, call, result)
	} else {
		p.hooks.OnToolError(ctx, call, result)
	}
	return result, true
}

func (p *ToolProcessor) processSingle(ctx context.Context, sub ToolCallContext, call models.ToolCall) models.ToolCallResult {
	p.emit(models.NewToolCallRequested(sub.SubID, sub.ActorID, call.ID, call.Function.Name, json.RawMessage(call.Function.Arguments)))

	tool, ok := p.tools.Get(call.Function.Name)
	if !ok {
		errMsg := fmt.Sprintf("Tool '%s' not found", call.Function.Name)
		result := newToolErrorResult(call, nil, errMsg)
		p.emit(models.NewToolCallFailed(sub.SubID, sub.ActorID, call.ID, call.Function.Name, errMsg))
		return result
	}

	result := p.execute(ctx, tool, call)
	if result.Success {
		p.emit(models.NewToolCallCompleted(sub.SubID, sub.ActorID, call.ID, call.Function.Name, result.Result))
	} else {
		p.emit(models.NewToolCallFailed(sub.SubID, sub.ActorID, call.ID, call.Function.Name, extractErrorString(result.Result)))
	}
	return result
}

// execute parses arguments, validates them against the tool's declared
// schema, dispatches, and wraps outcome into a ToolCallResult. Error
// wording mirrors the dispatch rules exactly: a not-found tool, a
// JSON-parse failure, a schema-validation failure, and an execution
// failure are each distinguishable by substring.
func (p *ToolProcessor) execute(ctx context.Context, tool Tool, call models.ToolCall) models.ToolCallResult {
	ctx, span := p.tracer.StartToolExecution(ctx, call.Function.Name)
	start := time.Now()
	result := p.executeTraced(ctx, tool, call)
	status := "success"
	if !result.Success {
		status = "error"
		p.tracer.RecordError(span, fmt.Errorf("%s", extractErrorString(result.Result)))
	}
	span.End()
	p.metrics.RecordToolExecution(call.Function.Name, status, time.Since(start).Seconds())
	return result
}

func (p *ToolProcessor) executeTraced(ctx context.Context, tool Tool, call models.ToolCall) models.ToolCallResult {
	var args json.RawMessage
	if call.Function.Arguments != "" {
		if !json.Valid([]byte(call.Function.Arguments)) {
			errMsg := fmt.Sprintf("Failed to parse arguments: invalid JSON for tool %q", call.Function.Name)
			return newToolErrorResult(call, json.RawMessage("null"), errMsg)
		}
		args = json.RawMessage(call.Function.Arguments)
	} else {
		args = json.RawMessage("null")
	}

	if schema := tool.Schema(); len(schema) > 0 {
		if err := validateAgainstSchema(schema, args); err != nil {
			schemaErr := &SchemaError{Subject: "tool:" + call.Function.Name, Cause: err}
			return newToolErrorResult(call, args, schemaErr.Error())
		}
	}

	out, err := tool.Execute(ctx, args)
	if err != nil {
		errMsg := fmt.Sprintf("Tool execution failed: %v", err)
		return newToolErrorResult(call, args, errMsg)
	}
	if out != nil && out.IsError {
		return newToolErrorResult(call, args, out.Content)
	}

	var content []byte
	if out != nil {
		content = []byte(jsonStringOrRaw(out.Content))
	} else {
		content = []byte(`""`)
	}
	return models.ToolCallResult{
		ToolName:  call.Function.Name,
		Success:   true,
		Arguments: args,
		Result:    content,
	}
}

func newToolErrorResult(call models.ToolCall, args json.RawMessage, message string) models.ToolCallResult {
	if args == nil {
		args = json.RawMessage("null")
	}
	errBody, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{Error: message})
	return models.ToolCallResult{
		ToolName:  call.Function.Name,
		Success:   false,
		Arguments: args,
		Result:    errBody,
	}
}

func extractErrorString(result json.RawMessage) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(result, &body); err != nil {
		return string(result)
	}
	return body.Error
}

// jsonStringOrRaw wraps plain text content as a JSON string, but leaves
// already-valid JSON content (objects/arrays) untouched.
func jsonStringOrRaw(content string) string {
	if json.Valid([]byte(content)) {
		return content
	}
	b, _ := json.Marshal(content)
	return string(b)
}

func (p *ToolProcessor) emit(e models.Event) {
	if p.out == nil {
		return
	}
	_ = p.out.Send(context.Background(), e)
}

// ToCallsForMemory converts a batch of ToolCallResult back into the
// ChatMessage the Memory Adapter persists: one tool-role message carrying
// all results for the turn, in dispatch order.
func ToCallsForMemory(results []models.ToolCallResult) models.ChatMessage {
	return models.ToolResultMessage(results)
}
