package agent

import (
	"context"
	"testing"

	"github.com/haasonsaas/nexus/internal/agent/agenttest"
	"github.com/haasonsaas/nexus/internal/bus"
	"github.com/haasonsaas/nexus/internal/memory"
	"github.com/haasonsaas/nexus/pkg/ids"
	"github.com/haasonsaas/nexus/pkg/models"
)

func newTestEngine(t *testing.T, llm LLMProvider, config TurnEngineConfig) (*TurnEngine, ToolCallContext) {
	t.Helper()
	tools := NewToolRegistry()
	tools.Register(&agenttest.EchoTool{ToolName: "echo"})
	adapter := memory.NewAdapter(memory.NewSlidingWindowHistory(0), config.MemoryPolicy)
	engine := NewTurnEngine(llm, tools, adapter, nil, bus.New(64), config)
	sub := ToolCallContext{SubID: ids.NewSubmissionID(), ActorID: ids.NewActorID()}
	return engine, sub
}

func TestTurnEngine_BasicCompletesOnTextResponse(t *testing.T) {
	llm := &agenttest.ScriptedLLM{ProviderName: "mock", Responses: []models.ChatMessage{
		models.Text(models.RoleAssistant, "hello"),
	}}
	engine, sub := newTestEngine(t, llm, BasicTurnEngineConfig())

	result, err := engine.RunTurn(context.Background(), sub, models.NewTask("hi"), 0, &TurnState{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != TurnComplete {
		t.Fatalf("want TurnComplete, got %v", result.Status)
	}
}

func TestTurnEngine_ReActContinuesOnToolCalls(t *testing.T) {
	llm := &agenttest.ScriptedLLM{ProviderName: "mock", Responses: []models.ChatMessage{
		models.ToolUse("", []models.ToolCall{models.NewToolCall("1", "echo", `{}`)}),
	}}
	engine, sub := newTestEngine(t, llm, ReActTurnEngineConfig(3))

	result, err := engine.RunTurn(context.Background(), sub, models.NewTask("hi"), 0, &TurnState{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != TurnContinue {
		t.Fatalf("want TurnContinue when tool calls are present, got %v", result.Status)
	}
	if len(result.Output.ToolResults) != 1 {
		t.Fatalf("want 1 tool result, got %d", len(result.Output.ToolResults))
	}
}

func TestTurnEngine_UserPromptStoredOnce(t *testing.T) {
	llm := &agenttest.ScriptedLLM{ProviderName: "mock", Responses: []models.ChatMessage{
		models.ToolUse("", []models.ToolCall{models.NewToolCall("1", "echo", `{}`)}),
		models.Text(models.RoleAssistant, "done"),
	}}
	engine, sub := newTestEngine(t, llm, ReActTurnEngineConfig(3))
	task := models.NewTask("hi")
	state := &TurnState{}

	if _, err := engine.RunTurn(context.Background(), sub, task, 0, state); err != nil {
		t.Fatal(err)
	}
	if !state.storedUser {
		t.Fatalf("want user prompt marked stored after first turn")
	}
	if _, err := engine.RunTurn(context.Background(), sub, task, 1, state); err != nil {
		t.Fatal(err)
	}
	msgs, _ := engine.mem.RecallMessages(context.Background(), sub.SubID)
	userCount := 0
	for _, m := range msgs {
		if m.Role == models.RoleUser {
			userCount++
		}
	}
	if userCount != 1 {
		t.Fatalf("want user prompt persisted exactly once across turns, got %d", userCount)
	}
}

func TestNormalizeMaxTurns(t *testing.T) {
	if got := normalizeMaxTurns(0, 1); got != 1 {
		t.Fatalf("want fallback of 1 for max_turns=0, got %d", got)
	}
	if got := normalizeMaxTurns(5, 1); got != 5 {
		t.Fatalf("want explicit value preserved, got %d", got)
	}
}
