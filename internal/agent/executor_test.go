package agent

import (
	"context"
	"testing"

	"github.com/haasonsaas/nexus/internal/agent/agenttest"
	"github.com/haasonsaas/nexus/pkg/models"
)

func TestBasicExecutor_SingleTurn(t *testing.T) {
	llm := &agenttest.ScriptedLLM{ProviderName: "mock", Responses: []models.ChatMessage{
		models.Text(models.RoleAssistant, "hello"),
	}}
	engine, sub := newTestEngine(t, llm, BasicTurnEngineConfig())
	exec := NewBasicExecutor(engine)

	out, err := exec.Execute(context.Background(), sub, models.NewTask("hi"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Response.Content != "hello" {
		t.Fatalf("want response content 'hello', got %q", out.Response.Content)
	}
}

func TestReActExecutor_LoopsUntilComplete(t *testing.T) {
	llm := &agenttest.ScriptedLLM{ProviderName: "mock", Responses: []models.ChatMessage{
		models.ToolUse("", []models.ToolCall{models.NewToolCall("1", "echo", `{}`)}),
		models.ToolUse("", []models.ToolCall{models.NewToolCall("2", "echo", `{}`)}),
		models.Text(models.RoleAssistant, "final"),
	}}
	engine, sub := newTestEngine(t, llm, ReActTurnEngineConfig(5))
	exec := NewReActExecutor(engine, 5)

	out, err := exec.Execute(context.Background(), sub, models.NewTask("hi"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Response.Content != "final" {
		t.Fatalf("want final response 'final', got %q", out.Response.Content)
	}
}

func TestReActExecutor_MaxTurnsExceeded(t *testing.T) {
	llm := &agenttest.ScriptedLLM{ProviderName: "mock", Responses: []models.ChatMessage{
		models.ToolUse("", []models.ToolCall{models.NewToolCall("1", "echo", `{}`)}),
		models.ToolUse("", []models.ToolCall{models.NewToolCall("2", "echo", `{}`)}),
	}}
	engine, sub := newTestEngine(t, llm, ReActTurnEngineConfig(2))
	exec := NewReActExecutor(engine, 2)

	out, err := exec.Execute(context.Background(), sub, models.NewTask("hi"))
	if err != nil {
		t.Fatalf("want nil error on turn-budget exhaustion, got %v", err)
	}
	if !out.Done {
		t.Fatal("want output marked Done on turn-budget exhaustion")
	}
}
