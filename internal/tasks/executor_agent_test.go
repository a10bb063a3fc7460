package tasks

import (
	"context"
	"testing"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/agent/agenttest"
	"github.com/haasonsaas/nexus/pkg/models"
)

func TestAgentExecutor_RunsRegisteredAgent(t *testing.T) {
	handle, err := agent.NewAgentBuilder().
		WithLLM(&agenttest.ScriptedLLM{
			ProviderName: "mock",
			Responses:    []models.ChatMessage{models.Text(models.RoleAssistant, "done")},
		}).
		Build()
	if err != nil {
		t.Fatalf("build agent: %v", err)
	}

	executor := NewAgentExecutor(map[string]AgentRunner{"reminder-bot": handle}, AgentExecutorConfig{})

	task := &ScheduledTask{ID: "t1", AgentID: "reminder-bot"}
	execution := &TaskExecution{ID: "e1", Prompt: "say hi"}

	resp, err := executor.Execute(context.Background(), task, execution)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != "done" {
		t.Errorf("response = %q, want %q", resp, "done")
	}
}

func TestAgentExecutor_UnknownAgent(t *testing.T) {
	executor := NewAgentExecutor(nil, AgentExecutorConfig{})
	task := &ScheduledTask{ID: "t1", AgentID: "missing"}
	execution := &TaskExecution{ID: "e1", Prompt: "hi"}

	if _, err := executor.Execute(context.Background(), task, execution); err == nil {
		t.Error("expected error for unregistered agent")
	}
}
