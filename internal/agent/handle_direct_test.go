package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/haasonsaas/nexus/internal/agent/agenttest"
	"github.com/haasonsaas/nexus/pkg/models"
)

func TestAgentBuilder_RequiresLLM(t *testing.T) {
	_, err := NewAgentBuilder().Build()
	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("want BuildError, got %v", err)
	}
}

func TestDirectAgentHandle_RunSuccess(t *testing.T) {
	llm := &agenttest.ScriptedLLM{ProviderName: "mock", Responses: []models.ChatMessage{
		models.Text(models.RoleAssistant, "hi there"),
	}}
	handle, err := NewAgentBuilder().WithLLM(llm).Build()
	if err != nil {
		t.Fatal(err)
	}

	out, err := handle.Run(context.Background(), models.NewTask("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Response.Content != "hi there" {
		t.Fatalf("want 'hi there', got %q", out.Response.Content)
	}
}

type abortRunHooks struct{ NopHooks }

func (abortRunHooks) OnRunStart(context.Context, models.Task) Outcome { return Abort }

func TestDirectAgentHandle_RunAbortsBeforeExecute(t *testing.T) {
	executed := false
	llm := &agenttest.FlaggingLLM{Executed: &executed, Response: models.Text(models.RoleAssistant, "should not run")}
	handle, err := NewAgentBuilder().WithLLM(llm).WithHooks(abortRunHooks{}).Build()
	if err != nil {
		t.Fatal(err)
	}

	_, err = handle.Run(context.Background(), models.NewTask("hello"))
	var abortErr *HookAbortError
	if !errors.As(err, &abortErr) {
		t.Fatalf("want HookAbortError, got %v", err)
	}
	if executed {
		t.Fatalf("want Execute to never be called when OnRunStart aborts")
	}
}

func TestDirectAgentHandle_EventsFanoutIndependentSubscribers(t *testing.T) {
	llm := &agenttest.ScriptedLLM{ProviderName: "mock", Responses: []models.ChatMessage{
		models.Text(models.RoleAssistant, "done"),
	}}
	handle, err := NewAgentBuilder().WithLLM(llm).Build()
	if err != nil {
		t.Fatal(err)
	}

	subA := handle.Events()
	subB := handle.Events()

	if _, err := handle.Run(context.Background(), models.NewTask("hi")); err != nil {
		t.Fatal(err)
	}

	countEvents := func(ch <-chan models.Event) int {
		n := 0
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return n
				}
				n++
			default:
				return n
			}
		}
	}

	if a, b := countEvents(subA), countEvents(subB); a == 0 || b == 0 {
		t.Fatalf("want both subscribers to observe events, got a=%d b=%d", a, b)
	}
}
