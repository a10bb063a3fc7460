package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/haasonsaas/nexus/internal/agent/agenttest"
	"github.com/haasonsaas/nexus/internal/bus"
	"github.com/haasonsaas/nexus/pkg/ids"
	"github.com/haasonsaas/nexus/pkg/models"
)

type abortAllHooks struct{ NopHooks }

func (abortAllHooks) OnToolCall(context.Context, models.ToolCall) Outcome { return Abort }

func newTestCtx() ToolCallContext {
	return ToolCallContext{SubID: ids.NewSubmissionID(), ActorID: ids.NewActorID()}
}

func TestToolProcessor_NotFound(t *testing.T) {
	reg := NewToolRegistry()
	p := NewToolProcessor(reg, nil, bus.New(16))

	calls := []models.ToolCall{models.NewToolCall("1", "missing", "{}")}
	results := p.ProcessToolCalls(context.Background(), newTestCtx(), calls)

	if len(results) != 1 {
		t.Fatalf("want 1 result, got %d", len(results))
	}
	if results[0].Success {
		t.Fatalf("want failure for missing tool")
	}
	if !strings.Contains(extractErrorString(results[0].Result), "not found") {
		t.Fatalf("want 'not found' in error, got %q", results[0].Result)
	}
}

func TestToolProcessor_SuccessAndFailure(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(&agenttest.EchoTool{ToolName: "ok"})
	reg.Register(&agenttest.EchoTool{ToolName: "bad", Fail: true})
	p := NewToolProcessor(reg, nil, bus.New(16))

	calls := []models.ToolCall{
		models.NewToolCall("1", "ok", `{"x":1}`),
		models.NewToolCall("2", "bad", `{}`),
	}
	results := p.ProcessToolCalls(context.Background(), newTestCtx(), calls)

	if len(results) != 2 {
		t.Fatalf("want 2 results, got %d", len(results))
	}
	if !results[0].Success {
		t.Fatalf("want first call to succeed")
	}
	if results[1].Success {
		t.Fatalf("want second call to fail")
	}
}

func TestToolProcessor_BadArguments(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(&agenttest.EchoTool{ToolName: "ok"})
	p := NewToolProcessor(reg, nil, bus.New(16))

	calls := []models.ToolCall{models.NewToolCall("1", "ok", `not json`)}
	results := p.ProcessToolCalls(context.Background(), newTestCtx(), calls)

	if results[0].Success {
		t.Fatalf("want failure for unparseable arguments")
	}
	if !strings.Contains(extractErrorString(results[0].Result), "Failed to parse arguments") {
		t.Fatalf("want parse-failure message, got %q", results[0].Result)
	}
}

func TestToolProcessor_HookAbortExcludesCall(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(&agenttest.EchoTool{ToolName: "ok"})
	p := NewToolProcessor(reg, abortAllHooks{}, bus.New(16))

	calls := []models.ToolCall{models.NewToolCall("1", "ok", `{}`)}
	results := p.ProcessToolCalls(context.Background(), newTestCtx(), calls)

	if len(results) != 0 {
		t.Fatalf("want vetoed call excluded from results, got %d", len(results))
	}
}

func TestToolProcessor_SequentialOrder(t *testing.T) {
	reg := NewToolRegistry()
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		n := name
		reg.Register(agenttest.FuncTool{ToolName: n, Fn: func(context.Context, json.RawMessage) (*ToolResult, error) {
			order = append(order, n)
			return &ToolResult{Content: n}, nil
		}})
	}
	p := NewToolProcessor(reg, nil, bus.New(16))

	calls := []models.ToolCall{
		models.NewToolCall("1", "a", `{}`),
		models.NewToolCall("2", "b", `{}`),
		models.NewToolCall("3", "c", `{}`),
	}
	p.ProcessToolCalls(context.Background(), newTestCtx(), calls)

	want := []string{"a", "b", "c"}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("dispatch order = %v, want %v", order, want)
		}
	}
}

