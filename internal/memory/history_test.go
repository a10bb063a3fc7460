package memory

import (
	"context"
	"testing"

	"github.com/haasonsaas/nexus/pkg/ids"
	"github.com/haasonsaas/nexus/pkg/models"
)

func TestAdapter_BasicPolicySkipsTool(t *testing.T) {
	hist := NewSlidingWindowHistory(0)
	a := NewAdapter(hist, models.BasicMemoryPolicy())
	sub := ids.NewSubmissionID()
	ctx := context.Background()

	if err := a.StoreUser(ctx, sub, models.Text(models.RoleUser, "hi")); err != nil {
		t.Fatal(err)
	}
	results := []models.ToolCallResult{{ToolName: "x", Success: true}}
	if err := a.StoreToolInteraction(ctx, sub, models.ToolUse("", nil), results); err != nil {
		t.Fatal(err)
	}
	if err := a.StoreAssistant(ctx, sub, models.Text(models.RoleAssistant, "done")); err != nil {
		t.Fatal(err)
	}

	msgs, err := a.RecallMessages(ctx, sub)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("basic policy should skip tool-call persistence, got %d messages: %+v", len(msgs), msgs)
	}
}

func TestAdapter_ReActPolicyPreservesToolOrdering(t *testing.T) {
	hist := NewSlidingWindowHistory(0)
	a := NewAdapter(hist, models.ReActMemoryPolicy())
	sub := ids.NewSubmissionID()
	ctx := context.Background()

	calls := []models.ToolCall{models.NewToolCall("1", "echo", "{}")}
	assistant := models.ToolUse("", calls)
	results := []models.ToolCallResult{{ToolName: "echo", Success: true}}

	if err := a.StoreToolInteraction(ctx, sub, assistant, results); err != nil {
		t.Fatal(err)
	}

	msgs, err := a.RecallMessages(ctx, sub)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("want assistant+tool-result pair, got %d", len(msgs))
	}
	if msgs[0].Type != models.MessageToolUse {
		t.Fatalf("first message should be the assistant tool-use message, got %v", msgs[0].Type)
	}
	if msgs[1].Type != models.MessageToolResult {
		t.Fatalf("second message should immediately follow as the tool-result message, got %v", msgs[1].Type)
	}
}

func TestAdapter_RecallDisabled(t *testing.T) {
	hist := NewSlidingWindowHistory(0)
	policy := models.BasicMemoryPolicy()
	policy.Recall = false
	a := NewAdapter(hist, policy)
	sub := ids.NewSubmissionID()
	ctx := context.Background()

	_ = a.StoreUser(ctx, sub, models.Text(models.RoleUser, "hi"))
	msgs, err := a.RecallMessages(ctx, sub)
	if err != nil {
		t.Fatal(err)
	}
	if msgs != nil {
		t.Fatalf("want nil recall when policy disables it, got %+v", msgs)
	}
}

func TestSlidingWindowHistory_BoundsLength(t *testing.T) {
	hist := NewSlidingWindowHistory(2)
	sub := ids.NewSubmissionID()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = hist.Append(ctx, sub, models.Text(models.RoleUser, "m"))
	}
	msgs, _ := hist.Recall(ctx, sub)
	if len(msgs) != 2 {
		t.Fatalf("want window bounded to 2, got %d", len(msgs))
	}
}
