package agent

import (
	"context"

	"github.com/haasonsaas/nexus/pkg/models"
)

// Outcome is a hook's veto verdict: Continue lets the turn engine proceed,
// Abort stops it before the gated step runs.
type Outcome int

const (
	Continue Outcome = iota
	Abort
)

// Hooks observes and can veto points in a run's lifecycle. All methods are
// called synchronously on the turn engine's goroutine; a hook that blocks
// blocks the run. Implementations should embed NopHooks and override only
// the methods they need.
//
// Veto contract: OnRunStart and OnToolCall are the only methods whose
// return value is consulted. Returning Abort from OnRunStart prevents
// Execute from ever being invoked (see invariant: hook abort atomicity).
// Returning Abort from OnToolCall skips dispatch of that single call; the
// call is silently excluded from the turn's result batch, it does not fail
// the turn.
type Hooks interface {
	OnRunStart(ctx context.Context, task models.Task) Outcome
	OnRunComplete(ctx context.Context, task models.Task, output TurnEngineOutput)

	OnTurnStart(ctx context.Context, turnIndex int)
	OnTurnComplete(ctx context.Context, turnIndex int)

	OnToolCall(ctx context.Context, call models.ToolCall) Outcome
	OnToolStart(ctx context.Context, call models.ToolCall)
	OnToolResult(ctx context.Context, call models.ToolCall, result models.ToolCallResult)
	OnToolError(ctx context.Context, call models.ToolCall, result models.ToolCallResult)
}

// NopHooks is a zero-value Hooks implementation that always continues and
// observes nothing. Embed it to implement only the hooks you care about.
type NopHooks struct{}

func (NopHooks) OnRunStart(context.Context, models.Task) Outcome { return Continue }
func (NopHooks) OnRunComplete(context.Context, models.Task, TurnEngineOutput) {}
func (NopHooks) OnTurnStart(context.Context, int) {}
func (NopHooks) OnTurnComplete(context.Context, int) {}
func (NopHooks) OnToolCall(context.Context, models.ToolCall) Outcome { return Continue }
func (NopHooks) OnToolStart(context.Context, models.ToolCall) {}
func (NopHooks) OnToolResult(context.Context, models.ToolCall, models.ToolCallResult) {}
func (NopHooks) OnToolError(context.Context, models.ToolCall, models.ToolCallResult) {}

var _ Hooks = NopHooks{}
