package agent

import (
	"context"
	"errors"

	"github.com/haasonsaas/nexus/pkg/models"
)

// ErrMaxTurnsExceeded identifies turn-budget exhaustion for callers that
// want to distinguish it from other outcomes (metrics, logging). It is
// never returned as an error from Execute/ExecuteStream: loop exhaustion
// is a normal completion — the last Continue output, marked Done — not a
// failure, so it reaches TaskComplete/OnRunComplete like any other run.
var ErrMaxTurnsExceeded = errors.New("max turns exceeded")

// Executor drives a TurnEngine to completion for one task: Basic runs
// exactly one turn, ReAct loops turns until the engine reports completion
// or the turn budget is exhausted.
type Executor interface {
	Execute(ctx context.Context, sub ToolCallContext, task models.Task) (TurnEngineOutput, error)
	ExecuteStream(ctx context.Context, sub ToolCallContext, task models.Task) <-chan TurnDelta
}

// BasicExecutor runs a single turn with tools disabled. It never loops:
// whatever the turn engine returns — text or (ignored) tool calls — is
// final.
type BasicExecutor struct {
	Engine *TurnEngine
}

// NewBasicExecutor builds an executor around an engine configured with
// BasicTurnEngineConfig.
func NewBasicExecutor(engine *TurnEngine) *BasicExecutor {
	return &BasicExecutor{Engine: engine}
}

func (e *BasicExecutor) Execute(ctx context.Context, sub ToolCallContext, task models.Task) (TurnEngineOutput, error) {
	result, err := e.Engine.RunTurn(ctx, sub, task, 0, &TurnState{})
	if err != nil {
		return TurnEngineOutput{}, err
	}
	out := result.Output
	out.Done = true
	return out, nil
}

func (e *BasicExecutor) ExecuteStream(ctx context.Context, sub ToolCallContext, task models.Task) <-chan TurnDelta {
	return e.Engine.RunTurnStream(ctx, sub, task, 0, &TurnState{})
}

// ReActExecutor loops RunTurn until the engine reports TurnComplete or the
// configured max-turns budget is spent, whichever comes first — the two
// stop conditions a ReAct loop has.
type ReActExecutor struct {
	Engine   *TurnEngine
	MaxTurns int
}

// NewReActExecutor builds an executor around an engine configured with
// ReActTurnEngineConfig(maxTurns).
func NewReActExecutor(engine *TurnEngine, maxTurns int) *ReActExecutor {
	return &ReActExecutor{Engine: engine, MaxTurns: normalizeMaxTurns(maxTurns, 1)}
}

func (e *ReActExecutor) Execute(ctx context.Context, sub ToolCallContext, task models.Task) (TurnEngineOutput, error) {
	state := &TurnState{}
	var last TurnEngineOutput
	for turnIndex := 0; turnIndex < e.MaxTurns; turnIndex++ {
		result, err := e.Engine.RunTurn(ctx, sub, task, turnIndex, state)
		if err != nil {
			return TurnEngineOutput{}, err
		}
		last = result.Output
		if result.Status == TurnComplete {
			return last, nil
		}
	}
	last.Done = true
	return last, nil
}

func (e *ReActExecutor) ExecuteStream(ctx context.Context, sub ToolCallContext, task models.Task) <-chan TurnDelta {
	out := make(chan TurnDelta, 8)
	go func() {
		defer close(out)
		state := &TurnState{}
		for turnIndex := 0; turnIndex < e.MaxTurns; turnIndex++ {
			deltas := e.Engine.RunTurnStream(ctx, sub, task, turnIndex, state)
			var last TurnDelta
			for delta := range deltas {
				if delta.Kind != DeltaDone {
					out <- delta
					continue
				}
				last = delta
			}
			if last.Err != nil {
				out <- last
				return
			}
			if last.Result.Status == TurnComplete {
				out <- last
				return
			}
			if turnIndex == e.MaxTurns-1 {
				last.Result.Output.Done = true
				out <- last
				return
			}
		}
	}()
	return out
}
