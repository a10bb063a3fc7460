package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/haasonsaas/nexus/internal/bus"
	"github.com/haasonsaas/nexus/internal/memory"
	"github.com/haasonsaas/nexus/pkg/models"
)

// AgentBuilder assembles a DirectAgentHandle. The zero value is not usable;
// construct with NewAgentBuilder.
type AgentBuilder struct {
	llm         LLMProvider
	tools       *ToolRegistry
	hooks       Hooks
	mem         *memory.Adapter
	config      TurnEngineConfig
	agentConfig AgentConfig
	capacity    int
}

// NewAgentBuilder starts a builder with the Basic profile.
func NewAgentBuilder() *AgentBuilder {
	return &AgentBuilder{tools: NewToolRegistry(), config: BasicTurnEngineConfig(), agentConfig: DefaultAgentConfig()}
}

func (b *AgentBuilder) WithLLM(llm LLMProvider) *AgentBuilder { b.llm = llm; return b }
func (b *AgentBuilder) WithTools(tools ...Tool) *AgentBuilder {
	for _, t := range tools {
		b.tools.Register(t)
	}
	return b
}
func (b *AgentBuilder) WithHooks(hooks Hooks) *AgentBuilder { b.hooks = hooks; return b }
func (b *AgentBuilder) WithMemory(adapter *memory.Adapter) *AgentBuilder {
	b.mem = adapter
	return b
}
func (b *AgentBuilder) WithConfig(config TurnEngineConfig) *AgentBuilder {
	b.config = config
	return b
}
func (b *AgentBuilder) WithBusCapacity(capacity int) *AgentBuilder {
	b.capacity = capacity
	return b
}
func (b *AgentBuilder) WithAgentConfig(config AgentConfig) *AgentBuilder {
	b.agentConfig = mergeAgentConfig(b.agentConfig, config)
	return b
}

// Build validates and constructs the handle. An LLM provider is the only
// required field.
func (b *AgentBuilder) Build() (*DirectAgentHandle, error) {
	if b.llm == nil {
		return nil, &BuildError{Reason: "LLM provider is required"}
	}
	hooks := b.hooks
	if hooks == nil {
		hooks = NopHooks{}
	}
	mem := b.mem
	if mem == nil {
		mem = memory.NewAdapter(memory.NewSlidingWindowHistory(0), b.config.MemoryPolicy)
	}

	capacity := b.capacity
	if capacity <= 0 {
		capacity = b.agentConfig.BusCapacity
	}
	eventBus := bus.New(capacity)
	engine := NewTurnEngine(b.llm, b.tools, mem, hooks, eventBus, b.config)
	engine.SetDescription(b.agentConfig.Description)
	engine.SetOutputSchema(b.agentConfig.OutputSchema)

	var executor Executor
	if b.config.ToolMode == ToolModeEnabled {
		executor = NewReActExecutor(engine, b.config.MaxTurns)
	} else {
		executor = NewBasicExecutor(engine)
	}

	return &DirectAgentHandle{executor: executor, hooks: hooks, bus: eventBus}, nil
}

// DirectAgentHandle runs tasks synchronously in the caller's goroutine and
// owns its own event bus. Subscribers attach via Events(); the first call
// upgrades the bus to a fan-out so later calls each get an independent
// subscription, none of them missing events the others already consumed.
type DirectAgentHandle struct {
	executor Executor
	hooks    Hooks
	bus      *bus.Bus
	fanout   *bus.Fanout

	subMu   sync.Mutex
	cancels map[<-chan models.Event]func()
}

// Run executes task to completion. If OnRunStart vetoes the run, Execute is
// never called at all — hook abort is atomic with respect to execution.
func (h *DirectAgentHandle) Run(ctx context.Context, task models.Task) (TurnEngineOutput, error) {
	sub := ToolCallContext{SubID: task.SubmissionID}
	h.emitTaskStarted(sub)

	if h.hooks.OnRunStart(ctx, task) == Abort {
		err := &HookAbortError{Gate: "run_start"}
		h.emitTaskError(sub, err)
		return TurnEngineOutput{}, err
	}

	out, err := h.executor.Execute(ctx, sub, task)
	if err != nil {
		wrapped := fmt.Errorf("executor: %w", err)
		h.emitTaskError(sub, wrapped)
		return TurnEngineOutput{}, wrapped
	}

	h.emitTaskComplete(sub, out)
	h.hooks.OnRunComplete(ctx, task, out)
	return out, nil
}

// RunStream is the streaming counterpart of Run, with the same hook-gated
// abort-before-execute contract: a veto means the returned channel is
// closed immediately with no deltas, and ExecuteStream is never invoked.
func (h *DirectAgentHandle) RunStream(ctx context.Context, task models.Task) <-chan TurnDelta {
	sub := ToolCallContext{SubID: task.SubmissionID}
	h.emitTaskStarted(sub)

	if h.hooks.OnRunStart(ctx, task) == Abort {
		out := make(chan TurnDelta, 1)
		err := &HookAbortError{Gate: "run_start"}
		h.emitTaskError(sub, err)
		out <- TurnDelta{Kind: DeltaDone, Err: err}
		close(out)
		return out
	}

	deltas := h.executor.ExecuteStream(ctx, sub, task)
	out := make(chan TurnDelta, 8)
	go func() {
		defer close(out)
		var last TurnDelta
		for delta := range deltas {
			out <- delta
			last = delta
		}
		if last.Err != nil {
			h.emitTaskError(sub, last.Err)
			return
		}
		h.emitTaskComplete(sub, last.Result.Output)
		h.hooks.OnRunComplete(ctx, task, last.Result.Output)
	}()
	return out
}

// Events returns an independent subscription to this handle's event bus.
// A subscriber that will not keep draining it must call Unsubscribe with
// the same channel, or it permanently blocks the fan-out for every other
// subscriber.
func (h *DirectAgentHandle) Events() <-chan models.Event {
	if h.fanout == nil {
		h.fanout = bus.NewFanout(h.bus.Events(), bus.DefaultCapacity)
	}
	ch, cancel := h.fanout.Subscribe()
	h.subMu.Lock()
	if h.cancels == nil {
		h.cancels = make(map[<-chan models.Event]func())
	}
	h.cancels[ch] = cancel
	h.subMu.Unlock()
	return ch
}

// Unsubscribe releases a subscription obtained from Events, unblocking the
// fan-out broadcaster if this subscriber had stopped draining its channel.
func (h *DirectAgentHandle) Unsubscribe(ch <-chan models.Event) {
	h.subMu.Lock()
	cancel := h.cancels[ch]
	delete(h.cancels, ch)
	h.subMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (h *DirectAgentHandle) emitTaskStarted(sub ToolCallContext) {
	_ = h.bus.TrySend(models.NewTaskStarted(sub.SubID, sub.ActorID))
}

func (h *DirectAgentHandle) emitTaskComplete(sub ToolCallContext, out TurnEngineOutput) {
	result, _ := json.Marshal(out.Response)
	_ = h.bus.TrySend(models.NewTaskComplete(sub.SubID, sub.ActorID, result))
}

func (h *DirectAgentHandle) emitTaskError(sub ToolCallContext, err error) {
	_ = h.bus.TrySend(models.NewTaskError(sub.SubID, sub.ActorID, err))
}
