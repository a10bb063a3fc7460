package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/pkg/models"
)

// AgentRunner is anything an AgentExecutor can hand a built Task to and
// block on for a result — satisfied directly by *agent.DirectAgentHandle.
type AgentRunner interface {
	Run(ctx context.Context, task models.Task) (agent.TurnEngineOutput, error)
}

// AgentExecutor executes scheduled tasks by submitting them as Tasks to a
// registered agent runner and waiting for it to finish, one synchronous
// call per execution — there is no session layer to thread a conversation
// through; each scheduled run is its own independent Task.
type AgentExecutor struct {
	agents map[string]AgentRunner
	logger *slog.Logger
}

// AgentExecutorConfig configures the agent executor.
type AgentExecutorConfig struct {
	// Logger for executor events.
	Logger *slog.Logger
}

// NewAgentExecutor creates a new executor over the given agent_id -> runner
// registry.
func NewAgentExecutor(agents map[string]AgentRunner, config AgentExecutorConfig) *AgentExecutor {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default().With("component", "task-executor")
	}
	if agents == nil {
		agents = make(map[string]AgentRunner)
	}
	return &AgentExecutor{agents: agents, logger: logger}
}

// RegisterAgent adds or replaces the runner behind agentID.
func (e *AgentExecutor) RegisterAgent(agentID string, runner AgentRunner) {
	e.agents[agentID] = runner
}

// Execute builds a Task from the scheduled task's prompt and configuration,
// runs it against the registered agent, and returns the assistant's final
// text response.
func (e *AgentExecutor) Execute(ctx context.Context, task *ScheduledTask, exec *TaskExecution) (string, error) {
	if task == nil {
		return "", fmt.Errorf("task is required")
	}
	if exec == nil {
		return "", fmt.Errorf("execution is required")
	}

	runner, ok := e.agents[task.AgentID]
	if !ok {
		return "", fmt.Errorf("no agent registered for agent_id %q", task.AgentID)
	}

	e.logger.Info("executing scheduled task",
		"task_id", task.ID,
		"task_name", task.Name,
		"execution_id", exec.ID,
		"agent_id", task.AgentID,
	)

	t := models.NewTask(exec.Prompt)
	if task.Config.SystemPrompt != "" {
		t = t.WithSystemPrompt(task.Config.SystemPrompt)
	}

	out, err := runner.Run(ctx, t)
	if err != nil {
		return "", fmt.Errorf("run task: %w", err)
	}

	e.logger.Info("task execution completed",
		"task_id", task.ID,
		"execution_id", exec.ID,
		"response_length", len(out.Response.Content),
	)

	return out.Response.Content, nil
}

// NoOpExecutor is a no-operation executor for testing.
type NoOpExecutor struct {
	Response string
	Error    error
	Delay    time.Duration
}

// Execute returns a configured response after an optional delay.
func (e *NoOpExecutor) Execute(ctx context.Context, task *ScheduledTask, exec *TaskExecution) (string, error) {
	if e.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(e.Delay):
		}
	}
	return e.Response, e.Error
}

// CallbackExecutor wraps a function as an Executor.
type CallbackExecutor struct {
	Fn func(ctx context.Context, task *ScheduledTask, exec *TaskExecution) (string, error)
}

// Execute calls the wrapped function.
func (e *CallbackExecutor) Execute(ctx context.Context, task *ScheduledTask, exec *TaskExecution) (string, error) {
	if e.Fn == nil {
		return "", fmt.Errorf("callback function is nil")
	}
	return e.Fn(ctx, task, exec)
}

// RoutingExecutor routes task execution based on ExecutionType.
// This allows reminders to send direct messages while other tasks go through the agent.
type RoutingExecutor struct {
	agentExecutor   Executor
	messageExecutor Executor
	logger          *slog.Logger
}

// NewRoutingExecutor creates an executor that routes based on task configuration.
func NewRoutingExecutor(agentExecutor, messageExecutor Executor, logger *slog.Logger) *RoutingExecutor {
	if logger == nil {
		logger = slog.Default().With("component", "routing-executor")
	}
	return &RoutingExecutor{
		agentExecutor:   agentExecutor,
		messageExecutor: messageExecutor,
		logger:          logger,
	}
}

// Execute routes to the appropriate executor based on the task's ExecutionType.
func (e *RoutingExecutor) Execute(ctx context.Context, task *ScheduledTask, exec *TaskExecution) (string, error) {
	if task == nil {
		return "", fmt.Errorf("task is required")
	}

	switch task.Config.ExecutionType {
	case ExecutionTypeMessage:
		if e.messageExecutor == nil {
			return "", fmt.Errorf("message executor not configured")
		}
		e.logger.Info("routing task to message executor",
			"task_id", task.ID,
			"task_name", task.Name,
		)
		return e.messageExecutor.Execute(ctx, task, exec)

	case ExecutionTypeAgent, "":
		// Default to agent executor
		if e.agentExecutor == nil {
			return "", fmt.Errorf("agent executor not configured")
		}
		e.logger.Info("routing task to agent executor",
			"task_id", task.ID,
			"task_name", task.Name,
		)
		return e.agentExecutor.Execute(ctx, task, exec)

	default:
		return "", fmt.Errorf("unknown execution type: %s", task.Config.ExecutionType)
	}
}
