// Package subagent provides tools for spawning and managing sub-agents.
package subagent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/tools/policy"
	"github.com/haasonsaas/nexus/pkg/models"
)

// SubAgent represents a spawned sub-agent.
type SubAgent struct {
	ID           string    `json:"id"`
	ParentID     string    `json:"parent_id"`
	Name         string    `json:"name"`
	Task         string    `json:"task"`
	Status       string    `json:"status"` // running, completed, failed, cancelled
	CreatedAt    time.Time `json:"created_at"`
	CompletedAt  time.Time `json:"completed_at,omitempty"`
	Result       string    `json:"result,omitempty"`
	Error        string    `json:"error,omitempty"`
	AllowedTools []string  `json:"allowed_tools,omitempty"`
	DeniedTools  []string  `json:"denied_tools,omitempty"`
}

// ExecutorFactory builds the Executor a spawned sub-agent runs against,
// scoped to the tool registry the sub-agent is allowed to see. The caller
// owns the LLM provider, memory, and bus wiring that the executor closes
// over; Manager only decides which tools are in scope.
type ExecutorFactory func(tools *agent.ToolRegistry) agent.Executor

// Manager manages sub-agent lifecycle: spawning a bounded number of
// concurrent child executions, tracking their status, and applying
// per-sub-agent tool policy.
type Manager struct {
	mu          sync.RWMutex
	agents      map[string]*SubAgent
	baseTools   *agent.ToolRegistry
	newExecutor ExecutorFactory
	resolver    *policy.Resolver
	maxActive   int
	activeCount int64
	announcer   func(ctx context.Context, parentID string, msg string) error
}

// NewManager creates a new sub-agent manager. baseTools is the full set of
// tools available to the parent agent; spawned sub-agents see a filtered
// view of it per their AllowedTools/DeniedTools.
func NewManager(baseTools *agent.ToolRegistry, newExecutor ExecutorFactory, maxActive int) *Manager {
	if maxActive <= 0 {
		maxActive = 5
	}
	return &Manager{
		agents:      make(map[string]*SubAgent),
		baseTools:   baseTools,
		newExecutor: newExecutor,
		resolver:    policy.NewResolver(),
		maxActive:   maxActive,
	}
}

// SetAnnouncer sets the function to announce sub-agent spawns.
func (m *Manager) SetAnnouncer(fn func(ctx context.Context, parentID string, msg string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.announcer = fn
}

// Spawn creates and starts a new sub-agent.
func (m *Manager) Spawn(ctx context.Context, parentID, name, task string, allowedTools, deniedTools []string) (*SubAgent, error) {
	if atomic.LoadInt64(&m.activeCount) >= int64(m.maxActive) {
		return nil, fmt.Errorf("max active sub-agents reached (%d)", m.maxActive)
	}

	sa := &SubAgent{
		ID:           uuid.NewString(),
		ParentID:     parentID,
		Name:         name,
		Task:         task,
		Status:       "running",
		CreatedAt:    time.Now(),
		AllowedTools: allowedTools,
		DeniedTools:  deniedTools,
	}

	m.mu.Lock()
	m.agents[sa.ID] = sa
	announcer := m.announcer
	m.mu.Unlock()

	atomic.AddInt64(&m.activeCount, 1)

	if announcer != nil {
		announcement := fmt.Sprintf("spawning sub-agent %q to: %s", name, task)
		if err := announcer(ctx, parentID, announcement); err != nil {
			// Best-effort announcement; ignore errors.
			_ = err
		}
	}

	go m.runSubAgent(context.Background(), sa)

	return sa, nil
}

// scopedTools returns a registry containing only the tools sa is allowed to
// use, per the default profile plus its Allow/Deny overrides.
func (m *Manager) scopedTools(sa *SubAgent) *agent.ToolRegistry {
	scoped := agent.NewToolRegistry()
	if m.baseTools == nil {
		return scoped
	}
	if len(sa.AllowedTools) == 0 && len(sa.DeniedTools) == 0 {
		for _, tool := range m.baseTools.List() {
			scoped.Register(tool)
		}
		return scoped
	}

	toolPolicy := &policy.Policy{Allow: sa.AllowedTools, Deny: sa.DeniedTools}
	for _, tool := range m.baseTools.List() {
		if m.resolver.IsAllowed(toolPolicy, tool.Name()) {
			scoped.Register(tool)
		}
	}
	return scoped
}

// runSubAgent executes the sub-agent's task to completion.
func (m *Manager) runSubAgent(ctx context.Context, sa *SubAgent) {
	defer atomic.AddInt64(&m.activeCount, -1)

	executor := m.newExecutor(m.scopedTools(sa))
	sub := agent.ToolCallContext{SubID: models.NewTask(sa.Task).SubmissionID}

	out, err := executor.Execute(ctx, sub, models.NewTask(sa.Task))
	if err != nil {
		m.completeSubAgent(sa.ID, "", err.Error())
		return
	}

	m.completeSubAgent(sa.ID, out.Response.Content, "")
}

// completeSubAgent marks a sub-agent as completed.
func (m *Manager) completeSubAgent(id, result, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sa, ok := m.agents[id]
	if !ok {
		return
	}

	sa.CompletedAt = time.Now()
	if errMsg != "" {
		sa.Status = "failed"
		sa.Error = errMsg
	} else {
		sa.Status = "completed"
		sa.Result = result
	}
}

// Get returns a sub-agent by ID.
func (m *Manager) Get(id string) (*SubAgent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sa, ok := m.agents[id]
	return sa, ok
}

// List returns all sub-agents for a parent.
func (m *Manager) List(parentID string) []*SubAgent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*SubAgent
	for _, sa := range m.agents {
		if sa.ParentID == parentID {
			result = append(result, sa)
		}
	}
	return result
}

// Cancel cancels a running sub-agent.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sa, ok := m.agents[id]
	if !ok {
		return fmt.Errorf("sub-agent not found: %s", id)
	}
	if sa.Status != "running" {
		return fmt.Errorf("sub-agent not running: %s", sa.Status)
	}

	sa.Status = "cancelled"
	sa.CompletedAt = time.Now()
	sa.Error = "cancelled by user"
	return nil
}

// ActiveCount returns the number of active sub-agents.
func (m *Manager) ActiveCount() int {
	return int(atomic.LoadInt64(&m.activeCount))
}

var spawnSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"name": {"type": "string", "description": "A short name for the sub-agent (e.g., 'researcher', 'coder')"},
		"task": {"type": "string", "description": "The task for the sub-agent to complete"},
		"allowed_tools": {"type": "array", "items": {"type": "string"}, "description": "Tools the sub-agent is allowed to use (optional, defaults to all)"},
		"denied_tools": {"type": "array", "items": {"type": "string"}, "description": "Tools the sub-agent is NOT allowed to use (optional)"}
	},
	"required": ["name", "task"]
}`)

// SpawnTool is a tool for spawning sub-agents.
type SpawnTool struct {
	manager  *Manager
	parentID string
}

// NewSpawnTool creates a new spawn tool. parentID identifies the spawning
// agent for tracking and is attached to every sub-agent it creates.
func NewSpawnTool(manager *Manager, parentID string) *SpawnTool {
	return &SpawnTool{manager: manager, parentID: parentID}
}

func (t *SpawnTool) Name() string        { return "spawn_subagent" }
func (t *SpawnTool) Description() string {
	return "Spawn a sub-agent to work on a specific task. Returns the sub-agent ID for tracking."
}
func (t *SpawnTool) Schema() json.RawMessage { return spawnSchema }

func (t *SpawnTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Name         string   `json:"name"`
		Task         string   `json:"task"`
		AllowedTools []string `json:"allowed_tools"`
		DeniedTools  []string `json:"denied_tools"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if input.Name == "" {
		return &agent.ToolResult{Content: "name is required", IsError: true}, nil
	}
	if input.Task == "" {
		return &agent.ToolResult{Content: "task is required", IsError: true}, nil
	}

	sa, err := t.manager.Spawn(ctx, t.parentID, input.Name, input.Task, input.AllowedTools, input.DeniedTools)
	if err != nil {
		return &agent.ToolResult{Content: err.Error(), IsError: true}, nil
	}

	return &agent.ToolResult{Content: fmt.Sprintf(
		"Sub-agent %q spawned with ID: %s\nTask: %s\nUse subagent_status to check progress.",
		input.Name, sa.ID, input.Task,
	)}, nil
}

var statusSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"id": {"type": "string", "description": "Sub-agent ID to check (optional, omit to list all)"}
	}
}`)

// StatusTool is a tool for checking sub-agent status.
type StatusTool struct {
	manager  *Manager
	parentID string
}

// NewStatusTool creates a new status tool.
func NewStatusTool(manager *Manager, parentID string) *StatusTool {
	return &StatusTool{manager: manager, parentID: parentID}
}

func (t *StatusTool) Name() string            { return "subagent_status" }
func (t *StatusTool) Description() string     { return "Check the status of a sub-agent or list all sub-agents." }
func (t *StatusTool) Schema() json.RawMessage { return statusSchema }

func (t *StatusTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	if input.ID != "" {
		sa, ok := t.manager.Get(input.ID)
		if !ok {
			return &agent.ToolResult{Content: fmt.Sprintf("sub-agent not found: %s", input.ID), IsError: true}, nil
		}
		result := fmt.Sprintf("Sub-agent: %s (%s)\nStatus: %s\nTask: %s\n", sa.Name, sa.ID, sa.Status, sa.Task)
		if sa.Status == "completed" {
			result += fmt.Sprintf("Result: %s\n", sa.Result)
		}
		if sa.Status == "failed" {
			result += fmt.Sprintf("Error: %s\n", sa.Error)
		}
		return &agent.ToolResult{Content: result}, nil
	}

	agents := t.manager.List(t.parentID)
	if len(agents) == 0 {
		return &agent.ToolResult{Content: "No sub-agents."}, nil
	}
	result := fmt.Sprintf("%d sub-agent(s):\n", len(agents))
	for _, sa := range agents {
		result += fmt.Sprintf("- %s (%s): %s — %s\n", sa.Name, sa.ID, sa.Status, truncate(sa.Task, 80))
	}
	return &agent.ToolResult{Content: result}, nil
}

var cancelSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"id": {"type": "string", "description": "Sub-agent ID to cancel"}
	},
	"required": ["id"]
}`)

// CancelTool is a tool for cancelling sub-agents.
type CancelTool struct {
	manager *Manager
}

// NewCancelTool creates a new cancel tool.
func NewCancelTool(manager *Manager) *CancelTool {
	return &CancelTool{manager: manager}
}

func (t *CancelTool) Name() string            { return "subagent_cancel" }
func (t *CancelTool) Description() string     { return "Cancel a running sub-agent." }
func (t *CancelTool) Schema() json.RawMessage { return cancelSchema }

func (t *CancelTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if input.ID == "" {
		return &agent.ToolResult{Content: "id is required", IsError: true}, nil
	}
	if err := t.manager.Cancel(input.ID); err != nil {
		return &agent.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	return &agent.ToolResult{Content: fmt.Sprintf("Sub-agent %s cancelled.", input.ID)}, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
