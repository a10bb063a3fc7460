package memory

import (
	"context"
	"sync"

	"github.com/haasonsaas/nexus/pkg/ids"
	"github.com/haasonsaas/nexus/pkg/models"
)

// ChatHistory recalls and appends the ordered ChatMessage sequence for one
// submission. Implementations must preserve append order on Recall — the
// turn engine's ordering invariants (system, then recalled history, then
// assistant-with-calls immediately followed by its tool results) depend on
// it.
type ChatHistory interface {
	Append(ctx context.Context, sub ids.SubmissionID, msg models.ChatMessage) error
	Recall(ctx context.Context, sub ids.SubmissionID) ([]models.ChatMessage, error)
}

// SlidingWindowHistory keeps the last MaxMessages per submission in process
// memory. With MaxMessages <= 0 the window is unbounded.
type SlidingWindowHistory struct {
	mu          sync.RWMutex
	bySub       map[ids.SubmissionID][]models.ChatMessage
	MaxMessages int
}

// NewSlidingWindowHistory builds a bounded in-memory history store.
func NewSlidingWindowHistory(maxMessages int) *SlidingWindowHistory {
	return &SlidingWindowHistory{
		bySub:       make(map[ids.SubmissionID][]models.ChatMessage),
		MaxMessages: maxMessages,
	}
}

func (h *SlidingWindowHistory) Append(ctx context.Context, sub ids.SubmissionID, msg models.ChatMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	msgs := append(h.bySub[sub], msg)
	if h.MaxMessages > 0 && len(msgs) > h.MaxMessages {
		msgs = msgs[len(msgs)-h.MaxMessages:]
	}
	h.bySub[sub] = msgs
	return nil
}

func (h *SlidingWindowHistory) Recall(ctx context.Context, sub ids.SubmissionID) ([]models.ChatMessage, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msgs := h.bySub[sub]
	out := make([]models.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Adapter applies a MemoryPolicy over a ChatHistory: it decides which
// message kinds get persisted and whether recall is offered at all, so the
// turn engine never has to branch on policy itself.
type Adapter struct {
	history ChatHistory
	policy  models.MemoryPolicy
}

// NewAdapter builds a policy-gated adapter over history.
func NewAdapter(history ChatHistory, policy models.MemoryPolicy) *Adapter {
	return &Adapter{history: history, policy: policy}
}

// Policy returns the adapter's memory policy.
func (a *Adapter) Policy() models.MemoryPolicy { return a.policy }

// IsEnabled reports whether this adapter recalls prior history at all.
func (a *Adapter) IsEnabled() bool { return a.policy.Recall }

// RecallMessages returns the persisted history for sub, or nil if recall is
// disabled by policy.
func (a *Adapter) RecallMessages(ctx context.Context, sub ids.SubmissionID) ([]models.ChatMessage, error) {
	if !a.policy.Recall {
		return nil, nil
	}
	return a.history.Recall(ctx, sub)
}

// StoreSystem persists the system message if the policy calls for it.
func (a *Adapter) StoreSystem(ctx context.Context, sub ids.SubmissionID, msg models.ChatMessage) error {
	if !a.policy.StoreSystem {
		return nil
	}
	return a.history.Append(ctx, sub, msg)
}

// StoreUser persists the user message if the policy calls for it.
func (a *Adapter) StoreUser(ctx context.Context, sub ids.SubmissionID, msg models.ChatMessage) error {
	if !a.policy.StoreUser {
		return nil
	}
	return a.history.Append(ctx, sub, msg)
}

// StoreAssistant persists a final assistant text message (no tool calls) if
// the policy calls for it.
func (a *Adapter) StoreAssistant(ctx context.Context, sub ids.SubmissionID, msg models.ChatMessage) error {
	if !a.policy.StoreAssistant {
		return nil
	}
	return a.history.Append(ctx, sub, msg)
}

// StoreToolInteraction persists an assistant-with-calls message immediately
// followed by its tool-result message, in that order and with no other
// message interleaved between them — the pairing invariant tool-result
// consumers rely on.
func (a *Adapter) StoreToolInteraction(ctx context.Context, sub ids.SubmissionID, assistantWithCalls models.ChatMessage, results []models.ToolCallResult) error {
	if a.policy.StoreAssistant {
		if err := a.history.Append(ctx, sub, assistantWithCalls); err != nil {
			return err
		}
	}
	if a.policy.StoreTool && len(results) > 0 {
		if err := a.history.Append(ctx, sub, models.ToolResultMessage(results)); err != nil {
			return err
		}
	}
	return nil
}
