package context

import (
	"github.com/haasonsaas/nexus/pkg/models"
)

// FindLatestSummaryIndex returns the index of the most recent summary
// message in history, or -1 if none exists.
func FindLatestSummaryIndex(history []models.ChatMessage) int {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Type == models.MessageSummary {
			return i
		}
	}
	return -1
}

// MessagesSinceSummary returns messages that came after the summary at
// summaryIdx. If summaryIdx is negative, returns all messages.
func MessagesSinceSummary(history []models.ChatMessage, summaryIdx int) []models.ChatMessage {
	if summaryIdx < 0 || summaryIdx+1 >= len(history) {
		if summaryIdx < 0 {
			return history
		}
		return nil
	}
	return history[summaryIdx+1:]
}

// NeedsSummarization checks if the history needs summarization based on thresholds.
func NeedsSummarization(history []models.ChatMessage, summaryIdx int, maxMsgsBeforeSummary int) bool {
	messagesSince := MessagesSinceSummary(history, summaryIdx)
	return len(messagesSince) > maxMsgsBeforeSummary
}

// CreateSummaryMessage creates a new summary message.
func CreateSummaryMessage(summaryContent string) models.ChatMessage {
	return models.ChatMessage{
		Role:    models.RoleSystem,
		Type:    models.MessageSummary,
		Content: summaryContent,
	}
}

// GetMessagesToSummarize returns older messages that should be summarized.
// It keeps the most recent `keepRecent` messages and returns the rest for summarization.
func GetMessagesToSummarize(history []models.ChatMessage, summaryIdx int, keepRecent int) []models.ChatMessage {
	messages := MessagesSinceSummary(history, summaryIdx)

	// Filter out summary messages
	filtered := make([]models.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.Type == models.MessageSummary {
			continue
		}
		filtered = append(filtered, m)
	}

	// Return older messages (everything except the last keepRecent)
	if len(filtered) <= keepRecent {
		return nil
	}
	return filtered[:len(filtered)-keepRecent]
}
