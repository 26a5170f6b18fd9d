// Package projection builds read models from stored state.
// Handles ordering and snapshot shaping for subscribers.
// Does not emit events or interact with UI directly.
package projection

import (
	"sort"

	"messaging-lab/domain"
)

// ConversationList is the snapshot pushed to conversation-list subscribers:
// every conversation of one participant, most recently active first.
type ConversationList struct {
	ParticipantID string
	Conversations []domain.Conversation
}

// MessageList is the snapshot pushed to message-list subscribers: the full
// ordered log of one conversation.
type MessageList struct {
	Conversation domain.Conversation
	Messages     []domain.Message
}

// NewConversationList orders conversations by last activity descending.
// Conversations with no message yet sort by creation time. Ties are broken
// by id so the ordering is stable across snapshots.
func NewConversationList(participantID string, conversations []domain.Conversation) ConversationList {
	sorted := append([]domain.Conversation(nil), conversations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].SortedAt(), sorted[j].SortedAt()
		if !a.Equal(b) {
			return a.After(b)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})
	return ConversationList{ParticipantID: participantID, Conversations: sorted}
}

// NewMessageList wraps an already chronologically ordered log.
func NewMessageList(conversation domain.Conversation, messages []domain.Message) MessageList {
	return MessageList{Conversation: conversation, Messages: messages}
}
