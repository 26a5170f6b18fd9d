package event

import (
	"github.com/google/uuid"

	"messaging-lab/projection"
)

// Snapshot events are what subscribers actually receive: the new full,
// ordered view of their scope, never a diff.

// ConversationListUpdated carries a participant's refreshed conversation
// list. Its scope is the participant, not a single conversation.
type ConversationListUpdated struct {
	List projection.ConversationList
}

func (e ConversationListUpdated) ConversationID() uuid.UUID {
	return uuid.Nil
}

// MessageListUpdated carries one conversation's refreshed ordered log.
type MessageListUpdated struct {
	List projection.MessageList
}

func (e MessageListUpdated) ConversationID() uuid.UUID {
	return e.List.Conversation.ID
}
