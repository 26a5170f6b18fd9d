package event

import (
	"time"

	"github.com/google/uuid"

	"messaging-lab/domain"
)

// DomainEvent is anything the fan-out layer can deliver to subscribers.
// Every event names the conversation it affects.
type DomainEvent interface {
	ConversationID() uuid.UUID
}

// MessageAppended is emitted once per accepted message, after the log
// append, summary update and counter changes have been committed.
type MessageAppended struct {
	Message      domain.Message
	Conversation domain.Conversation
	At           time.Time
}

func (e MessageAppended) ConversationID() uuid.UUID {
	return e.Message.ConversationID
}

// ConversationUpserted is emitted when the directory creates or returns a
// conversation, so list subscribers refresh even before any message exists.
type ConversationUpserted struct {
	Conversation domain.Conversation
	Created      bool
}

func (e ConversationUpserted) ConversationID() uuid.UUID {
	return e.Conversation.ID
}

// ConversationsOpened is emitted when a participant opens a new
// conversation-list subscription. The fan-out worker answers it by pushing
// the current list to that subscription only; routing the initial snapshot
// through the worker keeps every delivery to one sink in a single order.
type ConversationsOpened struct {
	ParticipantID  string
	SubscriptionID string
}

func (e ConversationsOpened) ConversationID() uuid.UUID {
	return uuid.Nil
}

// MessagesOpened is emitted when a session opens a message-list
// subscription; the fan-out pushes the current log to that subscription.
type MessagesOpened struct {
	Conversation   uuid.UUID
	SubscriptionID string
}

func (e MessagesOpened) ConversationID() uuid.UUID {
	return e.Conversation
}

// UnreadReset is emitted when a participant opens a conversation and their
// counter goes back to zero.
type UnreadReset struct {
	Conversation  uuid.UUID
	ParticipantID string
}

func (e UnreadReset) ConversationID() uuid.UUID {
	return e.Conversation
}
