package runtime

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"messaging-lab/domain/event"
)

type Sink struct {
	name string
}

func (s *Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	return nil
}

func TestRegistry_Subscribe_One_Participant_One_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	participantID := uuid.NewString()
	sink := &Sink{name: "laptop"}

	// Given no session is connected
	req.Empty(registry.SinksForParticipant(participantID))

	// When a participant subscribes to their conversation list
	subID := registry.SubscribeConversations(participantID, sink)

	// Then
	req.NotEmpty(subID)
	req.Len(registry.SinksForParticipant(participantID), 1)
	req.Contains(registry.SinksForParticipant(participantID), sink)
}

func TestRegistry_Subscribe_One_Participant_Multiple_Sessions(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	participantID := uuid.NewString()
	laptop := &Sink{name: "laptop"}
	phone := &Sink{name: "phone"}

	// When the same participant subscribes from two sessions
	laptopSub := registry.SubscribeConversations(participantID, laptop)
	phoneSub := registry.SubscribeConversations(participantID, phone)

	// Then both sessions receive snapshots
	req.NotEqual(laptopSub, phoneSub)
	req.Len(registry.SinksForParticipant(participantID), 2)
	req.Contains(registry.SinksForParticipant(participantID), laptop)
	req.Contains(registry.SinksForParticipant(participantID), phone)
}

func TestRegistry_Unsubscribe_Keeps_Other_Sessions(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	participantID := uuid.NewString()
	laptop := &Sink{name: "laptop"}
	phone := &Sink{name: "phone"}

	// Given two sessions of the same participant
	laptopSub := registry.SubscribeConversations(participantID, laptop)
	_ = registry.SubscribeConversations(participantID, phone)

	// When one session unsubscribes
	registry.Unsubscribe(laptopSub)

	// Then only the other session is left
	req.Len(registry.SinksForParticipant(participantID), 1)
	req.Contains(registry.SinksForParticipant(participantID), phone)
}

func TestRegistry_Subscribe_Messages_Per_Conversation(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conversationID := uuid.New()
	otherConversation := uuid.New()
	sink := &Sink{name: "viewer"}

	// When a session subscribes to one conversation's messages
	subID := registry.SubscribeMessages(conversationID, sink)

	// Then only that conversation has an active sink
	req.Len(registry.SinksForConversation(conversationID), 1)
	req.Empty(registry.SinksForConversation(otherConversation))

	// And unsubscribing empties the scope entirely
	registry.Unsubscribe(subID)
	req.Empty(registry.SinksForConversation(conversationID))
}

func TestRegistry_Sink_Resolves_Active_Subscriptions_Only(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	viewer := &Sink{name: "viewer"}

	// Given one message-list subscription
	subID := registry.SubscribeMessages(uuid.New(), viewer)

	// Then its id resolves to the sink while active
	resolved, ok := registry.Sink(subID)
	req.True(ok)
	req.Same(viewer, resolved)

	// And no longer after unsubscribing
	registry.Unsubscribe(subID)
	_, ok = registry.Sink(subID)
	req.False(ok)
}

func TestRegistry_Unsubscribe_Unknown_Id_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	participantID := uuid.NewString()
	registry.SubscribeConversations(participantID, &Sink{})

	// When an unknown id is unsubscribed
	registry.Unsubscribe(uuid.NewString())

	// Then the existing subscription survives
	req.Len(registry.SinksForParticipant(participantID), 1)
}
