package runtime

import (
	"sync"

	"github.com/google/uuid"

	"messaging-lab/contract"
)

type subscription struct {
	participantID  string
	conversationID uuid.UUID
	sink           contract.EventSink
}

// Registry tracks active push subscriptions.
//
// Two scopes exist: conversation-list subscriptions (per participant) and
// message-list subscriptions (per conversation). A participant may hold any
// number of simultaneous subscriptions, one per open session: each Subscribe
// call returns its own id and they are removed independently.
type Registry struct {
	mu            sync.RWMutex
	byParticipant map[string]map[string]subscription    // participant -> subID -> sub
	byChannel     map[uuid.UUID]map[string]subscription // conversation -> subID -> sub
	owners        map[string]subscription               // subID -> sub, for Unsubscribe
}

func NewRegistry() *Registry {
	return &Registry{
		byParticipant: make(map[string]map[string]subscription),
		byChannel:     make(map[uuid.UUID]map[string]subscription),
		owners:        make(map[string]subscription),
	}
}

// SubscribeConversations registers a sink for one participant's
// conversation-list updates and returns the subscription id.
func (r *Registry) SubscribeConversations(participantID string, sink contract.EventSink) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	subID := uuid.NewString()
	sub := subscription{participantID: participantID, sink: sink}
	if _, ok := r.byParticipant[participantID]; !ok {
		r.byParticipant[participantID] = make(map[string]subscription)
	}
	r.byParticipant[participantID][subID] = sub
	r.owners[subID] = sub
	return subID
}

// SubscribeMessages registers a sink for one conversation's message-list
// updates and returns the subscription id.
func (r *Registry) SubscribeMessages(conversationID uuid.UUID, sink contract.EventSink) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	subID := uuid.NewString()
	sub := subscription{conversationID: conversationID, sink: sink}
	if _, ok := r.byChannel[conversationID]; !ok {
		r.byChannel[conversationID] = make(map[string]subscription)
	}
	r.byChannel[conversationID][subID] = sub
	r.owners[subID] = sub
	return subID
}

// Unsubscribe removes one subscription. Other sessions of the same
// participant are untouched. Empty scope entries are cleaned up so the maps
// don't grow with churn.
func (r *Registry) Unsubscribe(subscriptionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.owners[subscriptionID]
	if !ok {
		return
	}
	delete(r.owners, subscriptionID)

	if subs, ok := r.byParticipant[sub.participantID]; ok {
		delete(subs, subscriptionID)
		if len(subs) == 0 {
			delete(r.byParticipant, sub.participantID)
		}
	}
	if subs, ok := r.byChannel[sub.conversationID]; ok {
		delete(subs, subscriptionID)
		if len(subs) == 0 {
			delete(r.byChannel, sub.conversationID)
		}
	}
}

// Sink resolves one subscription id to its sink, if still active.
func (r *Registry) Sink(subscriptionID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.owners[subscriptionID]
	if !ok {
		return nil, false
	}
	return sub.sink, true
}

// SinksForParticipant returns every active conversation-list sink of a
// participant, one per open session.
func (r *Registry) SinksForParticipant(participantID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs, ok := r.byParticipant[participantID]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(subs))
	for _, sub := range subs {
		sinks = append(sinks, sub.sink)
	}
	return sinks
}

// SinksForConversation returns every active message-list sink of a
// conversation.
func (r *Registry) SinksForConversation(conversationID uuid.UUID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs, ok := r.byChannel[conversationID]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(subs))
	for _, sub := range subs {
		sinks = append(sinks, sub.sink)
	}
	return sinks
}
