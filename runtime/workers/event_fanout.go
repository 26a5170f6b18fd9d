package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"messaging-lab/contract"
	"messaging-lab/domain"
	"messaging-lab/domain/event"
	"messaging-lab/projection"
)

// EventFanout delivers state changes to every interested subscriber.
//
// For each committed mutation it rebuilds the full ordered snapshot of the
// affected scopes and pushes it to the matching sinks: the message list of
// the touched conversation, and the conversation list of every participant
// with an open session. Subscribers always receive complete snapshots, never
// diffs, so a slow consumer that misses one event is made whole by the next.
//
// Permanent sinks (search index, projections) receive the raw event.
// A failing sink is logged and skipped: a failed delivery must never tear
// down another subscription or the worker itself.
type EventFanout struct {
	log            *slog.Logger
	registry       contract.IRegistry
	directory      contract.IDirectory
	channel        contract.IChannel
	events         chan event.DomainEvent
	sinkTimeout    time.Duration
	permanentSinks []contract.EventSink
}

func NewEventFanout(
	log *slog.Logger,
	registry contract.IRegistry,
	directory contract.IDirectory,
	channel contract.IChannel,
	events chan event.DomainEvent,
	sinkTimeout time.Duration,
	permanentSinks []contract.EventSink,
) *EventFanout {
	return &EventFanout{
		log:            log,
		registry:       registry,
		directory:      directory,
		channel:        channel,
		events:         events,
		sinkTimeout:    sinkTimeout,
		permanentSinks: permanentSinks,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		}
	}
}

// Fanout processes a single committed mutation or subscription opening.
// All deliveries to a given sink happen here, one event at a time, so every
// sink observes snapshots in a single, never-regressing order.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.permanentSinks {
		w.deliver(ctx, sink, evt)
	}

	switch e := evt.(type) {
	case event.ConversationsOpened:
		if sink, ok := w.registry.Sink(e.SubscriptionID); ok {
			w.pushConversationListTo(ctx, e.ParticipantID, []contract.EventSink{sink})
		}
		return
	case event.MessagesOpened:
		sink, ok := w.registry.Sink(e.SubscriptionID)
		if !ok {
			return
		}
		conversation, err := w.directory.Get(ctx, e.Conversation)
		if err != nil {
			w.log.Error("Fanout could not load conversation", "conversation", e.Conversation, "err", err)
			return
		}
		w.pushMessageListTo(ctx, conversation, []contract.EventSink{sink})
		return
	}

	conversation, ok := w.resolveConversation(ctx, evt)
	if !ok {
		return
	}

	w.pushMessageListTo(ctx, conversation, w.registry.SinksForConversation(conversation.ID))
	for _, participantID := range conversation.Participants {
		w.pushConversationListTo(ctx, participantID, w.registry.SinksForParticipant(participantID))
	}
}

// resolveConversation recovers the affected conversation. Mutation events
// carry it; counter resets only name it and need a directory read.
func (w *EventFanout) resolveConversation(ctx context.Context, evt event.DomainEvent) (domain.Conversation, bool) {
	switch e := evt.(type) {
	case event.MessageAppended:
		return e.Conversation, true
	case event.ConversationUpserted:
		return e.Conversation, true
	}

	id := evt.ConversationID()
	if id == uuid.Nil {
		return domain.Conversation{}, false
	}
	conversation, err := w.directory.Get(ctx, id)
	if err != nil {
		w.log.Error("Fanout could not load conversation", "conversation", id, "err", err)
		return domain.Conversation{}, false
	}
	return conversation, true
}

func (w *EventFanout) pushMessageListTo(ctx context.Context, conversation domain.Conversation, sinks []contract.EventSink) {
	if len(sinks) == 0 {
		return
	}

	messages, err := w.channel.Messages(ctx, conversation.ID)
	if err != nil {
		w.log.Error("Fanout could not load messages", "conversation", conversation.ID, "err", err)
		return
	}
	snapshot := event.MessageListUpdated{List: projection.NewMessageList(conversation, messages)}
	for _, sink := range sinks {
		w.deliver(ctx, sink, snapshot)
	}
}

func (w *EventFanout) pushConversationListTo(ctx context.Context, participantID string, sinks []contract.EventSink) {
	if len(sinks) == 0 {
		return
	}

	conversations, err := w.directory.List(ctx, participantID)
	if err != nil {
		w.log.Error("Fanout could not list conversations", "participant", participantID, "err", err)
		return
	}
	snapshot := event.ConversationListUpdated{List: projection.NewConversationList(participantID, conversations)}
	for _, sink := range sinks {
		w.deliver(ctx, sink, snapshot)
	}
}

// deliver pushes one event to one sink, bounded by the sink timeout.
func (w *EventFanout) deliver(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()

	if err := sink.Consume(sinkCtx, evt); err != nil {
		w.log.Warn("Sink failed to consume event", "err", err)
	}
}
