// Package runtime wires storage, subscriptions and fan-out together.
// It orchestrates the system without containing business logic or domain rules.
package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"messaging-lab/contract"
	"messaging-lab/domain"
	"messaging-lab/domain/event"
	"messaging-lab/projection"
	"messaging-lab/runtime/workers"
)

type Orchestrator struct {
	mu             sync.Mutex
	log            *slog.Logger
	supervisor     contract.ISupervisor
	registry       contract.IRegistry
	directory      contract.IDirectory
	channel        contract.IChannel
	counter        contract.ICounter
	domainEvents   chan event.DomainEvent
	sinkTimeout    time.Duration
	metricInterval time.Duration
	permanentSinks []contract.EventSink
}

func NewOrchestrator(
	log *slog.Logger,
	supervisor contract.ISupervisor,
	registry contract.IRegistry,
	directory contract.IDirectory,
	channel contract.IChannel,
	counter contract.ICounter,
	bufferSize int,
	sinkTimeout, metricInterval time.Duration,
) *Orchestrator {
	return &Orchestrator{
		log:            log,
		supervisor:     supervisor,
		registry:       registry,
		directory:      directory,
		channel:        channel,
		counter:        counter,
		domainEvents:   make(chan event.DomainEvent, bufferSize),
		sinkTimeout:    sinkTimeout,
		metricInterval: metricInterval,
	}
}

// Add registers permanent sinks that receive every raw domain event
// (search index, projections). Must be called before Start.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// GetOrCreateConversation is the idempotent create-or-find of the directory.
// The committed result is fanned out so open conversation lists refresh.
func (o *Orchestrator) GetOrCreateConversation(ctx context.Context, cmd domain.CreateConversationCommand) (domain.Conversation, error) {
	conversation, created, err := o.directory.GetOrCreate(ctx, cmd)
	if err != nil {
		return domain.Conversation{}, err
	}
	if created {
		o.emit(event.ConversationUpserted{Conversation: conversation, Created: created})
	}
	return conversation, nil
}

// AppendMessage appends one message. Persistence, summary update and
// counter changes commit atomically inside the channel; the event is
// emitted only after that commit, so subscribers never observe a message
// without the conversation summary reflecting it.
func (o *Orchestrator) AppendMessage(ctx context.Context, cmd domain.AppendMessageCommand) (domain.Message, error) {
	message, conversation, err := o.channel.Append(ctx, cmd)
	if err != nil {
		return domain.Message{}, err
	}
	o.emit(event.MessageAppended{
		Message:      message,
		Conversation: conversation,
		At:           message.CreatedAt,
	})
	return message, nil
}

// ListConversations returns the ordered conversation list of a participant.
func (o *Orchestrator) ListConversations(ctx context.Context, participantID string) ([]domain.Conversation, error) {
	conversations, err := o.directory.List(ctx, participantID)
	if err != nil {
		return nil, err
	}
	return projection.NewConversationList(participantID, conversations).Conversations, nil
}

// Messages returns the ordered log of one conversation.
func (o *Orchestrator) Messages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	return o.channel.Messages(ctx, conversationID)
}

// SubscribeConversations opens a conversation-list subscription. The
// initial snapshot goes through the fanout worker like every later one, so
// the new sink can never receive it after a fresher snapshot.
func (o *Orchestrator) SubscribeConversations(ctx context.Context, participantID string, sink contract.EventSink) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	subID := o.registry.SubscribeConversations(participantID, sink)
	o.emit(event.ConversationsOpened{ParticipantID: participantID, SubscriptionID: subID})
	return subID, nil
}

// SubscribeMessages opens a message-list subscription for one participant's
// session. Opening a conversation acknowledges it: the participant's unread
// counter is reset before the initial snapshot is delivered, and the reset
// is fanned out so their other sessions see the counter drop.
func (o *Orchestrator) SubscribeMessages(ctx context.Context, conversationID uuid.UUID, participantID string, sink contract.EventSink) (string, error) {
	if _, err := o.directory.Get(ctx, conversationID); err != nil {
		return "", err
	}

	if err := o.counter.Reset(ctx, conversationID, participantID); err != nil {
		return "", err
	}
	subID := o.registry.SubscribeMessages(conversationID, sink)

	// The initial log snapshot is delivered by the fanout worker, after the
	// reset above, so it already carries the zeroed counter.
	o.emit(event.MessagesOpened{Conversation: conversationID, SubscriptionID: subID})
	o.emit(event.UnreadReset{Conversation: conversationID, ParticipantID: participantID})
	return subID, nil
}

// Unsubscribe cancels one subscription, leaving the participant's other
// sessions untouched.
func (o *Orchestrator) Unsubscribe(subscriptionID string) {
	o.registry.Unsubscribe(subscriptionID)
}

// emit hands a committed mutation to the fanout worker. The write already
// happened, so emission must not depend on the request context: a blocking
// send guarantees at-least-once delivery, bounded by the buffer and the
// worker draining it.
func (o *Orchestrator) emit(evt event.DomainEvent) {
	o.domainEvents <- evt
}

// Start registers the fanout and monitoring workers and runs the
// supervisor until the context is cancelled.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	fanout := workers.NewEventFanout(
		o.log, o.registry, o.directory, o.channel,
		o.domainEvents, o.sinkTimeout, o.permanentSinks,
	)
	o.supervisor.Add(fanout)
	o.supervisor.Add(workers.NewHealthMonitoringWorker(o.log, o.metricInterval))
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// Stop initiates a graceful shutdown of the orchestrator.
func (o *Orchestrator) Stop() {
	o.supervisor.Stop()
}
