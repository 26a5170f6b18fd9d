//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"io"
	"reflect"

	"github.com/google/uuid"

	"messaging-lab/domain"
	"messaging-lab/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry tracks active subscriptions. One participant may hold several
// concurrent subscriptions (multiple open sessions), each identified by the
// id returned at subscribe time.
type IRegistry interface {
	SubscribeConversations(participantID string, sink EventSink) string
	SubscribeMessages(conversationID uuid.UUID, sink EventSink) string
	Unsubscribe(subscriptionID string)
	Sink(subscriptionID string) (EventSink, bool)
	SinksForParticipant(participantID string) []EventSink
	SinksForConversation(conversationID uuid.UUID) []EventSink
}

// BlobStore is the opaque upload/URL contract in front of file storage.
// Put stores the object under the given key and returns a stable URL that
// any participant can fetch directly.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error)
}

// IDirectory is the conversation directory: idempotent create-or-find plus
// participant-scoped listing.
type IDirectory interface {
	GetOrCreate(ctx context.Context, cmd domain.CreateConversationCommand) (domain.Conversation, bool, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Conversation, error)
	List(ctx context.Context, participantID string) ([]domain.Conversation, error)
}

// IChannel is the append-only, per-conversation ordered message log.
type IChannel interface {
	Append(ctx context.Context, cmd domain.AppendMessageCommand) (domain.Message, domain.Conversation, error)
	Messages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error)
}

// ICounter mutates per-participant unread counters atomically per key.
type ICounter interface {
	Reset(ctx context.Context, conversationID uuid.UUID, participantID string) error
	Counts(ctx context.Context, conversationID uuid.UUID) (map[string]uint64, error)
}
