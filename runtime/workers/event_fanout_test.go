package workers

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"messaging-lab/contract"
	"messaging-lab/domain"
	"messaging-lab/domain/event"
	"messaging-lab/mocks"
)

func Test_Fanout_Pushes_Snapshots_To_Every_Scope(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockDirectory := mocks.NewMockIDirectory(ctrl)
	mockChannel := mocks.NewMockIChannel(ctrl)
	messageSink := mocks.NewMockEventSink(ctrl)
	listSink := mocks.NewMockEventSink(ctrl)
	searchSink := mocks.NewMockEventSink(ctrl)

	conversation := domain.Conversation{ID: uuid.New(), Participants: []string{"alice", "bob"}}
	message := domain.Message{ID: uuid.New(), ConversationID: conversation.ID, SenderID: "alice", Text: "hello"}

	worker := NewEventFanout(log, mockRegistry, mockDirectory, mockChannel,
		nil, 10*time.Second, []contract.EventSink{searchSink})

	// Given: one open message list and one open conversation list per member
	mockRegistry.EXPECT().SinksForConversation(conversation.ID).
		Return([]contract.EventSink{messageSink}).Times(1)
	mockRegistry.EXPECT().SinksForParticipant("alice").
		Return([]contract.EventSink{listSink}).Times(1)
	mockRegistry.EXPECT().SinksForParticipant("bob").
		Return([]contract.EventSink{}).Times(1)
	mockChannel.EXPECT().Messages(gomock.Any(), conversation.ID).
		Return([]domain.Message{message}, nil).Times(1)
	mockDirectory.EXPECT().List(gomock.Any(), "alice").
		Return([]domain.Conversation{conversation}, nil).Times(1)

	// And: each sink receives its snapshot, the permanent sink the raw event
	searchSink.EXPECT().Consume(gomock.Any(), gomock.AssignableToTypeOf(event.MessageAppended{})).
		Return(nil).Times(1)
	messageSink.EXPECT().Consume(gomock.Any(), gomock.AssignableToTypeOf(event.MessageListUpdated{})).
		DoAndReturn(func(_ context.Context, evt event.DomainEvent) error {
			snapshot := evt.(event.MessageListUpdated)
			req.Len(snapshot.List.Messages, 1)
			req.Equal(conversation.ID, snapshot.List.Conversation.ID)
			return nil
		}).Times(1)
	listSink.EXPECT().Consume(gomock.Any(), gomock.AssignableToTypeOf(event.ConversationListUpdated{})).
		Return(nil).Times(1)

	// When: one committed append is fanned out
	worker.Fanout(context.Background(), event.MessageAppended{
		Message: message, Conversation: conversation, At: time.Now().UTC(),
	})
}

func Test_Fanout_Failing_Sink_Does_Not_Starve_Siblings(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockDirectory := mocks.NewMockIDirectory(ctrl)
	mockChannel := mocks.NewMockIChannel(ctrl)
	failing := mocks.NewMockEventSink(ctrl)
	healthy := mocks.NewMockEventSink(ctrl)

	conversation := domain.Conversation{ID: uuid.New(), Participants: []string{"alice"}}
	worker := NewEventFanout(log, mockRegistry, mockDirectory, mockChannel,
		nil, 10*time.Second, nil)

	mockRegistry.EXPECT().SinksForConversation(conversation.ID).
		Return([]contract.EventSink{failing, healthy}).Times(1)
	mockRegistry.EXPECT().SinksForParticipant("alice").Return(nil).Times(1)
	mockChannel.EXPECT().Messages(gomock.Any(), conversation.ID).Return(nil, nil).Times(1)

	// Given: the first sink rejects the snapshot
	failing.EXPECT().Consume(gomock.Any(), gomock.Any()).
		Return(errors.New("session gone")).Times(1)
	// Then: the second one still receives it
	healthy.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	worker.Fanout(context.Background(), event.MessageAppended{Conversation: conversation})
}

func Test_Fanout_Slow_Sink_Is_Cut_Off_By_Timeout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockDirectory := mocks.NewMockIDirectory(ctrl)
	mockChannel := mocks.NewMockIChannel(ctrl)
	slow := mocks.NewMockEventSink(ctrl)

	conversation := domain.Conversation{ID: uuid.New(), Participants: []string{"alice"}}
	sinkTimeout := 20 * time.Millisecond
	worker := NewEventFanout(log, mockRegistry, mockDirectory, mockChannel,
		nil, sinkTimeout, nil)

	mockRegistry.EXPECT().SinksForConversation(conversation.ID).
		Return([]contract.EventSink{slow}).Times(1)
	mockRegistry.EXPECT().SinksForParticipant("alice").Return(nil).Times(1)
	mockChannel.EXPECT().Messages(gomock.Any(), conversation.ID).Return(nil, nil).Times(1)

	// Given: a sink that never consumes until its context is cancelled
	slow.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ event.DomainEvent) error {
			<-ctx.Done()
			return ctx.Err()
		}).Times(1)

	// When: the event is fanned out
	start := time.Now()
	worker.Fanout(context.Background(), event.MessageAppended{Conversation: conversation})

	// Then: the worker moved on once the sink timeout elapsed
	req.Less(time.Since(start), time.Second)
}

func Test_Fanout_Counter_Reset_Reloads_The_Conversation(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockDirectory := mocks.NewMockIDirectory(ctrl)
	mockChannel := mocks.NewMockIChannel(ctrl)

	conversation := domain.Conversation{ID: uuid.New(), Participants: []string{"alice", "bob"}}
	worker := NewEventFanout(log, mockRegistry, mockDirectory, mockChannel,
		nil, 10*time.Second, nil)

	// A counter reset only names the conversation, so it is read back
	// to learn the participants before the snapshots go out.
	mockDirectory.EXPECT().Get(gomock.Any(), conversation.ID).Return(conversation, nil).Times(1)
	mockRegistry.EXPECT().SinksForConversation(conversation.ID).Return(nil).Times(1)
	mockRegistry.EXPECT().SinksForParticipant(gomock.Any()).Return(nil).Times(2)

	worker.Fanout(context.Background(), event.UnreadReset{
		Conversation: conversation.ID, ParticipantID: "bob",
	})
}
