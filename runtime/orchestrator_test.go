package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"messaging-lab/domain"
	"messaging-lab/domain/event"
	"messaging-lab/mocks"
	"messaging-lab/repositories"
	"messaging-lab/runtime/workers"
)

// snapshotSink records the size of every message-list snapshot it receives.
type snapshotSink struct {
	mu    sync.Mutex
	sizes []int
}

func (s *snapshotSink) Consume(_ context.Context, evt event.DomainEvent) error {
	if e, ok := evt.(event.MessageListUpdated); ok {
		s.mu.Lock()
		s.sizes = append(s.sizes, len(e.List.Messages))
		s.mu.Unlock()
	}
	return nil
}

func (s *snapshotSink) observed() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.sizes...)
}

func (s *snapshotSink) last() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sizes) == 0 {
		return -1
	}
	return s.sizes[len(s.sizes)-1]
}

func Test_Snapshots_Never_Regress_While_Sessions_Open(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelError)
	directory := repositories.NewConversationRepository(db, log)
	channel := repositories.NewMessageRepository(db, log, nil)
	counter := repositories.NewUnreadRepository(db, log)

	orchestrator := NewOrchestrator(
		log, workers.NewSupervisor(log), NewRegistry(),
		directory, channel, counter,
		256, time.Second, time.Minute,
	)
	ctx := context.Background()
	go func() { _ = orchestrator.Start(ctx) }()
	t.Cleanup(orchestrator.Stop)

	conversation, err := orchestrator.GetOrCreateConversation(ctx, domain.CreateConversationCommand{
		Participants: []string{"alice", "bob"},
	})
	req.NoError(err)

	// Given: alice bursts messages in the background
	const sends = 40
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < sends; i++ {
			_, err := orchestrator.AppendMessage(ctx, domain.AppendMessageCommand{
				ConversationID: conversation.ID, SenderID: "alice", Text: fmt.Sprintf("burst %d", i),
			})
			require.NoError(t, err)
		}
	}()

	// When: bob keeps opening new sessions while the burst is in flight
	sinks := make([]*snapshotSink, 0, 6)
	for i := 0; i < 6; i++ {
		sink := &snapshotSink{}
		_, err := orchestrator.SubscribeMessages(ctx, conversation.ID, "bob", sink)
		require.NoError(t, err)
		sinks = append(sinks, sink)
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	// Then: every session converges on the full log
	for _, sink := range sinks {
		req.Eventually(func() bool { return sink.last() == sends },
			5*time.Second, 20*time.Millisecond)
	}
	// And: no session ever saw a snapshot shrink along the way
	for _, sink := range sinks {
		sizes := sink.observed()
		for i := 1; i < len(sizes); i++ {
			req.GreaterOrEqual(sizes[i], sizes[i-1])
		}
	}
}

type chanSink struct {
	events chan event.DomainEvent
}

func (s *chanSink) Consume(_ context.Context, evt event.DomainEvent) error {
	s.events <- evt
	return nil
}

func Test_Committed_Append_Fans_Out_Despite_Cancelled_Request(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	ctrl := gomock.NewController(t)
	directoryMock := mocks.NewMockIDirectory(ctrl)
	channelMock := mocks.NewMockIChannel(ctrl)
	counterMock := mocks.NewMockICounter(ctrl)

	conversation := domain.Conversation{ID: uuid.New(), Participants: []string{"alice", "bob"}}
	orchestrator := NewOrchestrator(
		log, workers.NewSupervisor(log), NewRegistry(),
		directoryMock, channelMock, counterMock,
		16, time.Second, time.Minute,
	)
	go func() { _ = orchestrator.Start(context.Background()) }()
	t.Cleanup(orchestrator.Stop)

	directoryMock.EXPECT().List(gomock.Any(), "bob").
		Return([]domain.Conversation{conversation}, nil).AnyTimes()

	// Given: bob has an open conversation-list session
	bob := &chanSink{events: make(chan event.DomainEvent, 8)}
	_, err := orchestrator.SubscribeConversations(context.Background(), "bob", bob)
	req.NoError(err)

	// And: the store commits the append
	message := domain.Message{
		ID: uuid.New(), ConversationID: conversation.ID,
		SenderID: "alice", Text: "made it", CreatedAt: time.Now().UTC(),
	}
	channelMock.EXPECT().Append(gomock.Any(), gomock.Any()).
		Return(message, conversation, nil).Times(1)

	// When: the request context is already gone by the time the event is
	// handed over
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = orchestrator.AppendMessage(cancelled, domain.AppendMessageCommand{
		ConversationID: conversation.ID, SenderID: "alice", Text: "made it",
	})
	req.NoError(err)

	// Then: the committed mutation still reaches bob's session, on top of
	// the initial snapshot
	updates := 0
	deadline := time.After(2 * time.Second)
	for updates < 2 {
		select {
		case evt := <-bob.events:
			if _, ok := evt.(event.ConversationListUpdated); ok {
				updates++
			}
		case <-deadline:
			req.Fail("Timeout: committed append never reached the subscriber")
		}
	}
}
