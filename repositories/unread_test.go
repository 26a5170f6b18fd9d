package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"messaging-lab/domain"
)

func Test_Reset_Zeroes_Only_The_Caller(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	conversations := NewConversationRepository(db, slog.Default())
	messages := NewMessageRepository(db, slog.Default(), nil)
	repository := NewUnreadRepository(db, slog.Default())

	// Given: alice wrote twice into a three-party conversation
	conversation, _, err := conversations.GetOrCreate(context.Background(), domain.CreateConversationCommand{
		Participants: []string{"alice", "bob", "clara"},
	})
	req.NoError(err)
	for i := 0; i < 2; i++ {
		_, _, err = messages.Append(context.Background(), domain.AppendMessageCommand{
			ConversationID: conversation.ID, SenderID: "alice", Text: "update",
		})
		req.NoError(err)
	}

	// When: bob opens the conversation
	req.NoError(repository.Reset(context.Background(), conversation.ID, "bob"))

	// Then: only bob's counter is back to zero
	counts, err := repository.Counts(context.Background(), conversation.ID)
	req.NoError(err)
	req.Equal(uint64(0), counts["bob"])
	req.Equal(uint64(2), counts["clara"])
	req.Equal(uint64(0), counts["alice"])
}

func Test_Reset_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	conversations := NewConversationRepository(db, slog.Default())
	repository := NewUnreadRepository(db, slog.Default())
	conversation, _, err := conversations.GetOrCreate(context.Background(), domain.CreateConversationCommand{
		Participants: []string{"alice", "bob"},
	})
	req.NoError(err)

	req.NoError(repository.Reset(context.Background(), conversation.ID, "bob"))
	req.NoError(repository.Reset(context.Background(), conversation.ID, "bob"))

	counts, err := repository.Counts(context.Background(), conversation.ID)
	req.NoError(err)
	req.Equal(uint64(0), counts["bob"])
}

func Test_Concurrent_Appends_And_Reset_Stay_Consistent(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	conversations := NewConversationRepository(db, slog.Default())
	messages := NewMessageRepository(db, slog.Default(), nil)
	repository := NewUnreadRepository(db, slog.Default())
	conversation, _, err := conversations.GetOrCreate(context.Background(), domain.CreateConversationCommand{
		Participants: []string{"alice", "bob"},
	})
	req.NoError(err)

	// When: alice bursts messages while bob keeps opening the conversation
	const sends = 8
	var wg sync.WaitGroup
	for i := 0; i < sends; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := messages.Append(context.Background(), domain.AppendMessageCommand{
				ConversationID: conversation.ID, SenderID: "alice", Text: fmt.Sprintf("ping %d", i),
			})
			require.NoError(t, err)
		}(i)
		if i%3 == 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				require.NoError(t, repository.Reset(context.Background(), conversation.ID, "bob"))
			}()
		}
	}
	wg.Wait()

	// Then: the counter is somewhere between fully read and fully unread,
	// and no increment was silently overwritten afterwards.
	counts, err := repository.Counts(context.Background(), conversation.ID)
	req.NoError(err)
	req.LessOrEqual(counts["bob"], uint64(sends))

	before := counts["bob"]
	_, _, err = messages.Append(context.Background(), domain.AppendMessageCommand{
		ConversationID: conversation.ID, SenderID: "alice", Text: "one more",
	})
	req.NoError(err)
	counts, err = repository.Counts(context.Background(), conversation.ID)
	req.NoError(err)
	req.Equal(before+1, counts["bob"])
}

func Test_Counts_Unknown_Conversation_Is_Empty(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUnreadRepository(db, slog.Default())

	counts, err := repository.Counts(context.Background(), uuid.New())
	req.NoError(err)
	req.Empty(counts)
}
