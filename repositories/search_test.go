package repositories

import (
	"testing"
	"time"

	"github.com/google/uuid"
	db "github.com/mama165/sdk-go/database"
	"github.com/stretchr/testify/require"

	"messaging-lab/domain"
)

func Test_Search_Round_Trip(t *testing.T) {
	req := require.New(t)
	ctx, log, badgerDB, blugeWriter, err := db.SetupBenchmark(t.TempDir())
	req.NoError(err)
	defer db.CleanupDB(badgerDB, blugeWriter)

	repository := NewSearchRepository(blugeWriter, log)

	// Given: messages spread over two conversations
	firstConversation := uuid.New()
	secondConversation := uuid.New()
	delivery := domain.Message{
		ID: uuid.New(), ConversationID: firstConversation,
		SenderID: "buyer-1", Text: "when does the delivery arrive?", CreatedAt: time.Now().UTC(),
	}
	req.NoError(repository.Index(delivery))
	req.NoError(repository.Index(domain.Message{
		ID: uuid.New(), ConversationID: firstConversation,
		SenderID: "seller-1", Text: "the invoice is attached", CreatedAt: time.Now().UTC(),
	}))
	req.NoError(repository.Index(domain.Message{
		ID: uuid.New(), ConversationID: secondConversation,
		SenderID: "buyer-2", Text: "delivery delayed again", CreatedAt: time.Now().UTC(),
	}))

	// When: searching across everything
	ids, total, err := repository.Search(ctx, "delivery", uuid.Nil, 10)
	req.NoError(err)
	req.Equal(uint64(2), total)
	req.Len(ids, 2)

	// Then: scoping to one conversation narrows the hits
	ids, total, err = repository.Search(ctx, "delivery", firstConversation, 10)
	req.NoError(err)
	req.Equal(uint64(1), total)
	req.Equal([]uuid.UUID{delivery.ID}, ids)
}

func Test_Search_No_Match(t *testing.T) {
	req := require.New(t)
	ctx, log, badgerDB, blugeWriter, err := db.SetupBenchmark(t.TempDir())
	req.NoError(err)
	defer db.CleanupDB(badgerDB, blugeWriter)

	repository := NewSearchRepository(blugeWriter, log)
	req.NoError(repository.Index(domain.Message{
		ID: uuid.New(), ConversationID: uuid.New(),
		SenderID: "buyer-1", Text: "hello there", CreatedAt: time.Now().UTC(),
	}))

	ids, total, err := repository.Search(ctx, "refund", uuid.Nil, 10)
	req.NoError(err)
	req.Zero(total)
	req.Empty(ids)
}
