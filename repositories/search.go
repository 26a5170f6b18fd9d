package repositories

import (
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"

	"messaging-lab/domain"
)

// SearchRepository maintains a Bluge full-text index over accepted messages.
// It is fed by the search sink after each append and queried by the service
// layer. The index is derived data: the Badger log stays the source of truth.
type SearchRepository struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchRepository(writer *bluge.Writer, log *slog.Logger) *SearchRepository {
	return &SearchRepository{writer: writer, log: log}
}

// Index upserts one message document, keyed by message id.
func (r *SearchRepository) Index(message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewKeywordField("conversation", message.ConversationID.String())).
		AddField(bluge.NewKeywordField("sender", message.SenderID)).
		AddField(bluge.NewTextField("text", message.Text).StoreValue())
	return r.writer.Update(doc.ID(), doc)
}

// Search returns ids of messages matching the terms, newest-ranked first,
// optionally restricted to one conversation. The second value is the total
// number of matches before the limit is applied.
func (r *SearchRepository) Search(ctx context.Context, terms string, conversationID uuid.UUID, limit int) ([]uuid.UUID, uint64, error) {
	reader, err := r.writer.Reader()
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			r.log.Error("Error while closing index reader", "err", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("text"))
	if conversationID != uuid.Nil {
		query.AddMust(bluge.NewTermQuery(conversationID.String()).SetField("conversation"))
	}

	request := bluge.NewTopNSearch(limit, query).WithStandardAggregations()
	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, 0, err
	}

	var ids []uuid.UUID
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, 0, err
		}
		if match == nil {
			break
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				if id, parseErr := uuid.ParseBytes(value); parseErr == nil {
					ids = append(ids, id)
				}
			}
			return true
		})
		if err != nil {
			return nil, 0, err
		}
	}
	return ids, iterator.Aggregations().Count(), nil
}
