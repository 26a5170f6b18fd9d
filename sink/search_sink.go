package sink

import (
	"context"
	"log/slog"

	"messaging-lab/domain"
	"messaging-lab/domain/event"
)

type Indexer interface {
	Index(message domain.Message) error
}

// SearchSink feeds accepted messages into the full-text index. Indexing is
// derived data: a failure is logged and never blocks the fan-out.
type SearchSink struct {
	indexer Indexer
	log     *slog.Logger
}

func NewSearchSink(indexer Indexer, log *slog.Logger) SearchSink {
	return SearchSink{indexer: indexer, log: log}
}

func (s SearchSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageAppended:
		if evt.Message.Text == "" {
			return nil
		}
		return s.indexer.Index(evt.Message)
	}
	return nil
}
