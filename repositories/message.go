package repositories

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"messaging-lab/domain"
)

// MessageRepository is the append-only message channel backed by BadgerDB.
//
// The key is formatted as "msg:{conversation}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
	now           func() time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages, now: time.Now}
}

type diskMessage struct {
	ID             uuid.UUID          `json:"id"`
	ConversationID uuid.UUID          `json:"conversationId"`
	SenderID       string             `json:"senderId"`
	SenderName     string             `json:"senderName,omitempty"`
	Text           string             `json:"text,omitempty"`
	Attachment     *domain.Attachment `json:"attachment,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// Append validates, timestamps and persists one message, and in the same
// transaction updates the conversation summary, bumps every recipient's
// unread counter and resets the sender's. A reader can never observe the
// message without the summary and counters reflecting it.
//
// The timestamp is assigned server-side at accept time, never taken from the
// caller. Concurrent appends to the same conversation all rewrite the
// conversation record, so they conflict and replay in commit order, which
// keeps timestamps non-decreasing within the log.
func (r *MessageRepository) Append(ctx context.Context, cmd domain.AppendMessageCommand) (domain.Message, domain.Conversation, error) {
	if err := cmd.Validate(); err != nil {
		return domain.Message{}, domain.Conversation{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Message{}, domain.Conversation{}, err
	}

	var message diskMessage
	var record diskConversation
	var counts map[string]uint64

	err := runUpdate(r.db, func(txn *badger.Txn) error {
		var err error
		record, err = readConversation(txn, cmd.ConversationID)
		if err != nil {
			return err
		}

		at := r.now().UTC()
		message = diskMessage{
			ID:             uuid.New(),
			ConversationID: cmd.ConversationID,
			SenderID:       cmd.SenderID,
			SenderName:     cmd.SenderName,
			Text:           cmd.Text,
			Attachment:     cmd.Attachment,
			CreatedAt:      at,
		}
		bytes, err := json.Marshal(message)
		if err != nil {
			return err
		}
		if err = txn.Set(messageKey(cmd.ConversationID, message.ID, at), bytes); err != nil {
			return err
		}

		record.LastMessage = toMessage(message).Summary()
		record.LastMessageAt = at
		record.LastMessageSender = cmd.SenderID
		convBytes, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if err = txn.Set(conversationKey(record.ID), convBytes); err != nil {
			return err
		}

		recipients := lo.Filter(record.Participants, func(p string, _ int) bool {
			return p != cmd.SenderID
		})
		if err = incrementCounts(txn, record.ID, recipients); err != nil {
			return err
		}
		// Sending implies having read everything up to this point.
		if err = writeCount(txn, record.ID, cmd.SenderID, 0); err != nil {
			return err
		}

		counts, err = readCounts(txn, record.ID)
		return err
	})
	if err != nil {
		return domain.Message{}, domain.Conversation{}, err
	}

	r.log.Debug("Message appended",
		"conversation", record.ID, "message", message.ID, "sender", cmd.SenderID)
	return toMessage(message), toConversation(record, counts), nil
}

// Messages retrieves the conversation log in ascending order of creation.
// Thanks to the padded timestamp in the key, messages are naturally sorted
// by time with uuid tie-break. When a limit is configured only the most
// recent messages are returned, found by iterating in reverse first.
func (r *MessageRepository) Messages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(conversationID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible timestamp, then walk backwards.
		seekKey := append(append([]byte(nil), prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if r.limitMessages != nil && len(raw) == *r.limitMessages {
				r.log.Debug("Message limit reached", "limit", *r.limitMessages)
				break
			}
			err := it.Item().Value(func(val []byte) error {
				raw = append(raw, append([]byte(nil), val...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapStorage(err)
	}

	messages := make([]domain.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var dm diskMessage
		if err = json.Unmarshal(raw[i], &dm); err != nil {
			return nil, err
		}
		messages = append(messages, toMessage(dm))
	}
	return messages, nil
}

func toMessage(dm diskMessage) domain.Message {
	return domain.Message{
		ID:             dm.ID,
		ConversationID: dm.ConversationID,
		SenderID:       dm.SenderID,
		SenderName:     dm.SenderName,
		Text:           dm.Text,
		Attachment:     dm.Attachment,
		CreatedAt:      dm.CreatedAt,
	}
}
