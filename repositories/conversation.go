package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"messaging-lab/domain"
	apperrors "messaging-lab/errors"
)

// ConversationRepository is the conversation directory backed by BadgerDB.
//
// Deduplication relies on a single dedup key per (referenceId, participant
// set): racing GetOrCreate calls both read that key inside a serializable
// transaction, so the losing commit fails with ErrConflict, replays, and
// observes the winner's conversation. Conversations without a reference are
// never deduplicated and each call creates a fresh one.
type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
	now func() time.Time
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) *ConversationRepository {
	return &ConversationRepository{db: db, log: log, now: time.Now}
}

// diskConversation is the persisted record. Unread counts are NOT part of
// it: each counter lives under its own key so increments and resets never
// rewrite the whole map.
type diskConversation struct {
	ID                uuid.UUID         `json:"id"`
	Participants      []string          `json:"participants"`
	ParticipantNames  map[string]string `json:"participantNames,omitempty"`
	ParticipantRoles  map[string]string `json:"participantRoles,omitempty"`
	Reference         *domain.Reference `json:"reference,omitempty"`
	LastMessage       string            `json:"lastMessage,omitempty"`
	LastMessageAt     time.Time         `json:"lastMessageAt,omitzero"`
	LastMessageSender string            `json:"lastMessageSender,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// GetOrCreate returns the single conversation for the participant set and
// reference, creating it when none exists. The boolean reports creation.
// Counters of an existing match are left untouched.
func (r *ConversationRepository) GetOrCreate(ctx context.Context, cmd domain.CreateConversationCommand) (domain.Conversation, bool, error) {
	if err := cmd.Validate(); err != nil {
		return domain.Conversation{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Conversation{}, false, err
	}

	var record diskConversation
	var counts map[string]uint64
	var created bool

	err := runUpdate(r.db, func(txn *badger.Txn) error {
		created = false

		if cmd.Reference != nil && cmd.Reference.ID != "" {
			existing, err := r.lookupByDedupKey(txn, cmd.Reference.ID, cmd.Participants)
			if err == nil {
				record = existing
				counts, err = readCounts(txn, record.ID)
				return err
			}
			if err != badger.ErrKeyNotFound {
				return err
			}
		}

		record = diskConversation{
			ID:               uuid.New(),
			Participants:     append([]string(nil), cmd.Participants...),
			ParticipantNames: cmd.ParticipantNames,
			ParticipantRoles: cmd.ParticipantRoles,
			Reference:        cmd.Reference,
			CreatedAt:        r.now().UTC(),
		}
		created = true
		counts = make(map[string]uint64, len(cmd.Participants))
		for _, p := range cmd.Participants {
			counts[p] = 0
		}
		return r.persist(txn, record, cmd)
	})
	if err != nil {
		return domain.Conversation{}, false, err
	}

	if created {
		r.log.Debug("Conversation created",
			"conversation", record.ID, "participants", len(record.Participants))
	}
	return toConversation(record, counts), created, nil
}

// lookupByDedupKey resolves the dedup key to its conversation record.
// Reading the key registers it in the transaction's read set, which is what
// makes concurrent creates for the same set conflict instead of duplicating.
func (r *ConversationRepository) lookupByDedupKey(txn *badger.Txn, referenceID string, participants []string) (diskConversation, error) {
	item, err := txn.Get(dedupKey(referenceID, participants))
	if err != nil {
		return diskConversation{}, err
	}
	var id uuid.UUID
	if err = item.Value(func(val []byte) error {
		id, err = uuid.ParseBytes(val)
		return err
	}); err != nil {
		return diskConversation{}, err
	}
	return readConversation(txn, id)
}

func (r *ConversationRepository) persist(txn *badger.Txn, record diskConversation, cmd domain.CreateConversationCommand) error {
	bytes, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err = txn.Set(conversationKey(record.ID), bytes); err != nil {
		return err
	}
	if cmd.Reference != nil && cmd.Reference.ID != "" {
		if err = txn.Set(dedupKey(cmd.Reference.ID, record.Participants), []byte(record.ID.String())); err != nil {
			return err
		}
	}
	for _, p := range record.Participants {
		if err = txn.Set(memberKey(p, record.ID), nil); err != nil {
			return err
		}
		if err = writeCount(txn, record.ID, p, 0); err != nil {
			return err
		}
	}
	return nil
}

// Get loads one conversation with its current unread counts.
func (r *ConversationRepository) Get(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Conversation{}, err
	}
	var record diskConversation
	var counts map[string]uint64
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		record, err = readConversation(txn, id)
		if err != nil {
			return err
		}
		counts, err = readCounts(txn, id)
		return err
	})
	if err != nil {
		return domain.Conversation{}, wrapStorage(err)
	}
	return toConversation(record, counts), nil
}

// List returns every conversation containing the participant, resolved via
// the member index. Ordering is left to the projection layer.
func (r *ConversationRepository) List(ctx context.Context, participantID string) ([]domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var conversations []domain.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := memberPrefix(participantID)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rawID := it.Item().Key()[len(prefix):]
			id, err := uuid.ParseBytes(rawID)
			if err != nil {
				return err
			}
			record, err := readConversation(txn, id)
			if err != nil {
				return err
			}
			counts, err := readCounts(txn, id)
			if err != nil {
				return err
			}
			conversations = append(conversations, toConversation(record, counts))
		}
		return nil
	})
	if err != nil {
		return nil, wrapStorage(err)
	}
	return conversations, nil
}

func readConversation(txn *badger.Txn, id uuid.UUID) (diskConversation, error) {
	item, err := txn.Get(conversationKey(id))
	if err == badger.ErrKeyNotFound {
		return diskConversation{}, fmt.Errorf("%w: %s", apperrors.ErrConversationNotFound, id)
	}
	if err != nil {
		return diskConversation{}, err
	}
	var record diskConversation
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &record)
	})
	return record, err
}

func toConversation(record diskConversation, counts map[string]uint64) domain.Conversation {
	return domain.Conversation{
		ID:                record.ID,
		Participants:      record.Participants,
		ParticipantNames:  record.ParticipantNames,
		ParticipantRoles:  record.ParticipantRoles,
		Reference:         record.Reference,
		LastMessage:       record.LastMessage,
		LastMessageAt:     record.LastMessageAt,
		LastMessageSender: record.LastMessageSender,
		UnreadCounts:      counts,
		CreatedAt:         record.CreatedAt,
	}
}
