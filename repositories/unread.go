package repositories

import (
	"context"
	"encoding/binary"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// UnreadRepository mutates per-participant unread counters.
//
// Every counter is its own key holding a big-endian uint64. Increment and
// reset are read-modify-write on that single key inside a serializable
// transaction: a racing append and reset touch the same key, so one of them
// conflicts and replays instead of blindly overwriting. The full-map
// round-trip pattern is deliberately impossible here.
type UnreadRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewUnreadRepository(db *badger.DB, log *slog.Logger) *UnreadRepository {
	return &UnreadRepository{db: db, log: log}
}

// Reset sets the participant's counter for the conversation back to zero.
// Called whenever a participant opens (subscribes to) a conversation.
func (r *UnreadRepository) Reset(ctx context.Context, conversationID uuid.UUID, participantID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return runUpdate(r.db, func(txn *badger.Txn) error {
		// Register the current value in the read set before overwriting,
		// so a concurrent increment on the same key conflicts.
		if _, err := readCount(txn, conversationID, participantID); err != nil {
			return err
		}
		return writeCount(txn, conversationID, participantID, 0)
	})
}

// Counts assembles the unreadCounts map for one conversation by prefix scan.
func (r *UnreadRepository) Counts(ctx context.Context, conversationID uuid.UUID) (map[string]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var counts map[string]uint64
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		counts, err = readCounts(txn, conversationID)
		return err
	})
	return counts, wrapStorage(err)
}

// incrementCounts bumps each listed participant's counter by one inside the
// caller's transaction. Used by the message channel so the bump commits
// atomically with the log append.
func incrementCounts(txn *badger.Txn, conversationID uuid.UUID, participantIDs []string) error {
	for _, p := range participantIDs {
		current, err := readCount(txn, conversationID, p)
		if err != nil {
			return err
		}
		if err = writeCount(txn, conversationID, p, current+1); err != nil {
			return err
		}
	}
	return nil
}

func readCount(txn *badger.Txn, conversationID uuid.UUID, participantID string) (uint64, error) {
	item, err := txn.Get(unreadKey(conversationID, participantID))
	if err == badger.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var count uint64
	err = item.Value(func(val []byte) error {
		count = binary.BigEndian.Uint64(val)
		return nil
	})
	return count, err
}

func writeCount(txn *badger.Txn, conversationID uuid.UUID, participantID string, count uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, count)
	return txn.Set(unreadKey(conversationID, participantID), buf)
}

func readCounts(txn *badger.Txn, conversationID uuid.UUID) (map[string]uint64, error) {
	counts := make(map[string]uint64)
	prefix := unreadPrefix(conversationID)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		participantID := string(item.Key()[len(prefix):])
		err := item.Value(func(val []byte) error {
			counts[participantID] = binary.BigEndian.Uint64(val)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return counts, nil
}
