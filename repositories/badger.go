package repositories

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	apperrors "messaging-lab/errors"
)

// maxTxnRetries bounds the retry loop around conflicting transactions.
// Badger runs under serializable snapshot isolation: when two transactions
// race on the same keys the second commit fails with ErrConflict and the
// loser replays against the winner's state.
const maxTxnRetries = 16

// Key layout. The padded timestamp gives lexicographic chronological order
// inside a conversation, the trailing uuid breaks same-nanosecond ties.
func conversationKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("conv:%s", id))
}

func dedupKey(referenceID string, participants []string) []byte {
	return []byte(fmt.Sprintf("idx:ref:%s:%s", referenceID, participantSetHash(participants)))
}

func memberKey(participantID string, conversationID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("idx:member:%s:%s", participantID, conversationID))
}

func memberPrefix(participantID string) []byte {
	return []byte(fmt.Sprintf("idx:member:%s:", participantID))
}

func messageKey(conversationID, messageID uuid.UUID, at time.Time) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", conversationID, at.UnixNano(), messageID))
}

func messagePrefix(conversationID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", conversationID))
}

func unreadKey(conversationID uuid.UUID, participantID string) []byte {
	return []byte(fmt.Sprintf("unread:%s:%s", conversationID, participantID))
}

func unreadPrefix(conversationID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("unread:%s:", conversationID))
}

// participantSetHash collapses a participant set into an order-independent
// fingerprint so racing creates for the same set collide on one dedup key.
func participantSetHash(participants []string) string {
	sorted := append([]string(nil), participants...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\x00")))
	return hex.EncodeToString(sum[:8])
}

// runUpdate retries a read-modify-write transaction on ErrConflict.
// Anything else is surfaced as a storage failure for the caller to retry
// with its own policy.
func runUpdate(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxTxnRetries; i++ {
		err = db.Update(fn)
		if err == nil || err != badger.ErrConflict {
			return wrapStorage(err)
		}
	}
	return fmt.Errorf("%w: transaction kept conflicting", apperrors.ErrDedupConflict)
}

func wrapStorage(err error) error {
	if err == nil {
		return nil
	}
	switch err {
	case badger.ErrDBClosed, badger.ErrBlockedWrites:
		return fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}
	return err
}
