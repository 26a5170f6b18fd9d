// Package domain contains core concepts of the messaging system.
// This file defines Conversation entities and their invariants.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Reference anchors a conversation to a business object owned by the
// surrounding application (quotation request, campaign, collaboration...).
type Reference struct {
	Type  string `json:"referenceType"`
	ID    string `json:"referenceId"`
	Title string `json:"referenceTitle"`
}

// Conversation is a channel between a fixed set of participants.
// Participants are immutable after creation. Summary fields and unread
// counts are denormalized for list rendering and are only mutated through
// the message channel and the unread counter.
type Conversation struct {
	ID                uuid.UUID         `json:"id"`
	Participants      []string          `json:"participants"`
	ParticipantNames  map[string]string `json:"participantNames"`
	ParticipantRoles  map[string]string `json:"participantRoles"`
	Reference         *Reference        `json:"reference,omitempty"`
	LastMessage       string            `json:"lastMessage"`
	LastMessageAt     time.Time         `json:"lastMessageAt"`
	LastMessageSender string            `json:"lastMessageSender"`
	UnreadCounts      map[string]uint64 `json:"unreadCounts"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// HasParticipant reports whether the given id belongs to the conversation.
func (c Conversation) HasParticipant(participantID string) bool {
	return lo.Contains(c.Participants, participantID)
}

// OtherParticipants returns every member except the given one.
func (c Conversation) OtherParticipants(participantID string) []string {
	return lo.Filter(c.Participants, func(p string, _ int) bool {
		return p != participantID
	})
}

// SortedAt is the instant used to order a conversation in list views.
// A conversation with no message yet sorts by its creation time.
func (c Conversation) SortedAt() time.Time {
	if c.LastMessageAt.IsZero() {
		return c.CreatedAt
	}
	return c.LastMessageAt
}

// SameParticipants compares participant sets order-independently,
// requiring the same cardinality and members.
func SameParticipants(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
