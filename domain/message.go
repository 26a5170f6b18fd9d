// Package domain contains core concepts of the messaging system.
// This file defines Message events and related rules.
// Messages are immutable and validated by the domain.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type AttachmentKind string

const (
	KindImage    AttachmentKind = "image"
	KindDocument AttachmentKind = "document"
)

// Attachment is a stable reference to an uploaded file.
type Attachment struct {
	URL      string         `json:"url"`
	FileName string         `json:"fileName"`
	Kind     AttachmentKind `json:"kind"`
}

// Message represents an immutable unit of conversation content.
// A message carries non-empty text, an attachment, or both.
type Message struct {
	ID             uuid.UUID   `json:"id"`
	ConversationID uuid.UUID   `json:"conversationId"`
	SenderID       string      `json:"senderId"`
	SenderName     string      `json:"senderName"`
	Text           string      `json:"text"`
	Attachment     *Attachment `json:"attachment,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// Summary is the text shown in conversation lists for this message.
// Attachment-only messages fall back to a label derived from the file name.
func (m Message) Summary() string {
	if m.Text != "" {
		return m.Text
	}
	if m.Attachment != nil {
		return "[" + m.Attachment.FileName + "]"
	}
	return ""
}
