package domain

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	apperrors "messaging-lab/errors"
)

var validate = validator.New()

// CreateConversationCommand asks the directory for the conversation matching
// the participant set, creating it when none exists.
type CreateConversationCommand struct {
	Participants     []string `validate:"required,min=2,unique"`
	ParticipantNames map[string]string
	ParticipantRoles map[string]string
	Reference        *Reference
}

func (c CreateConversationCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.ErrNotEnoughMembers
	}
	return nil
}

// AppendMessageCommand appends one immutable message to a conversation log.
type AppendMessageCommand struct {
	ConversationID uuid.UUID `validate:"required"`
	SenderID       string    `validate:"required"`
	SenderName     string
	Text           string
	Attachment     *Attachment
}

// Validate enforces the message content invariant: text, attachment, or both.
func (c AppendMessageCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.ErrInvalidMessage
	}
	if c.Text == "" && c.Attachment == nil {
		return apperrors.ErrInvalidMessage
	}
	return nil
}
