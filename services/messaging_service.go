package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"messaging-lab/contract"
	"messaging-lab/domain"
	"messaging-lab/repositories"
	"messaging-lab/runtime"
)

type IMessagingService interface {
	GetOrCreateConversation(ctx context.Context, cmd domain.CreateConversationCommand) (domain.Conversation, error)
	ListConversations(ctx context.Context, participantID string) ([]domain.Conversation, error)
	SendMessage(ctx context.Context, cmd domain.AppendMessageCommand) (domain.Message, error)
	SendWithAttachments(ctx context.Context, cmd domain.AppendMessageCommand, files []FileUpload) ([]UploadResult, []domain.Message, error)
	Messages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error)
	SubscribeConversations(ctx context.Context, participantID string, sink contract.EventSink) (string, error)
	SubscribeMessages(ctx context.Context, conversationID uuid.UUID, participantID string, sink contract.EventSink) (string, error)
	Unsubscribe(subscriptionID string)
	SearchMessages(ctx context.Context, terms string, conversationID uuid.UUID, limit int) ([]uuid.UUID, uint64, error)
}

// MessagingService is the facade the surrounding application consumes.
// It delegates state changes to the orchestrator and composes the
// attachment pipeline with the message channel for batched sends.
type MessagingService struct {
	orchestrator *runtime.Orchestrator
	attachments  *AttachmentService
	search       *repositories.SearchRepository
	log          *slog.Logger
}

func NewMessagingService(
	orchestrator *runtime.Orchestrator,
	attachments *AttachmentService,
	search *repositories.SearchRepository,
	log *slog.Logger,
) *MessagingService {
	return &MessagingService{
		orchestrator: orchestrator,
		attachments:  attachments,
		search:       search,
		log:          log,
	}
}

func (s *MessagingService) GetOrCreateConversation(ctx context.Context, cmd domain.CreateConversationCommand) (domain.Conversation, error) {
	return s.orchestrator.GetOrCreateConversation(ctx, cmd)
}

func (s *MessagingService) ListConversations(ctx context.Context, participantID string) ([]domain.Conversation, error) {
	return s.orchestrator.ListConversations(ctx, participantID)
}

func (s *MessagingService) SendMessage(ctx context.Context, cmd domain.AppendMessageCommand) (domain.Message, error) {
	return s.orchestrator.AppendMessage(ctx, cmd)
}

// SendWithAttachments uploads the batch best-effort, then appends one
// message per stored file. The command's text, when present, rides with the
// first appended message. A rejected or failed file skips only its own
// message; siblings still go through, so the caller keeps partial progress.
func (s *MessagingService) SendWithAttachments(ctx context.Context, cmd domain.AppendMessageCommand, files []FileUpload) ([]UploadResult, []domain.Message, error) {
	results := s.attachments.UploadAll(ctx, files)

	var messages []domain.Message
	text := cmd.Text
	for _, result := range results {
		if result.Err != nil {
			continue
		}
		message, err := s.orchestrator.AppendMessage(ctx, domain.AppendMessageCommand{
			ConversationID: cmd.ConversationID,
			SenderID:       cmd.SenderID,
			SenderName:     cmd.SenderName,
			Text:           text,
			Attachment:     result.Attachment,
		})
		if err != nil {
			s.log.Warn("Append failed for stored attachment",
				"file", result.FileName, "err", err)
			continue
		}
		text = ""
		messages = append(messages, message)
	}

	// Text-only fallback when every file was rejected but text remains.
	if len(messages) == 0 && text != "" {
		message, err := s.orchestrator.AppendMessage(ctx, domain.AppendMessageCommand{
			ConversationID: cmd.ConversationID,
			SenderID:       cmd.SenderID,
			SenderName:     cmd.SenderName,
			Text:           text,
		})
		if err != nil {
			return results, nil, err
		}
		messages = append(messages, message)
	}
	return results, messages, nil
}

func (s *MessagingService) Messages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	return s.orchestrator.Messages(ctx, conversationID)
}

func (s *MessagingService) SubscribeConversations(ctx context.Context, participantID string, sink contract.EventSink) (string, error) {
	return s.orchestrator.SubscribeConversations(ctx, participantID, sink)
}

func (s *MessagingService) SubscribeMessages(ctx context.Context, conversationID uuid.UUID, participantID string, sink contract.EventSink) (string, error) {
	return s.orchestrator.SubscribeMessages(ctx, conversationID, participantID, sink)
}

func (s *MessagingService) Unsubscribe(subscriptionID string) {
	s.orchestrator.Unsubscribe(subscriptionID)
}

func (s *MessagingService) SearchMessages(ctx context.Context, terms string, conversationID uuid.UUID, limit int) ([]uuid.UUID, uint64, error) {
	return s.search.Search(ctx, terms, conversationID, limit)
}
