package service

import (
	"context"

	"github.com/veldry/chatvault/internal/domain"
	"github.com/veldry/chatvault/internal/security"
)

// DecryptedMessage is a message with its payload and reasoning opened. For a
// redacted message Redacted is true and Text is empty; callers must treat
// that as "content redacted", not "content absent".
type DecryptedMessage struct {
	domain.Message
	Text      string
	Reasoning string
}

// RecordMessageInput carries one inbound/outbound message or reaction event.
type RecordMessageInput struct {
	ChatID     int64
	SessionID  *int64
	SenderID   string
	ExternalID string
	Kind       domain.MessageKind
	Text       string
	Reasoning  string
}

// MessageService persists messages encrypted under the owning chat's key.
type MessageService struct {
	messages domain.MessageRepository
	keys     KeyProvider
}

// NewMessageService creates a new message service
func NewMessageService(messages domain.MessageRepository, keys KeyProvider) *MessageService {
	return &MessageService{messages: messages, keys: keys}
}

// Record stores the message. Redelivery of the same external event converges
// on one row; a changed payload (an edit) replaces the stored one.
func (s *MessageService) Record(ctx context.Context, in RecordMessageInput) (*domain.Message, error) {
	key, err := s.keys.Key(ctx, in.ChatID)
	if err != nil {
		return nil, err
	}

	payload, err := security.EncryptContent(key, []byte(in.Text))
	if err != nil {
		return nil, err
	}
	var reasoning []byte
	if in.Reasoning != "" {
		if reasoning, err = security.EncryptContent(key, []byte(in.Reasoning)); err != nil {
			return nil, err
		}
	}

	return s.messages.Upsert(ctx, &domain.Message{
		ChatID:     in.ChatID,
		SessionID:  in.SessionID,
		SenderID:   in.SenderID,
		ExternalID: in.ExternalID,
		Kind:       in.Kind,
		Payload:    payload,
		Reasoning:  reasoning,
	})
}

func (s *MessageService) Get(ctx context.Context, id int64) (*DecryptedMessage, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decrypt(ctx, msg)
}

func (s *MessageService) ListBySession(ctx context.Context, sessionID int64, limit int) ([]DecryptedMessage, error) {
	msgs, err := s.messages.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	return s.decryptAll(ctx, msgs)
}

func (s *MessageService) ListByChat(ctx context.Context, chatID int64, limit int) ([]DecryptedMessage, error) {
	msgs, err := s.messages.ListByChat(ctx, chatID, limit)
	if err != nil {
		return nil, err
	}
	return s.decryptAll(ctx, msgs)
}

// Redact nulls the message content while keeping the row.
func (s *MessageService) Redact(ctx context.Context, id int64) error {
	return s.messages.Redact(ctx, id)
}

func (s *MessageService) decrypt(ctx context.Context, msg *domain.Message) (*DecryptedMessage, error) {
	out := &DecryptedMessage{Message: *msg}
	if msg.Redacted {
		return out, nil
	}

	key, err := s.keys.Key(ctx, msg.ChatID)
	if err != nil {
		return nil, err
	}
	text, err := security.DecryptContent(key, msg.Payload)
	if err != nil {
		return nil, err
	}
	out.Text = string(text)

	if msg.Reasoning != nil {
		reasoning, err := security.DecryptContent(key, msg.Reasoning)
		if err != nil {
			return nil, err
		}
		out.Reasoning = string(reasoning)
	}
	return out, nil
}

func (s *MessageService) decryptAll(ctx context.Context, msgs []domain.Message) ([]DecryptedMessage, error) {
	out := make([]DecryptedMessage, 0, len(msgs))
	for i := range msgs {
		d, err := s.decrypt(ctx, &msgs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}
