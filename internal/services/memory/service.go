package memory

import (
	"context"

	"steuerpilot/internal/domain/conversation"
	"steuerpilot/internal/domain/session"
	"steuerpilot/pkg/errors"
	"steuerpilot/pkg/logger"
)

// Service owns conversation memory: the cached session context, the rolling
// message window, and their durable Postgres backing. On cache miss the
// context is rehydrated from the durable message count rather than replayed.
type Service struct {
	contexts      session.ContextRepository
	messages      session.MessageCache
	conversations conversation.Repository
	log           *logger.Logger
}

// NewService creates a new memory service
func NewService(
	contexts session.ContextRepository,
	messages session.MessageCache,
	conversations conversation.Repository,
) *Service {
	return &Service{
		contexts:      contexts,
		messages:      messages,
		conversations: conversations,
		log:           logger.Get().With("service", "memory"),
	}
}

// GetOrCreateConversation resolves the durable conversation for a session,
// creating it on first contact
func (s *Service) GetOrCreateConversation(ctx context.Context, sessionID, userID string) (*conversation.Conversation, error) {
	conv, err := s.conversations.GetBySession(ctx, sessionID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	conv = &conversation.Conversation{
		SessionID: sessionID,
		UserID:    userID,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, errors.Wrap(err, "create conversation")
	}

	s.log.Infow("conversation created", "session_id", sessionID, "user_id", userID)
	return conv, nil
}

// GetContext loads the session context, rehydrating a minimal one from
// durable storage when the cache has expired
func (s *Service) GetContext(ctx context.Context, sessionID string, conv *conversation.Conversation) *session.Context {
	sc, err := s.contexts.Get(ctx, sessionID)
	if err == nil {
		sc.AgentOutputs = nil // turn-scoped, never carried over
		return sc
	}
	if !errors.Is(err, errors.ErrNotFound) {
		s.log.Warnw("context read failed, starting fresh", "session_id", sessionID, "error", err)
	}

	sc = session.NewContext()
	if conv != nil {
		if count, err := s.conversations.CountMessages(ctx, conv.ID); err == nil {
			sc.MessageCount = count
		}
	}
	return sc
}

// SaveContext writes the session context back to the cache
func (s *Service) SaveContext(ctx context.Context, sessionID string, sc *session.Context) error {
	if err := s.contexts.Save(ctx, sessionID, sc); err != nil {
		return errors.Wrap(err, "save context")
	}
	return nil
}

// AppendMessage persists a message durably and mirrors it into the cache
func (s *Service) AppendMessage(ctx context.Context, conv *conversation.Conversation, sessionID string, role conversation.MessageRole, content string) error {
	id, err := s.conversations.AppendMessage(ctx, conv.ID, role, content)
	if err != nil {
		return errors.Wrap(err, "append message")
	}

	msg := conversation.Message{
		ID:             id,
		ConversationID: conv.ID,
		Role:           role,
		Content:        content,
	}
	if err := s.messages.Push(ctx, sessionID, msg); err != nil {
		// Cache is best effort; durable write already succeeded
		s.log.Warnw("message cache push failed", "session_id", sessionID, "error", err)
	}
	return nil
}

// RecentHistory returns the last limit messages, preferring the cache and
// falling back to Postgres when the cache is cold
func (s *Service) RecentHistory(ctx context.Context, sessionID string, conv *conversation.Conversation, limit int) []conversation.Message {
	msgs, err := s.messages.Recent(ctx, sessionID, limit)
	if err == nil && len(msgs) > 0 {
		return msgs
	}
	if err != nil {
		s.log.Warnw("message cache read failed", "session_id", sessionID, "error", err)
	}

	if conv == nil {
		return nil
	}
	msgs, err = s.conversations.RecentMessages(ctx, conv.ID, limit)
	if err != nil {
		s.log.Warnw("durable history read failed", "session_id", sessionID, "error", err)
		return nil
	}
	return msgs
}

// UpdateTitle sets the conversation title
func (s *Service) UpdateTitle(ctx context.Context, conv *conversation.Conversation, title string) error {
	return s.conversations.UpdateTitle(ctx, conv.ID, title)
}
