package learning

import (
	"context"
	"strings"
	"time"

	"steuerpilot/internal/adapters/ai"
	"steuerpilot/internal/domain/conversation"
	"steuerpilot/internal/domain/profile"
	"steuerpilot/pkg/logger"
)

const (
	learningInterval = 5
	titleMaxLen      = 50
	titleTurnWindow  = 3
)

var topicKeywords = map[string][]string{
	"expenses":   {"expense", "ausgabe", "receipt", "beleg", "bought", "gekauft", "purchase", "spent", "track"},
	"deductions": {"deduct", "absetzen", "werbungskosten", "write off", "pauschale", "allowance", "absetzbar"},
	"income_tax": {"income tax", "einkommensteuer", "tax rate", "steuersatz", "bracket", "grundfreibetrag", "salary", "gehalt"},
	"vat":        {"vat", "umsatzsteuer", "mehrwertsteuer", "kleinunternehmer", "invoice", "rechnung"},
	"profile":    {"my income", "i am", "i'm ", "ich bin", "my job", "freelancer", "employed", "married", "verheiratet"},
	"greeting":   {"hello", "hallo", "hi ", "hey", "good morning", "guten tag"},
}

// Service derives conversation titles, topics and profile learning summaries.
// It runs after the response is sent; its failures are logged, never surfaced.
type Service struct {
	gateway       *ai.Gateway
	profiles      profile.Repository
	conversations conversation.Repository
	log           *logger.Logger
}

// NewService creates a new learning service
func NewService(gateway *ai.Gateway, profiles profile.Repository, conversations conversation.Repository) *Service {
	return &Service{
		gateway:       gateway,
		profiles:      profiles,
		conversations: conversations,
		log:           logger.Get().With("service", "learning"),
	}
}

// ClassifyTopic maps a message onto a coarse topic label using keywords only
func ClassifyTopic(message string) string {
	lower := strings.ToLower(message)
	for _, topic := range []string{"expenses", "deductions", "income_tax", "vat", "profile", "greeting"} {
		for _, kw := range topicKeywords[topic] {
			if strings.Contains(lower, kw) {
				return topic
			}
		}
	}
	return "general"
}

// ShouldLearn reports whether this turn triggers a learning summary
func ShouldLearn(messageCount int, profileUpdated bool) bool {
	if profileUpdated {
		return true
	}
	return messageCount > 0 && messageCount%learningInterval == 0
}

// MaybeTitle derives a conversation title once, within the first turns.
// Falls back to a truncated first message when the model is unavailable.
func (s *Service) MaybeTitle(ctx context.Context, conv *conversation.Conversation, messageCount int, firstMessage string) {
	if conv == nil || conv.Title != "" || messageCount > titleTurnWindow {
		return
	}

	title := s.generateTitle(ctx, firstMessage)
	if title == "" {
		title = truncateTitle(firstMessage)
	}
	if title == "" {
		return
	}

	if err := s.conversations.UpdateTitle(ctx, conv.ID, title); err != nil {
		s.log.Warnw("title update failed", "conversation_id", conv.ID, "error", err)
		return
	}
	conv.Title = title
}

func (s *Service) generateTitle(ctx context.Context, firstMessage string) string {
	if s.gateway == nil || strings.TrimSpace(firstMessage) == "" {
		return ""
	}
	out, err := s.gateway.Complete(ctx, ai.ChatRequest{
		SystemPrompt: "You title conversations for a German tax assistant. Reply with a short title, at most 6 words, no quotes.",
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: "First message of the conversation:\n" + firstMessage},
		},
		Temperature: 0.3,
		MaxTokens:   24,
	})
	if err != nil {
		s.log.Debugw("title generation failed", "error", err)
		return ""
	}
	return truncateTitle(strings.Trim(strings.TrimSpace(out), `"`))
}

// Learn condenses recent history into profile notes for future turns
func (s *Service) Learn(ctx context.Context, userID string, history []conversation.Message) {
	if s.gateway == nil || len(history) == 0 {
		return
	}

	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		s.log.Debugw("learning skipped, no profile", "user_id", userID, "error", err)
		return
	}

	var sb strings.Builder
	for _, m := range history {
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}

	summary, err := s.gateway.Complete(ctx, ai.ChatRequest{
		SystemPrompt: "Extract durable facts about the user from this tax conversation: tax situation, goals, recurring concerns. Reply with 1-3 short sentences. Reply with NONE if there is nothing durable.",
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: sb.String()},
		},
		Temperature: 0.2,
		MaxTokens:   150,
	})
	if err != nil {
		s.log.Debugw("learning summary failed", "user_id", userID, "error", err)
		return
	}
	summary = strings.TrimSpace(summary)
	if summary == "" || strings.EqualFold(summary, "NONE") {
		return
	}

	stamp := time.Now().UTC().Format("2006-01-02")
	if p.Notes != "" {
		p.Notes += "\n"
	}
	p.Notes += "[" + stamp + "] " + summary

	if err := s.profiles.Update(ctx, p); err != nil {
		s.log.Warnw("learning note save failed", "user_id", userID, "error", err)
		return
	}
	s.log.Infow("learning note saved", "user_id", userID)
}

func truncateTitle(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= titleMaxLen {
		return s
	}
	cut := s[:titleMaxLen]
	if i := strings.LastIndex(cut, " "); i > 20 {
		cut = cut[:i]
	}
	return cut + "..."
}
