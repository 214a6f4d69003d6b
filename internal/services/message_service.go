// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns the conversational exchange: it verifies chat ownership, appends the
// user's message, forwards the bounded transcript to the completion gateway,
// and appends the assistant's reply. On a chat's first exchange it also asks
// the gateway for a short title and applies it best-effort.
//
// Atomicity: the user append and the assistant append are separate commits
// on purpose. When the gateway fails mid-exchange the user message stays in
// the store, so a failed exchange can leave a user-only turn. That matches
// the product's observed behavior and is covered by tests rather than hidden
// behind a compensating rollback.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// chat/user identifiers.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/grork/ai-chat-backend/internal/domain"
	"github.com/grork/ai-chat-backend/internal/llm"
	"github.com/grork/ai-chat-backend/internal/repo"
)

const (
	// systemPrompt is the fixed instruction prepended to every transcript.
	systemPrompt = "You are a helpful, friendly AI assistant. Answer clearly and concisely."

	// titlePrompt asks the gateway for a chat title from the first message.
	titlePrompt = "Generate a very short title, at most 80 characters, summarizing the user's message. " +
		"Respond with the title only: no quotes, no trailing punctuation."

	// titleMaxTokens caps the title completion's output.
	titleMaxTokens = 30

	// defaultTemperature matches the provider default used by the product.
	defaultTemperature = 0.7
)

// MessageService coordinates message persistence and gateway completions.
type MessageService struct {
	DB      *gorm.DB
	Gateway llm.Client
	// Model is the alias requested for completions; only "fast" is wired
	// to a real backend.
	Model llm.Model

	// HistoryLimit bounds how many recent messages are forwarded to the
	// gateway. This is payload bounding, not context-window management.
	HistoryLimit int

	// MaxMessageRunes guards against oversized user messages when > 0.
	MaxMessageRunes int

	// TitleMaxLen caps auto-generated titles by rune length.
	TitleMaxLen int

	// IdempotencyTTL bounds how long a recorded exchange outcome can be
	// replayed; <= 0 means 24 hours.
	IdempotencyTTL time.Duration
}

// NewMessageService constructs a MessageService with the documented defaults
// (fast model, last 50 messages, 80 rune titles).
func NewMessageService(db *gorm.DB, gw llm.Client) *MessageService {
	return &MessageService{
		DB:           db,
		Gateway:      gw,
		Model:        llm.ModelFast,
		HistoryLimit: 50,
		TitleMaxLen:  80,
	}
}

// Exchange runs one conversational round trip for userID. When chatID is
// empty a fresh chat is created on demand; a supplied but unknown (or
// foreign) chatID fails with ErrChatNotFound. On success exactly two
// messages exist for the turn: the user's and the assistant's.
//
// A gateway failure surfaces as ErrProviderUnavailable and leaves the
// already-committed user message in place.
func (s *MessageService) Exchange(ctx context.Context, userID, chatID, text string) (*domain.Chat, string, error) {
	chat, msg, err := s.exchange(ctx, userID, chatID, text)
	if err != nil {
		return nil, "", err
	}
	return chat, msg.Content, nil
}

// ExchangeWithKey is Exchange with safe-retry semantics. A non-empty key
// that matches a live idempotency record replays the stored assistant reply
// without touching the transcript or the gateway; otherwise the exchange
// runs normally and its outcome is recorded under the key. An empty key
// degrades to plain Exchange.
func (s *MessageService) ExchangeWithKey(ctx context.Context, userID, chatID, text, key string) (*domain.Chat, string, bool, error) {
	if key == "" {
		chat, reply, err := s.Exchange(ctx, userID, chatID, text)
		return chat, reply, false, err
	}

	if rec, err := repo.GetIdempotency(ctx, s.DB, userID, key, time.Now().UTC()); err == nil {
		if chat, msg, valid := s.replay(ctx, userID, rec); valid {
			return chat, msg.Content, true, nil
		}
		// Stale record (chat or reply since deleted); run the exchange.
	}

	chat, msg, err := s.exchange(ctx, userID, chatID, text)
	if err != nil {
		return nil, "", false, err
	}

	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if _, err := repo.CreateIdempotency(ctx, s.DB, userID, key, chat.ID, msg.ID, ttl); err != nil && !errors.Is(err, repo.ErrDuplicate) {
		// Best-effort: a failed record only costs a future retry a re-run.
		log.Warn().Err(err).Str("chat_id", chat.ID).Msg("idempotency record failed")
	}
	return chat, msg.Content, false, nil
}

// replay resolves an idempotency record back to its chat and assistant
// message, reporting false when either side no longer exists.
func (s *MessageService) replay(ctx context.Context, userID string, rec *domain.IdempotencyRecord) (*domain.Chat, *domain.Message, bool) {
	chat, err := repo.GetChat(ctx, s.DB, rec.ChatID, userID)
	if err != nil {
		return nil, nil, false
	}
	msg, err := repo.GetMessage(ctx, s.DB, rec.MessageID)
	if err != nil || msg.ChatID != chat.ID {
		return nil, nil, false
	}
	return chat, msg, true
}

func (s *MessageService) exchange(ctx context.Context, userID, chatID, text string) (*domain.Chat, *domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Exchange",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(text) > s.MaxMessageRunes {
		return nil, nil, ErrMessageTooLong
	}

	chat, err := s.resolveOrCreateChat(ctx, userID, chatID)
	if err != nil {
		return nil, nil, err
	}

	// Decide titling before the turn mutates the message count.
	count, err := repo.CountMessages(ctx, s.DB, chat.ID)
	if err != nil {
		return nil, nil, err
	}
	isFirst := count == 0

	if _, err := repo.CreateMessage(ctx, s.DB, chat.ID, domain.MessageRoleUser, text); err != nil {
		return nil, nil, err
	}
	if err := repo.TouchChat(ctx, s.DB, chat.ID); err != nil {
		return nil, nil, err
	}

	transcript, err := s.buildTranscript(ctx, chat.ID)
	if err != nil {
		return nil, nil, err
	}

	reply, err := s.Gateway.Complete(ctx, llm.Request{
		Model:       s.Model,
		Messages:    transcript,
		Temperature: defaultTemperature,
	})
	if err != nil {
		// The user message above is not rolled back; see package comment.
		return nil, nil, ErrProviderUnavailable
	}

	asst, err := repo.CreateMessage(ctx, s.DB, chat.ID, domain.MessageRoleAssistant, reply)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.TouchChat(ctx, s.DB, chat.ID); err != nil {
		return nil, nil, err
	}

	if isFirst {
		s.autoTitle(ctx, chat, text)
	}

	return chat, asst, nil
}

// ListPage returns up to limit messages of a chat owned by userID in
// creation order. Foreign and missing chats both yield ErrChatNotFound.
func (s *MessageService) ListPage(ctx context.Context, userID, chatID string, limit int) ([]domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if _, err := repo.GetChat(ctx, s.DB, chatID, userID); err != nil {
		return nil, ErrChatNotFound
	}
	return repo.ListMessages(ctx, s.DB, chatID, limit)
}

// ListPageAny returns messages for any chat regardless of owner. It backs
// the admin surface; role checks happen at the boundary.
func (s *MessageService) ListPageAny(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	if _, err := repo.GetChatAny(ctx, s.DB, chatID); err != nil {
		return nil, ErrChatNotFound
	}
	return repo.ListMessages(ctx, s.DB, chatID, limit)
}

// Stats returns the message count and newest-message time for a chat owned
// by userID, for conditional transcript responses. Foreign and missing
// chats both yield ErrChatNotFound.
func (s *MessageService) Stats(ctx context.Context, userID, chatID string) (int64, *time.Time, error) {
	if _, err := repo.GetChat(ctx, s.DB, chatID, userID); err != nil {
		return 0, nil, ErrChatNotFound
	}
	return repo.MessagesStats(ctx, s.DB, chatID)
}

// resolveOrCreateChat implements the create-on-demand policy: an empty id
// creates a fresh chat for the caller, a supplied id must resolve within
// the caller's own chats.
func (s *MessageService) resolveOrCreateChat(ctx context.Context, userID, chatID string) (*domain.Chat, error) {
	if strings.TrimSpace(chatID) == "" {
		return repo.CreateChat(ctx, s.DB, userID, "")
	}
	chat, err := repo.GetChat(ctx, s.DB, chatID, userID)
	if err != nil {
		return nil, ErrChatNotFound
	}
	return chat, nil
}

// buildTranscript assembles the gateway payload: the fixed system
// instruction followed by the chat's most recent HistoryLimit messages in
// creation order.
func (s *MessageService) buildTranscript(ctx context.Context, chatID string) ([]llm.Message, error) {
	history, err := repo.ListRecentMessages(ctx, s.DB, chatID, s.HistoryLimit)
	if err != nil {
		return nil, err
	}
	out := make([]llm.Message, 0, len(history)+1)
	out = append(out, llm.Message{Role: "system", Content: systemPrompt})
	for _, m := range history {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

// autoTitle asks the gateway for a short title derived from the first user
// message and applies it. Every failure here is swallowed: the exchange
// already succeeded and the chat simply keeps its previous title.
func (s *MessageService) autoTitle(ctx context.Context, chat *domain.Chat, firstMessage string) {
	raw, err := s.Gateway.Complete(ctx, llm.Request{
		Model: s.Model,
		Messages: []llm.Message{
			{Role: "system", Content: titlePrompt},
			{Role: "user", Content: firstMessage},
		},
		Temperature: defaultTemperature,
		MaxTokens:   titleMaxTokens,
	})
	if err != nil {
		log.Warn().Err(err).Str("chat_id", chat.ID).Msg("title generation failed")
		return
	}
	title := s.sanitizeTitle(raw)
	if title == "" {
		return
	}
	if err := repo.UpdateChatTitle(ctx, s.DB, chat.ID, chat.UserID, title); err != nil {
		log.Warn().Err(err).Str("chat_id", chat.ID).Msg("title update failed")
		return
	}
	chat.Title = title
}

// sanitizeTitle flattens the gateway's title onto one line, strips wrapping
// quotes and trailing punctuation, clips to TitleMaxLen runes, and applies
// English title casing.
func (s *MessageService) sanitizeTitle(raw string) string {
	t := strings.Join(strings.Fields(raw), " ")
	t = strings.Trim(t, `"'“”‘’`)
	t = strings.TrimRight(t, ".!?,;:…")
	t = strings.TrimSpace(t)
	if t == "" {
		return ""
	}
	max := s.TitleMaxLen
	if max <= 0 {
		max = 80
	}
	if utf8.RuneCountInString(t) > max {
		t = strings.TrimSpace(string([]rune(t)[:max]))
		t = strings.TrimRight(t, ".!?,;:…")
	}
	return titleCaser.String(t)
}

// titleCaser applies English title casing to generated titles.
var titleCaser = cases.Title(language.English, cases.NoLower)
