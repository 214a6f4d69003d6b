// Package services – ChatService
//
// This file implements the ChatService, which manages the lifecycle of chats.
// It validates and normalizes titles, enforces ownership rules, and
// coordinates repository operations for creating, listing (with limit/offset
// pagination), fetching, renaming, and deleting chats. Automatic title
// generation happens in MessageService on a chat's first exchange; here
// titles are only normalized and clipped.
//
// Ownership failures surface as ErrChatNotFound so a caller probing another
// user's chat id learns nothing about its existence.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/grork/ai-chat-backend/internal/domain"
	"github.com/grork/ai-chat-backend/internal/repo"
)

// ChatRepo defines the repository contract required by ChatService.
// Implementations are responsible for persistence of chat aggregates.
type ChatRepo interface {
	// CreateChat inserts a new chat row for the given user.
	CreateChat(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Chat, error)

	// GetChat fetches a chat by ID ensuring it belongs to the user.
	GetChat(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error)

	// GetChatAny fetches a chat by ID regardless of owner (admin paths).
	GetChatAny(ctx context.Context, db *gorm.DB, id string) (*domain.Chat, error)

	// UpdateChatTitle updates a chat's title (only if it belongs to the user).
	UpdateChatTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error

	// DeleteChat removes a chat and its messages, enforcing ownership.
	DeleteChat(ctx context.Context, db *gorm.DB, id, userID string) error

	// CountChats returns the total number of chats for pagination.
	CountChats(ctx context.Context, db *gorm.DB, userID string) (int64, error)

	// ListChatsPage returns a window of chats belonging to the user.
	ListChatsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Chat, error)

	// CountMessages returns the number of messages in a chat.
	CountMessages(ctx context.Context, db *gorm.DB, chatID string) (int64, error)

	// ChatsStats returns the chat count and latest activity time for a user.
	ChatsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error)
}

// ChatService provides chat-level operations such as creating, listing,
// renaming, and deleting chats. It enforces title rules and ownership
// constraints.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the chat repository used by this service.
	Repo ChatRepo

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
}

// NewChatService constructs a ChatService with the default title cap.
func NewChatService(db *gorm.DB, r ChatRepo) *ChatService {
	return &ChatService{DB: db, Repo: r, TitleMaxLen: 80}
}

// Create inserts a new chat owned by userID. The title is optional;
// a blank title stays empty until the first exchange auto-generates one.
func (s *ChatService) Create(ctx context.Context, userID, title string) (*domain.Chat, error) {
	title = normalizeTitle(title)
	return s.Repo.CreateChat(ctx, s.DB, userID, s.clip(title))
}

// ListPage returns a window of the user's chats ordered by last activity,
// plus the total count for that user independent of the window. Each chat
// carries its message count.
func (s *ChatService) ListPage(ctx context.Context, userID string, limit, offset int) ([]domain.Chat, int64, error) {
	limit, offset = clampWindow(limit, offset)

	total, err := s.Repo.CountChats(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Chat{}, 0, nil
	}

	items, err := s.Repo.ListChatsPage(ctx, s.DB, userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	if err := s.fillMessageCounts(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Get fetches a chat owned by userID, including its message count.
// Missing and not-owned chats are both reported as ErrChatNotFound.
func (s *ChatService) Get(ctx context.Context, userID, chatID string) (*domain.Chat, error) {
	chat, err := s.Repo.GetChat(ctx, s.DB, chatID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	n, err := s.Repo.CountMessages(ctx, s.DB, chat.ID)
	if err != nil {
		return nil, err
	}
	chat.MessageCount = n
	return chat, nil
}

// UpdateTitle renames a chat owned by userID and advances updated_at.
// Falls back to "Untitled" if the new title is blank.
func (s *ChatService) UpdateTitle(ctx context.Context, userID, chatID, title string) (*domain.Chat, error) {
	title = normalizeTitle(title)
	if title == "" {
		title = "Untitled"
	}
	if err := s.Repo.UpdateChatTitle(ctx, s.DB, chatID, userID, s.clip(title)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return s.Get(ctx, userID, chatID)
}

// Delete removes a chat owned by userID together with all of its messages.
func (s *ChatService) Delete(ctx context.Context, userID, chatID string) error {
	if err := s.Repo.DeleteChat(ctx, s.DB, chatID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChatNotFound
		}
		return err
	}
	return nil
}

// Stats returns the user's chat count and latest activity timestamp, used
// for conditional list responses. An empty collection yields a nil time.
func (s *ChatService) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return s.Repo.ChatsStats(ctx, s.DB, userID)
}

// ListPageFor returns a window of chats for an arbitrary owner. It backs
// the admin surface; the boundary must have verified the caller's role.
func (s *ChatService) ListPageFor(ctx context.Context, ownerID string, limit, offset int) ([]domain.Chat, int64, error) {
	return s.ListPage(ctx, ownerID, limit, offset)
}

// GetAny fetches a chat by id regardless of owner. Admin paths only.
func (s *ChatService) GetAny(ctx context.Context, chatID string) (*domain.Chat, error) {
	chat, err := s.Repo.GetChatAny(ctx, s.DB, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return chat, nil
}

func (s *ChatService) fillMessageCounts(ctx context.Context, chats []domain.Chat) error {
	for i := range chats {
		n, err := s.Repo.CountMessages(ctx, s.DB, chats[i].ID)
		if err != nil {
			return err
		}
		chats[i].MessageCount = n
	}
	return nil
}

// clip truncates a chat title to the configured maximum rune length.
func (s *ChatService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return string([]rune(title)[:s.TitleMaxLen])
	}
	return title
}

// clampWindow bounds limit/offset to sane values (defaults: 50, cap 100).
func clampWindow(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	s = whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
	return s
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// chatRepo adapts the repo package's free functions to the ChatRepo
// interface. This keeps the service decoupled from the concrete repo
// package while reusing the existing functions.
type chatRepo struct{}

// NewChatRepo returns the default repository implementation.
func NewChatRepo() ChatRepo { return chatRepo{} }

func (chatRepo) CreateChat(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Chat, error) {
	return repo.CreateChat(ctx, db, userID, title)
}

func (chatRepo) GetChat(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error) {
	return repo.GetChat(ctx, db, id, userID)
}

func (chatRepo) GetChatAny(ctx context.Context, db *gorm.DB, id string) (*domain.Chat, error) {
	return repo.GetChatAny(ctx, db, id)
}

func (chatRepo) UpdateChatTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error {
	return repo.UpdateChatTitle(ctx, db, id, userID, title)
}

func (chatRepo) DeleteChat(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteChat(ctx, db, id, userID)
}

func (chatRepo) CountChats(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountChats(ctx, db, userID)
}

func (chatRepo) ListChatsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Chat, error) {
	return repo.ListChatsPage(ctx, db, userID, offset, limit)
}

func (chatRepo) CountMessages(ctx context.Context, db *gorm.DB, chatID string) (int64, error) {
	return repo.CountMessages(ctx, db, chatID)
}

func (chatRepo) ChatsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	return repo.ChatsStats(ctx, db, userID)
}
