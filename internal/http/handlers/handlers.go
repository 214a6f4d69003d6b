// Service contracts and handler wiring.
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results (including sentinel errors) into HTTP
// responses. They depend on abstract service interfaces to keep transport
// concerns separate from business logic.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/grork/ai-chat-backend/internal/domain"
	"github.com/grork/ai-chat-backend/internal/http/middleware"
	"github.com/grork/ai-chat-backend/internal/services"
	"github.com/grork/ai-chat-backend/internal/utils"
)

// UserService defines the account operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type UserService interface {
	// Register creates an account with a user role.
	Register(ctx context.Context, email, password string) (*domain.User, error)
	// Login verifies credentials and issues a session token.
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	// SetRole changes a user's role and returns the updated account.
	SetRole(ctx context.Context, userID, role string) (*domain.User, error)
	// ListPage returns a page of accounts and the total count.
	ListPage(ctx context.Context, limit, offset int) ([]domain.User, int64, error)
	// RevokeSessions invalidates every outstanding token for the account.
	RevokeSessions(ctx context.Context, userID string) error
}

// ChatService defines chat lifecycle operations consumed by HTTP handlers.
type ChatService interface {
	Create(ctx context.Context, userID, title string) (*domain.Chat, error)
	ListPage(ctx context.Context, userID string, limit, offset int) ([]domain.Chat, int64, error)
	Get(ctx context.Context, userID, chatID string) (*domain.Chat, error)
	UpdateTitle(ctx context.Context, userID, chatID, title string) (*domain.Chat, error)
	Delete(ctx context.Context, userID, chatID string) error

	// Stats backs conditional list responses.
	Stats(ctx context.Context, userID string) (int64, *time.Time, error)

	// Admin variants, not scoped to the caller.
	ListPageFor(ctx context.Context, ownerID string, limit, offset int) ([]domain.Chat, int64, error)
	GetAny(ctx context.Context, chatID string) (*domain.Chat, error)
}

// MessageService defines transcript retrieval and the exchange operation.
type MessageService interface {
	// ExchangeWithKey appends a user turn, obtains the assistant reply, and
	// returns the (possibly newly created) chat together with the reply.
	// A non-empty key makes the operation safe to retry; the bool reports
	// whether a stored outcome was replayed.
	ExchangeWithKey(ctx context.Context, userID, chatID, text, key string) (*domain.Chat, string, bool, error)
	ListPage(ctx context.Context, userID, chatID string, limit int) ([]domain.Message, error)
	ListPageAny(ctx context.Context, chatID string, limit int) ([]domain.Message, error)

	// Stats backs conditional transcript responses.
	Stats(ctx context.Context, userID, chatID string) (int64, *time.Time, error)
}

// Handlers groups the HTTP endpoints for auth, chats, exchanges, and admin.
type Handlers struct {
	userSvc  UserService
	chatSvc  ChatService
	msgSvc   MessageService
	tokenTTL time.Duration
}

// New constructs a Handlers instance bound to the given services. tokenTTL
// is surfaced as expires_in on token responses.
func New(userSvc UserService, chatSvc ChatService, msgSvc MessageService, tokenTTL time.Duration) *Handlers {
	return &Handlers{userSvc: userSvc, chatSvc: chatSvc, msgSvc: msgSvc, tokenTTL: tokenTTL}
}

// userID extracts the authenticated user id set by the auth middleware.
func userID(c *gin.Context) string {
	return middleware.UserIDFrom(c)
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

// clampListWindow parses and bounds the limit and offset query params.
func clampListWindow(c *gin.Context) (limit, offset int) {
	const (
		defaultLimit = 50
		maxLimit     = 100
	)
	limit = utils.AtoiDefault(c.Query("limit"), defaultLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset = utils.AtoiDefault(c.Query("offset"), 0)
	if offset < 0 {
		offset = 0
	}
	return
}

// listETag derives a weak validator from a collection's row count and
// freshest timestamp. Any insert, delete, rename, or exchange changes one
// of the two, so a matching If-None-Match is safe to answer with 304.
func listETag(count int64, latest *time.Time) string {
	if latest == nil {
		return fmt.Sprintf(`W/"%d-0"`, count)
	}
	return fmt.Sprintf(`W/"%d-%d"`, count, latest.UnixNano())
}

// notModified reports whether the request's If-None-Match matches etag, and
// answers 304 when it does. The ETag header is set either way.
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	if match := strings.TrimSpace(c.GetHeader("If-None-Match")); match != "" && match == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// failFor maps service sentinel errors onto HTTP responses. Unrecognized
// errors become opaque 500s so internals never leak to clients.
func failFor(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrChatNotFound), errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrInvalidPassword),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrMessageTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
	case errors.Is(err, services.ErrProviderUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeProviderUnavailable, "completion provider unavailable")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
