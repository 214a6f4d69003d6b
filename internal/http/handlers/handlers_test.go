package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/grork/ai-chat-backend/internal/domain"
	"github.com/grork/ai-chat-backend/internal/http/middleware"
	"github.com/grork/ai-chat-backend/internal/services"
)

const (
	testUserID = "11111111-1111-4111-8111-111111111111"
	testChatID = "22222222-2222-4222-8222-222222222222"
)

// fakeUserService is a canned-response UserService capturing its inputs.
type fakeUserService struct {
	user  *domain.User
	token string
	users []domain.User
	total int64
	err   error

	gotEmail    string
	gotPassword string
	gotUserID   string
	gotRole     string
	gotLimit    int
	gotOffset   int
}

func (f *fakeUserService) Register(_ context.Context, email, password string) (*domain.User, error) {
	f.gotEmail, f.gotPassword = email, password
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeUserService) Login(_ context.Context, email, password string) (*domain.User, string, error) {
	f.gotEmail, f.gotPassword = email, password
	if f.err != nil {
		return nil, "", f.err
	}
	return f.user, f.token, nil
}

func (f *fakeUserService) SetRole(_ context.Context, userID, role string) (*domain.User, error) {
	f.gotUserID, f.gotRole = userID, role
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeUserService) ListPage(_ context.Context, limit, offset int) ([]domain.User, int64, error) {
	f.gotLimit, f.gotOffset = limit, offset
	return f.users, f.total, f.err
}

func (f *fakeUserService) RevokeSessions(_ context.Context, userID string) error {
	f.gotUserID = userID
	return f.err
}

// fakeChatService is a canned-response ChatService capturing its inputs.
type fakeChatService struct {
	chat        *domain.Chat
	chats       []domain.Chat
	total       int64
	statsCount  int64
	statsLatest *time.Time
	err         error

	gotUserID string
	gotChatID string
	gotTitle  string
	gotLimit  int
	gotOffset int
}

func (f *fakeChatService) Create(_ context.Context, userID, title string) (*domain.Chat, error) {
	f.gotUserID, f.gotTitle = userID, title
	if f.err != nil {
		return nil, f.err
	}
	return f.chat, nil
}

func (f *fakeChatService) ListPage(_ context.Context, userID string, limit, offset int) ([]domain.Chat, int64, error) {
	f.gotUserID, f.gotLimit, f.gotOffset = userID, limit, offset
	return f.chats, f.total, f.err
}

func (f *fakeChatService) Get(_ context.Context, userID, chatID string) (*domain.Chat, error) {
	f.gotUserID, f.gotChatID = userID, chatID
	if f.err != nil {
		return nil, f.err
	}
	return f.chat, nil
}

func (f *fakeChatService) UpdateTitle(_ context.Context, userID, chatID, title string) (*domain.Chat, error) {
	f.gotUserID, f.gotChatID, f.gotTitle = userID, chatID, title
	if f.err != nil {
		return nil, f.err
	}
	return f.chat, nil
}

func (f *fakeChatService) Delete(_ context.Context, userID, chatID string) error {
	f.gotUserID, f.gotChatID = userID, chatID
	return f.err
}

func (f *fakeChatService) ListPageFor(_ context.Context, ownerID string, limit, offset int) ([]domain.Chat, int64, error) {
	f.gotUserID, f.gotLimit, f.gotOffset = ownerID, limit, offset
	return f.chats, f.total, f.err
}

func (f *fakeChatService) GetAny(_ context.Context, chatID string) (*domain.Chat, error) {
	f.gotChatID = chatID
	if f.err != nil {
		return nil, f.err
	}
	return f.chat, nil
}

func (f *fakeChatService) Stats(_ context.Context, userID string) (int64, *time.Time, error) {
	if f.err != nil {
		return 0, nil, f.err
	}
	return f.statsCount, f.statsLatest, nil
}

// fakeMessageService is a canned-response MessageService capturing its inputs.
type fakeMessageService struct {
	chat        *domain.Chat
	reply       string
	replayed    bool
	messages    []domain.Message
	statsCount  int64
	statsLatest *time.Time
	err         error

	gotUserID string
	gotChatID string
	gotText   string
	gotKey    string
	gotLimit  int
}

func (f *fakeMessageService) ExchangeWithKey(_ context.Context, userID, chatID, text, key string) (*domain.Chat, string, bool, error) {
	f.gotUserID, f.gotChatID, f.gotText, f.gotKey = userID, chatID, text, key
	if f.err != nil {
		return nil, "", false, f.err
	}
	return f.chat, f.reply, f.replayed, nil
}

func (f *fakeMessageService) ListPage(_ context.Context, userID, chatID string, limit int) ([]domain.Message, error) {
	f.gotUserID, f.gotChatID, f.gotLimit = userID, chatID, limit
	return f.messages, f.err
}

func (f *fakeMessageService) ListPageAny(_ context.Context, chatID string, limit int) ([]domain.Message, error) {
	f.gotChatID, f.gotLimit = chatID, limit
	return f.messages, f.err
}

func (f *fakeMessageService) Stats(_ context.Context, userID, chatID string) (int64, *time.Time, error) {
	if f.err != nil {
		return 0, nil, f.err
	}
	return f.statsCount, f.statsLatest, nil
}

// authAs simulates the auth middleware having resolved the given user.
func authAs(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", id)
		c.Next()
	}
}

// newTestRouter mounts the handlers the way the production router does, with
// a stubbed authenticated identity.
func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), authAs(testUserID))

	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/token", h.Token)

	r.POST("/chats", h.CreateChat)
	r.GET("/chats", h.ListChats)
	r.GET("/chats/:id", h.GetChat)
	r.PATCH("/chats/:id", h.UpdateChat)
	r.DELETE("/chats/:id", h.DeleteChat)
	r.GET("/chats/:id/messages", h.ListMessages)
	r.POST("/chat", middleware.IdempotencyKey(), h.Exchange)

	r.GET("/admin/users", h.ListUsers)
	r.PATCH("/admin/users/:id/role", h.UpdateUserRole)
	r.DELETE("/admin/users/:id/sessions", h.RevokeUserSessions)
	r.GET("/admin/users/:id/chats", h.ListUserChats)
	r.GET("/admin/chats/:id/messages", h.ListChatMessagesAny)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newFormRequest(t *testing.T, path string, form url.Values) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func serveReq(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestFailFor_SentinelMapping(t *testing.T) {
	cases := []struct {
		err      error
		status   int
		code     string
		verbatim bool
	}{
		{services.ErrChatNotFound, http.StatusNotFound, ErrCodeNotFound, true},
		{services.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound, true},
		{services.ErrEmailTaken, http.StatusConflict, ErrCodeConflict, true},
		{services.ErrInvalidEmail, http.StatusBadRequest, ErrCodeBadRequest, true},
		{services.ErrInvalidPassword, http.StatusBadRequest, ErrCodeBadRequest, true},
		{services.ErrInvalidRole, http.StatusBadRequest, ErrCodeBadRequest, true},
		{services.ErrEmptyMessage, http.StatusBadRequest, ErrCodeBadRequest, true},
		{services.ErrMessageTooLong, http.StatusBadRequest, ErrCodeBadRequest, true},
		{services.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeUnauthorized, true},
		{services.ErrProviderUnavailable, http.StatusServiceUnavailable, ErrCodeProviderUnavailable, true},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, ErrCodeInternal, false},
	}

	gin.SetMode(gin.TestMode)
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		failFor(c, tc.err)

		if w.Code != tc.status {
			t.Fatalf("%v: status = %d, want %d", tc.err, w.Code, tc.status)
		}
		var resp ErrorResponse
		decodeBody(t, w, &resp)
		if resp.Code != tc.code {
			t.Fatalf("%v: code = %q, want %q", tc.err, resp.Code, tc.code)
		}
		if tc.verbatim && resp.Message != tc.err.Error() {
			t.Fatalf("%v: message = %q", tc.err, resp.Message)
		}
		if !tc.verbatim && strings.Contains(resp.Message, "pq:") {
			t.Fatalf("internal error detail leaked: %q", resp.Message)
		}
	}
}

func TestClampListWindow(t *testing.T) {
	cases := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 50, 0},
		{"limit=10&offset=5", 10, 5},
		{"limit=0", 1, 0},
		{"limit=-3&offset=-9", 1, 0},
		{"limit=500", 100, 0},
		{"limit=abc&offset=xyz", 50, 0},
	}

	gin.SetMode(gin.TestMode)
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)

		limit, offset := clampListWindow(c)
		if limit != tc.wantLimit || offset != tc.wantOffset {
			t.Fatalf("query %q: window = (%d,%d), want (%d,%d)",
				tc.query, limit, offset, tc.wantLimit, tc.wantOffset)
		}
	}
}

func newHandlersWith(u *fakeUserService, ch *fakeChatService, m *fakeMessageService) *Handlers {
	if u == nil {
		u = &fakeUserService{}
	}
	if ch == nil {
		ch = &fakeChatService{}
	}
	if m == nil {
		m = &fakeMessageService{}
	}
	return New(u, ch, m, time.Hour)
}
