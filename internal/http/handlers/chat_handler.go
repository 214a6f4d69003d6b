// Chat HTTP handlers.
//
// This file exposes REST endpoints for the caller's own chat resources:
//   - POST   /chats               (create)
//   - GET    /chats               (list, paginated)
//   - GET    /chats/{id}          (fetch one)
//   - PATCH  /chats/{id}          (rename)
//   - DELETE /chats/{id}          (delete with messages)
//   - GET    /chats/{id}/messages (transcript, chronological)
//   - POST   /chat                (exchange: user turn -> assistant reply)
//
// Every chat lookup is scoped to the authenticated owner; a chat that exists
// but belongs to someone else is reported as 404, never 403.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/grork/ai-chat-backend/internal/domain"
	"github.com/grork/ai-chat-backend/internal/http/middleware"
	"github.com/grork/ai-chat-backend/internal/utils"
)

// CreateChatRequest is the JSON payload for creating a chat.
type CreateChatRequest struct {
	// Title optionally names the chat; left empty it is auto-titled after
	// the first exchange.
	Title string `json:"title" example:"Trip planning"`
}

// UpdateChatRequest is the JSON payload for renaming a chat.
type UpdateChatRequest struct {
	Title string `json:"title" binding:"required" example:"Trip planning v2"`
}

// ListChatsResponse wraps a page of chats and pagination information.
type ListChatsResponse struct {
	Chats      []domain.Chat `json:"chats"`
	Pagination Pagination    `json:"pagination"`
}

// ListMessagesResponse wraps a chat transcript in creation order.
type ListMessagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

// ExchangeRequest is the JSON payload for a conversational exchange.
type ExchangeRequest struct {
	// ChatID targets an existing chat; omitted or empty starts a new one.
	ChatID  string `json:"chat_id,omitempty" format:"uuid"`
	Message string `json:"message" binding:"required" example:"What should I see in Lisbon?"`
}

// ExchangeResponse carries the assistant reply and the chat it landed in.
type ExchangeResponse struct {
	ChatID string `json:"chat_id"`
	Reply  string `json:"reply"`
}

// chatIDParam validates the :id path parameter as a UUID.
func chatIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat id must be a UUID")
		return "", false
	}
	return id, true
}

// CreateChat godoc
// @ID          createChat
// @Summary     Create a new chat
// @Description Creates a chat for the current user and returns the chat resource.
// @Tags        Chats
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.CreateChatRequest  true  "Create chat payload"
//
// @Success     201  {object}  domain.Chat
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /chats [post]
func (h *Handlers) CreateChat(c *gin.Context) {
	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ch, err := h.chatSvc.Create(c.Request.Context(), userID(c), strings.TrimSpace(req.Title))
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusCreated, ch)
}

// ListChats godoc
// @ID          listChats
// @Summary     List chats (paginated)
// @Description Returns a page of the user's chats ordered by last activity, newest first. Total is independent of the window.
// @Tags        Chats
// @Produce     json
// @Security    BearerAuth
//
// @Param       limit   query  int  false  "Page size"  minimum(1) maximum(100) default(50)
// @Param       offset  query  int  false  "Rows to skip"  minimum(0) default(0)
//
// @Success     200  {object}  handlers.ListChatsResponse
// @Success     304  {string}  string  "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /chats [get]
func (h *Handlers) ListChats(c *gin.Context) {
	limit, offset := clampListWindow(c)

	// Stats failures only disable the conditional path.
	if count, latest, err := h.chatSvc.Stats(c.Request.Context(), userID(c)); err == nil {
		if notModified(c, listETag(count, latest)) {
			return
		}
	}

	items, total, err := h.chatSvc.ListPage(c.Request.Context(), userID(c), limit, offset)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusOK, ListChatsResponse{
		Chats:      items,
		Pagination: Pagination{Limit: limit, Offset: offset, Total: total},
	})
}

// GetChat godoc
// @ID          getChat
// @Summary     Fetch a chat
// @Description Returns a chat owned by the current user, including its message count.
// @Tags        Chats
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Chat ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Chat
// @Failure     404  {object}  handlers.ErrorResponse  "Chat not found"
// @Router      /chats/{id} [get]
func (h *Handlers) GetChat(c *gin.Context) {
	id, valid := chatIDParam(c)
	if !valid {
		return
	}

	ch, err := h.chatSvc.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusOK, ch)
}

// UpdateChat godoc
// @ID          updateChat
// @Summary     Rename a chat
// @Description Updates the title of a chat owned by the current user and returns the updated resource.
// @Tags        Chats
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string  true  "Chat ID (UUID)"  format(uuid)
// @Param       body  body  handlers.UpdateChatRequest  true  "New title"
//
// @Success     200  {object}  domain.Chat
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Chat not found"
// @Router      /chats/{id} [patch]
func (h *Handlers) UpdateChat(c *gin.Context) {
	id, valid := chatIDParam(c)
	if !valid {
		return
	}

	var req UpdateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required")
		return
	}

	ch, err := h.chatSvc.UpdateTitle(c.Request.Context(), userID(c), id, req.Title)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusOK, ch)
}

// DeleteChat godoc
// @ID          deleteChat
// @Summary     Delete a chat
// @Description Deletes a chat owned by the current user along with all of its messages.
// @Tags        Chats
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Chat ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Chat not found"
// @Router      /chats/{id} [delete]
func (h *Handlers) DeleteChat(c *gin.Context) {
	id, valid := chatIDParam(c)
	if !valid {
		return
	}

	if err := h.chatSvc.Delete(c.Request.Context(), userID(c), id); err != nil {
		failFor(c, err)
		return
	}
	noContent(c)
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List chat messages
// @Description Returns the transcript of a chat owned by the current user in creation order.
// @Tags        Chats
// @Produce     json
// @Security    BearerAuth
//
// @Param       id     path   string  true   "Chat ID (UUID)"  format(uuid)
// @Param       limit  query  int     false  "Maximum messages to return (0 = all)"
//
// @Success     200  {object}  handlers.ListMessagesResponse
// @Success     304  {string}  string  "Not Modified"
// @Failure     404  {object}  handlers.ErrorResponse  "Chat not found"
// @Router      /chats/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	id, valid := chatIDParam(c)
	if !valid {
		return
	}
	limit := utils.AtoiDefault(c.Query("limit"), 0)
	if limit < 0 {
		limit = 0
	}

	count, latest, err := h.msgSvc.Stats(c.Request.Context(), userID(c), id)
	if err != nil {
		failFor(c, err)
		return
	}
	if notModified(c, listETag(count, latest)) {
		return
	}

	msgs, err := h.msgSvc.ListPage(c.Request.Context(), userID(c), id, limit)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: msgs})
}

// Exchange godoc
// @ID          exchange
// @Summary     Send a message and receive the assistant reply
// @Description Appends the user turn, forwards the bounded transcript to the completion provider, stores the reply, and auto-titles new chats. Omit chat_id to start a new chat. Retries carrying the same Idempotency-Key replay the stored reply.
// @Tags        Chat
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false  "Safe-retry key"
// @Param       body  body  handlers.ExchangeRequest  true  "User message"
//
// @Success     200  {object}  handlers.ExchangeResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Empty or oversized message"
// @Failure     404  {object}  handlers.ErrorResponse  "Chat not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Completion provider unavailable"
// @Router      /chat [post]
func (h *Handlers) Exchange(c *gin.Context) {
	var req ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.ChatID != "" {
		if _, err := uuid.Parse(req.ChatID); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat_id must be a UUID")
			return
		}
	}

	key := middleware.IdempotencyKeyFrom(c)
	ch, reply, replayed, err := h.msgSvc.ExchangeWithKey(c.Request.Context(), userID(c), req.ChatID, req.Message, key)
	if err != nil {
		failFor(c, err)
		return
	}
	if replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	ok(c, http.StatusOK, ExchangeResponse{ChatID: ch.ID, Reply: reply})
}
