// Admin HTTP handlers.
//
// This file exposes the operator surface, mounted behind RequireAdmin:
//   - GET   /admin/users                 (list accounts, paginated)
//   - PATCH /admin/users/{id}/role       (promote or demote)
//   - DELETE /admin/users/{id}/sessions  (revoke all tokens)
//   - GET   /admin/users/{id}/chats      (any user's chats)
//   - GET   /admin/chats/{id}/messages   (any chat's transcript)
//
// MakeAdmin backs the development-only bootstrap route used to mint the
// first admin; the router only mounts it when APP_ENV=development.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/grork/ai-chat-backend/internal/domain"
	"github.com/grork/ai-chat-backend/internal/http/middleware"
)

// UpdateRoleRequest is the JSON payload for changing a user's role.
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required" example:"admin"`
}

// ListUsersResponse wraps a page of accounts and pagination information.
type ListUsersResponse struct {
	Users      []domain.User `json:"users"`
	Pagination Pagination    `json:"pagination"`
}

// userIDParam validates the :id path parameter as a UUID.
func userIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be a UUID")
		return "", false
	}
	return id, true
}

// ListUsers godoc
// @ID          adminListUsers
// @Summary     List accounts
// @Description Returns a page of all registered accounts, newest first.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Param       limit   query  int  false  "Page size"     minimum(1) maximum(100) default(50)
// @Param       offset  query  int  false  "Rows to skip"  minimum(0) default(0)
//
// @Success     200  {object}  handlers.ListUsersResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Admin privileges required"
// @Router      /admin/users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	limit, offset := clampListWindow(c)

	users, total, err := h.userSvc.ListPage(c.Request.Context(), limit, offset)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusOK, ListUsersResponse{
		Users:      users,
		Pagination: Pagination{Limit: limit, Offset: offset, Total: total},
	})
}

// UpdateUserRole godoc
// @ID          adminUpdateUserRole
// @Summary     Change a user's role
// @Description Sets the role of the target account to user or admin and returns the updated account.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string  true  "User ID (UUID)"  format(uuid)
// @Param       body  body  handlers.UpdateRoleRequest  true  "New role"
//
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown role"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /admin/users/{id}/role [patch]
func (h *Handlers) UpdateUserRole(c *gin.Context) {
	id, valid := userIDParam(c)
	if !valid {
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "role required")
		return
	}

	user, err := h.userSvc.SetRole(c.Request.Context(), id, req.Role)
	if err != nil {
		failFor(c, err)
		return
	}

	lg := middleware.LoggerFrom(c)
	lg.Info().Str("target_user_id", id).Str("role", user.Role).Msg("role changed")
	ok(c, http.StatusOK, user)
}

// ListUserChats godoc
// @ID          adminListUserChats
// @Summary     List any user's chats
// @Description Returns a page of the target user's chats ordered by last activity.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Param       id      path   string  true   "User ID (UUID)"  format(uuid)
// @Param       limit   query  int     false  "Page size"     minimum(1) maximum(100) default(50)
// @Param       offset  query  int     false  "Rows to skip"  minimum(0) default(0)
//
// @Success     200  {object}  handlers.ListChatsResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Admin privileges required"
// @Router      /admin/users/{id}/chats [get]
func (h *Handlers) ListUserChats(c *gin.Context) {
	id, valid := userIDParam(c)
	if !valid {
		return
	}
	limit, offset := clampListWindow(c)

	items, total, err := h.chatSvc.ListPageFor(c.Request.Context(), id, limit, offset)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusOK, ListChatsResponse{
		Chats:      items,
		Pagination: Pagination{Limit: limit, Offset: offset, Total: total},
	})
}

// ListChatMessagesAny godoc
// @ID          adminListChatMessages
// @Summary     List any chat's transcript
// @Description Returns the transcript of any chat in creation order, regardless of owner.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Param       id     path   string  true   "Chat ID (UUID)"  format(uuid)
// @Param       limit  query  int     false  "Maximum messages to return (0 = all)"
//
// @Success     200  {object}  handlers.ListMessagesResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Chat not found"
// @Router      /admin/chats/{id}/messages [get]
func (h *Handlers) ListChatMessagesAny(c *gin.Context) {
	id, valid := chatIDParam(c)
	if !valid {
		return
	}

	if _, err := h.chatSvc.GetAny(c.Request.Context(), id); err != nil {
		failFor(c, err)
		return
	}
	msgs, err := h.msgSvc.ListPageAny(c.Request.Context(), id, 0)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: msgs})
}

// RevokeUserSessions godoc
// @ID          adminRevokeUserSessions
// @Summary     Revoke a user's sessions
// @Description Invalidates every outstanding token for the target account by bumping its token version.
// @Tags        Admin
// @Security    BearerAuth
//
// @Param       id  path  string  true  "User ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /admin/users/{id}/sessions [delete]
func (h *Handlers) RevokeUserSessions(c *gin.Context) {
	id, valid := userIDParam(c)
	if !valid {
		return
	}

	if err := h.userSvc.RevokeSessions(c.Request.Context(), id); err != nil {
		failFor(c, err)
		return
	}

	lg := middleware.LoggerFrom(c)
	lg.Info().Str("target_user_id", id).Msg("sessions revoked")
	noContent(c)
}

// MakeAdmin grants the admin role to the target account. It exists to mint
// the first admin of a fresh deployment and is only routed in development.
func (h *Handlers) MakeAdmin(c *gin.Context) {
	id, valid := userIDParam(c)
	if !valid {
		return
	}

	user, err := h.userSvc.SetRole(c.Request.Context(), id, domain.RoleAdmin)
	if err != nil {
		failFor(c, err)
		return
	}

	lg := middleware.LoggerFrom(c)
	lg.Warn().Str("target_user_id", id).Msg("bootstrap admin granted")
	ok(c, http.StatusOK, user)
}
