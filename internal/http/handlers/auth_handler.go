// Auth HTTP handlers.
//
// This file exposes the identity endpoints:
//   - POST /auth/register  (create account)
//   - POST /auth/login     (JSON credentials -> bearer token)
//   - POST /auth/token     (form credentials -> bearer token, OAuth2
//     password-flow compatible for API tooling)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:"hunter2hunter2"`
}

// LoginRequest is the JSON payload for obtaining a session token.
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:"hunter2hunter2"`
}

// TokenResponse is returned by the login and token endpoints.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type" example:"bearer"`
	ExpiresIn   int64  `json:"expires_in" example:"3600"`
}

// Register godoc
// @ID          register
// @Summary     Register a new account
// @Description Creates an account with the user role. Email is matched case-insensitively.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RegisterRequest  true  "Credentials"
//
// @Success     201  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid email or password policy violation"
// @Failure     409  {object}  handlers.ErrorResponse  "Email already registered"
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	user, err := h.userSvc.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusCreated, user)
}

// Login godoc
// @ID          login
// @Summary     Obtain a session token
// @Description Verifies credentials and returns a bearer token. Unknown email and wrong password are indistinguishable.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LoginRequest  true  "Credentials"
//
// @Success     200  {object}  handlers.TokenResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid credentials"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	h.issueToken(c, req.Email, req.Password)
}

// Token godoc
// @ID          token
// @Summary     Obtain a session token (form flow)
// @Description Form-encoded variant of /auth/login. Accepts username/password fields so OAuth2 password-flow tooling works out of the box.
// @Tags        Auth
// @Accept      x-www-form-urlencoded
// @Produce     json
//
// @Param       username  formData  string  true  "Email address"
// @Param       password  formData  string  true  "Password"
//
// @Success     200  {object}  handlers.TokenResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid credentials"
// @Router      /auth/token [post]
func (h *Handlers) Token(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	if email == "" || password == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and password required")
		return
	}
	h.issueToken(c, email, password)
}

// issueToken authenticates and writes the common token envelope.
func (h *Handlers) issueToken(c *gin.Context, email, password string) {
	_, token, err := h.userSvc.Login(c.Request.Context(), email, password)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.tokenTTL.Seconds()),
	})
}
