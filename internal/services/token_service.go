// Package services – TokenService
//
// Signed bearer session tokens. A token encodes the account id (sub), the
// account's token version (ver), and an absolute expiry; it is signed with
// the server secret using an HMAC algorithm chosen at configuration time.
// Bumping a user's token version invalidates every token issued before the
// bump without any server-side session state.
package services

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/grork/ai-chat-backend/internal/domain"
)

// SessionClaims is the JWT payload carried by a session token.
type SessionClaims struct {
	TokenVersion int `json:"ver"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies session tokens.
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

// NewTokenService constructs a TokenService. algorithm selects the HMAC
// variant (HS256, HS384, HS512); anything else falls back to HS256. A
// non-positive ttl gets the 60 minute default.
func NewTokenService(secret, algorithm string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 60 * time.Minute
	}
	var method jwt.SigningMethod
	switch strings.ToUpper(strings.TrimSpace(algorithm)) {
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		method = jwt.SigningMethodHS256
	}
	return &TokenService{secret: []byte(secret), method: method, ttl: ttl}
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a session token for the user with expiry now+TTL. The token
// embeds the user's current token version.
func (s *TokenService) Issue(user *domain.User) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
}

// Verify checks signature and expiry and returns the parsed claims.
// Expired tokens yield ErrTokenExpired; every other failure (bad signature,
// wrong algorithm, malformed payload, missing subject) yields ErrTokenInvalid.
func (s *TokenService) Verify(token string) (*SessionClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenInvalid
	}
	var claims SessionClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{s.method.Alg()}))
	if _, err := parser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	}); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}
