// Package services – UserService
//
// Account lifecycle: registration with credential policy enforcement,
// authentication, session resolution, and the admin role operations.
// Credentials are stored only as bcrypt hashes; the comparison path never
// distinguishes "no such email" from "wrong password".
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/grork/ai-chat-backend/internal/domain"
	"github.com/grork/ai-chat-backend/internal/repo"
)

const (
	minPasswordLen   = 8
	maxPasswordBytes = 72 // bcrypt input limit
)

// emailRE is a pragmatic syntactic check; deliverability is out of scope.
var emailRE = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// UserService provides account operations over the durable store.
type UserService struct {
	DB     *gorm.DB
	Tokens *TokenService
}

// NewUserService constructs a UserService bound to db and the token service.
func NewUserService(db *gorm.DB, tokens *TokenService) *UserService {
	return &UserService{DB: db, Tokens: tokens}
}

// Register creates an account for email with a hashed credential. The email
// must be syntactically valid and unused; the password must be within the
// 8 character..72 byte policy window.
func (s *UserService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRE.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLen || len([]byte(password)) > maxPasswordBytes {
		return nil, ErrInvalidPassword
	}

	if _, err := repo.GetUserByEmail(ctx, s.DB, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user, err := repo.CreateUser(ctx, s.DB, email, string(hash), domain.RoleUser)
	if err != nil {
		// A concurrent registration can slip past the lookup; the unique
		// index is the arbiter.
		return nil, ErrEmailTaken
	}
	return user, nil
}

// Authenticate verifies email+password and returns the account. Unknown
// emails and wrong passwords produce the identical ErrInvalidCredentials so
// the failure signal cannot be used for account enumeration.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a session token for the account.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", err
	}
	token, err := s.Tokens.Issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Resolve verifies a session token and loads the account it asserts.
// Tokens carrying a stale token version are rejected as invalid, which is
// how a version bump revokes every previously issued token at once.
func (s *UserService) Resolve(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.Tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := repo.GetUserByID(ctx, s.DB, claims.Subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if claims.TokenVersion != user.TokenVersion {
		return nil, ErrTokenInvalid
	}
	return user, nil
}

// SetRole updates an account's role. Only {user, admin} are accepted; the
// caller's admin privilege is enforced at the boundary, not here.
func (s *UserService) SetRole(ctx context.Context, userID, role string) (*domain.User, error) {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, ErrInvalidRole
	}
	if err := repo.UpdateUserRole(ctx, s.DB, userID, role); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return repo.GetUserByID(ctx, s.DB, userID)
}

// ListPage returns a page of accounts (created_at desc) plus the total count.
func (s *UserService) ListPage(ctx context.Context, limit, offset int) ([]domain.User, int64, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	total, err := repo.CountUsers(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	users, err := repo.ListUsersPage(ctx, s.DB, offset, limit)
	return users, total, err
}

// RevokeSessions invalidates every outstanding token for the account by
// bumping its token version.
func (s *UserService) RevokeSessions(ctx context.Context, userID string) error {
	if err := repo.BumpTokenVersion(ctx, s.DB, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}
