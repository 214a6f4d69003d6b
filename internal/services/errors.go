// Package services defines the business logic for identity, chats, and
// message exchanges. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked
// by callers.
//
// These errors are intended for internal use by the service layer; the
// handler layer translates them into HTTP statuses and stable error codes.
package services

import "errors"

// Identity errors.
var (
	// ErrEmailTaken indicates a registration attempt with an email that
	// already has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidEmail is returned when an email fails syntactic validation.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidPassword is returned when a password is outside the allowed
	// 8 character..72 byte window.
	ErrInvalidPassword = errors.New("password must be 8-72 bytes")

	// ErrInvalidCredentials covers both "no such email" and "wrong password"
	// so login failures never reveal whether an account exists.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserNotFound indicates that the referenced account does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidRole is returned when a role outside {user, admin} is supplied.
	ErrInvalidRole = errors.New("role must be 'user' or 'admin'")
)

// Session errors.
var (
	// ErrTokenInvalid indicates a malformed, tampered, or version-mismatched
	// session token.
	ErrTokenInvalid = errors.New("invalid session token")

	// ErrTokenExpired indicates a well-formed token past its expiry.
	ErrTokenExpired = errors.New("session token expired")
)

// Conversation errors.
var (
	// ErrChatNotFound indicates that the requested chat does not exist or is
	// not accessible to the current user. Ownership failures are deliberately
	// indistinguishable from absence.
	ErrChatNotFound = errors.New("chat not found")

	// ErrEmptyMessage is returned when an exchange carries an empty message.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when a message exceeds the configured
	// maximum length.
	ErrMessageTooLong = errors.New("message too long")

	// ErrProviderUnavailable is returned when the completion gateway fails
	// for any reason; the exchange is not retried.
	ErrProviderUnavailable = errors.New("completion provider unavailable")
)
