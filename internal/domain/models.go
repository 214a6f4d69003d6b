// Package domain defines the persistence models for users, chats, and
// messages. These types are mapped with GORM and form the core data layer
// of the chat backend.
package domain

import (
	"time"
)

// Role values stored in users.role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Message author roles stored in messages.role.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// User is an account that can authenticate and own chats.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: unique login identifier.
//   - PasswordHash: bcrypt hash of the credential; never serialized.
//   - Role: "user" or "admin" (enforced by DB constraint).
//   - TokenVersion: bumped to invalidate every outstanding session token.
//   - CreatedAt: timestamp managed by GORM.
//
// Users are never deleted; only Role and TokenVersion are ever mutated.
type User struct {
	ID           string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Email        string    `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(255);not null"`
	Role         string    `json:"role"       gorm:"type:varchar(16);not null;default:'user';check:role IN ('user','admin')"`
	TokenVersion int       `json:"-"          gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Chat represents a conversation owned by exactly one user. The title is
// empty until the owner sets one or the first exchange auto-generates it.
//
// UpdatedAt advances whenever a message is appended, so listings ordered by
// UpdatedAt surface the most recently active conversation first.
type Chat struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;index:idx_user_chats"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null;default:''"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// MessageCount is computed for list/get responses; it is not a column.
	MessageCount int64 `json:"message_count" gorm:"-"`
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// Message is a single utterance within a chat, authored either by the
// "user" or the "assistant". Messages are immutable once created; the
// autoincrement ID is a store-wide sequence used to break creation-time
// ordering ties. Messages are removed only when their chat is deleted.
type Message struct {
	ID        uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	ChatID    string    `json:"chat_id"    gorm:"type:char(36);not null;index:idx_chat_msgs,priority:1"`
	Role      string    `json:"role"       gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_chat_msgs,priority:2"`

	// Chat is the parent conversation. Messages are cascade-deleted
	// if their chat is removed.
	Chat Chat `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
