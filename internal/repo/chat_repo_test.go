package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/grork/ai-chat-backend/internal/domain"
)

func newChatRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("chat_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestCreateChat_PersistsAndSetsFields(t *testing.T) {
	db := newChatRepoDB(t, &domain.Chat{})

	start := time.Now().UTC().Add(-time.Minute)
	chat, err := CreateChat(context.Background(), db, "u1", "Trip planning")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	if chat.ID == "" || chat.UserID != "u1" || chat.Title != "Trip planning" {
		t.Fatalf("unexpected chat fields: %+v", chat)
	}
	if chat.CreatedAt.Before(start) || chat.UpdatedAt.Before(start) {
		t.Fatalf("timestamps seem unset: %+v", chat)
	}
}

func TestGetChat_ScopedToOwner(t *testing.T) {
	db := newChatRepoDB(t, &domain.Chat{})
	ctx := context.Background()

	chat, err := CreateChat(ctx, db, "owner", "")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}

	if _, err := GetChat(ctx, db, chat.ID, "owner"); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	// A foreign owner's lookup is indistinguishable from a missing row.
	if _, err := GetChat(ctx, db, chat.ID, "stranger"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}

	if got, err := GetChatAny(ctx, db, chat.ID); err != nil || got.UserID != "owner" {
		t.Fatalf("GetChatAny: got=%+v err=%v", got, err)
	}
}

func TestListChatsPage_OrderByUpdatedDesc(t *testing.T) {
	db := newChatRepoDB(t, &domain.Chat{})
	ctx := context.Background()

	old, err := CreateChat(ctx, db, "u1", "old")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	if _, err := CreateChat(ctx, db, "u1", "new"); err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	if _, err := CreateChat(ctx, db, "other", "noise"); err != nil {
		t.Fatalf("CreateChat: %v", err)
	}

	// Push the older chat back in time so ordering is deterministic.
	past := time.Now().UTC().Add(-time.Hour)
	if err := db.Model(&domain.Chat{}).Where("id = ?", old.ID).
		Update("updated_at", past).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	chats, err := ListChatsPage(ctx, db, "u1", 0, 10)
	if err != nil {
		t.Fatalf("ListChatsPage: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("expected 2 chats for u1, got %d", len(chats))
	}
	if chats[0].Title != "new" || chats[1].Title != "old" {
		t.Fatalf("expected updated_at desc order, got %q then %q", chats[0].Title, chats[1].Title)
	}

	total, err := CountChats(ctx, db, "u1")
	if err != nil || total != 2 {
		t.Fatalf("CountChats: total=%d err=%v", total, err)
	}
}

func TestUpdateChatTitle_TouchesUpdatedAt(t *testing.T) {
	db := newChatRepoDB(t, &domain.Chat{})
	ctx := context.Background()

	chat, err := CreateChat(ctx, db, "u1", "before")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	past := time.Now().UTC().Add(-time.Hour)
	if err := db.Model(&domain.Chat{}).Where("id = ?", chat.ID).
		Update("updated_at", past).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	if err := UpdateChatTitle(ctx, db, chat.ID, "u1", "after"); err != nil {
		t.Fatalf("UpdateChatTitle: %v", err)
	}
	got, err := GetChat(ctx, db, chat.ID, "u1")
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if got.Title != "after" {
		t.Fatalf("title not updated: %q", got.Title)
	}
	if !got.UpdatedAt.After(past) {
		t.Fatalf("updated_at not touched: %v", got.UpdatedAt)
	}

	if err := UpdateChatTitle(ctx, db, chat.ID, "stranger", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
}

func TestTouchChat_AdvancesUpdatedAt(t *testing.T) {
	db := newChatRepoDB(t, &domain.Chat{})
	ctx := context.Background()

	chat, err := CreateChat(ctx, db, "u1", "")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	past := time.Now().UTC().Add(-time.Hour)
	if err := db.Model(&domain.Chat{}).Where("id = ?", chat.ID).
		Update("updated_at", past).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	if err := TouchChat(ctx, db, chat.ID); err != nil {
		t.Fatalf("TouchChat: %v", err)
	}
	got, err := GetChat(ctx, db, chat.ID, "u1")
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if !got.UpdatedAt.After(past) {
		t.Fatalf("updated_at not advanced: %v", got.UpdatedAt)
	}
}

func TestDeleteChat_RemovesMessagesToo(t *testing.T) {
	db := newChatRepoDB(t, &domain.Chat{}, &domain.Message{})
	ctx := context.Background()

	chat, err := CreateChat(ctx, db, "u1", "")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := CreateMessage(ctx, db, chat.ID, domain.MessageRoleUser, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}
	}

	// A stranger cannot delete it.
	if err := DeleteChat(ctx, db, chat.ID, "stranger"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}

	if err := DeleteChat(ctx, db, chat.ID, "u1"); err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}
	if _, err := GetChatAny(ctx, db, chat.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("chat still present after delete: %v", err)
	}
	n, err := CountMessages(ctx, db, chat.ID)
	if err != nil {
		t.Fatalf("CountMessages: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 messages after cascade, got %d", n)
	}
}
