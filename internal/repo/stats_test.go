package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/grork/ai-chat-backend/internal/domain"
)

func newStatsDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("stats_test_%d.db", time.Now().UnixNano()))
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

	if err := db.AutoMigrate(&domain.Chat{}, &domain.Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestChatsStats(t *testing.T) {
	db := newStatsDB(t)
	ctx := context.Background()

	count, latest, err := ChatsStats(ctx, db, "u1")
	if err != nil {
		t.Fatalf("empty stats: %v", err)
	}
	if count != 0 || latest != nil {
		t.Fatalf("empty stats = (%d, %v), want (0, nil)", count, latest)
	}

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		ch := &domain.Chat{
			ID:        uuid.NewString(),
			UserID:    "u1",
			Title:     fmt.Sprintf("chat %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(ch).Error; err != nil {
			t.Fatalf("seed chat %d: %v", i, err)
		}
	}
	// Someone else's chat must not leak into the count.
	other := &domain.Chat{ID: uuid.NewString(), UserID: "u2", UpdatedAt: base.Add(time.Hour)}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("seed other: %v", err)
	}

	count, latest, err = ChatsStats(ctx, db, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	if latest == nil || !latest.Equal(base.Add(2*time.Minute)) {
		t.Fatalf("latest = %v, want %v", latest, base.Add(2*time.Minute))
	}
}

func TestMessagesStats(t *testing.T) {
	db := newStatsDB(t)
	ctx := context.Background()

	chatID := uuid.NewString()
	if err := db.Create(&domain.Chat{ID: chatID, UserID: "u1"}).Error; err != nil {
		t.Fatalf("seed chat: %v", err)
	}

	count, latest, err := MessagesStats(ctx, db, chatID)
	if err != nil {
		t.Fatalf("empty stats: %v", err)
	}
	if count != 0 || latest != nil {
		t.Fatalf("empty stats = (%d, %v), want (0, nil)", count, latest)
	}

	base := time.Now().UTC().Truncate(time.Second)
	roles := []string{domain.MessageRoleUser, domain.MessageRoleAssistant}
	for i := 0; i < 4; i++ {
		msg := &domain.Message{
			ChatID:    chatID,
			Role:      roles[i%2],
			Content:   fmt.Sprintf("turn %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := db.Create(msg).Error; err != nil {
			t.Fatalf("seed message %d: %v", i, err)
		}
	}

	count, latest, err = MessagesStats(ctx, db, chatID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 4 {
		t.Fatalf("count = %d, want 4", count)
	}
	if latest == nil || !latest.Equal(base.Add(3*time.Second)) {
		t.Fatalf("latest = %v, want %v", latest, base.Add(3*time.Second))
	}
}
