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

func newUserRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("user_repo_test_%d.db", time.Now().UnixNano()))
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

func TestCreateUser_SetsDefaults(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})

	u, err := CreateUser(context.Background(), db, "a@example.com", "hash", "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected generated id")
	}
	if u.Role != domain.RoleUser {
		t.Fatalf("expected default role user, got %q", u.Role)
	}
	if u.TokenVersion != 0 {
		t.Fatalf("expected token version 0, got %d", u.TokenVersion)
	}
	if u.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}
}

func TestCreateUser_DuplicateEmailFails(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})
	ctx := context.Background()

	if _, err := CreateUser(ctx, db, "dup@example.com", "h1", domain.RoleUser); err != nil {
		t.Fatalf("first CreateUser: %v", err)
	}
	if _, err := CreateUser(ctx, db, "dup@example.com", "h2", domain.RoleUser); err == nil {
		t.Fatal("expected unique constraint violation on duplicate email")
	}
}

func TestGetUserByEmail_And_ByID(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})
	ctx := context.Background()

	created, err := CreateUser(ctx, db, "b@example.com", "hash", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	byEmail, err := GetUserByEmail(ctx, db, "b@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail.ID != created.ID || byEmail.Role != domain.RoleAdmin {
		t.Fatalf("unexpected user: %+v", byEmail)
	}

	byID, err := GetUserByID(ctx, db, created.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if byID.Email != "b@example.com" {
		t.Fatalf("unexpected email: %q", byID.Email)
	}

	if _, err := GetUserByID(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := GetUserByEmail(ctx, db, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListUsersPage_And_Count(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := CreateUser(ctx, db, fmt.Sprintf("u%d@example.com", i), "h", domain.RoleUser); err != nil {
			t.Fatalf("seed user %d: %v", i, err)
		}
	}

	total, err := CountUsers(ctx, db)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected 5 users, got %d", total)
	}

	page, err := ListUsersPage(ctx, db, 0, 2)
	if err != nil {
		t.Fatalf("ListUsersPage: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}

	rest, err := ListUsersPage(ctx, db, 4, 10)
	if err != nil {
		t.Fatalf("ListUsersPage offset: %v", err)
	}
	if len(rest) != 1 {
		t.Fatalf("expected 1 user past offset 4, got %d", len(rest))
	}
}

func TestUpdateUserRole(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})
	ctx := context.Background()

	u, err := CreateUser(ctx, db, "c@example.com", "h", domain.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := UpdateUserRole(ctx, db, u.ID, domain.RoleAdmin); err != nil {
		t.Fatalf("UpdateUserRole: %v", err)
	}
	got, err := GetUserByID(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %q", got.Role)
	}

	if err := UpdateUserRole(ctx, db, "missing", domain.RoleAdmin); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestBumpTokenVersion(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})
	ctx := context.Background()

	u, err := CreateUser(ctx, db, "d@example.com", "h", domain.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := BumpTokenVersion(ctx, db, u.ID); err != nil {
		t.Fatalf("BumpTokenVersion: %v", err)
	}
	if err := BumpTokenVersion(ctx, db, u.ID); err != nil {
		t.Fatalf("BumpTokenVersion: %v", err)
	}

	got, err := GetUserByID(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.TokenVersion != 2 {
		t.Fatalf("expected token version 2, got %d", got.TokenVersion)
	}
}
