// Package store persists users and their chat history through GORM.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Repository is the persistence contract the rest of the service depends on.
type Repository interface {
	// CreateUser inserts a new user. The name is stored as given, empty included.
	CreateUser(ctx context.Context, name string) (*User, error)

	// GetUser returns the user with the given id, or ErrNotFound.
	GetUser(ctx context.Context, id string) (*User, error)

	// CreateChatEntry records one chat turn. userID is not checked against existing users.
	CreateChatEntry(ctx context.Context, userID, userInput, appResponse string) (*ChatEntry, error)

	// ListChatHistory returns every entry created with userID, ordered by creation time.
	// It returns an empty slice when the user has no history.
	ListChatHistory(ctx context.Context, userID string, order Order) ([]ChatEntry, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

type Store struct {
	db    *gorm.DB
	clock *clock
}

// Open connects to databaseURL and brings the schema up to date. postgres://
// and postgresql:// URLs use PostgreSQL; anything else is a SQLite file path.
func Open(databaseURL string) (*Store, error) {
	dialector, err := dialectorFor(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store, err := New(db)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, err
	}
	return store, nil
}

// New wraps an already opened GORM handle and runs the schema migrations.
func New(db *gorm.DB) (*Store, error) {
	if err := getMigrator(db).Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db, clock: newClock(time.Now)}, nil
}

func dialectorFor(databaseURL string) (gorm.Dialector, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return postgres.Open(databaseURL), nil
	}

	if databaseURL == "" {
		return nil, fmt.Errorf("database url is empty")
	}

	dsn := databaseURL
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_busy_timeout=5000&_journal_mode=WAL"
		}
	}
	return sqlite.Open(dsn), nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return storageError("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return storageError("ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// User methods
func (s *Store) CreateUser(ctx context.Context, name string) (*User, error) {
	user := User{Name: name}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, storageError("create user", err)
	}
	return &user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	var users []User
	result := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&users)
	if result.Error != nil {
		return nil, storageError("get user", result.Error)
	}
	if len(users) == 0 {
		return nil, storageError("get user", ErrNotFound)
	}
	return &users[0], nil
}

// Chat history methods
func (s *Store) CreateChatEntry(ctx context.Context, userID, userInput, appResponse string) (*ChatEntry, error) {
	entry := ChatEntry{
		UserID:      userID,
		UserInput:   userInput,
		AppResponse: appResponse,
		CreatedAt:   s.clock.next(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, storageError("create chat entry", err)
	}
	return &entry, nil
}

func (s *Store) ListChatHistory(ctx context.Context, userID string, order Order) ([]ChatEntry, error) {
	if !order.Valid() {
		return nil, fmt.Errorf("unknown chat history order %q", order)
	}
	direction := "ASC"
	if order == Descending {
		direction = "DESC"
	}

	entries := []ChatEntry{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at " + direction).
		Order("id " + direction).
		Find(&entries).Error
	if err != nil {
		return nil, storageError("list chat history", err)
	}
	return entries, nil
}
