package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID   string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name string `json:"name" gorm:"not null"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// ChatEntry is one recorded turn: what the user typed and what the app answered.
// UserID is stored verbatim and is not checked against the users table.
type ChatEntry struct {
	ID          string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID      string    `json:"userId" gorm:"not null;index:idx_chat_histories_user_created,priority:1"`
	UserInput   string    `json:"userInput" gorm:"not null"`
	AppResponse string    `json:"appResponse" gorm:"not null"`
	CreatedAt   time.Time `json:"createdAt" gorm:"not null;index:idx_chat_histories_user_created,priority:2"`
}

func (ChatEntry) TableName() string {
	return "chat_histories"
}

func (e *ChatEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Order is the direction chat history is returned in, by creation time.
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

func (o Order) Valid() bool {
	return o == Ascending || o == Descending
}
