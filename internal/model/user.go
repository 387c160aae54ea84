package model

import "time"

// User is an account that owns boards.
type User struct {
	ID             uint   `gorm:"primaryKey"`
	Name           string `gorm:"not null"`
	Email          string `gorm:"uniqueIndex;not null"`
	PasswordHash   string `gorm:"not null"`
	TelegramChatID *int64 `gorm:"uniqueIndex"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Boards         []Board `gorm:"foreignKey:UserID"`
}

// Identity is the resolved caller of a request. A nil *Identity means the
// request carries no valid session.
type Identity struct {
	UserID uint
	Name   string
}
