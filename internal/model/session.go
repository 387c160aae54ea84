package model

import "time"

// Session binds an opaque token to a user until ExpiresAt.
type Session struct {
	Token     string    `gorm:"primaryKey;size:64"`
	UserID    uint      `gorm:"index;not null"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}

// RefreshScope names which view must be re-read after a mutation.
type RefreshScope int

const (
	RefreshNone RefreshScope = iota
	RefreshBoardList
	RefreshBoard
)

// Refresh is the signal a mutation emits so the rendering side re-reads storage.
type Refresh struct {
	Scope   RefreshScope
	BoardID uint
	OwnerID uint
}
