package model

import (
	"math"
	"time"
)

// Board is a named collection of tasks owned by exactly one user.
type Board struct {
	ID        uint   `gorm:"primaryKey"`
	Title     string `gorm:"not null"`
	UserID    uint   `gorm:"index;not null"`
	CreatedAt time.Time
	Tasks     []Task `gorm:"foreignKey:BoardID;constraint:OnDelete:RESTRICT"`
}

// BoardView is a board with its tasks, newest first.
type BoardView struct {
	Board Board  `json:"board"`
	Tasks []Task `json:"tasks"`
}

// BoardSummary is a board-list row. Counts are derived from tasks, never stored.
type BoardSummary struct {
	Board Board `json:"board"`
	Total int   `json:"total"`
	Done  int   `json:"done"`
}

// Percent is the board completion rounded to the nearest integer.
func (s BoardSummary) Percent() int {
	return Progress(s.Total, s.Done)
}

// Progress returns round(done/total*100), or 0 for an empty board.
func Progress(total, done int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

// Summarize derives the board-list counts from a board view.
func (v BoardView) Summarize() BoardSummary {
	s := BoardSummary{Board: v.Board, Total: len(v.Tasks)}
	for _, t := range v.Tasks {
		if t.Status == StatusDone {
			s.Done++
		}
	}
	return s
}
