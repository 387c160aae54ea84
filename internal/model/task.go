package model

import (
	"strings"
	"time"
)

// Status is the column a task sits in.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Statuses lists the columns in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusDone}

// ParseStatus accepts only the three column values.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.TrimSpace(raw))
	switch s {
	case StatusPending, StatusInProgress, StatusDone:
		return s, true
	}
	return "", false
}

// Title is the column heading.
func (s Status) Title() string {
	switch s {
	case StatusInProgress:
		return "In progress"
	case StatusDone:
		return "Done"
	default:
		return "Pending"
	}
}

// Priority is the task urgency.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Priorities lists the priorities from least to most urgent.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Next returns the following priority in the cycle LOW -> MEDIUM -> HIGH -> LOW.
// Anything outside the set maps to LOW.
func (p Priority) Next() Priority {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	default:
		return PriorityLow
	}
}

// ParsePriority accepts only the three priority values.
func ParsePriority(raw string) (Priority, bool) {
	p := Priority(strings.TrimSpace(raw))
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, true
	}
	return "", false
}

// Task is a single card on a board.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	BoardID     uint       `gorm:"index;not null" json:"boardId"`
	Title       string     `gorm:"not null" json:"title"`
	Description *string    `json:"description,omitempty"`
	Status      Status     `gorm:"type:varchar(16);not null;default:PENDING" json:"status"`
	Priority    Priority   `gorm:"type:varchar(8);not null;default:LOW" json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// IsOverdue reports whether the task has a due date strictly before today and
// is not done. Both sides are truncated to the calendar day in now's location.
func (t Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusDone {
		return false
	}
	return StartOfDay(t.DueDate.In(now.Location())).Before(StartOfDay(now))
}

// DescriptionText returns the description or an empty string.
func (t Task) DescriptionText() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from from to to, each read in its own
// location. DST shifts do not change the count.
func DaysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
