package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"taskboard/internal/model"
	"taskboard/internal/repository"
)

// ReminderService builds human-readable digests of boards and overdue tasks.
type ReminderService struct {
	taskRepo  *repository.TaskRepository
	boardRepo *repository.BoardRepository
}

func NewReminderService(taskRepo *repository.TaskRepository, boardRepo *repository.BoardRepository) *ReminderService {
	return &ReminderService{taskRepo: taskRepo, boardRepo: boardRepo}
}

// OverdueTasks returns the user's overdue tasks, earliest due first.
func (s *ReminderService) OverdueTasks(ctx context.Context, userID uint, now time.Time) ([]model.Task, error) {
	open, err := s.taskRepo.ListOpenWithDueDate(ctx, userID)
	if err != nil {
		return nil, err
	}
	var overdue []model.Task
	for _, task := range open {
		if task.IsOverdue(now) {
			overdue = append(overdue, task)
		}
	}
	return overdue, nil
}

// OverdueDigest renders the overdue tasks grouped by board. The boolean is false
// when nothing is overdue and no message should be sent.
func (s *ReminderService) OverdueDigest(ctx context.Context, user model.User, now time.Time) (string, bool, error) {
	overdue, err := s.OverdueTasks(ctx, user.ID, now)
	if err != nil {
		return "", false, err
	}
	if len(overdue) == 0 {
		return "", false, nil
	}

	boards, err := s.boardRepo.ListByOwner(ctx, user.ID)
	if err != nil {
		return "", false, err
	}
	titles := make(map[uint]string, len(boards))
	var order []uint
	for _, b := range boards {
		titles[b.Board.ID] = b.Board.Title
		order = append(order, b.Board.ID)
	}
	byBoard := make(map[uint][]model.Task)
	for _, task := range overdue {
		byBoard[task.BoardID] = append(byBoard[task.BoardID], task)
	}

	var builder strings.Builder
	builder.WriteString("⚠️ <b>Overdue tasks</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("2006-01-02")))
	for _, boardID := range order {
		tasks := byBoard[boardID]
		if len(tasks) == 0 {
			continue
		}
		builder.WriteString(fmt.Sprintf("\n📋 <b>%s</b>\n", html.EscapeString(titles[boardID])))
		for _, task := range tasks {
			builder.WriteString(formatOverdue(task, now))
		}
	}
	return strings.TrimSpace(builder.String()), true, nil
}

// BoardsSummary lists the user's boards with their completion.
func (s *ReminderService) BoardsSummary(ctx context.Context, user model.User) (string, error) {
	boards, err := s.boardRepo.ListByOwner(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if len(boards) == 0 {
		return "No boards yet.", nil
	}
	var builder strings.Builder
	builder.WriteString("📋 <b>Boards</b>\n")
	for _, b := range boards {
		builder.WriteString(fmt.Sprintf("• %s — %d%% (%d/%d)\n",
			html.EscapeString(b.Board.Title), b.Percent(), b.Done, b.Total))
	}
	return strings.TrimSpace(builder.String()), nil
}

func formatOverdue(task model.Task, now time.Time) string {
	var sb strings.Builder
	due := task.DueDate.In(now.Location())
	days := model.DaysBetween(due, now)

	sb.WriteString(fmt.Sprintf("%s %s", priorityIcon(task.Priority), html.EscapeString(strings.TrimSpace(task.Title))))
	sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · %d d late", due.Format("2006-01-02"), days))
	if task.Status == model.StatusInProgress {
		sb.WriteString(" · in progress")
	}
	sb.WriteByte('\n')
	return sb.String()
}

func priorityIcon(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityMedium:
		return "🟠"
	default:
		return "⚫"
	}
}

