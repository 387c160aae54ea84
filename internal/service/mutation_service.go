package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/repository"
)

// ContentInput is the edit form of a task. DueDate is raw user text.
type ContentInput struct {
	Title       string
	Description string
	DueDate     string
}

// MutationService applies board and task lifecycle events to storage. Every
// operation checks that the acting identity owns the board it touches, and
// returns the refresh signal the rendering side should act on.
type MutationService struct {
	boardRepo *repository.BoardRepository
	taskRepo  *repository.TaskRepository
	loc       *time.Location
}

func NewMutationService(boardRepo *repository.BoardRepository, taskRepo *repository.TaskRepository) *MutationService {
	return &MutationService{boardRepo: boardRepo, taskRepo: taskRepo, loc: time.Local}
}

// WithLocation sets the zone date-only due dates are interpreted in.
func (s *MutationService) WithLocation(loc *time.Location) *MutationService {
	if loc != nil {
		s.loc = loc
	}
	return s
}

func (s *MutationService) CreateBoard(ctx context.Context, who *model.Identity, title string) (model.Refresh, error) {
	if who == nil {
		return model.Refresh{}, ErrUnauthenticated
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Refresh{}, invalid("title", "is required")
	}

	board := model.Board{Title: title, UserID: who.UserID}
	if err := s.boardRepo.Create(ctx, &board); err != nil {
		return model.Refresh{}, err
	}
	log.WithFields(log.Fields{"board_id": board.ID, "user_id": who.UserID}).Debug("board created")
	return boardListRefresh(who), nil
}

func (s *MutationService) CreateTask(ctx context.Context, who *model.Identity, boardID uint, title string) (model.Refresh, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Refresh{}, invalid("title", "is required")
	}
	if boardID == 0 {
		return model.Refresh{}, invalid("boardId", "is not a valid identifier")
	}
	board, err := s.ownedBoard(ctx, who, boardID)
	if err != nil {
		return model.Refresh{}, err
	}

	task := model.Task{
		BoardID:  board.ID,
		Title:    title,
		Status:   model.StatusPending,
		Priority: model.PriorityLow,
	}
	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return model.Refresh{}, err
	}
	log.WithFields(log.Fields{"task_id": task.ID, "board_id": board.ID}).Debug("task created")
	return boardRefresh(board), nil
}

// DeleteBoard removes the board's tasks and then the board. A board that is
// already gone is a no-op.
func (s *MutationService) DeleteBoard(ctx context.Context, who *model.Identity, boardID uint) (model.Refresh, error) {
	if who == nil {
		return model.Refresh{}, ErrUnauthenticated
	}
	if _, err := s.ownedBoard(ctx, who, boardID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return boardListRefresh(who), nil
		}
		return model.Refresh{}, err
	}

	removed, err := s.boardRepo.DeleteWithTasks(ctx, boardID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Refresh{}, err
	}
	log.WithFields(log.Fields{"board_id": boardID, "tasks": removed}).Debug("board deleted")
	refresh := boardListRefresh(who)
	refresh.BoardID = boardID
	return refresh, nil
}

func (s *MutationService) UpdateTaskStatus(ctx context.Context, who *model.Identity, taskID uint, status model.Status) (model.Refresh, error) {
	if _, ok := model.ParseStatus(string(status)); !ok {
		return model.Refresh{}, invalid("status", fmt.Sprintf("unknown status %q", status))
	}
	task, board, err := s.ownedTask(ctx, who, taskID)
	if err != nil {
		return model.Refresh{}, err
	}
	if err := s.taskRepo.UpdateStatus(ctx, task.ID, status); err != nil {
		return model.Refresh{}, notFoundOr(err)
	}
	return boardRefresh(board), nil
}

// DeleteTask is idempotent: a task that is already gone, or a storage failure
// while deleting, still yields a refresh of boardID and no error.
func (s *MutationService) DeleteTask(ctx context.Context, who *model.Identity, taskID, boardID uint) (model.Refresh, error) {
	refresh := model.Refresh{Scope: model.RefreshBoard, BoardID: boardID}
	if who != nil {
		refresh.OwnerID = who.UserID
	}

	task, board, err := s.ownedTask(ctx, who, taskID)
	switch {
	case errors.Is(err, ErrNotFound):
		return refresh, nil
	case err != nil:
		return model.Refresh{}, err
	}

	if err := s.taskRepo.Delete(ctx, task.ID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.WithError(err).WithField("task_id", task.ID).Warn("delete task failed")
	}
	return boardRefresh(board), nil
}

// CyclePriority stores the priority that follows current in the cycle.
func (s *MutationService) CyclePriority(ctx context.Context, who *model.Identity, taskID uint, current model.Priority) (model.Refresh, error) {
	task, board, err := s.ownedTask(ctx, who, taskID)
	if err != nil {
		return model.Refresh{}, err
	}
	if err := s.taskRepo.UpdatePriority(ctx, task.ID, current.Next()); err != nil {
		return model.Refresh{}, notFoundOr(err)
	}
	return boardRefresh(board), nil
}

// UpdateTaskContent overwrites title, description and due date. Empty or
// unparseable due date text clears the due date.
func (s *MutationService) UpdateTaskContent(ctx context.Context, who *model.Identity, taskID uint, input ContentInput) (model.Refresh, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return model.Refresh{}, invalid("title", "is required")
	}
	task, board, err := s.ownedTask(ctx, who, taskID)
	if err != nil {
		return model.Refresh{}, err
	}

	var description *string
	if d := strings.TrimSpace(input.Description); d != "" {
		description = &d
	}
	due := ParseDueDate(input.DueDate, s.loc)

	if err := s.taskRepo.UpdateContent(ctx, task.ID, title, description, due); err != nil {
		return model.Refresh{}, notFoundOr(err)
	}
	return boardRefresh(board), nil
}

// ParseDueDate accepts a calendar date (2006-01-02) interpreted in loc, or an
// RFC 3339 timestamp. Anything else, including empty text, means no date.
func ParseDueDate(raw string, loc *time.Location) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	return nil
}

func (s *MutationService) ownedBoard(ctx context.Context, who *model.Identity, boardID uint) (*model.Board, error) {
	if who == nil {
		return nil, ErrUnauthenticated
	}
	board, err := s.boardRepo.FindByID(ctx, boardID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if board.UserID != who.UserID {
		return nil, ErrForbidden
	}
	return board, nil
}

func (s *MutationService) ownedTask(ctx context.Context, who *model.Identity, taskID uint) (*model.Task, *model.Board, error) {
	if who == nil {
		return nil, nil, ErrUnauthenticated
	}
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, nil, notFoundOr(err)
	}
	board, err := s.ownedBoard(ctx, who, task.BoardID)
	if err != nil {
		return nil, nil, err
	}
	return task, board, nil
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func boardRefresh(board *model.Board) model.Refresh {
	return model.Refresh{Scope: model.RefreshBoard, BoardID: board.ID, OwnerID: board.UserID}
}

func boardListRefresh(who *model.Identity) model.Refresh {
	return model.Refresh{Scope: model.RefreshBoardList, OwnerID: who.UserID}
}
