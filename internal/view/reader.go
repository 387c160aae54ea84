// Package view serves the read side of the board: board pages and board lists,
// optionally cached, and the refresh signal that invalidates them.
package view

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/repository"
)

// ErrBoardNotFound is returned when a board read targets a missing board.
var ErrBoardNotFound = errors.New("board not found")

// Reader is the read collaborator.
type Reader interface {
	Board(ctx context.Context, boardID uint) (model.BoardView, error)
	Boards(ctx context.Context, ownerID uint) ([]model.BoardSummary, error)
}

// DBReader reads straight from storage.
type DBReader struct {
	boards *repository.BoardRepository
	tasks  *repository.TaskRepository
}

func NewDBReader(boards *repository.BoardRepository, tasks *repository.TaskRepository) *DBReader {
	return &DBReader{boards: boards, tasks: tasks}
}

func (r *DBReader) Board(ctx context.Context, boardID uint) (model.BoardView, error) {
	board, err := r.boards.FindByID(ctx, boardID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.BoardView{}, ErrBoardNotFound
	}
	if err != nil {
		return model.BoardView{}, err
	}
	tasks, err := r.tasks.ListByBoard(ctx, boardID)
	if err != nil {
		return model.BoardView{}, err
	}
	return model.BoardView{Board: *board, Tasks: tasks}, nil
}

func (r *DBReader) Boards(ctx context.Context, ownerID uint) ([]model.BoardSummary, error) {
	return r.boards.ListByOwner(ctx, ownerID)
}
