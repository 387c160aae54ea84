package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskboard/internal/model"
)

// BoardRepository handles CRUD for boards.
type BoardRepository struct {
	db *gorm.DB
}

func NewBoardRepository(db *gorm.DB) *BoardRepository {
	return &BoardRepository{db: db}
}

func (r *BoardRepository) Create(ctx context.Context, board *model.Board) error {
	if err := r.db.WithContext(ctx).Create(board).Error; err != nil {
		return fmt.Errorf("create board: %w", err)
	}
	return nil
}

func (r *BoardRepository) FindByID(ctx context.Context, id uint) (*model.Board, error) {
	var board model.Board
	if err := r.db.WithContext(ctx).First(&board, id).Error; err != nil {
		return nil, err
	}
	return &board, nil
}

type boardCounts struct {
	BoardID uint
	Total   int
	Done    int
}

// ListByOwner returns the owner's boards newest first with derived task counts.
func (r *BoardRepository) ListByOwner(ctx context.Context, ownerID uint) ([]model.BoardSummary, error) {
	db := r.db.WithContext(ctx)

	var boards []model.Board
	if err := db.Where("user_id = ?", ownerID).Order("created_at DESC, id DESC").Find(&boards).Error; err != nil {
		return nil, err
	}
	if len(boards) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(boards))
	for _, b := range boards {
		ids = append(ids, b.ID)
	}

	var counts []boardCounts
	if err := db.Model(&model.Task{}).
		Select("board_id, COUNT(*) AS total, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS done", model.StatusDone).
		Where("board_id IN ?", ids).
		Group("board_id").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	byBoard := make(map[uint]boardCounts, len(counts))
	for _, c := range counts {
		byBoard[c.BoardID] = c
	}

	summaries := make([]model.BoardSummary, 0, len(boards))
	for _, b := range boards {
		c := byBoard[b.ID]
		summaries = append(summaries, model.BoardSummary{Board: b, Total: c.Total, Done: c.Done})
	}
	return summaries, nil
}

// DeleteWithTasks removes every task of the board and then the board itself in
// one transaction. Tasks go first so no row ever references a missing board.
func (r *BoardRepository) DeleteWithTasks(ctx context.Context, id uint) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("board_id = ?", id).Delete(&model.Task{})
		if res.Error != nil {
			return fmt.Errorf("delete board tasks: %w", res.Error)
		}
		removed = res.RowsAffected

		res = tx.Delete(&model.Board{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete board: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return removed, err
}
