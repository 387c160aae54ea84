package board

import (
	"context"
	"strconv"

	"taskboard/internal/action"
	"taskboard/internal/model"
	"taskboard/internal/service"
	"taskboard/internal/view"
)

// ServiceBackend runs the controller against the in-process action
// dispatcher and read model, acting as one signed-in identity.
type ServiceBackend struct {
	actions *action.Dispatcher
	reader  view.Reader
	who     *model.Identity
}

func NewServiceBackend(actions *action.Dispatcher, reader view.Reader, who *model.Identity) *ServiceBackend {
	return &ServiceBackend{actions: actions, reader: reader, who: who}
}

func (b *ServiceBackend) Load(ctx context.Context, boardID uint) (model.BoardView, error) {
	if b.who == nil {
		return model.BoardView{}, service.ErrUnauthenticated
	}
	v, err := b.reader.Board(ctx, boardID)
	if err != nil {
		return model.BoardView{}, err
	}
	if v.Board.UserID != b.who.UserID {
		return model.BoardView{}, service.ErrForbidden
	}
	return v, nil
}

func (b *ServiceBackend) CreateTask(ctx context.Context, boardID uint, title string) error {
	return b.dispatch(ctx, "create-task", action.Payload{
		"boardId": {id(boardID)},
		"title":   {title},
	})
}

func (b *ServiceBackend) UpdateTaskStatus(ctx context.Context, boardID, taskID uint, status model.Status) error {
	return b.dispatch(ctx, "update-task-status", action.Payload{
		"boardId": {id(boardID)},
		"taskId":  {id(taskID)},
		"status":  {string(status)},
	})
}

func (b *ServiceBackend) CyclePriority(ctx context.Context, boardID, taskID uint, current model.Priority) error {
	return b.dispatch(ctx, "cycle-priority", action.Payload{
		"boardId":         {id(boardID)},
		"taskId":          {id(taskID)},
		"currentPriority": {string(current)},
	})
}

func (b *ServiceBackend) UpdateTaskContent(ctx context.Context, boardID, taskID uint, input service.ContentInput) error {
	return b.dispatch(ctx, "update-task-content", action.Payload{
		"boardId":     {id(boardID)},
		"taskId":      {id(taskID)},
		"title":       {input.Title},
		"description": {input.Description},
		"dueDate":     {input.DueDate},
	})
}

func (b *ServiceBackend) DeleteTask(ctx context.Context, boardID, taskID uint) error {
	return b.dispatch(ctx, "delete-task", action.Payload{
		"boardId": {id(boardID)},
		"taskId":  {id(taskID)},
	})
}

func (b *ServiceBackend) dispatch(ctx context.Context, name string, p action.Payload) error {
	_, err := b.actions.Dispatch(ctx, name, p, b.who)
	return err
}

func id(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}
