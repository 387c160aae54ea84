package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskboard/internal/model"
)

func TestCreateBoardRequiresIdentityAndTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	who := f.user(t, "ada@example.com")

	if _, err := f.mutations.CreateBoard(ctx, nil, "Launch"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	for _, title := range []string{"", "   ", "\t\n"} {
		_, err := f.mutations.CreateBoard(ctx, who, title)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != "title" || !errors.Is(err, ErrValidation) {
			t.Fatalf("title %q: expected title validation error, got %v", title, err)
		}
	}
	if list, _ := f.boards.ListByOwner(ctx, who.UserID); len(list) != 0 {
		t.Fatalf("rejected creates must not persist boards, got %d", len(list))
	}

	refresh, err := f.mutations.CreateBoard(ctx, who, "  Launch  ")
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	if refresh.Scope != model.RefreshBoardList || refresh.OwnerID != who.UserID {
		t.Fatalf("unexpected refresh %+v", refresh)
	}
	list, _ := f.boards.ListByOwner(ctx, who.UserID)
	if len(list) != 1 || list[0].Board.Title != "Launch" {
		t.Fatalf("unexpected boards %+v", list)
	}
}

func TestCreateTaskDefaultsAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	who := f.user(t, "ada@example.com")
	board := f.board(t, who, "Launch")

	if _, err := f.mutations.CreateTask(ctx, who, board.ID, " "); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty title: expected validation error, got %v", err)
	}
	if _, err := f.mutations.CreateTask(ctx, who, 0, "Write plan"); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero board id: expected validation error, got %v", err)
	}
	if _, err := f.mutations.CreateTask(ctx, who, 4242, "Write plan"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing board: expected ErrNotFound, got %v", err)
	}

	refresh, err := f.mutations.CreateTask(ctx, who, board.ID, "Write plan")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if refresh.Scope != model.RefreshBoard || refresh.BoardID != board.ID {
		t.Fatalf("unexpected refresh %+v", refresh)
	}
	tasks, _ := f.tasks.ListByBoard(ctx, board.ID)
	if len(tasks) != 1 {
		t.Fatalf("expected one task, got %d", len(tasks))
	}
	if tasks[0].Status != model.StatusPending || tasks[0].Priority != model.PriorityLow {
		t.Fatalf("defaults not applied: %+v", tasks[0])
	}
	if tasks[0].DueDate != nil || tasks[0].Description != nil {
		t.Fatalf("new task should have no due date or description: %+v", tasks[0])
	}
}

func TestMutationsRejectForeignBoards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com")
	intruder := f.user(t, "intruder@example.com")
	board := f.board(t, owner, "Private")
	task := f.task(t, owner, board.ID, "Secret")

	checks := map[string]func() error{
		"create-task": func() error {
			_, err := f.mutations.CreateTask(ctx, intruder, board.ID, "x")
			return err
		},
		"update-status": func() error {
			_, err := f.mutations.UpdateTaskStatus(ctx, intruder, task.ID, model.StatusDone)
			return err
		},
		"cycle-priority": func() error {
			_, err := f.mutations.CyclePriority(ctx, intruder, task.ID, model.PriorityLow)
			return err
		},
		"update-content": func() error {
			_, err := f.mutations.UpdateTaskContent(ctx, intruder, task.ID, ContentInput{Title: "pwned"})
			return err
		},
		"delete-task": func() error {
			_, err := f.mutations.DeleteTask(ctx, intruder, task.ID, board.ID)
			return err
		},
		"delete-board": func() error {
			_, err := f.mutations.DeleteBoard(ctx, intruder, board.ID)
			return err
		},
	}
	for name, call := range checks {
		if err := call(); !errors.Is(err, ErrForbidden) {
			t.Fatalf("%s: expected ErrForbidden, got %v", name, err)
		}
	}

	got := f.reload(t, task.ID)
	if got.Title != "Secret" || got.Status != model.StatusPending || got.Priority != model.PriorityLow {
		t.Fatalf("foreign mutations changed the task: %+v", got)
	}
	if tasks, _ := f.tasks.ListByBoard(ctx, board.ID); len(tasks) != 1 {
		t.Fatalf("foreign mutations changed the board's tasks: %d", len(tasks))
	}

	if _, err := f.mutations.UpdateTaskStatus(ctx, nil, task.ID, model.StatusDone); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("anonymous update: expected ErrUnauthenticated, got %v", err)
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	who := f.user(t, "ada@example.com")
	board := f.board(t, who, "Launch")
	task := f.task(t, who, board.ID, "Write plan")

	if _, err := f.mutations.UpdateTaskStatus(ctx, who, task.ID, "ARCHIVED"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
	if got := f.reload(t, task.ID); got.Status != model.StatusPending {
		t.Fatalf("invalid status must not be stored, got %q", got.Status)
	}

	for _, status := range []model.Status{model.StatusInProgress, model.StatusDone, model.StatusPending} {
		refresh, err := f.mutations.UpdateTaskStatus(ctx, who, task.ID, status)
		if err != nil {
			t.Fatalf("update to %s: %v", status, err)
		}
		if refresh.Scope != model.RefreshBoard || refresh.BoardID != board.ID {
			t.Fatalf("unexpected refresh %+v", refresh)
		}
		if got := f.reload(t, task.ID); got.Status != status {
			t.Fatalf("status = %q, want %q", got.Status, status)
		}
	}

	if _, err := f.mutations.UpdateTaskStatus(ctx, who, 9999, model.StatusDone); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing task: expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTaskIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	who := f.user(t, "ada@example.com")
	board := f.board(t, who, "Launch")
	doomed := f.task(t, who, board.ID, "Doomed")
	kept := f.task(t, who, board.ID, "Kept")

	first, err := f.mutations.DeleteTask(ctx, who, doomed.ID, board.ID)
	if err != nil {
		t.Fatalf("first delete: %v", err)
	}
	after, _ := f.tasks.ListByBoard(ctx, board.ID)

	second, err := f.mutations.DeleteTask(ctx, who, doomed.ID, board.ID)
	if err != nil {
		t.Fatalf("second delete must not fail, got %v", err)
	}
	again, _ := f.tasks.ListByBoard(ctx, board.ID)

	if len(after) != 1 || len(again) != 1 || again[0].ID != kept.ID {
		t.Fatalf("board state changed between deletes: %+v vs %+v", after, again)
	}
	if first.Scope != model.RefreshBoard || second.Scope != model.RefreshBoard || second.BoardID != board.ID {
		t.Fatalf("both deletes should refresh the board: %+v %+v", first, second)
	}
}

func TestDeleteBoardCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	who := f.user(t, "ada@example.com")
	board := f.board(t, who, "Launch")
	for _, title := range []string{"a", "b", "c", "d"} {
		f.task(t, who, board.ID, title)
	}

	refresh, err := f.mutations.DeleteBoard(ctx, who, board.ID)
	if err != nil {
		t.Fatalf("delete board: %v", err)
	}
	if refresh.Scope != model.RefreshBoardList || refresh.BoardID != board.ID {
		t.Fatalf("unexpected refresh %+v", refresh)
	}
	var remaining int64
	if err := f.db.Model(&model.Task{}).Where("board_id = ?", board.ID).Count(&remaining).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("%d tasks still reference the deleted board", remaining)
	}
	if _, err := f.boards.FindByID(ctx, board.ID); err == nil {
		t.Fatalf("board still exists")
	}

	if _, err := f.mutations.DeleteBoard(ctx, who, board.ID); err != nil {
		t.Fatalf("deleting a missing board must be a no-op, got %v", err)
	}
}

func TestCyclePriorityUsesCallerValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	who := f.user(t, "ada@example.com")
	board := f.board(t, who, "Launch")
	task := f.task(t, who, board.ID, "Write plan")

	steps := []struct {
		current model.Priority
		want    model.Priority
	}{
		{model.PriorityLow, model.PriorityMedium},
		{model.PriorityMedium, model.PriorityHigh},
		{model.PriorityHigh, model.PriorityLow},
		{"BOGUS", model.PriorityLow},
	}
	for _, step := range steps {
		if _, err := f.mutations.CyclePriority(ctx, who, task.ID, step.current); err != nil {
			t.Fatalf("cycle from %q: %v", step.current, err)
		}
		if got := f.reload(t, task.ID); got.Priority != step.want {
			t.Fatalf("cycle from %q stored %q, want %q", step.current, got.Priority, step.want)
		}
	}
}

func TestUpdateTaskContent(t *testing.T) {
	f := newFixture(t)
	f.mutations.WithLocation(time.UTC)
	ctx := context.Background()
	who := f.user(t, "ada@example.com")
	board := f.board(t, who, "Launch")
	task := f.task(t, who, board.ID, "Write plan")

	if _, err := f.mutations.UpdateTaskContent(ctx, who, task.ID, ContentInput{Title: "  "}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty title, got %v", err)
	}

	if _, err := f.mutations.UpdateTaskContent(ctx, who, task.ID, ContentInput{
		Title:       "Write the plan",
		Description: "all sections",
		DueDate:     "2026-04-01",
	}); err != nil {
		t.Fatalf("update content: %v", err)
	}
	got := f.reload(t, task.ID)
	if got.Title != "Write the plan" || got.DescriptionText() != "all sections" {
		t.Fatalf("content not stored: %+v", got)
	}
	if got.DueDate == nil || got.DueDate.UTC().Format("2006-01-02") != "2026-04-01" {
		t.Fatalf("due date not stored: %v", got.DueDate)
	}

	if _, err := f.mutations.UpdateTaskContent(ctx, who, task.ID, ContentInput{Title: "Write the plan", DueDate: "next tuesday"}); err != nil {
		t.Fatalf("unparseable date must not fail the update: %v", err)
	}
	got = f.reload(t, task.ID)
	if got.DueDate != nil || got.Description != nil {
		t.Fatalf("unparseable date and empty description should clear: %+v", got)
	}
}

func TestParseDueDate(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	if ParseDueDate("", loc) != nil || ParseDueDate("31/12/2026", loc) != nil || ParseDueDate("2026-13-01", loc) != nil {
		t.Fatalf("invalid inputs must yield no date")
	}
	d := ParseDueDate(" 2026-12-31 ", loc)
	if d == nil || d.Location() != loc || d.Day() != 31 || d.Hour() != 0 {
		t.Fatalf("calendar date parsed wrong: %v", d)
	}
	ts := ParseDueDate("2026-12-31T10:00:00Z", loc)
	if ts == nil || !ts.Equal(time.Date(2026, 12, 31, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("RFC 3339 parsed wrong: %v", ts)
	}
}

func TestLaunchScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	who := f.user(t, "ada@example.com")
	board := f.board(t, who, "Launch")
	task := f.task(t, who, board.ID, "Write plan")
	if task.Status != model.StatusPending || task.Priority != model.PriorityLow {
		t.Fatalf("unexpected defaults %+v", task)
	}

	for i := 0; i < 2; i++ {
		current := f.reload(t, task.ID).Priority
		if _, err := f.mutations.CyclePriority(ctx, who, task.ID, current); err != nil {
			t.Fatalf("cycle: %v", err)
		}
	}
	if got := f.reload(t, task.ID).Priority; got != model.PriorityHigh {
		t.Fatalf("priority = %q, want HIGH", got)
	}

	if _, err := f.mutations.UpdateTaskStatus(ctx, who, task.ID, model.StatusDone); err != nil {
		t.Fatalf("move to done: %v", err)
	}
	list, err := f.boards.ListByOwner(ctx, who.UserID)
	if err != nil || len(list) != 1 {
		t.Fatalf("list boards: %v", err)
	}
	if list[0].Done != 1 || list[0].Total != 1 || list[0].Percent() != 100 {
		t.Fatalf("progress = %d/%d (%d%%), want 1/1 (100%%)", list[0].Done, list[0].Total, list[0].Percent())
	}
}
