package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/repository"
)

type fixture struct {
	db        *gorm.DB
	users     *repository.UserRepository
	boards    *repository.BoardRepository
	tasks     *repository.TaskRepository
	mutations *MutationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	f := &fixture{
		db:     db,
		users:  repository.NewUserRepository(db),
		boards: repository.NewBoardRepository(db),
		tasks:  repository.NewTaskRepository(db),
	}
	f.mutations = NewMutationService(f.boards, f.tasks)
	return f
}

func (f *fixture) user(t *testing.T, email string) *model.Identity {
	t.Helper()
	u := &model.User{Name: strings.Split(email, "@")[0], Email: email, PasswordHash: "x"}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &model.Identity{UserID: u.ID, Name: u.Name}
}

func (f *fixture) board(t *testing.T, who *model.Identity, title string) model.Board {
	t.Helper()
	if _, err := f.mutations.CreateBoard(context.Background(), who, title); err != nil {
		t.Fatalf("create board: %v", err)
	}
	list, err := f.boards.ListByOwner(context.Background(), who.UserID)
	if err != nil || len(list) == 0 {
		t.Fatalf("list boards: %v", err)
	}
	return list[0].Board
}

func (f *fixture) task(t *testing.T, who *model.Identity, boardID uint, title string) model.Task {
	t.Helper()
	if _, err := f.mutations.CreateTask(context.Background(), who, boardID, title); err != nil {
		t.Fatalf("create task: %v", err)
	}
	list, err := f.tasks.ListByBoard(context.Background(), boardID)
	if err != nil || len(list) == 0 {
		t.Fatalf("list tasks: %v", err)
	}
	return list[0]
}

func (f *fixture) reload(t *testing.T, id uint) model.Task {
	t.Helper()
	task, err := f.tasks.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload task %d: %v", id, err)
	}
	return *task
}

// fastHasher keeps bcrypt but at the cheapest cost.
func fastHasher() *BcryptHasher {
	return NewBcryptHasher(bcrypt.MinCost)
}
