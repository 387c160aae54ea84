package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/crypto/bcrypt"

	"taskboard/internal/model"
	"taskboard/internal/repository"
	"taskboard/internal/service"
	"taskboard/internal/session"
)

type sent struct {
	chatID int64
	text   string
}

type fakeAPI struct {
	messages []sent
	requests int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.messages = append(f.messages, sent{chatID: msg.ChatID, text: msg.Text})
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) last(t *testing.T) sent {
	t.Helper()
	if len(f.messages) == 0 {
		t.Fatalf("no message sent")
	}
	return f.messages[len(f.messages)-1]
}

type harness struct {
	bot       *Bot
	api       *fakeAPI
	users     *repository.UserRepository
	mutations *service.MutationService
	tasks     *repository.TaskRepository
	boards    *repository.BoardRepository
	auth      *service.AuthService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := repository.NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	users := repository.NewUserRepository(db)
	boards := repository.NewBoardRepository(db)
	tasks := repository.NewTaskRepository(db)
	store := session.NewDBStore(repository.NewSessionRepository(db), time.Hour)
	auth := service.NewAuthService(users, store, service.NewBcryptHasher(bcrypt.MinCost))
	if err := auth.Register(context.Background(), "Ada", "ada@example.com", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	api := &fakeAPI{}
	b := newBot(api, users, auth, service.NewReminderService(tasks, boards))
	b.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return &harness{
		bot:       b,
		api:       api,
		users:     users,
		mutations: service.NewMutationService(boards, tasks).WithLocation(time.UTC),
		tasks:     tasks,
		boards:    boards,
		auth:      auth,
	}
}

func command(chatID int64, text string) *tgbotapi.Message {
	name := strings.Fields(text)[0]
	return &tgbotapi.Message{
		MessageID: 7,
		Text:      text,
		From:      &tgbotapi.User{ID: chatID},
		Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func (h *harness) send(t *testing.T, chatID int64, text string) sent {
	t.Helper()
	if err := h.bot.handleMessage(context.Background(), command(chatID, text)); err != nil {
		t.Fatalf("%s: %v", text, err)
	}
	return h.api.last(t)
}

func TestLinkAndUnlink(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if got := h.send(t, 42, "/boards"); !strings.Contains(got.text, "not linked") {
		t.Fatalf("unlinked chat should be told to link, got %q", got.text)
	}
	if got := h.send(t, 42, "/link ada@example.com wrong"); !strings.Contains(got.text, "did not match") {
		t.Fatalf("bad password reply: %q", got.text)
	}
	if got := h.send(t, 42, "/link ada@example.com"); !strings.Contains(got.text, "Usage") {
		t.Fatalf("missing argument reply: %q", got.text)
	}
	if got := h.send(t, 42, "/link ada@example.com secret"); !strings.Contains(got.text, "Linked to Ada") {
		t.Fatalf("link reply: %q", got.text)
	}
	if h.api.requests != 3 {
		t.Fatalf("every /link message should be deleted, got %d requests", h.api.requests)
	}
	user, err := h.users.FindByTelegramChat(ctx, 42)
	if err != nil || user.Email != "ada@example.com" {
		t.Fatalf("chat not linked: %v", err)
	}

	if got := h.send(t, 42, "/unlink"); !strings.Contains(got.text, "Unlinked") {
		t.Fatalf("unlink reply: %q", got.text)
	}
	if _, err := h.users.FindByTelegramChat(ctx, 42); err == nil {
		t.Fatalf("chat still linked")
	}
}

func TestBoardsAndOverdueCommands(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.send(t, 42, "/link ada@example.com secret")
	user, _ := h.users.FindByTelegramChat(ctx, 42)
	who := &model.Identity{UserID: user.ID, Name: user.Name}

	if got := h.send(t, 42, "/overdue"); !strings.Contains(got.text, "Nothing overdue") {
		t.Fatalf("empty overdue reply: %q", got.text)
	}

	if _, err := h.mutations.CreateBoard(ctx, who, "Launch"); err != nil {
		t.Fatalf("create board: %v", err)
	}
	list, _ := h.boards.ListByOwner(ctx, user.ID)
	if _, err := h.mutations.CreateTask(ctx, who, list[0].Board.ID, "Ship it"); err != nil {
		t.Fatalf("create task: %v", err)
	}
	tasks, _ := h.tasks.ListByBoard(ctx, list[0].Board.ID)
	if _, err := h.mutations.UpdateTaskContent(ctx, who, tasks[0].ID, service.ContentInput{Title: "Ship it", DueDate: "2026-03-01"}); err != nil {
		t.Fatalf("set due date: %v", err)
	}

	if got := h.send(t, 42, "/boards"); !strings.Contains(got.text, "Launch — 0% (0/1)") {
		t.Fatalf("boards reply: %q", got.text)
	}
	if got := h.send(t, 42, "/overdue"); !strings.Contains(got.text, "Ship it") {
		t.Fatalf("overdue reply: %q", got.text)
	}
	if got := h.send(t, 42, "/frobnicate"); !strings.Contains(got.text, "Unknown command") {
		t.Fatalf("unknown command reply: %q", got.text)
	}
}

func TestSendOverdueDigestsSkipsQuietUsers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.send(t, 42, "/link ada@example.com secret")
	before := len(h.api.messages)

	if err := h.bot.SendOverdueDigests(ctx); err != nil {
		t.Fatalf("digests: %v", err)
	}
	if len(h.api.messages) != before {
		t.Fatalf("user with nothing overdue received a digest")
	}

	user, _ := h.users.FindByTelegramChat(ctx, 42)
	who := &model.Identity{UserID: user.ID}
	_, _ = h.mutations.CreateBoard(ctx, who, "Launch")
	list, _ := h.boards.ListByOwner(ctx, user.ID)
	_, _ = h.mutations.CreateTask(ctx, who, list[0].Board.ID, "Ship it")
	tasks, _ := h.tasks.ListByBoard(ctx, list[0].Board.ID)
	_, _ = h.mutations.UpdateTaskContent(ctx, who, tasks[0].ID, service.ContentInput{Title: "Ship it", DueDate: "2026-03-09"})

	if err := h.bot.SendOverdueDigests(ctx); err != nil {
		t.Fatalf("digests: %v", err)
	}
	got := h.api.last(t)
	if len(h.api.messages) != before+1 || got.chatID != 42 || !strings.Contains(got.text, "1 d late") {
		t.Fatalf("unexpected digest %+v", got)
	}
}

func TestLinkReplyEscapesName(t *testing.T) {
	h := newHarness(t)
	if err := h.auth.Register(context.Background(), "Bob <&>", "bob@example.com", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	got := h.send(t, 7, "/link bob@example.com secret")
	if !strings.Contains(got.text, "Linked to Bob &lt;&amp;&gt;") {
		t.Fatalf("name should be html-escaped, got %q", got.text)
	}
}
