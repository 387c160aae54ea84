// Package action turns flat form payloads into mutations. A handler is a
// function of the payload and the resolved identity; it never renders.
package action

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"taskboard/internal/model"
	"taskboard/internal/service"
	"taskboard/internal/view"
)

// ErrUnknownAction is returned for names no handler is registered under.
var ErrUnknownAction = errors.New("unknown action")

// Payload is the flat key/value body of a mutation entry point.
type Payload = url.Values

// Result is what a handler produced. Token is set by login; ClearToken by logout.
type Result struct {
	Refresh    model.Refresh
	Token      string
	ClearToken bool
}

type Handler func(ctx context.Context, p Payload, who *model.Identity) (Result, error)

type tokenKey struct{}

// WithToken attaches the caller's current session token, which logout revokes.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Dispatcher routes named actions to handlers and forwards their refresh
// signal to the view side.
type Dispatcher struct {
	handlers  map[string]Handler
	refresher view.Refresher
}

func NewDispatcher(refresher view.Refresher) *Dispatcher {
	if refresher == nil {
		refresher = view.NopRefresher{}
	}
	return &Dispatcher{handlers: make(map[string]Handler), refresher: refresher}
}

// New registers the standard entry points.
func New(mutations *service.MutationService, auth *service.AuthService, refresher view.Refresher) *Dispatcher {
	d := NewDispatcher(refresher)
	d.Handle("create-board", createBoard(mutations))
	d.Handle("create-task", createTask(mutations))
	d.Handle("delete-board", deleteBoard(mutations))
	d.Handle("update-task-status", updateTaskStatus(mutations))
	d.Handle("delete-task", deleteTask(mutations))
	d.Handle("cycle-priority", cyclePriority(mutations))
	d.Handle("update-task-content", updateTaskContent(mutations))
	d.Handle("register", register(auth))
	d.Handle("login", login(auth))
	d.Handle("logout", logout(auth))
	return d
}

func (d *Dispatcher) Handle(name string, h Handler) {
	d.handlers[name] = h
}

// Names lists the registered actions in order.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Dispatcher) Dispatch(ctx context.Context, name string, p Payload, who *model.Identity) (Result, error) {
	h, ok := d.handlers[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	if p == nil {
		p = Payload{}
	}

	started := time.Now()
	res, err := h(ctx, p, who)
	entry := log.WithFields(log.Fields{"action": name, "took": time.Since(started)})
	if who != nil {
		entry = entry.WithField("user_id", who.UserID)
	}
	if err != nil {
		entry.WithError(err).Debug("action rejected")
		return res, err
	}
	if res.Refresh.Scope != model.RefreshNone {
		d.refresher.Refresh(ctx, res.Refresh)
	}
	entry.Debug("action applied")
	return res, nil
}

func createBoard(m *service.MutationService) Handler {
	return func(ctx context.Context, p Payload, who *model.Identity) (Result, error) {
		refresh, err := m.CreateBoard(ctx, who, p.Get("title"))
		return Result{Refresh: refresh}, err
	}
}

func createTask(m *service.MutationService) Handler {
	return func(ctx context.Context, p Payload, who *model.Identity) (Result, error) {
		// Unparseable board ids become 0, which the service rejects.
		boardID, _ := parseID(p, "boardId")
		refresh, err := m.CreateTask(ctx, who, boardID, p.Get("title"))
		return Result{Refresh: refresh}, err
	}
}

func deleteBoard(m *service.MutationService) Handler {
	return func(ctx context.Context, p Payload, who *model.Identity) (Result, error) {
		boardID, err := parseID(p, "boardId")
		if err != nil {
			return Result{}, err
		}
		refresh, err := m.DeleteBoard(ctx, who, boardID)
		return Result{Refresh: refresh}, err
	}
}

func updateTaskStatus(m *service.MutationService) Handler {
	return func(ctx context.Context, p Payload, who *model.Identity) (Result, error) {
		taskID, err := parseID(p, "taskId")
		if err != nil {
			return Result{}, err
		}
		status := model.Status(strings.TrimSpace(p.Get("status")))
		refresh, err := m.UpdateTaskStatus(ctx, who, taskID, status)
		return Result{Refresh: refresh}, err
	}
}

func deleteTask(m *service.MutationService) Handler {
	return func(ctx context.Context, p Payload, who *model.Identity) (Result, error) {
		taskID, err := parseID(p, "taskId")
		if err != nil {
			return Result{}, err
		}
		boardID, _ := parseID(p, "boardId")
		refresh, err := m.DeleteTask(ctx, who, taskID, boardID)
		return Result{Refresh: refresh}, err
	}
}

func cyclePriority(m *service.MutationService) Handler {
	return func(ctx context.Context, p Payload, who *model.Identity) (Result, error) {
		taskID, err := parseID(p, "taskId")
		if err != nil {
			return Result{}, err
		}
		current := model.Priority(strings.TrimSpace(p.Get("currentPriority")))
		refresh, err := m.CyclePriority(ctx, who, taskID, current)
		return Result{Refresh: refresh}, err
	}
}

func updateTaskContent(m *service.MutationService) Handler {
	return func(ctx context.Context, p Payload, who *model.Identity) (Result, error) {
		taskID, err := parseID(p, "taskId")
		if err != nil {
			return Result{}, err
		}
		refresh, err := m.UpdateTaskContent(ctx, who, taskID, service.ContentInput{
			Title:       p.Get("title"),
			Description: p.Get("description"),
			DueDate:     p.Get("dueDate"),
		})
		return Result{Refresh: refresh}, err
	}
}

func register(a *service.AuthService) Handler {
	return func(ctx context.Context, p Payload, _ *model.Identity) (Result, error) {
		return Result{}, a.Register(ctx, p.Get("name"), p.Get("email"), p.Get("password"))
	}
}

func login(a *service.AuthService) Handler {
	return func(ctx context.Context, p Payload, _ *model.Identity) (Result, error) {
		token, err := a.Login(ctx, p.Get("email"), p.Get("password"))
		if err != nil {
			return Result{}, err
		}
		return Result{Token: token}, nil
	}
}

func logout(a *service.AuthService) Handler {
	return func(ctx context.Context, _ Payload, _ *model.Identity) (Result, error) {
		if err := a.Logout(ctx, tokenFrom(ctx)); err != nil {
			log.WithError(err).Warn("revoke session")
		}
		return Result{ClearToken: true}, nil
	}
}

func parseID(p Payload, key string) (uint, error) {
	raw := strings.TrimSpace(p.Get(key))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, &service.ValidationError{Field: key, Reason: "is not a valid identifier"}
	}
	return uint(id), nil
}
