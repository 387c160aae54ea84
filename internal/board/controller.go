// Package board holds the client-side working copy of one board: filtering,
// the drag gate, optimistic moves with rollback, and single-task edit mode.
//
// A Controller is not safe for concurrent use. It is driven by one event loop
// that handles each interaction to completion before the next.
package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"taskboard/internal/model"
	"taskboard/internal/service"
)

// DragNotice is shown when a drag is attempted while a filter narrows the view.
const DragNotice = "Clear the filters before moving tasks."

var (
	// ErrFiltersActive rejects a drop while search or priority filter is set.
	ErrFiltersActive = errors.New("filters active")
	// ErrInactive is returned for interactions before the controller is activated.
	ErrInactive = errors.New("board is not ready yet")
	// ErrUnknownTask means the task is not in the working copy.
	ErrUnknownTask = errors.New("task is not on this board")
)

// Filter is the priority filter: FilterAll or one of the priorities.
type Filter string

const FilterAll Filter = "ALL"

// Filters is the cycle order of the priority filter.
var Filters = []Filter{FilterAll, Filter(model.PriorityLow), Filter(model.PriorityMedium), Filter(model.PriorityHigh)}

// Backend is everything the controller needs from the server side.
type Backend interface {
	Load(ctx context.Context, boardID uint) (model.BoardView, error)
	CreateTask(ctx context.Context, boardID uint, title string) error
	UpdateTaskStatus(ctx context.Context, boardID, taskID uint, status model.Status) error
	CyclePriority(ctx context.Context, boardID, taskID uint, current model.Priority) error
	UpdateTaskContent(ctx context.Context, boardID, taskID uint, input service.ContentInput) error
	DeleteTask(ctx context.Context, boardID, taskID uint) error
}

// DropEvent describes a finished drag. A nil Destination is a cancelled drag.
type DropEvent struct {
	TaskID      uint
	Source      model.Status
	Destination *model.Status
}

// Column is one status column of the filtered view.
type Column struct {
	Status model.Status
	Title  string
	Tasks  []model.Task
}

type Controller struct {
	backend Backend
	boardID uint

	active  bool
	board   model.Board
	tasks   []model.Task
	editing uint
	search  string
	filter  Filter

	now func() time.Time
}

func NewController(backend Backend, boardID uint) *Controller {
	return &Controller{backend: backend, boardID: boardID, filter: FilterAll, now: time.Now}
}

// Activate is the mount signal. Until it runs the controller holds nothing and
// accepts no interaction.
func (c *Controller) Activate(ctx context.Context) error {
	if c.active {
		return nil
	}
	if err := c.Load(ctx); err != nil {
		return err
	}
	c.active = true
	return nil
}

func (c *Controller) Active() bool {
	return c.active
}

// Load replaces the working copy with the persisted board.
func (c *Controller) Load(ctx context.Context) error {
	view, err := c.backend.Load(ctx, c.boardID)
	if err != nil {
		return fmt.Errorf("load board %d: %w", c.boardID, err)
	}
	c.board = view.Board
	c.tasks = append(c.tasks[:0:0], view.Tasks...)
	if c.editing != 0 && c.indexOf(c.editing) < 0 {
		c.editing = 0
	}
	return nil
}

func (c *Controller) Board() model.Board {
	return c.board
}

// Tasks returns the unfiltered working copy.
func (c *Controller) Tasks() []model.Task {
	return append([]model.Task(nil), c.tasks...)
}

func (c *Controller) Task(taskID uint) (model.Task, bool) {
	i := c.indexOf(taskID)
	if i < 0 {
		return model.Task{}, false
	}
	return c.tasks[i], true
}

func (c *Controller) SetSearch(query string) {
	c.search = query
}

func (c *Controller) Search() string {
	return c.search
}

// SetPriorityFilter ignores values outside Filters.
func (c *Controller) SetPriorityFilter(f Filter) {
	for _, known := range Filters {
		if f == known {
			c.filter = f
			return
		}
	}
}

func (c *Controller) PriorityFilter() Filter {
	return c.filter
}

// CycleFilter steps ALL, LOW, MEDIUM, HIGH and back to ALL.
func (c *Controller) CycleFilter() Filter {
	for i, f := range Filters {
		if f == c.filter {
			c.filter = Filters[(i+1)%len(Filters)]
			return c.filter
		}
	}
	c.filter = FilterAll
	return c.filter
}

func (c *Controller) FilterActive() bool {
	return c.search != "" || c.filter != FilterAll
}

// DragEnabled reports whether a drop would be accepted.
func (c *Controller) DragEnabled() bool {
	return c.active && !c.FilterActive()
}

func (c *Controller) matches(t model.Task) bool {
	if c.filter != FilterAll && Filter(t.Priority) != c.filter {
		return false
	}
	return strings.Contains(strings.ToLower(t.Title), strings.ToLower(c.search))
}

// Filtered is the working copy narrowed by search and priority filter.
func (c *Controller) Filtered() []model.Task {
	var out []model.Task
	for _, t := range c.tasks {
		if c.matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// Columns partitions the filtered tasks by status.
func (c *Controller) Columns() []Column {
	cols := make([]Column, len(model.Statuses))
	index := make(map[model.Status]int, len(model.Statuses))
	for i, s := range model.Statuses {
		cols[i] = Column{Status: s, Title: s.Title()}
		index[s] = i
	}
	for _, t := range c.Filtered() {
		if i, ok := index[t.Status]; ok {
			cols[i].Tasks = append(cols[i].Tasks, t)
		}
	}
	return cols
}

// Drop applies a finished drag. The move is applied locally first and
// reverted if the server rejects it.
func (c *Controller) Drop(ctx context.Context, ev DropEvent) error {
	if !c.active {
		return ErrInactive
	}
	if ev.Destination == nil || *ev.Destination == ev.Source {
		return nil
	}
	if c.FilterActive() {
		return ErrFiltersActive
	}
	dest, ok := model.ParseStatus(string(*ev.Destination))
	if !ok {
		return fmt.Errorf("unknown column %q", *ev.Destination)
	}
	i := c.indexOf(ev.TaskID)
	if i < 0 {
		return ErrUnknownTask
	}

	previous := c.tasks[i].Status
	c.tasks[i].Status = dest
	if err := c.backend.UpdateTaskStatus(ctx, c.boardID, ev.TaskID, dest); err != nil {
		if j := c.indexOf(ev.TaskID); j >= 0 {
			c.tasks[j].Status = previous
		}
		log.WithError(err).WithField("task_id", ev.TaskID).Warn("move rejected, reverted")
		return fmt.Errorf("move task: %w", err)
	}
	c.reload(ctx)
	return nil
}

// CyclePriority advances the task's priority locally and on the server,
// reverting the local value if the server rejects it.
func (c *Controller) CyclePriority(ctx context.Context, taskID uint) error {
	if !c.active {
		return ErrInactive
	}
	i := c.indexOf(taskID)
	if i < 0 {
		return ErrUnknownTask
	}
	current := c.tasks[i].Priority
	c.tasks[i].Priority = current.Next()
	if err := c.backend.CyclePriority(ctx, c.boardID, taskID, current); err != nil {
		if j := c.indexOf(taskID); j >= 0 {
			c.tasks[j].Priority = current
		}
		return fmt.Errorf("cycle priority: %w", err)
	}
	c.reload(ctx)
	return nil
}

func (c *Controller) CreateTask(ctx context.Context, title string) error {
	if !c.active {
		return ErrInactive
	}
	if err := c.backend.CreateTask(ctx, c.boardID, title); err != nil {
		return err
	}
	c.reload(ctx)
	return nil
}

func (c *Controller) DeleteTask(ctx context.Context, taskID uint) error {
	if !c.active {
		return ErrInactive
	}
	if err := c.backend.DeleteTask(ctx, c.boardID, taskID); err != nil {
		return err
	}
	if c.editing == taskID {
		c.editing = 0
	}
	c.reload(ctx)
	return nil
}

// BeginEdit puts taskID in edit mode, replacing any other edit in progress.
func (c *Controller) BeginEdit(taskID uint) bool {
	if !c.active || c.indexOf(taskID) < 0 {
		return false
	}
	c.editing = taskID
	return true
}

// Editing returns the task being edited, if any.
func (c *Controller) Editing() (uint, bool) {
	return c.editing, c.editing != 0
}

func (c *Controller) CancelEdit() {
	c.editing = 0
}

// SubmitEdit sends the edit form for the task in edit mode. Edit mode ends
// whether or not the server accepts it.
func (c *Controller) SubmitEdit(ctx context.Context, input service.ContentInput) error {
	taskID := c.editing
	if taskID == 0 {
		return nil
	}
	c.editing = 0
	if err := c.backend.UpdateTaskContent(ctx, c.boardID, taskID, input); err != nil {
		log.WithError(err).WithField("task_id", taskID).Debug("edit rejected")
		return err
	}
	c.reload(ctx)
	return nil
}

// Progress is the share of done tasks over the whole board, filters ignored.
func (c *Controller) Progress() int {
	done := 0
	for _, t := range c.tasks {
		if t.Status == model.StatusDone {
			done++
		}
	}
	return model.Progress(len(c.tasks), done)
}

func (c *Controller) IsOverdue(t model.Task) bool {
	return t.IsOverdue(c.now())
}

func (c *Controller) reload(ctx context.Context) {
	if err := c.Load(ctx); err != nil {
		log.WithError(err).Warn("refresh board")
	}
}

func (c *Controller) indexOf(taskID uint) int {
	for i, t := range c.tasks {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}
