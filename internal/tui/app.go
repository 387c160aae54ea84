// Package tui is the terminal board client: three status columns driven by a
// board.Controller, with keyboard drag and drop.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskboard/internal/board"
	"taskboard/internal/model"
	"taskboard/internal/service"
)

type mode int

const (
	modeBoard mode = iota
	modeSearch
	modeEdit
	modeCreate
)

const (
	editTitle = iota
	editDescription
	editDue
)

// grab is a drag in progress: the task, the column it left and the column
// it is hovering over.
type grab struct {
	taskID uint
	source model.Status
	target int
}

// App is the bubbletea model. Every interaction runs to completion inside
// Update before the next message is read.
type App struct {
	ctx  context.Context
	ctrl *board.Controller

	width  int
	height int
	mode   mode

	col  int
	row  int
	grab *grab

	notice string
	err    string

	search    textinput.Model
	create    textinput.Model
	edit      []textinput.Model
	editFocus int
}

func New(ctx context.Context, ctrl *board.Controller) *App {
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search titles"

	create := textinput.New()
	create.Prompt = "+ "
	create.Placeholder = "new task title"

	edit := make([]textinput.Model, 3)
	for i, label := range []string{"Title: ", "Description: ", "Due (YYYY-MM-DD): "} {
		edit[i] = textinput.New()
		edit[i].Prompt = label
	}

	return &App{ctx: ctx, ctrl: ctrl, search: search, create: create, edit: edit}
}

func (a *App) Init() tea.Cmd {
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// The first size message is the mount signal.
		if !a.ctrl.Active() {
			if err := a.ctrl.Activate(a.ctx); err != nil {
				a.err = err.Error()
			}
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if !a.ctrl.Active() {
			if msg.String() == "q" {
				return a, tea.Quit
			}
			return a, nil
		}
		switch a.mode {
		case modeSearch:
			return a.updateSearch(msg)
		case modeEdit:
			return a.updateEdit(msg)
		case modeCreate:
			return a.updateCreate(msg)
		}
		return a.updateBoard(msg)
	}
	return a, nil
}

func (a *App) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.notice = ""
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "left", "h":
		a.moveColumn(-1)
	case "right", "l":
		a.moveColumn(1)
	case "up", "k":
		if a.grab == nil && a.row > 0 {
			a.row--
		}
	case "down", "j":
		if a.grab == nil {
			a.row++
			a.clampRow()
		}
	case " ", "space":
		a.startGrab()
	case "enter":
		a.drop()
	case "esc":
		if a.grab != nil {
			a.cancelGrab()
		}
	case "/":
		a.mode = modeSearch
		a.search.SetValue(a.ctrl.Search())
		a.search.CursorEnd()
		return a, a.search.Focus()
	case "f":
		a.ctrl.CycleFilter()
		a.clampRow()
	case "p":
		if task, ok := a.selected(); ok {
			a.report(a.ctrl.CyclePriority(a.ctx, task.ID))
		}
	case "e":
		return a.beginEdit()
	case "n":
		a.mode = modeCreate
		a.create.SetValue("")
		return a, a.create.Focus()
	case "x":
		if task, ok := a.selected(); ok {
			a.report(a.ctrl.DeleteTask(a.ctx, task.ID))
			a.clampRow()
		}
	case "r":
		a.report(a.ctrl.Load(a.ctx))
		a.clampRow()
	}
	return a, nil
}

func (a *App) moveColumn(delta int) {
	last := len(model.Statuses) - 1
	if a.grab != nil {
		a.grab.target = clamp(a.grab.target+delta, 0, last)
		return
	}
	a.col = clamp(a.col+delta, 0, last)
	a.clampRow()
}

func (a *App) startGrab() {
	task, ok := a.selected()
	if !ok {
		return
	}
	if !a.ctrl.DragEnabled() {
		a.notice = board.DragNotice
		return
	}
	a.grab = &grab{taskID: task.ID, source: task.Status, target: a.col}
}

func (a *App) drop() {
	if a.grab == nil {
		return
	}
	g := a.grab
	a.grab = nil
	dest := model.Statuses[g.target]
	if err := a.ctrl.Drop(a.ctx, board.DropEvent{TaskID: g.taskID, Source: g.source, Destination: &dest}); err != nil {
		a.report(err)
		return
	}
	a.err = ""
	a.col = g.target
	a.selectTask(g.taskID)
}

func (a *App) cancelGrab() {
	g := a.grab
	a.grab = nil
	a.report(a.ctrl.Drop(a.ctx, board.DropEvent{TaskID: g.taskID, Source: g.source}))
}

func (a *App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		a.mode = modeBoard
		a.search.Blur()
		return a, nil
	}
	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	a.ctrl.SetSearch(a.search.Value())
	a.clampRow()
	return a, cmd
}

func (a *App) beginEdit() (tea.Model, tea.Cmd) {
	task, ok := a.selected()
	if !ok || !a.ctrl.BeginEdit(task.ID) {
		return a, nil
	}
	a.edit[editTitle].SetValue(task.Title)
	a.edit[editDescription].SetValue(task.DescriptionText())
	due := ""
	if task.DueDate != nil {
		due = task.DueDate.Format("2006-01-02")
	}
	a.edit[editDue].SetValue(due)
	for i := range a.edit {
		a.edit[i].CursorEnd()
	}
	a.mode = modeEdit
	return a, a.focusEdit(editTitle)
}

func (a *App) focusEdit(i int) tea.Cmd {
	a.editFocus = i
	var cmd tea.Cmd
	for j := range a.edit {
		if j == i {
			cmd = a.edit[j].Focus()
		} else {
			a.edit[j].Blur()
		}
	}
	return cmd
}

func (a *App) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.ctrl.CancelEdit()
		a.mode = modeBoard
		return a, nil
	case "tab", "down":
		return a, a.focusEdit((a.editFocus + 1) % len(a.edit))
	case "shift+tab", "up":
		return a, a.focusEdit((a.editFocus + len(a.edit) - 1) % len(a.edit))
	case "enter":
		err := a.ctrl.SubmitEdit(a.ctx, service.ContentInput{
			Title:       a.edit[editTitle].Value(),
			Description: a.edit[editDescription].Value(),
			DueDate:     a.edit[editDue].Value(),
		})
		a.mode = modeBoard
		a.report(err)
		return a, nil
	}
	var cmd tea.Cmd
	a.edit[a.editFocus], cmd = a.edit[a.editFocus].Update(msg)
	return a, cmd
}

func (a *App) updateCreate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeBoard
		a.create.Blur()
		return a, nil
	case "enter":
		a.mode = modeBoard
		a.create.Blur()
		a.report(a.ctrl.CreateTask(a.ctx, a.create.Value()))
		return a, nil
	}
	var cmd tea.Cmd
	a.create, cmd = a.create.Update(msg)
	return a, cmd
}

func (a *App) report(err error) {
	switch {
	case err == nil:
		a.err = ""
	case errors.Is(err, board.ErrFiltersActive):
		a.notice = board.DragNotice
	default:
		a.err = err.Error()
	}
}

func (a *App) selected() (model.Task, bool) {
	cols := a.ctrl.Columns()
	if a.col >= len(cols) {
		return model.Task{}, false
	}
	tasks := cols[a.col].Tasks
	if a.row < 0 || a.row >= len(tasks) {
		return model.Task{}, false
	}
	return tasks[a.row], true
}

func (a *App) selectTask(taskID uint) {
	for i, t := range a.ctrl.Columns()[a.col].Tasks {
		if t.ID == taskID {
			a.row = i
			return
		}
	}
	a.clampRow()
}

func (a *App) clampRow() {
	n := len(a.ctrl.Columns()[a.col].Tasks)
	a.row = clamp(a.row, 0, max(0, n-1))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F5A623")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	cursorStyle  = lipgloss.NewStyle().Reverse(true)
	grabStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#F5A623"))
	columnStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	targetStyle = columnStyle.BorderForeground(lipgloss.Color("#F5A623"))
)

func (a *App) View() string {
	if !a.ctrl.Active() {
		if a.err != "" {
			return errorStyle.Render(a.err) + "\n" + hintStyle.Render("q quit")
		}
		return hintStyle.Render("Loading board...")
	}

	b := a.ctrl.Board()
	header := titleStyle.Render(fmt.Sprintf("%s  %d%% done", b.Title, a.ctrl.Progress()))

	filters := fmt.Sprintf("priority: %s", a.ctrl.PriorityFilter())
	if q := a.ctrl.Search(); q != "" {
		filters += fmt.Sprintf("  search: %q", q)
	}
	if a.ctrl.FilterActive() {
		filters += "  (drag disabled)"
	}

	sections := []string{header, hintStyle.Render(filters), a.renderColumns()}
	switch a.mode {
	case modeSearch:
		sections = append(sections, a.search.View())
	case modeCreate:
		sections = append(sections, a.create.View())
	case modeEdit:
		for _, in := range a.edit {
			sections = append(sections, in.View())
		}
	}
	if a.notice != "" {
		sections = append(sections, noticeStyle.Render(a.notice))
	}
	if a.err != "" {
		sections = append(sections, errorStyle.Render(a.err))
	}
	sections = append(sections, hintStyle.Render(a.hints()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (a *App) renderColumns() string {
	width := 24
	if a.width > 0 {
		width = max(20, a.width/3-4)
	}
	cols := a.ctrl.Columns()
	rendered := make([]string, len(cols))
	for i, col := range cols {
		lines := []string{lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%s (%d)", col.Title, len(col.Tasks)))}
		for j, task := range col.Tasks {
			line := a.renderTask(task)
			switch {
			case a.grab != nil && a.grab.taskID == task.ID:
				line = grabStyle.Render(line)
			case a.grab == nil && i == a.col && j == a.row:
				line = cursorStyle.Render(line)
			}
			lines = append(lines, line)
		}
		style := columnStyle
		if a.grab != nil && a.grab.target == i {
			style = targetStyle
		}
		rendered[i] = style.Width(width).Render(strings.Join(lines, "\n"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (a *App) renderTask(task model.Task) string {
	line := fmt.Sprintf("%s %s", priorityMark(task.Priority), task.Title)
	if task.DueDate != nil {
		due := task.DueDate.Format("01-02")
		if a.ctrl.IsOverdue(task) {
			due = overdueStyle.Render("! " + due)
		}
		line += " " + due
	}
	return line
}

func priorityMark(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "[H]"
	case model.PriorityMedium:
		return "[M]"
	default:
		return "[L]"
	}
}

func (a *App) hints() string {
	switch {
	case a.grab != nil:
		return "←/→ choose column · enter drop · esc cancel"
	case a.mode == modeSearch:
		return "type to filter · enter/esc done"
	case a.mode == modeEdit:
		return "tab next field · enter save · esc cancel"
	case a.mode == modeCreate:
		return "enter create · esc cancel"
	}
	return "space grab · / search · f priority filter · p priority · e edit · n new · x delete · r reload · q quit"
}
