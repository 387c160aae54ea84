package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/action"
	"taskboard/internal/model"
	"taskboard/internal/service"
	"taskboard/internal/view"
)

type handlers struct {
	deps Deps
	opts Options
	log  *log.Logger
}

type indexPage struct {
	Name   string
	Boards []model.BoardSummary
}

type taskRow struct {
	model.Task
	Overdue bool
}

type columnView struct {
	Status model.Status
	Title  string
	Tasks  []taskRow
}

type boardPage struct {
	Board    model.Board
	Columns  []columnView
	Progress int
	Done     int
	Total    int
	Statuses []model.Status
}

type formPage struct {
	Email string
	Name  string
}

func (h *handlers) index(c echo.Context) error {
	who := identityFrom(c)
	if who == nil {
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	boards, err := h.deps.Reader.Boards(c.Request().Context(), who.UserID)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "index", indexPage{Name: who.Name, Boards: boards})
}

func (h *handlers) board(c echo.Context) error {
	who := identityFrom(c)
	if who == nil {
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	v, err := h.deps.Reader.Board(c.Request().Context(), uint(id))
	if errors.Is(err, view.ErrBoardNotFound) {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if err != nil {
		return err
	}
	if v.Board.UserID != who.UserID {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	return c.Render(http.StatusOK, "board", buildBoardPage(v, time.Now()))
}

func buildBoardPage(v model.BoardView, now time.Time) boardPage {
	summary := v.Summarize()
	page := boardPage{
		Board:    v.Board,
		Progress: summary.Percent(),
		Done:     summary.Done,
		Total:    summary.Total,
		Statuses: model.Statuses,
	}
	index := make(map[model.Status]int, len(model.Statuses))
	for i, s := range model.Statuses {
		page.Columns = append(page.Columns, columnView{Status: s, Title: s.Title()})
		index[s] = i
	}
	for _, t := range v.Tasks {
		if i, ok := index[t.Status]; ok {
			page.Columns[i].Tasks = append(page.Columns[i].Tasks, taskRow{Task: t, Overdue: t.IsOverdue(now)})
		}
	}
	return page
}

func (h *handlers) loginForm(c echo.Context) error {
	return c.Render(http.StatusOK, "login", formPage{})
}

func (h *handlers) registerForm(c echo.Context) error {
	return c.Render(http.StatusOK, "register", formPage{})
}

func (h *handlers) postAction(c echo.Context) error {
	name := c.Param("name")
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	ctx := action.WithToken(c.Request().Context(), tokenFrom(c))

	res, err := h.deps.Actions.Dispatch(ctx, name, form, identityFrom(c))
	if err != nil {
		return h.actionFailed(c, name, form, err)
	}

	switch {
	case res.Token != "":
		c.SetCookie(h.sessionCookie(res.Token, int(h.opts.SessionTTL.Seconds())))
		return c.Redirect(http.StatusSeeOther, "/")
	case res.ClearToken:
		c.SetCookie(h.sessionCookie("", -1))
		return c.Redirect(http.StatusSeeOther, "/login")
	case name == "register":
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	return c.Redirect(http.StatusSeeOther, refreshTarget(res.Refresh))
}

// actionFailed maps a rejected action onto a response. Validation and
// not-found failures change nothing and land back on the same view.
func (h *handlers) actionFailed(c echo.Context, name string, form action.Payload, err error) error {
	switch {
	case errors.Is(err, action.ErrUnknownAction):
		return echo.NewHTTPError(http.StatusNotFound, "unknown action")
	case name == "login":
		return c.Render(http.StatusOK, "login", formPage{Email: form.Get("email")})
	case name == "register":
		return c.Render(http.StatusOK, "register", formPage{Email: form.Get("email"), Name: form.Get("name")})
	case errors.Is(err, service.ErrUnauthenticated):
		return c.Redirect(http.StatusSeeOther, "/login")
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden)
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrNotFound):
		h.entry(c).WithError(err).WithField("action", name).Debug("action had no effect")
		return c.Redirect(http.StatusSeeOther, backTarget(form))
	}
	return err
}

func (h *handlers) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *handlers) entry(c echo.Context) *log.Entry {
	logger := h.log
	if logger == nil {
		logger = log.StandardLogger()
	}
	return logger.WithField("path", c.Path())
}

func refreshTarget(r model.Refresh) string {
	if r.Scope == model.RefreshBoard && r.BoardID != 0 {
		return "/boards/" + strconv.FormatUint(uint64(r.BoardID), 10)
	}
	return "/"
}

func backTarget(form action.Payload) string {
	if id, err := strconv.ParseUint(form.Get("boardId"), 10, 64); err == nil && id != 0 {
		return "/boards/" + strconv.FormatUint(id, 10)
	}
	return "/"
}
