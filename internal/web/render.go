package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"taskboard/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{"index", "board", "login", "register"}

type renderer struct {
	templates map[string]*template.Template
}

func newRenderer() *renderer {
	funcs := template.FuncMap{
		"percent": func(s model.BoardSummary) int { return s.Percent() },
		"date": func(t model.Task) string {
			if t.DueDate == nil {
				return ""
			}
			return t.DueDate.Format("2006-01-02")
		},
	}
	r := &renderer{templates: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		r.templates[name] = template.Must(template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return r
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return tmpl.ExecuteTemplate(w, "layout.html", data)
}
