package view

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// Viewer describes the signed-in account for navigation and role-aware markup.
type Viewer struct {
	ID       int64
	Username string
	Role     string
}

// IsAdmin reports whether the viewer holds the admin role.
func (v *Viewer) IsAdmin() bool {
	return v != nil && v.Role == "admin"
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Viewer      *Viewer
	Data        any
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	titleCaser := cases.Title(language.English)
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"title": func(s string) string {
			return titleCaser.String(s)
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}
