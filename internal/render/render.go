// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render executes the embedded HTML templates for the admin editor
// and the public site. Admin pages are written straight to the response;
// public pages are rendered to bytes so they can be cached.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"atelier/internal/markdown"
	"atelier/internal/middleware"
	"atelier/internal/models"
	"atelier/internal/session"
)

//go:embed templates/admin/*.html templates/public/*.html
var templateFS embed.FS

// PageData holds all data passed to admin templates.
type PageData struct {
	Title       string
	Tab         models.Resource // active tab, empty on login pages
	SiteName    string
	Session     *session.Data
	AuthEnabled bool
	CSRFToken   string
	Data        map[string]any
	Flashes     []Flash
}

// Flash is a one-time notification shown above the page content.
type Flash struct {
	Type    string // "success", "error", "warning"
	Message string
}

// Field is one input in an admin form. Kind is "text", "textarea",
// "gallery", "image", "checkbox" or any other HTML input type.
type Field struct {
	Name    string
	Label   string
	Kind    string
	Value   string
	Checked bool
	Help    string
	Items   []string // gallery entries shown with a remove box
}

// Row is one item in an admin list table.
type Row struct {
	Title     string
	Cells     []string
	EditURL   string
	DeleteURL string
}

// PublicData holds the data passed to public templates.
type PublicData struct {
	Title    string
	SiteName string
	Data     map[string]any
}

// Renderer holds the parsed templates.
type Renderer struct {
	admin    map[string]*template.Template
	public   map[string]*template.Template
	siteName string
	funcMap  template.FuncMap
}

// standaloneTemplates render without the admin layout.
var standaloneTemplates = map[string]bool{
	"login": true,
	"totp":  true,
}

// New parses every embedded template. Each page is paired with its
// section's layout.
func New(siteName string) (*Renderer, error) {
	r := &Renderer{
		admin:    make(map[string]*template.Template),
		public:   make(map[string]*template.Template),
		siteName: siteName,
		funcMap: template.FuncMap{
			"tabs": func() []models.Resource { return models.Resources },
			"activeClass": func(current, target models.Resource) string {
				if current == target {
					return "tab active"
				}
				return "tab"
			},
			"markdown": markdown.Render,
			"join":     strings.Join,
			"lines": func(s string) []string {
				var out []string
				for _, l := range strings.Split(s, "\n") {
					if l = strings.TrimSpace(l); l != "" {
						out = append(out, l)
					}
				}
				return out
			},
		},
	}

	if err := r.parse("admin", "base.html", r.admin); err != nil {
		return nil, err
	}
	if err := r.parse("public", "layout.html", r.public); err != nil {
		return nil, err
	}
	return r, nil
}

func (rn *Renderer) parse(section, layout string, into map[string]*template.Template) error {
	dir := "templates/" + section
	entries, err := fs.ReadDir(templateFS, dir)
	if err != nil {
		return fmt.Errorf("read %s templates: %w", section, err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == layout {
			continue
		}
		tmplName := strings.TrimSuffix(name, ".html")

		var tmpl *template.Template
		if section == "admin" && standaloneTemplates[tmplName] {
			tmpl, err = template.New(name).Funcs(rn.funcMap).ParseFS(templateFS, path.Join(dir, name))
		} else {
			tmpl, err = template.New(layout).Funcs(rn.funcMap).ParseFS(templateFS, path.Join(dir, layout), path.Join(dir, name))
		}
		if err != nil {
			return fmt.Errorf("parse template %s/%s: %w", section, name, err)
		}
		into[tmplName] = tmpl
	}
	return nil
}

// Admin renders an admin page with status 200.
func (rn *Renderer) Admin(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	rn.AdminStatus(w, r, http.StatusOK, name, data)
}

// AdminStatus renders an admin page with the given status code.
func (rn *Renderer) AdminStatus(w http.ResponseWriter, r *http.Request, status int, name string, data *PageData) {
	tmpl, ok := rn.admin[name]
	if !ok {
		http.Error(w, fmt.Sprintf("template %q not found", name), http.StatusInternalServerError)
		return
	}

	data.CSRFToken = middleware.CSRFTokenFromCtx(r.Context())
	if data.Session == nil {
		data.Session = middleware.SessionFromCtx(r.Context())
	}
	data.SiteName = rn.siteName

	execName := "base.html"
	if standaloneTemplates[name] {
		execName = name + ".html"
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, execName, data); err != nil {
		slog.Error("admin template failed", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// Public renders a public page to bytes.
func (rn *Renderer) Public(name string, data *PublicData) ([]byte, error) {
	tmpl, ok := rn.public[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	data.SiteName = rn.siteName

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// PublicError writes the blocking error page. No partial content is shown.
func (rn *Renderer) PublicError(w http.ResponseWriter, status int, message string) {
	body, err := rn.Public("error", &PublicData{
		Title: http.StatusText(status),
		Data:  map[string]any{"Status": status, "Message": message},
	})
	if err != nil {
		slog.Error("error page render failed", "error", err)
		http.Error(w, message, status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}
