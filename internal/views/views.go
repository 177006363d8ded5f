// Package views renders the console screens. Templates are embedded and
// parsed once at startup; each page shares the layout chrome, which shows
// the navigation sidebar only when the page carries signed-in context.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
)

//go:embed templates/*.html
var files embed.FS

// Nav is the signed-in chrome: who is logged in and which sections their
// permissions expose. Pages rendered without a session leave it nil.
type Nav struct {
	UserName    string
	UserEmail   string
	Role        string
	Active      string
	ShowTenants bool
}

// Base is the data every page carries. Error is the page's error slot; it
// is empty at the start of each submission attempt.
type Base struct {
	Title string
	Nav   *Nav
	Error string
}

var pageNames = []string{
	"login",
	"verify2fa",
	"setup2fa",
	"dashboard",
	"users",
	"user_form",
	"tenants",
	"tenant_form",
	"tenant_details",
	"error",
}

var funcs = template.FuncMap{
	"roleLabel": RoleLabel,
}

// Renderer holds the parsed page templates.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every embedded page against the shared layout.
func New() (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(
			files,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages}, nil
}

// Render writes the named page with the given data.
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	return t.ExecuteTemplate(w, "layout.html", data)
}

// RoleLabel formats a role constant for display: "super_admin" becomes
// "Super Admin".
func RoleLabel(role string) string {
	words := strings.Split(role, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
