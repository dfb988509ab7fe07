package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/justestif/siren/internal/chat"
)

// Templates manages HTML template rendering.
type Templates struct {
	templates map[string]*template.Template
	partials  map[string]*template.Template
	funcs     template.FuncMap
}

// NewTemplates creates a new template manager by loading templates from the given filesystem.
func NewTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{
		templates: make(map[string]*template.Template),
		partials:  make(map[string]*template.Template),
		funcs:     defaultFuncs(),
	}

	if err := t.load(templatesFS); err != nil {
		return nil, err
	}

	return t, nil
}

// Render renders a page template inside the base layout.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.templates[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// RenderPartial renders a partial template (without base layout) with the given data.
func (t *Templates) RenderPartial(w io.Writer, partial string, data any) error {
	tmpl, ok := t.partials[partial]
	if !ok {
		return fmt.Errorf("partial %q not found", partial)
	}
	return tmpl.Execute(w, data)
}

// load parses layouts/*.html and partials/*.html into every pages/*.html
// template, and each partial on its own.
func (t *Templates) load(templatesFS fs.FS) error {
	layouts, err := fs.Glob(templatesFS, "layouts/*.html")
	if err != nil {
		return fmt.Errorf("finding layouts: %w", err)
	}

	partials, err := fs.Glob(templatesFS, "partials/*.html")
	if err != nil {
		return fmt.Errorf("finding partials: %w", err)
	}

	pages, err := fs.Glob(templatesFS, "pages/*.html")
	if err != nil {
		return fmt.Errorf("finding pages: %w", err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("no page templates found")
	}

	common := append(layouts, partials...)

	for _, page := range pages {
		name := templateName(page)
		files := append([]string{page}, common...)

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, files...)
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}
		t.templates[name] = tmpl
	}

	for _, partial := range partials {
		name := templateName(partial)

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, partial)
		if err != nil {
			return fmt.Errorf("parsing partial %s: %w", name, err)
		}
		t.partials[name] = tmpl
	}

	return nil
}

// templateName strips the directory and .html extension.
func templateName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".html")
}

// defaultFuncs returns the default template functions.
func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		// phaseClass gives a CSS class per phase, e.g. "phase-luteal".
		"phaseClass": func(phase string) string {
			if phase == "" {
				return ""
			}
			return "phase-" + strings.ToLower(phase)
		},

		"isUser": func(role chat.Role) bool {
			return role == chat.RoleUser
		},

		// formatDate formats a time as "Jan 2, 2006"
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},

		"summary": summaryHTML,
	}
}

// summaryHTML renders the result sentence with the phase and mood in <strong>.
func summaryHTML(phase, mood string) template.HTML {
	strong := func(s string) string {
		return "<strong>" + template.HTMLEscapeString(s) + "</strong>"
	}
	// The format itself is a constant without markup.
	return template.HTML(fmt.Sprintf(chat.SummaryFormat, strong(phase), strong(mood))) //nolint:gosec // arguments escaped above
}

// PageData contains common data passed to all page templates.
type PageData struct {
	Title       string
	CurrentPath string
}

// HomePageData contains data for the chat page.
type HomePageData struct {
	PageData
	Messages    []chat.Message
	Stage       string
	MaxDate     string // latest selectable start date, YYYY-MM-DD
	LinkText    string
	LoginOn     bool // Spotify login is configured
	Connected   bool
	UserName    string
	History     []HistoryItem
	FallbackURL string
}

// HistoryItem is one past recommendation shown under the chat.
type HistoryItem struct {
	CreatedAt   time.Time
	CycleDay    int
	Phase       string
	Mood        string
	PlaylistURL string
	Fallback    bool
}
