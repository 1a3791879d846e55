// Package ui renders the server side pages and their components.
package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/irsalhamdi/chainacademy/money"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type Renderer struct {
	components *template.Template
	pages      map[string]*template.Template
}

var funcs = template.FuncMap{
	"price": money.Format,
	"rating": func(r float64) string {
		return fmt.Sprintf("%.1f", r)
	},
	"duration": func(seconds int) string {
		return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
	},
	"pages": func(total int) []int {
		ps := make([]int, total)
		for i := range ps {
			ps[i] = i + 1
		}
		return ps
	},
	"add": func(a, b int) int { return a + b },
	"paragraphs": func(body string) []string {
		var out []string
		for _, p := range strings.Split(body, "\n\n") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	},
}

// New parses the embedded templates. Every page is parsed on top of its own
// copy of the layout and the components.
func New() (*Renderer, error) {
	base, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/components/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing components: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(files))
	for _, f := range files {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, f); err != nil {
			return nil, fmt.Errorf("parsing page %s: %w", f, err)
		}
		pages[strings.TrimSuffix(path.Base(f), ".html")] = t
	}

	return &Renderer{components: base, pages: pages}, nil
}

// Page renders a full page wrapped in the layout.
func (r *Renderer) Page(w io.Writer, name string, p Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return fmt.Errorf("rendering page %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Component renders a single named component.
func (r *Renderer) Component(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.components.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("rendering component %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the bundled stylesheet and images.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
