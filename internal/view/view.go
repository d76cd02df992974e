package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
)

// View represents a collection of parsed HTML templates.
type View struct {
	templates map[string]*template.Template
	fragments *template.Template
}

// New parses the layouts, partials and pages found in templateFS. Every page
// is parsed together with all layouts and partials; the partials alone make
// up the fragment set used by Fragment.
func New(templateFS fs.FS, funcs template.FuncMap) (*View, error) {
	v := &View{
		templates: make(map[string]*template.Template),
	}

	layouts, err := fs.Glob(templateFS, "templates/layouts/*.html")
	if err != nil {
		return nil, err
	}
	partials, err := fs.Glob(templateFS, "templates/partials/*.html")
	if err != nil {
		return nil, err
	}
	pages, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	if len(partials) > 0 {
		v.fragments, err = template.New("fragments").Funcs(funcs).ParseFS(templateFS, partials...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse partials: %w", err)
		}
	}

	for _, page := range pages {
		files := make([]string, 0, len(layouts)+len(partials)+1)
		files = append(files, layouts...)
		files = append(files, partials...)
		// The page goes last so its definitions replace the layout blocks
		files = append(files, page)
		// The name of the template is the base name of the page file
		name := filepath.Base(page)
		ts, err := template.New(name).Funcs(funcs).ParseFS(templateFS, files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		v.templates[name] = ts
	}

	return v, nil
}

// Fragment executes the partial template name and returns its markup.
func (v *View) Fragment(name string, data interface{}) (template.HTML, error) {
	if v.fragments == nil || v.fragments.Lookup(name) == nil {
		return "", fmt.Errorf("fragment %s not found", name)
	}
	buf := new(bytes.Buffer)
	if err := v.fragments.ExecuteTemplate(buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// Render executes a specific template by name.
func (v *View) Render(w io.Writer, r *http.Request, name string, data map[string]interface{}) error {
	ts, ok := v.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	if data == nil {
		data = make(map[string]interface{})
	}
	if mode, ok := DisplayMode(r.Context()); ok {
		data["DisplayMode"] = mode
	}

	// Execute the template into a buffer first to catch any errors
	// before writing to the response writer.
	buf := new(bytes.Buffer)
	if err := ts.Execute(buf, data); err != nil {
		return err
	}

	_, err := buf.WriteTo(w)
	return err
}
