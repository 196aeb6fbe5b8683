package monitor

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"sync"
)

// templateFuncs are available to every status template.
var templateFuncs = template.FuncMap{
	"onoff": func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	},
	"commas": func(v float64) string { return FormatWithCommas(int64(v)) },
	"ordinal": func(pos int) int { return pos + 1 },
}

// TemplateProvider executes the viewer's HTML templates by file name.
type TemplateProvider interface {
	ExecuteTemplate(w io.Writer, name string, data interface{}) error
}

// EmbeddedTemplateProvider parses every file matching pattern in its FS on
// first use. Parse errors are sticky.
type EmbeddedTemplateProvider struct {
	fsys    fs.FS
	pattern string

	once sync.Once
	set  *template.Template
	err  error
}

// NewEmbeddedTemplateProvider serves the templates in fsys matching pattern.
func NewEmbeddedTemplateProvider(fsys fs.FS, pattern string) *EmbeddedTemplateProvider {
	return &EmbeddedTemplateProvider{fsys: fsys, pattern: pattern}
}

func (p *EmbeddedTemplateProvider) load() (*template.Template, error) {
	p.once.Do(func() {
		p.set, p.err = template.New("").Funcs(templateFuncs).ParseFS(p.fsys, p.pattern)
	})
	return p.set, p.err
}

// Lookup returns the named template.
func (p *EmbeddedTemplateProvider) Lookup(name string) (*template.Template, error) {
	set, err := p.load()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates %s: %w", p.pattern, err)
	}
	t := set.Lookup(name)
	if t == nil {
		return nil, fmt.Errorf("template %s: %w", name, fs.ErrNotExist)
	}
	return t, nil
}

// ExecuteTemplate executes the named template into w.
func (p *EmbeddedTemplateProvider) ExecuteTemplate(w io.Writer, name string, data interface{}) error {
	t, err := p.Lookup(name)
	if err != nil {
		return err
	}
	return t.Execute(w, data)
}

// MockTemplateProvider serves templates from strings and records calls.
type MockTemplateProvider struct {
	Templates    map[string]string
	ExecuteError error
	ExecuteCalls []ExecuteCall
}

// ExecuteCall is one recorded ExecuteTemplate invocation.
type ExecuteCall struct {
	Name string
	Data interface{}
}

func NewMockTemplateProvider(templates map[string]string) *MockTemplateProvider {
	return &MockTemplateProvider{Templates: templates}
}

// ExecuteTemplate records the call, then fails with ExecuteError if set.
func (m *MockTemplateProvider) ExecuteTemplate(w io.Writer, name string, data interface{}) error {
	m.ExecuteCalls = append(m.ExecuteCalls, ExecuteCall{Name: name, Data: data})
	if m.ExecuteError != nil {
		return m.ExecuteError
	}
	content, ok := m.Templates[name]
	if !ok {
		return fmt.Errorf("template %s: %w", name, fs.ErrNotExist)
	}
	t, err := template.New(name).Funcs(templateFuncs).Parse(content)
	if err != nil {
		return err
	}
	return t.Execute(w, data)
}
