// Package caption renders the caption sentence from a text template.
package caption

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// DefaultPattern is the caption sentence rendered around the display name.
const DefaultPattern = "请问你看到{{.Name}}了吗"

// Data is the payload available to the caption template.
type Data struct {
	Name string
}

// Template renders caption sentences for display names.
type Template struct {
	template *template.Template
}

// New parses the given caption pattern.
func New(pattern string) (*Template, error) {
	parsed, err := template.New("caption").Funcs(sprig.TxtFuncMap()).Parse(pattern)
	if err != nil {
		return nil, fmt.Errorf("parsing caption pattern: %w", err)
	}
	return &Template{template: parsed}, nil
}

// Render renders the caption for the given display name.
func (t *Template) Render(name string) (string, error) {
	builder := &strings.Builder{}
	if err := t.template.Execute(builder, Data{Name: name}); err != nil {
		return "", fmt.Errorf("executing caption template: %w", err)
	}
	return builder.String(), nil
}
