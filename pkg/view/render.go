package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templatesFS embed.FS

type renderer struct {
	tmpl *template.Template
}

func newRenderer(now func() time.Time) (*renderer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"duration": FormatDuration,
		"ago": func(ts string) string {
			return FormatDateTimeAt(ts, now())
		},
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &renderer{tmpl: tmpl}, nil
}

func (r *renderer) render(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // output of html/template
}
