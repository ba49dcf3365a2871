// Package template renders authored message templates with per-user
// variables using Go's text/template syntax.
package template

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Renderer implements protocol.TemplateRenderer. Rendering fails on parse
// errors but tolerates missing variables, which render as empty strings so a
// half-filled CRM profile never blocks a send.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Render(templateContent string, variables map[string]any) (string, error) {
	tmpl, err := template.
		New("message").
		Option("missingkey=zero").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
		}).Parse(templateContent)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf strings.Builder

	if err := tmpl.Execute(&buf, variables); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	// missingkey=zero renders absent map keys as "<no value>"; scrub it so
	// recipients never see the placeholder.
	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}
