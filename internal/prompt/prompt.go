// Package prompt renders the per-operation prompts sent to the language
// model. Templates are embedded in the binary; a directory of
// <operation>.tmpl files can replace any of them at startup.
package prompt

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/phrazzld/coach-api/internal/domain"
	"github.com/phrazzld/coach-api/internal/generation"
	"github.com/phrazzld/coach-api/internal/repair"
)

//go:embed templates/*.tmpl
var builtin embed.FS

const commonTemplate = "common.tmpl"

var operations = []domain.Operation{
	domain.OperationTraining,
	domain.OperationNutrition,
	domain.OperationSleep,
	domain.OperationChat,
	domain.OperationBundle,
}

var funcs = template.FuncMap{
	"join": strings.Join,
}

// Data is the value every template is executed with.
type Data struct {
	Profile   domain.Profile
	WeekIndex int
	Locale    string
	// Script is the writing system expected for Locale, empty for Latin.
	Script  string
	Message string
	Days    []string
}

// Builder renders prompts for every supported operation.
type Builder struct {
	templates map[domain.Operation]*template.Template
}

// NewBuilder parses the embedded templates. When dir is not empty, any
// <operation>.tmpl found there replaces the embedded template of the same
// name; the shared "profile", "language" and "json-only" blocks stay
// available to it.
func NewBuilder(dir string) (*Builder, error) {
	common, err := template.New(commonTemplate).Funcs(funcs).ParseFS(builtin, "templates/"+commonTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: parse common prompt template: %v", generation.ErrInvalidConfig, err)
	}

	b := &Builder{templates: make(map[domain.Operation]*template.Template, len(operations))}
	for _, op := range operations {
		name := string(op) + ".tmpl"
		text, err := readTemplate(dir, name)
		if err != nil {
			return nil, err
		}
		base, err := common.Clone()
		if err != nil {
			return nil, fmt.Errorf("%w: clone prompt templates: %v", generation.ErrInvalidConfig, err)
		}
		tmpl, err := base.New(name).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("%w: parse prompt template %s: %v", generation.ErrInvalidConfig, name, err)
		}
		b.templates[op] = tmpl
	}
	return b, nil
}

func readTemplate(dir, name string) (string, error) {
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, name))
		switch {
		case err == nil:
			return string(data), nil
		case !errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf("%w: read prompt template %s: %v", generation.ErrInvalidConfig, name, err)
		}
	}
	data, err := builtin.ReadFile("templates/" + name)
	if err != nil {
		return "", fmt.Errorf("%w: embedded prompt template %s: %v", generation.ErrInvalidConfig, name, err)
	}
	return string(data), nil
}

// Render returns the base prompt for req.
func (b *Builder) Render(req domain.GenerationRequest) (string, error) {
	tmpl, ok := b.templates[req.Operation]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidOperation, req.Operation)
	}

	locale := domain.NormalizeLocale(req.Locale)
	data := Data{
		Profile:   req.Profile,
		WeekIndex: req.WeekIndex,
		Locale:    locale,
		Script:    repair.ExpectedScript(locale),
		Message:   req.Message,
		Days:      make([]string, len(domain.DayKeys)),
	}
	for i, d := range domain.DayKeys {
		data.Days[i] = string(d)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s prompt template: %w", req.Operation, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// WithFeedback appends the previous attempt's issue to a rendered prompt.
// An empty feedback returns base unchanged.
func WithFeedback(base, feedback string) string {
	if feedback == "" {
		return base
	}
	return base + "\n\n" + feedback
}
