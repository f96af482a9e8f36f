package registry

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/ppiankov/anchorx/internal/model"
	"github.com/ppiankov/anchorx/internal/template"
)

// Entry is a compiled, named template
type Entry struct {
	Name        string
	Description string
	Template    *template.Template
	Rows        bool
	Defaults    map[string]string
}

// Registry maps template names to compiled templates.
// It is immutable after New and safe for concurrent reads.
type Registry struct {
	entries map[string]*Entry
}

// New compiles every spec. All compile errors are reported together.
func New(specs map[string]model.TemplateSpec) (*Registry, error) {
	r := &Registry{entries: make(map[string]*Entry, len(specs))}

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(specs)) {
		entry, err := Compile(name, specs[name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.entries[name] = entry
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

// Compile builds one Entry, attaching child templates to their placeholders
func Compile(name string, spec model.TemplateSpec) (*Entry, error) {
	if spec.Pattern == "" {
		return nil, fmt.Errorf("template %q: empty pattern", name)
	}

	tpl, err := template.Compile(spec.Pattern)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", name, err)
	}

	for _, field := range slices.Sorted(maps.Keys(spec.Children)) {
		child, err := template.Compile(spec.Children[field])
		if err != nil {
			return nil, fmt.Errorf("template %q child %q: %w", name, field, err)
		}
		tpl, err = tpl.WithChild(field, child)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", name, err)
		}
	}

	return &Entry{
		Name:        name,
		Description: spec.Description,
		Template:    tpl,
		Rows:        spec.Rows,
		Defaults:    maps.Clone(spec.Defaults),
	}, nil
}

// Get returns the named entry
func (r *Registry) Get(name string) (*Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Names returns template names in sorted order
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.entries))
}

// Len returns the number of templates
func (r *Registry) Len() int {
	return len(r.entries)
}
