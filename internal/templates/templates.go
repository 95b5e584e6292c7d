// Package templates loads the code templates of a target language and
// renders them with the language filters bound to a fresh render scope.
package templates

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"text/template"

	"github.com/electwix/dsdl-catalyst/internal/dsdl"
	"github.com/electwix/dsdl-catalyst/internal/lang"

	// Registers the filters of the built-in target languages.
	_ "github.com/electwix/dsdl-catalyst/internal/lang/py"
)

//go:embed py/*.tmpl
var builtinFS embed.FS

// Template names selected by the generator.
const (
	MessageTemplate   = "MessageType.tmpl"
	ServiceTemplate   = "ServiceType.tmpl"
	NamespaceTemplate = "Namespace.tmpl"
)

const pattern = "*.tmpl"

// ErrTemplateNotFound is returned when rendering a template that was not loaded.
var ErrTemplateNotFound = errors.New("template not found")

// Data is the value templates execute against.
type Data struct {
	// T is the type being rendered; nil for namespace files.
	T *dsdl.CompositeType
	// Namespace is the dotted namespace of the output file.
	Namespace string
	// Types lists the types declared in the namespace of a namespace file.
	Types []*dsdl.CompositeType
	// Language is the target language.
	Language *lang.Language
}

// Options configures New.
type Options struct {
	// Language is the target language. Required.
	Language *lang.Language
	// Dir holds user templates. Empty selects the built-in templates of Language.
	Dir string
}

// Environment is a parsed template set. It is safe for concurrent use; each
// Render call executes a clone with its own function map.
type Environment struct {
	language *lang.Language
	base     *template.Template
}

// New parses the templates selected by opts.
func New(opts Options) (*Environment, error) {
	if opts.Language == nil {
		return nil, errors.New("templates: target language is required")
	}

	var (
		fsys   fs.FS
		source string
	)
	if opts.Dir != "" {
		fsys, source = os.DirFS(opts.Dir), filepath.Clean(opts.Dir)
	} else {
		sub, err := fs.Sub(builtinFS, opts.Language.Name())
		if err != nil {
			return nil, fmt.Errorf("built-in templates for %s: %w", opts.Language.Name(), err)
		}
		fsys, source = sub, "built-in "+opts.Language.Name()
	}

	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("templates %s: %w", source, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("templates %s: no %s files", source, pattern)
	}

	env := &Environment{language: opts.Language}
	base, err := template.New(opts.Language.Name()).
		Funcs(env.funcs(lang.NewUniqueNames())).
		ParseFS(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("parse templates %s: %w", source, err)
	}
	env.base = base
	return env, nil
}

// Language returns the target language.
func (e *Environment) Language() *lang.Language { return e.language }

// Has reports whether a template named name was loaded.
func (e *Environment) Has(name string) bool { return e.base.Lookup(name) != nil }

// Names lists the loaded template files in sorted order.
func (e *Environment) Names() []string {
	names := make([]string, 0)
	for _, t := range e.base.Templates() {
		if filepath.Ext(t.Name()) == ".tmpl" {
			names = append(names, t.Name())
		}
	}
	slices.Sort(names)
	return names
}

// TemplateFor selects the template of a type.
func TemplateFor(t *dsdl.CompositeType) string {
	if t.IsService() {
		return ServiceTemplate
	}
	return MessageTemplate
}

// RenderType renders t with the template selected for it.
func (e *Environment) RenderType(t *dsdl.CompositeType) ([]byte, error) {
	return e.Render(TemplateFor(t), Data{T: t, Namespace: t.FullNamespace(), Language: e.language})
}

// RenderNamespace renders the namespace file of ns listing types.
func (e *Environment) RenderNamespace(ns string, types []*dsdl.CompositeType) ([]byte, error) {
	return e.Render(NamespaceTemplate, Data{Namespace: ns, Types: types, Language: e.language})
}

// Render executes the named template. Every call starts a new unique-name
// scope.
func (e *Environment) Render(name string, data Data) ([]byte, error) {
	if !e.Has(name) {
		return nil, fmt.Errorf("%s: %w", name, ErrTemplateNotFound)
	}
	if data.Language == nil {
		data.Language = e.language
	}

	tmpl, err := e.base.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone templates: %w", err)
	}
	tmpl.Funcs(e.funcs(lang.NewUniqueNames()))

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (e *Environment) funcs(names *lang.UniqueNames) template.FuncMap {
	funcs := CommonFuncs()
	for _, implicit := range []bool{true, false} {
		for name, value := range e.language.Globals(implicit) {
			funcs[name] = func() string { return value }
		}
		maps.Copy(funcs, e.language.Filters(names, implicit))
	}
	return funcs
}
