// Package generator maps DSDL types to output files and renders them with a
// template environment.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/electwix/dsdl-catalyst/internal/dsdl"
	"github.com/electwix/dsdl-catalyst/internal/lang"
	"github.com/electwix/dsdl-catalyst/internal/templates"
)

// File is one rendered output file. Path is slash separated and relative to
// the output directory.
type File struct {
	Path    string
	Content []byte
	// Type is the rendered type; nil for namespace files.
	Type *dsdl.CompositeType
	// Namespace is the dotted namespace of the file.
	Namespace string
}

// RenderError reports a file whose template failed to render.
type RenderError struct {
	// Path is the output path of the file.
	Path string
	// Source is the definition file of the rendered type; empty for namespace files.
	Source string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Path, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Options configures a Generator.
type Options struct {
	// GenerateNamespaces emits namespace files even for languages that do not
	// define them as part of their standard.
	GenerateNamespaces bool
	// Concurrency bounds the number of files rendered at once. Zero uses GOMAXPROCS.
	Concurrency int
	Logger      *slog.Logger
}

// Generator renders the files of a target language.
type Generator struct {
	env       *templates.Environment
	language  *lang.Language
	extension string
	stem      string
	idFilter  func(string) string
	opts      Options
}

// New builds a Generator for the target language of langCtx.
func New(langCtx *lang.Context, env *templates.Environment, opts Options) (*Generator, error) {
	if env == nil {
		return nil, errors.New("generator: template environment is required")
	}
	language := langCtx.TargetLanguage()
	if language == nil {
		return nil, errors.New("generator: target language is required")
	}
	ext, err := langCtx.OutputExtension()
	if err != nil {
		return nil, err
	}
	stem := langCtx.DefaultNamespaceOutputStem()
	if stem == "" {
		stem = language.NamespaceOutputStem()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{
		env:       env,
		language:  language,
		extension: ext,
		stem:      stem,
		idFilter:  langCtx.TargetIDFilter(),
		opts:      opts,
	}, nil
}

// OutputPath returns the relative path of the file generated for t:
// each namespace segment as a directory, then <ShortName>_<major>_<minor>.
func (g *Generator) OutputPath(t *dsdl.CompositeType) string {
	name := fmt.Sprintf("%s_%d_%d%s", t.ShortName(), t.Version.Major, t.Version.Minor, g.extension)
	return path.Join(append(g.namespaceDirs(t.FullNamespace()), name)...)
}

// NamespacePath returns the relative path of the namespace file of ns.
func (g *Generator) NamespacePath(ns string) string {
	return path.Join(append(g.namespaceDirs(ns), g.stem+g.extension)...)
}

func (g *Generator) namespaceDirs(ns string) []string {
	if ns == "" {
		return nil
	}
	segments := strings.Split(ns, ".")
	for i, s := range segments {
		segments[i] = g.idFilter(s)
	}
	return segments
}

// EmitsNamespaces reports whether Generate produces namespace files.
func (g *Generator) EmitsNamespaces() bool {
	return g.opts.GenerateNamespaces || g.language.HasStandardNamespaceFiles()
}

type unit struct {
	path      string
	typ       *dsdl.CompositeType
	namespace string
	members   []*dsdl.CompositeType
}

// Plan returns the files Generate would produce, without rendering them.
func (g *Generator) Plan(types []*dsdl.CompositeType) ([]File, error) {
	units, err := g.units(types)
	if err != nil {
		return nil, err
	}
	files := make([]File, len(units))
	for i, u := range units {
		files[i] = File{Path: u.path, Type: u.typ, Namespace: u.namespace}
	}
	return files, nil
}

// Generate renders every type and, when enabled, every namespace file. Files
// are rendered concurrently and returned sorted by path.
func (g *Generator) Generate(ctx context.Context, types []*dsdl.CompositeType) ([]File, error) {
	units, err := g.units(types)
	if err != nil {
		return nil, err
	}

	limit := g.opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	files := make([]File, len(units))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	for i, u := range units {
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var (
				content []byte
				err     error
			)
			if u.typ != nil {
				content, err = g.env.RenderType(u.typ)
			} else {
				content, err = g.env.RenderNamespace(u.namespace, u.members)
			}
			if err != nil {
				renderErr := &RenderError{Path: u.path, Err: err}
				if u.typ != nil {
					renderErr.Source = u.typ.Source
				}
				return renderErr
			}
			files[i] = File{Path: u.path, Content: content, Type: u.typ, Namespace: u.namespace}
			g.opts.Logger.Debug("rendered file", "path", u.path, "bytes", len(content))
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (g *Generator) units(types []*dsdl.CompositeType) ([]unit, error) {
	units := make([]unit, 0, len(types))
	owners := make(map[string]string, len(types))
	members := make(map[string][]*dsdl.CompositeType)

	for _, t := range types {
		p := g.OutputPath(t)
		if prev, dup := owners[p]; dup {
			return nil, fmt.Errorf("generator: %s and %s map to the same output path %s", prev, t, p)
		}
		owners[p] = t.String()
		units = append(units, unit{path: p, typ: t, namespace: t.FullNamespace()})

		if !g.EmitsNamespaces() {
			continue
		}
		ns := t.FullNamespace()
		members[ns] = append(members[ns], t)
		for parent := ns; parent != ""; {
			i := strings.LastIndexByte(parent, '.')
			if i < 0 {
				break
			}
			parent = parent[:i]
			if _, ok := members[parent]; !ok {
				members[parent] = nil
			}
		}
	}

	for ns, list := range members {
		if ns == "" {
			continue
		}
		p := g.NamespacePath(ns)
		if prev, dup := owners[p]; dup {
			return nil, fmt.Errorf("generator: namespace %s and %s map to the same output path %s", ns, prev, p)
		}
		owners[p] = "namespace " + ns
		units = append(units, unit{path: p, namespace: ns, members: list})
	}

	slices.SortFunc(units, func(a, b unit) int { return strings.Compare(a.path, b.path) })
	return units, nil
}
