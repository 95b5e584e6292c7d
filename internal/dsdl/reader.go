package dsdl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/electwix/dsdl-catalyst/internal/cache"
)

// FileExtension is the suffix of definition files.
const FileExtension = ".dsdl"

// Namespace is a root namespace directory. Every definition below it belongs
// to Name plus the relative directory path.
type Namespace struct {
	Name string
	FS   fs.FS
	// Dir prefixes the source path recorded on each type; it is informational only.
	Dir string
}

// DirNamespace returns the namespace rooted at dir on the local filesystem,
// named after the directory.
func DirNamespace(dir string) Namespace {
	return Namespace{Name: filepath.Base(dir), FS: os.DirFS(dir), Dir: dir}
}

// Reader parses and links definition files.
type Reader struct {
	// Cache, when set, memoizes parsed files by content.
	Cache  cache.Cache[*definitionAST]
	Logger *slog.Logger
}

// NewReader returns a Reader backed by an in-memory parse cache.
func NewReader(logger *slog.Logger) *Reader {
	return &Reader{Cache: cache.NewMemory[*definitionAST](), Logger: logger}
}

type declaration struct {
	typ       *CompositeType
	namespace string
	ast       *definitionAST
	target    bool
}

// Read parses every definition in target and the lookup namespaces, resolves
// the type references between them, and returns the types of target sorted
// by full name and version.
func (r *Reader) Read(ctx context.Context, target Namespace, lookup ...Namespace) ([]*CompositeType, error) {
	logger := r.logger()
	decls := make(map[string]*declaration)
	order := make([]string, 0)

	for i, ns := range append([]Namespace{target}, lookup...) {
		isTarget := i == 0
		if !isTarget && ns.Name == target.Name && ns.Dir == target.Dir {
			continue
		}
		err := fs.WalkDir(ns.FS, ".", func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(p, FileExtension) {
				return nil
			}
			decl, err := r.load(ctx, ns, p)
			if err != nil {
				return err
			}
			decl.target = isTarget
			key := decl.typ.String()
			if existing, ok := decls[key]; ok {
				return &ParseError{Path: decl.typ.Source, Line: 1, Column: 1,
					Message: fmt.Sprintf("duplicate definition of %s (previous definition at %s)", key, existing.typ.Source)}
			}
			decls[key] = decl
			order = append(order, key)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("read namespace %s: %w", ns.Name, err)
		}
	}

	for _, key := range order {
		if err := link(decls[key], decls); err != nil {
			return nil, err
		}
	}

	types := make([]*CompositeType, 0, len(order))
	for _, key := range order {
		if decls[key].target {
			types = append(types, decls[key].typ)
		}
	}
	if err := checkCycles(types); err != nil {
		return nil, err
	}
	slices.SortFunc(types, func(a, b *CompositeType) int {
		if c := strings.Compare(a.FullName, b.FullName); c != 0 {
			return c
		}
		if a.Version.Major != b.Version.Major {
			return a.Version.Major - b.Version.Major
		}
		return a.Version.Minor - b.Version.Minor
	})
	logger.Debug("read namespace", "namespace", target.Name, "types", len(types), "lookup", len(lookup))
	return types, nil
}

// ReadNamespace reads the root namespace directory root, resolving references
// against it and the lookup directories.
func ReadNamespace(ctx context.Context, root string, lookupDirs ...string) ([]*CompositeType, error) {
	lookup := make([]Namespace, 0, len(lookupDirs))
	for _, dir := range lookupDirs {
		lookup = append(lookup, DirNamespace(dir))
	}
	return NewReader(nil).Read(ctx, DirNamespace(root), lookup...)
}

func (r *Reader) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

func (r *Reader) load(ctx context.Context, ns Namespace, rel string) (*declaration, error) {
	source := path.Join(ns.Name, rel)
	if ns.Dir != "" {
		source = filepath.Join(ns.Dir, filepath.FromSlash(rel))
	}

	shortName, version, err := parseFileName(path.Base(rel))
	if err != nil {
		return nil, &ParseError{Path: source, Line: 1, Column: 1, Message: err.Error()}
	}

	contents, err := fs.ReadFile(ns.FS, rel)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}

	var ast *definitionAST
	key := cache.ComputeKeyWithPrefix(source, contents)
	if r.Cache != nil {
		if cached, ok := r.Cache.Get(ctx, key); ok {
			ast = cached
		}
	}
	if ast == nil {
		ast, err = parseDefinition(source, contents)
		if err != nil {
			return nil, err
		}
		if r.Cache != nil {
			r.Cache.Set(ctx, key, ast, cache.NoExpiry)
		}
	}

	namespace := ns.Name
	if dir := path.Dir(rel); dir != "." {
		namespace += "." + strings.ReplaceAll(dir, "/", ".")
	}

	return &declaration{
		typ: &CompositeType{
			FullName: namespace + "." + shortName,
			Version:  version,
			Source:   source,
		},
		namespace: namespace,
		ast:       ast,
	}, nil
}

var fileNamePattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\.([0-9]+)\.([0-9]+)` + regexp.QuoteMeta(FileExtension) + `$`)

func parseFileName(name string) (string, Version, error) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", Version{}, fmt.Errorf("invalid definition file name %q: want <Name>.<major>.<minor>%s", name, FileExtension)
	}
	major, _ := strconv.Atoi(m[2])
	minor, _ := strconv.Atoi(m[3])
	return m[1], Version{Major: major, Minor: minor}, nil
}

func link(decl *declaration, decls map[string]*declaration) error {
	t := decl.typ
	sections := [][]*Attribute{nil}
	for _, stmt := range decl.ast.Statements {
		switch {
		case stmt.Separator:
			if len(sections) == 2 {
				return positioned(t.Source, stmt.Pos.Line, stmt.Pos.Column, "a service definition takes exactly one --- separator")
			}
			sections = append(sections, nil)
		case stmt.Directive != "":
			switch stmt.Directive {
			case "@deprecated":
				t.Deprecated = true
			case "@sealed", "@union":
				// accepted for compatibility; no effect on the model
			default:
				return positioned(t.Source, stmt.Pos.Line, stmt.Pos.Column, fmt.Sprintf("unknown directive %s", stmt.Directive))
			}
		case stmt.Field != nil:
			attr, err := resolveField(t.Source, stmt.Field, decl.namespace, decls)
			if err != nil {
				return err
			}
			sections[len(sections)-1] = append(sections[len(sections)-1], attr)
		}
	}

	if len(sections) == 1 {
		t.Attributes = sections[0]
		return nil
	}
	t.Request = &CompositeType{FullName: t.FullName + ".Request", Version: t.Version, Attributes: sections[0], Source: t.Source, Deprecated: t.Deprecated}
	t.Response = &CompositeType{FullName: t.FullName + ".Response", Version: t.Version, Attributes: sections[1], Source: t.Source, Deprecated: t.Deprecated}
	return nil
}

func resolveField(source string, f *fieldAST, namespace string, decls map[string]*declaration) (*Attribute, error) {
	fail := func(msg string) error { return positioned(source, f.Pos.Line, f.Pos.Column, msg) }

	dt, err := resolveType(f.Type, namespace, decls)
	if err != nil {
		return nil, fail(err.Error())
	}
	_, isVoid := dt.(*VoidType)

	if f.Array != nil {
		if isVoid {
			return nil, fail("padding cannot be an array")
		}
		if f.Array.Capacity < 1 {
			return nil, fail("array capacity must be positive")
		}
		dt = &ArrayType{Element: dt, Capacity: f.Array.Capacity, Variable: f.Array.Variable}
	}

	switch {
	case isVoid && f.Name != "":
		return nil, fail(fmt.Sprintf("padding field %s cannot be named", f.Type))
	case !isVoid && f.Name == "":
		return nil, fail(fmt.Sprintf("field of type %s requires a name", f.Type))
	case f.Value != nil:
		if _, ok := dt.(*PrimitiveType); !ok {
			return nil, fail("constants must have a primitive type")
		}
	}
	return &Attribute{Name: f.Name, DataType: dt, Value: f.Value}, nil
}

var primitivePattern = regexp.MustCompile(`^(uint|int|float|void)([0-9]+)$`)

var errUnknownType = errors.New("unknown type")

func resolveType(name, namespace string, decls map[string]*declaration) (DataType, error) {
	switch name {
	case "bool":
		return &PrimitiveType{Kind: KindBool, Bits: 1}, nil
	case "byte", "utf8":
		return &PrimitiveType{Kind: KindUnsigned, Bits: 8}, nil
	}
	if m := primitivePattern.FindStringSubmatch(name); m != nil {
		bits, _ := strconv.Atoi(m[2])
		switch m[1] {
		case "uint":
			if bits >= 1 && bits <= 64 {
				return &PrimitiveType{Kind: KindUnsigned, Bits: bits}, nil
			}
		case "int":
			if bits >= 2 && bits <= 64 {
				return &PrimitiveType{Kind: KindSigned, Bits: bits}, nil
			}
		case "float":
			if bits == 16 || bits == 32 || bits == 64 {
				return &PrimitiveType{Kind: KindFloat, Bits: bits}, nil
			}
		case "void":
			if bits >= 1 && bits <= 64 {
				return &VoidType{Bits: bits}, nil
			}
		}
		return nil, fmt.Errorf("invalid bit width for %s", name)
	}

	parts := strings.Split(name, ".")
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w %s", errUnknownType, name)
	}
	ref := name
	if len(parts) == 3 {
		ref = namespace + "." + name
	}
	decl, ok := decls[ref]
	if !ok {
		return nil, fmt.Errorf("%w %s", errUnknownType, ref)
	}
	return decl.typ, nil
}

func positioned(source string, line, column int, msg string) error {
	return &ParseError{Path: source, Line: line, Column: column, Message: msg}
}

func checkCycles(types []*CompositeType) error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[*CompositeType]int)
	var visit func(t *CompositeType, trail []string) error
	visit = func(t *CompositeType, trail []string) error {
		switch state[t] {
		case visiting:
			return fmt.Errorf("%s: circular type dependency: %s", t.Source, strings.Join(append(trail, t.String()), " -> "))
		case done:
			return nil
		}
		state[t] = visiting
		trail = append(trail, t.String())
		for _, dep := range dependencies(t) {
			if err := visit(dep, trail); err != nil {
				return err
			}
		}
		state[t] = done
		return nil
	}
	for _, t := range types {
		if err := visit(t, nil); err != nil {
			return err
		}
	}
	return nil
}

func dependencies(t *CompositeType) []*CompositeType {
	attrs := t.Attributes
	if t.IsService() {
		attrs = append(slices.Clone(t.Request.Attributes), t.Response.Attributes...)
	}
	out := make([]*CompositeType, 0)
	for _, a := range attrs {
		dt := a.DataType
		if arr, ok := dt.(*ArrayType); ok {
			dt = arr.Element
		}
		if c, ok := dt.(*CompositeType); ok {
			out = append(out, c)
		}
	}
	return out
}
