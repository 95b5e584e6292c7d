// Package fileset expands the glob patterns of a project file into concrete
// paths.
package fileset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrNoPatterns is returned when a resolve call is given no patterns.
var ErrNoPatterns = errors.New("fileset: no patterns provided")

// PatternError reports a malformed glob pattern.
type PatternError struct {
	Pattern string
	Err     error
}

func (e PatternError) Error() string {
	return fmt.Sprintf("invalid glob pattern %q: %v", e.Pattern, e.Err)
}

func (e PatternError) Unwrap() error { return e.Err }

// NoMatchError lists the patterns that matched nothing of the requested kind.
type NoMatchError struct {
	Patterns []string
}

func (e NoMatchError) Error() string {
	return "patterns matched no files: " + strings.Join(e.Patterns, ", ")
}

// Kind selects which entries a pattern may match.
type Kind int

const (
	// Files matches regular files only.
	Files Kind = iota
	// Dirs matches directories only.
	Dirs
)

// Resolver evaluates glob patterns against a filesystem and maps every match
// to an output path.
type Resolver struct {
	fsys fs.FS
	join func(name string) string
}

// NewResolver resolves against fsys and returns match names unchanged.
func NewResolver(fsys fs.FS) Resolver {
	return Resolver{fsys: fsys, join: func(name string) string { return name }}
}

// NewOSResolver resolves against the directory base and returns absolute
// paths. Absolute patterns are taken as they are.
func NewOSResolver(base string) (Resolver, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return Resolver{}, fmt.Errorf("resolve base %q: %w", base, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Resolver{}, fmt.Errorf("stat base %q: %w", abs, err)
	}
	if !info.IsDir() {
		return Resolver{}, fmt.Errorf("base %q is not a directory", abs)
	}
	return Resolver{
		fsys: os.DirFS(abs),
		join: func(name string) string {
			if filepath.IsAbs(name) {
				return filepath.Clean(name)
			}
			return filepath.Join(abs, filepath.FromSlash(name))
		},
	}, nil
}

// Resolve expands patterns to regular files.
func (r Resolver) Resolve(patterns []string) ([]string, error) {
	return r.ResolveKind(Files, patterns)
}

// ResolveDirs expands patterns to directories.
func (r Resolver) ResolveDirs(patterns []string) ([]string, error) {
	return r.ResolveKind(Dirs, patterns)
}

// ResolveKind expands every pattern and returns the sorted, de-duplicated
// matches of kind. Every pattern must match at least one entry.
func (r Resolver) ResolveKind(kind Kind, patterns []string) ([]string, error) {
	if r.fsys == nil {
		return nil, errors.New("fileset: resolver has no filesystem")
	}
	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}
	join := r.join
	if join == nil {
		join = func(name string) string { return name }
	}

	var (
		found   []string
		missing []string
	)
	for _, pattern := range patterns {
		matches, err := r.glob(pattern)
		if err != nil {
			return nil, PatternError{Pattern: pattern, Err: err}
		}
		n := 0
		for _, m := range matches {
			ok, err := r.isKind(m, kind)
			if err != nil {
				return nil, err
			}
			if ok {
				found = append(found, join(m))
				n++
			}
		}
		if n == 0 {
			missing = append(missing, pattern)
		}
	}
	if len(missing) > 0 {
		return nil, NoMatchError{Patterns: missing}
	}

	slices.Sort(found)
	return slices.Compact(found), nil
}

func (r Resolver) glob(pattern string) ([]string, error) {
	if filepath.IsAbs(pattern) {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, err
		}
		return filepath.Glob(pattern)
	}
	return fs.Glob(r.fsys, filepath.ToSlash(filepath.Clean(pattern)))
}

func (r Resolver) isKind(name string, kind Kind) (bool, error) {
	var (
		info fs.FileInfo
		err  error
	)
	if filepath.IsAbs(name) {
		info, err = os.Stat(name)
	} else {
		info, err = fs.Stat(r.fsys, name)
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", name, err)
	}
	if kind == Dirs {
		return info.IsDir(), nil
	}
	return info.Mode().IsRegular(), nil
}
