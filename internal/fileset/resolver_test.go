package fileset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func demoFS() fstest.MapFS {
	return fstest.MapFS{
		"dsdl/demo/geo/Point.1.0.dsdl":   {Data: []byte("float32 x\n")},
		"dsdl/demo/time/Stamp.1.0.dsdl":  {Data: []byte("uint56 usec\n")},
		"dsdl/public/Heartbeat.1.0.dsdl": {Data: []byte("uint32 uptime\n")},
		"config/py.toml":                 {Data: []byte("[lang.py]\n")},
		"config/extra.yaml":              {Data: []byte("lang: {}\n")},
	}
}

func TestResolveFiles(t *testing.T) {
	t.Parallel()

	paths, err := NewResolver(demoFS()).Resolve([]string{"config/*.toml", "config/*", "./config/py.toml"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := []string{"config/extra.yaml", "config/py.toml"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("paths (-want +got):\n%s", diff)
	}
}

func TestResolveDirs(t *testing.T) {
	t.Parallel()

	paths, err := NewResolver(demoFS()).ResolveDirs([]string{"dsdl/*", "dsdl/demo"})
	if err != nil {
		t.Fatalf("ResolveDirs returned error: %v", err)
	}
	want := []string{"dsdl/demo", "dsdl/public"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("dirs (-want +got):\n%s", diff)
	}

	_, err = NewResolver(demoFS()).ResolveDirs([]string{"config/py.toml"})
	var noMatch NoMatchError
	if !errors.As(err, &noMatch) {
		t.Fatalf("a file must not match a directory pattern, got %v", err)
	}
}

func TestResolveNoMatches(t *testing.T) {
	t.Parallel()

	_, err := NewResolver(demoFS()).Resolve([]string{"config/*.toml", "missing/*.toml", "nope.yaml"})
	var noMatch NoMatchError
	if !errors.As(err, &noMatch) {
		t.Fatalf("expected NoMatchError, got %v", err)
	}
	if diff := cmp.Diff([]string{"missing/*.toml", "nope.yaml"}, noMatch.Patterns); diff != "" {
		t.Fatalf("missing patterns (-want +got):\n%s", diff)
	}
}

func TestResolveErrors(t *testing.T) {
	t.Parallel()

	if _, err := NewResolver(demoFS()).Resolve(nil); !errors.Is(err, ErrNoPatterns) {
		t.Fatalf("expected ErrNoPatterns, got %v", err)
	}

	_, err := NewResolver(demoFS()).Resolve([]string{"config/[.toml"})
	var patternErr PatternError
	if !errors.As(err, &patternErr) || patternErr.Pattern != "config/[.toml" {
		t.Fatalf("expected PatternError, got %v", err)
	}

	if _, err := (Resolver{}).Resolve([]string{"*"}); err == nil {
		t.Fatalf("expected error for resolver without filesystem")
	}
}

func TestOSResolver(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "ns", "demo"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "shared.toml"), nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, err := NewOSResolver(base)
	if err != nil {
		t.Fatalf("NewOSResolver returned error: %v", err)
	}
	dirs, err := r.ResolveDirs([]string{"ns/*"})
	if err != nil {
		t.Fatalf("ResolveDirs returned error: %v", err)
	}
	if diff := cmp.Diff([]string{filepath.Join(base, "ns", "demo")}, dirs); diff != "" {
		t.Fatalf("dirs (-want +got):\n%s", diff)
	}

	files, err := r.Resolve([]string{filepath.Join(outside, "*.toml")})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if diff := cmp.Diff([]string{filepath.Join(outside, "shared.toml")}, files); diff != "" {
		t.Fatalf("files (-want +got):\n%s", diff)
	}

	if _, err := NewOSResolver(filepath.Join(base, "missing")); err == nil {
		t.Fatalf("expected error for missing base")
	}
	if _, err := NewOSResolver(filepath.Join(outside, "shared.toml")); err == nil {
		t.Fatalf("expected error for a file base")
	}
}
