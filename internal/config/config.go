// Package config loads and validates the dsdl-catalyst project file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/electwix/dsdl-catalyst/internal/fileset"
)

// DefaultFileName is the project file looked up when no path is given.
const DefaultFileName = "dsdl-catalyst.toml"

// Config mirrors the dsdl-catalyst TOML schema.
type Config struct {
	TargetLanguage           string   `toml:"target_language"`
	Out                      string   `toml:"out"`
	RootNamespaces           []string `toml:"root_namespaces"`
	LookupDirs               []string `toml:"lookup_dirs"`
	Templates                string   `toml:"templates"`
	Extension                string   `toml:"extension"`
	NamespaceOutputStem      string   `toml:"namespace_output_stem"`
	LanguageConfig           []string `toml:"language_config"`
	OmitSerializationSupport bool     `toml:"omit_serialization_support"`
	GenerateNamespaces       bool     `toml:"generate_namespaces"`
}

// JobPlan is the resolved configuration used by the pipeline. Every path is
// absolute.
type JobPlan struct {
	TargetLanguage           string
	Out                      string
	RootNamespaces           []string
	LookupDirs               []string
	Templates                string
	Extension                string
	NamespaceOutputStem      string
	LanguageConfig           []string
	OmitSerializationSupport bool
	GenerateNamespaces       bool
}

// LoadOptions tunes config loading behavior.
type LoadOptions struct {
	// Strict turns unknown keys into an error.
	Strict   bool
	Resolver *fileset.Resolver
}

// Result wraps a loaded job plan alongside any non-fatal warnings.
type Result struct {
	Plan     JobPlan
	Warnings []string
}

var knownKeys = map[string]struct{}{
	"target_language":            {},
	"out":                        {},
	"root_namespaces":            {},
	"lookup_dirs":                {},
	"templates":                  {},
	"extension":                  {},
	"namespace_output_stem":      {},
	"language_config":            {},
	"omit_serialization_support": {},
	"generate_namespaces":        {},
}

// Load reads, validates and resolves a project file. Relative paths and
// patterns are relative to the directory of the file.
func Load(path string, opts LoadOptions) (Result, error) {
	var res Result

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	unknown, err := collectUnknownKeys(data)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	if len(unknown) > 0 {
		message := fmt.Sprintf("%s: unknown configuration keys: %s", path, strings.Join(unknown, ", "))
		if opts.Strict {
			return res, errors.New(message)
		}
		res.Warnings = append(res.Warnings, message)
	}

	if strings.TrimSpace(cfg.TargetLanguage) == "" {
		return res, fmt.Errorf("%s: target_language is required", path)
	}
	if cfg.Extension != "" && !strings.HasPrefix(cfg.Extension, ".") {
		return res, fmt.Errorf("%s: extension %q must start with a dot", path, cfg.Extension)
	}
	if strings.ContainsAny(cfg.NamespaceOutputStem, `/\`) {
		return res, fmt.Errorf("%s: namespace_output_stem %q must be a file name", path, cfg.NamespaceOutputStem)
	}

	baseDir := filepath.Dir(path)
	out, err := resolveOut(path, cfg.Out)
	if err != nil {
		return res, err
	}

	var resolver fileset.Resolver
	if opts.Resolver != nil {
		resolver = *opts.Resolver
	} else {
		resolver, err = fileset.NewOSResolver(baseDir)
		if err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
	}

	roots, err := resolvePatterns(resolver, fileset.Dirs, "root_namespaces", cfg.RootNamespaces)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	lookup, err := resolveOptional(resolver, fileset.Dirs, "lookup_dirs", cfg.LookupDirs)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	languageConfig, err := resolveOptional(resolver, fileset.Files, "language_config", cfg.LanguageConfig)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	templates, err := resolveTemplates(path, cfg.Templates)
	if err != nil {
		return res, err
	}

	res.Plan = JobPlan{
		TargetLanguage:           strings.TrimSpace(cfg.TargetLanguage),
		Out:                      out,
		RootNamespaces:           roots,
		LookupDirs:               lookup,
		Templates:                templates,
		Extension:                cfg.Extension,
		NamespaceOutputStem:      cfg.NamespaceOutputStem,
		LanguageConfig:           languageConfig,
		OmitSerializationSupport: cfg.OmitSerializationSupport,
		GenerateNamespaces:       cfg.GenerateNamespaces,
	}
	return res, nil
}

func collectUnknownKeys(data []byte) ([]string, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	unknown := make([]string, 0)
	for key := range raw {
		if _, ok := knownKeys[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	slices.Sort(unknown)
	return unknown, nil
}

func resolveOut(path, out string) (string, error) {
	if out == "" {
		return "", fmt.Errorf("%s: out is required", path)
	}
	if filepath.IsAbs(out) {
		return "", fmt.Errorf("%s: out must be a relative path", path)
	}
	cleaned := filepath.Clean(out)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: out must not traverse upwards", path)
	}
	return filepath.Join(filepath.Dir(path), cleaned), nil
}

func resolveTemplates(path, dir string) (string, error) {
	if dir == "" {
		return "", nil
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(filepath.Dir(path), dir)
	}
	dir = filepath.Clean(dir)
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("%s: templates: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: templates %q is not a directory", path, dir)
	}
	return dir, nil
}

func resolveOptional(resolver fileset.Resolver, kind fileset.Kind, field string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	return resolvePatterns(resolver, kind, field, patterns)
}

func resolvePatterns(resolver fileset.Resolver, kind fileset.Kind, field string, patterns []string) ([]string, error) {
	paths, err := resolver.ResolveKind(kind, patterns)
	if err == nil {
		return paths, nil
	}
	if errors.Is(err, fileset.ErrNoPatterns) {
		return nil, fmt.Errorf("%s must include at least one pattern", field)
	}
	var noMatchErr fileset.NoMatchError
	if errors.As(err, &noMatchErr) {
		return nil, fmt.Errorf("%s patterns matched nothing: %s", field, strings.Join(noMatchErr.Patterns, ", "))
	}
	var patternErr fileset.PatternError
	if errors.As(err, &patternErr) {
		return nil, fmt.Errorf("%s: invalid glob pattern %q: %w", field, patternErr.Pattern, patternErr.Err)
	}
	return nil, fmt.Errorf("%s: %w", field, err)
}
