package lang

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed properties.toml
var builtinProperties []byte

// sectionPrefix qualifies language keys in configuration files and lookups.
const sectionPrefix = "lang."

// ErrUnsupportedLanguage is returned for a language without configured properties.
var ErrUnsupportedLanguage = errors.New("not a supported language")

// ContextOptions configures NewContext.
type ContextOptions struct {
	// TargetLanguage selects the language generated for; empty means none.
	TargetLanguage string
	// Extension overrides the target language's file extension.
	Extension string
	// NamespaceOutputStem overrides the target language's namespace file stem.
	NamespaceOutputStem string
	// AdditionalConfigFiles are TOML or YAML files whose keys override the
	// built-in properties. Later files win.
	AdditionalConfigFiles []string
	// OmitSerializationSupportForTarget asks generators to leave out
	// serialization routines for the target language.
	OmitSerializationSupportForTarget bool
}

// Context holds every configured language and the current target, if any.
type Context struct {
	languages           map[string]*Language
	target              *Language
	extension           string
	namespaceOutputStem string
}

// NewContext loads the language properties and builds the target language.
func NewContext(opts ContextOptions) (*Context, error) {
	sections, err := loadSections(opts.AdditionalConfigFiles)
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		languages:           make(map[string]*Language, len(sections)),
		extension:           opts.Extension,
		namespaceOutputStem: opts.NamespaceOutputStem,
	}

	if opts.TargetLanguage != "" {
		key := strings.TrimPrefix(opts.TargetLanguage, sectionPrefix)
		props, ok := sections[key]
		if !ok {
			return nil, fmt.Errorf("%s: %w", opts.TargetLanguage, ErrUnsupportedLanguage)
		}
		if opts.NamespaceOutputStem != "" {
			props["namespace_file_stem"] = opts.NamespaceOutputStem
		}
		if opts.Extension != "" {
			props["extension"] = opts.Extension
		}
		ctx.target = newLanguage(key, props, opts.OmitSerializationSupportForTarget)
		ctx.languages[key] = ctx.target
	}

	for name, props := range sections {
		if _, ok := ctx.languages[name]; ok {
			continue
		}
		ctx.languages[name] = newLanguage(name, props, false)
	}
	return ctx, nil
}

// Language returns a configured language by key. Keys may carry the "lang." prefix.
func (c *Context) Language(key string) (*Language, error) {
	if key == "" {
		return nil, errors.New("lang: language key is required")
	}
	l, ok := c.languages[strings.TrimPrefix(key, sectionPrefix)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrUnsupportedLanguage)
	}
	return l, nil
}

// SupportedLanguageNames lists every configured language in sorted order.
func (c *Context) SupportedLanguageNames() []string {
	return slices.Sorted(maps.Keys(c.languages))
}

// TargetLanguage returns the target language or nil when none was set.
func (c *Context) TargetLanguage() *Language { return c.target }

// OutputExtension returns the extension of generated files.
func (c *Context) OutputExtension() (string, error) {
	switch {
	case c.extension != "":
		return c.extension, nil
	case c.target != nil:
		return c.target.Extension(), nil
	default:
		return "", errors.New("lang: no extension was provided and no target language was set")
	}
}

// DefaultNamespaceOutputStem returns the namespace stem override, if any.
func (c *Context) DefaultNamespaceOutputStem() string { return c.namespaceOutputStem }

// TargetIDFilter returns a function that makes a valid identifier in the
// target language. Without a target, or without an id filter for it, tokens
// pass through unchanged.
func (c *Context) TargetIDFilter() func(string) string {
	if c.target != nil {
		if set, ok := c.target.FilterSet(); ok {
			return set.ID
		}
	}
	return func(raw string) string { return raw }
}

func loadSections(additional []string) (map[string]map[string]any, error) {
	sections := make(map[string]map[string]any)
	if err := mergeSections(sections, "properties.toml", builtinProperties, toml.Unmarshal); err != nil {
		return nil, err
	}
	for _, path := range additional {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var decode func([]byte, any) error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			decode = toml.Unmarshal
		case ".yaml", ".yml":
			decode = yaml.Unmarshal
		default:
			return nil, fmt.Errorf("%s: unsupported language configuration format", path)
		}
		if err := mergeSections(sections, path, data, decode); err != nil {
			return nil, err
		}
	}
	return sections, nil
}

func mergeSections(dst map[string]map[string]any, name string, data []byte, decode func([]byte, any) error) error {
	var raw map[string]any
	if err := decode(data, &raw); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	langs, ok := raw["lang"]
	if !ok {
		return nil
	}
	table, ok := langs.(map[string]any)
	if !ok {
		return fmt.Errorf("%s: lang must be a table of languages", name)
	}
	for langName, value := range table {
		props, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: lang.%s must be a table", name, langName)
		}
		section, exists := dst[langName]
		if !exists {
			section = make(map[string]any, len(props))
			dst[langName] = section
		}
		maps.Copy(section, props)
	}
	return nil
}
