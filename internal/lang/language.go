// Package lang holds the per-language properties used to render templates
// and the registry of language filter sets.
package lang

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"text/template"
)

// FilterSet supplies the template functions of one target language.
type FilterSet interface {
	// ID converts a raw token into a valid, non-reserved identifier.
	ID(raw string) string
	// Funcs returns the template functions bound to a render scope.
	Funcs(names *UniqueNames) template.FuncMap
}

// FilterFactory builds the filter set of a language.
type FilterFactory func(*Language) FilterSet

var (
	registryMu sync.RWMutex
	registry   = make(map[string]FilterFactory)
)

// Register makes a filter set available for the named language. It panics if
// the name is registered twice.
func Register(name string, factory FilterFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("lang: Register called twice for " + name)
	}
	registry[name] = factory
}

func lookupFactory(name string) (FilterFactory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// Language exposes the properties of one target language.
type Language struct {
	name                     string
	props                    map[string]any
	omitSerializationSupport bool

	once    sync.Once
	filters FilterSet
}

func newLanguage(name string, props map[string]any, omit bool) *Language {
	return &Language{name: name, props: props, omitSerializationSupport: omit}
}

// Name is the short language key, e.g. "py".
func (l *Language) Name() string { return l.name }

// Extension is the file extension of generated files, including the dot.
func (l *Language) Extension() string { return l.str("extension") }

// NamespaceOutputStem is the file name stem of namespace files.
func (l *Language) NamespaceOutputStem() string { return l.str("namespace_file_stem") }

// StroppingPrefix is prepended to identifiers that need stropping.
func (l *Language) StroppingPrefix() string { return l.str("stropping_prefix") }

// StroppingSuffix is appended to identifiers that collide with reserved words.
func (l *Language) StroppingSuffix() string { return l.str("stropping_suffix") }

// EncodingPrefix precedes the hex code of an encoded character.
func (l *Language) EncodingPrefix() string { return l.str("encoding_prefix") }

// EnableStropping reports whether identifiers are stropped for this language.
func (l *Language) EnableStropping() bool { return parseBool(l.props["enable_stropping"]) }

// HasStandardNamespaceFiles reports whether the language defines namespace
// files as part of its core standard (e.g. python's __init__).
func (l *Language) HasStandardNamespaceFiles() bool {
	return parseBool(l.props["has_standard_namespace_files"])
}

// OmitSerializationSupport reports whether generators should leave out
// serialization routines for this language.
func (l *Language) OmitSerializationSupport() bool { return l.omitSerializationSupport }

// SupportNamespace is the dotted namespace of the support library split into components.
func (l *Language) SupportNamespace() []string {
	ns := l.str("support_namespace")
	if ns == "" {
		return nil
	}
	return strings.Split(ns, ".")
}

// ConfigValue returns an arbitrary property.
func (l *Language) ConfigValue(key string) (any, bool) {
	v, ok := l.props[key]
	return v, ok
}

// ConfigString returns a property as a string or def when it is not set.
func (l *Language) ConfigString(key, def string) string {
	v, ok := l.props[key]
	if !ok {
		return def
	}
	return toString(v)
}

// ConfigValueAsBool returns a property as a boolean. Strings "false", "0" and
// "" are false, any other string is true; a missing key yields def.
func (l *Language) ConfigValueAsBool(key string, def bool) bool {
	v, ok := l.props[key]
	if !ok {
		return def
	}
	switch val := v.(type) {
	case bool:
		return val
	case int64:
		return val != 0
	case int:
		return val != 0
	case float64:
		return val != 0
	}
	s := toString(v)
	if strings.EqualFold(s, "false") || s == "0" {
		return false
	}
	return s != ""
}

// ReservedIdentifiers returns identifiers that are reserved for this language
// in addition to its keywords.
func (l *Language) ReservedIdentifiers() []string { return toList(l.props["reserved_identifiers"]) }

// NamedTypes maps named types to the type name to emit for this language.
func (l *Language) NamedTypes() map[string]string {
	out := make(map[string]string)
	if table, ok := l.props["named_types"].(map[string]any); ok {
		for k, v := range table {
			out[k] = toString(v)
		}
	}
	return out
}

// Globals returns the values templates can use as globals. The implicit form
// names them typename_<key>; the explicit form adds a <language>_ prefix.
func (l *Language) Globals(implicit bool) map[string]string {
	out := make(map[string]string)
	for k, v := range l.NamedTypes() {
		if implicit {
			out["typename_"+k] = v
		} else {
			out[l.name+"_typename_"+k] = v
		}
	}
	return out
}

// FilterSet returns the registered filter set of the language.
func (l *Language) FilterSet() (FilterSet, bool) {
	factory, ok := lookupFactory(l.name)
	if !ok {
		return nil, false
	}
	l.once.Do(func() { l.filters = factory(l) })
	return l.filters, true
}

// Filters returns the template functions of the language bound to names. The
// explicit form prefixes each function with <language>_.
func (l *Language) Filters(names *UniqueNames, implicit bool) template.FuncMap {
	set, ok := l.FilterSet()
	if !ok {
		return template.FuncMap{}
	}
	funcs := set.Funcs(names)
	if implicit {
		return funcs
	}
	explicit := make(template.FuncMap, len(funcs))
	for name, fn := range funcs {
		explicit[l.name+"_"+name] = fn
	}
	return explicit
}

// Keys lists the configured property names in sorted order.
func (l *Language) Keys() []string {
	return slices.Sorted(maps.Keys(l.props))
}

func (l *Language) str(key string) string { return toString(l.props[key]) }

func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func toList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, toString(item))
		}
		return out
	case []string:
		return slices.Clone(val)
	default:
		out := make([]string, 0)
		for _, line := range strings.Split(toString(val), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out
	}
}

func parseBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "yes", "true", "on":
			return true
		}
	case int64:
		return val != 0
	case int:
		return val != 0
	}
	return false
}
