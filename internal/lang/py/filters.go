// Package py provides the template filters for generating Python.
//
// Importing the package registers the filters for the "py" language:
//
//	import _ "github.com/electwix/dsdl-catalyst/internal/lang/py"
package py

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/electwix/dsdl-catalyst/internal/dsdl"
	"github.com/electwix/dsdl-catalyst/internal/lang"
	"github.com/electwix/dsdl-catalyst/internal/lang/strop"
)

// LanguageName is the key the filters are registered under.
const LanguageName = "py"

// Filter names as seen by templates.
const (
	FilterID                 = "id"
	FilterTemplateUniqueName = "to_template_unique_name"
	FilterFullReferenceName  = "full_reference_name"
	FilterShortReferenceName = "short_reference_name"
	FilterAlignmentPrefix    = "alignment_prefix"
	FilterImports            = "imports"
	FilterLongestIDLength    = "longest_id_length"
	FilterBitLengthSet       = "bit_length_set"
)

var (
	// ErrTypeMismatch is returned when a filter receives a value of the wrong shape.
	ErrTypeMismatch = errors.New("py: unexpected argument type")
	// ErrEmptyInput is returned by aggregate filters given nothing to aggregate.
	ErrEmptyInput = errors.New("py: empty input")
)

func init() {
	lang.Register(LanguageName, func(l *lang.Language) lang.FilterSet { return New(l) })
}

// Filters renders Python names for one language configuration.
type Filters struct {
	language *lang.Language
	encoder  strop.Encoder
	reserved strop.Set
}

// New builds the filters for l. The reserved set is the union of the
// language's reserved identifiers and Python's keywords and builtins.
func New(l *lang.Language) *Filters {
	return &Filters{
		language: l,
		encoder: strop.Encoder{
			StroppingPrefix: l.StroppingPrefix(),
			StroppingSuffix: l.StroppingSuffix(),
			EncodingPrefix:  l.EncodingPrefix(),
		},
		reserved: strop.NewSet(l.ReservedIdentifiers(), keywords, builtins),
	}
}

// Funcs implements lang.FilterSet.
func (f *Filters) Funcs(names *lang.UniqueNames) template.FuncMap {
	return template.FuncMap{
		FilterID: f.IDOf,
		FilterTemplateUniqueName: func(base string) string {
			return ToTemplateUniqueName(names, base)
		},
		FilterFullReferenceName:  f.FullReferenceName,
		FilterShortReferenceName: f.ShortReferenceName,
		FilterAlignmentPrefix:    alignmentPrefixFilter,
		FilterImports:            f.Imports,
		FilterLongestIDLength:    f.LongestIDLength,
		FilterBitLengthSet:       BitLengthSet,
	}
}

// ToTemplateUniqueName returns a name that is likely to be a valid Python
// identifier and is unique among the names handed out by names for the same
// base token: "_f0_", "_f1_", ... The token is not validated.
func ToTemplateUniqueName(names *lang.UniqueNames, base string) string {
	return names.Next(LanguageName, base, "_", "_")
}

// ID returns raw as a valid, non-reserved Python identifier. The encoding
// may not be reversible.
func (f *Filters) ID(raw string) string {
	return f.encoder.Strop(raw, f.reserved)
}

// IDOf applies ID to a string, a named schema entity (its declared name), a
// fmt.Stringer or an integer.
func (f *Filters) IDOf(value any) (string, error) {
	raw, err := tokenOf(value)
	if err != nil {
		return "", err
	}
	return f.ID(raw), nil
}

func tokenOf(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case dsdl.Named:
		return v.DeclaredName(), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrTypeMismatch, value)
	}
}

// FullReferenceName returns the dotted namespace, type name and version of
// t, e.g. any.str.2Foo 1.2 becomes any_.str_._2Foo_1_2. A type without a
// namespace yields its short reference name alone.
func (f *Filters) FullReferenceName(t *dsdl.CompositeType) string {
	parts := t.NamespaceComponents()
	if f.language.EnableStropping() {
		for i, p := range parts {
			parts[i] = f.ID(p)
		}
	}
	return strings.Join(append(parts, f.ShortReferenceName(t)), ".")
}

// ShortReferenceName returns "<short name>_<major>_<minor>", which is unique
// only within the namespace of t. The whole string is stropped, so a
// collision introduced by the version suffix is still caught.
func (f *Filters) ShortReferenceName(t *dsdl.CompositeType) string {
	name := fmt.Sprintf("%s_%d_%d", t.ShortName(), t.Version.Major, t.Version.Minor)
	if f.language.EnableStropping() {
		return f.ID(name)
	}
	return name
}

// AlignmentPrefix returns "aligned" when every length in offset is a whole
// number of bytes and "unaligned" otherwise.
func AlignmentPrefix(offset dsdl.BitLengthSet) string {
	if offset.IsAlignedAtByte() {
		return "aligned"
	}
	return "unaligned"
}

func alignmentPrefixFilter(value any) (string, error) {
	switch v := value.(type) {
	case dsdl.BitLengthSet:
		return AlignmentPrefix(v), nil
	case *dsdl.BitLengthSet:
		if v != nil {
			return AlignmentPrefix(*v), nil
		}
	}
	return "", fmt.Errorf("%w: expected BitLengthSet, got %T", ErrTypeMismatch, value)
}

// Imports returns the namespaces of the composite types t refers to, either
// directly or as array elements, for a service both its request and its
// response. The list is sorted unless sort is given as false. Duplicates are
// kept; callers emitting import statements must drop them.
func (f *Filters) Imports(t *dsdl.CompositeType, sort ...bool) ([]string, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil composite type", ErrTypeMismatch)
	}
	if len(sort) > 1 {
		return nil, fmt.Errorf("imports: expected at most one sort flag, got %d", len(sort))
	}

	attrs := t.Attributes
	if t.IsService() {
		attrs = make([]*dsdl.Attribute, 0)
		if t.Request != nil {
			attrs = append(attrs, t.Request.Attributes...)
		}
		if t.Response != nil {
			attrs = append(attrs, t.Response.Attributes...)
		}
	}

	namespaces := make([]string, 0, len(attrs))
	for _, a := range attrs {
		dt := a.DataType
		if arr, ok := dt.(*dsdl.ArrayType); ok {
			dt = arr.Element
		}
		dep, ok := dt.(*dsdl.CompositeType)
		if !ok {
			continue
		}
		ns := dep.FullNamespace()
		if ns != "" && f.language.EnableStropping() {
			segments := strings.Split(ns, ".")
			for i, s := range segments {
				segments[i] = f.ID(s)
			}
			ns = strings.Join(segments, ".")
		}
		namespaces = append(namespaces, ns)
	}

	if len(sort) == 0 || sort[0] {
		slices.Sort(namespaces)
	}
	return namespaces, nil
}

// LongestIDLength returns the length, in characters, of the longest name in
// a list of attributes or strings. With stropping enabled the stropped names
// are measured.
func (f *Filters) LongestIDLength(values any) (int, error) {
	var names []string
	switch v := values.(type) {
	case []*dsdl.Attribute:
		for _, a := range v {
			names = append(names, a.Name)
		}
	case []string:
		names = v
	default:
		rv := reflect.ValueOf(values)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return 0, fmt.Errorf("%w: expected a list, got %T", ErrTypeMismatch, values)
		}
		for i := range rv.Len() {
			raw, err := tokenOf(rv.Index(i).Interface())
			if err != nil {
				return 0, err
			}
			names = append(names, raw)
		}
	}
	if len(names) == 0 {
		return 0, ErrEmptyInput
	}

	longest := 0
	for _, name := range names {
		if f.language.EnableStropping() {
			name = f.ID(name)
		}
		longest = max(longest, utf8.RuneCountInString(name))
	}
	return longest, nil
}

// BitLengthSet builds a bit length set from nothing, an integer, or a list of
// integers.
func BitLengthSet(values ...any) (dsdl.BitLengthSet, error) {
	ints := make([]int, 0, len(values))
	for _, v := range values {
		collected, err := collectInts(v)
		if err != nil {
			return dsdl.BitLengthSet{}, err
		}
		ints = append(ints, collected...)
	}
	return dsdl.NewBitLengthSet(ints...)
}

func collectInts(value any) ([]int, error) {
	if value == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return []int{int(rv.Int())}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return []int{int(rv.Uint())}, nil
	case reflect.Slice, reflect.Array:
		out := make([]int, 0, rv.Len())
		for i := range rv.Len() {
			inner, err := collectInts(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected an integer or a list of integers, got %T", ErrTypeMismatch, value)
	}
}

var _ lang.FilterSet = (*Filters)(nil)
