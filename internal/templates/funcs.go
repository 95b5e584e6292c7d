package templates

import (
	"fmt"
	"reflect"
	"strings"
	"text/template"

	"github.com/iancoleman/strcase"

	"github.com/electwix/dsdl-catalyst/internal/dsdl"
)

// CommonFuncs returns the helpers available to templates of every language.
//
//	{{ "HeartbeatStatus" | snake_case }}   heartbeat_status
//	{{ "heartbeat_status" | pascal_case }} HeartbeatStatus
//	{{ imports .T | uniq | join ", " }}
//	{{ bit_length_set (list 8 16) }}
//	{{ kind .DataType }}                   bool, unsigned, signed, float, void, array or composite
func CommonFuncs() template.FuncMap {
	return template.FuncMap{
		"snake_case":  strcase.ToSnake,
		"pascal_case": strcase.ToCamel,
		"join":        join,
		"list":        list,
		"uniq":        uniq,
		"kind":        kind,
	}
}

func join(sep string, items any) (string, error) {
	switch v := items.(type) {
	case []string:
		return strings.Join(v, sep), nil
	case nil:
		return "", nil
	}
	rv := reflect.ValueOf(items)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return "", fmt.Errorf("join: expected a list, got %T", items)
	}
	parts := make([]string, rv.Len())
	for i := range rv.Len() {
		parts[i] = fmt.Sprint(rv.Index(i).Interface())
	}
	return strings.Join(parts, sep), nil
}

func list(items ...any) []any { return items }

// uniq drops repeated strings, keeping the first occurrence.
func uniq(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func kind(t dsdl.DataType) string {
	switch v := t.(type) {
	case *dsdl.PrimitiveType:
		switch v.Kind {
		case dsdl.KindBool:
			return "bool"
		case dsdl.KindSigned:
			return "signed"
		case dsdl.KindFloat:
			return "float"
		default:
			return "unsigned"
		}
	case *dsdl.VoidType:
		return "void"
	case *dsdl.ArrayType:
		return "array"
	case *dsdl.CompositeType:
		return "composite"
	default:
		return ""
	}
}
