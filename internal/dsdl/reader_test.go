package dsdl

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func demoNamespace() Namespace {
	return Namespace{
		Name: "demo",
		FS: fstest.MapFS{
			"geo/Point.1.0.dsdl": {Data: []byte(`# A point
float32 x
float32 y
`)},
			"geo/Path.1.2.dsdl": {Data: []byte(`@deprecated
Point.1.0[<=4] points
void3
bool closed
uint8 MAX_POINTS = 4
demo.time.Stamp.1.0 stamp`)},
			"time/Stamp.1.0.dsdl": {Data: []byte("uint56 microsecond\n")},
			"srv/Locate.1.0.dsdl": {Data: []byte(`demo.geo.Point.1.0 near
---
demo.geo.Path.1.2[2] routes
demo.time.Stamp.1.0 at
`)},
			"README.md": {Data: []byte("ignored")},
		},
	}
}

func readDemo(t *testing.T) map[string]*CompositeType {
	t.Helper()
	types, err := NewReader(nil).Read(context.Background(), demoNamespace())
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	byName := make(map[string]*CompositeType, len(types))
	for _, typ := range types {
		byName[typ.FullName] = typ
	}
	return byName
}

func TestReaderReadsNamespace(t *testing.T) {
	t.Parallel()

	types, err := NewReader(nil).Read(context.Background(), demoNamespace())
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	names := make([]string, len(types))
	for i, typ := range types {
		names[i] = typ.String()
	}
	want := []string{"demo.geo.Path.1.2", "demo.geo.Point.1.0", "demo.srv.Locate.1.0", "demo.time.Stamp.1.0"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}
}

func TestReaderLinksAttributes(t *testing.T) {
	t.Parallel()

	byName := readDemo(t)
	path := byName["demo.geo.Path"]
	if path == nil {
		t.Fatalf("demo.geo.Path missing")
	}
	if !path.Deprecated {
		t.Fatalf("expected @deprecated to be recorded")
	}
	if path.Version != (Version{Major: 1, Minor: 2}) {
		t.Fatalf("unexpected version %v", path.Version)
	}

	got := make([]string, len(path.Attributes))
	for i, a := range path.Attributes {
		got[i] = a.String()
	}
	want := []string{
		"demo.geo.Point.1.0[<=4] points",
		"void3",
		"bool closed",
		"uint8 MAX_POINTS = 4",
		"demo.time.Stamp.1.0 stamp",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("attributes mismatch (-want +got):\n%s", diff)
	}

	arr, ok := path.Attributes[0].DataType.(*ArrayType)
	if !ok {
		t.Fatalf("expected array type, got %T", path.Attributes[0].DataType)
	}
	if arr.Element != byName["demo.geo.Point"] {
		t.Fatalf("array element was not linked to the Point declaration")
	}
	if len(path.Fields()) != 3 || len(path.Constants()) != 1 {
		t.Fatalf("Fields/Constants = %d/%d, want 3/1", len(path.Fields()), len(path.Constants()))
	}
}

func TestReaderServiceTypes(t *testing.T) {
	t.Parallel()

	locate := readDemo(t)["demo.srv.Locate"]
	if locate == nil || !locate.IsService() {
		t.Fatalf("expected demo.srv.Locate to be a service, got %+v", locate)
	}
	if locate.Request.FullName != "demo.srv.Locate.Request" || len(locate.Request.Attributes) != 1 {
		t.Fatalf("unexpected request %+v", locate.Request)
	}
	if locate.Response.FullName != "demo.srv.Locate.Response" || len(locate.Response.Attributes) != 2 {
		t.Fatalf("unexpected response %+v", locate.Response)
	}
	if !locate.BitLengthSet().IsEmpty() {
		t.Fatalf("service types have no serialized form")
	}
}

func TestCompositeBitLengths(t *testing.T) {
	t.Parallel()

	byName := readDemo(t)
	point := byName["demo.geo.Point"]
	if diff := cmp.Diff([]int{64}, point.BitLengthSet().Values()); diff != "" {
		t.Fatalf("Point bit lengths (-want +got):\n%s", diff)
	}

	path := byName["demo.geo.Path"]
	offsets := path.FieldOffsets()
	if len(offsets) != len(path.Attributes) {
		t.Fatalf("got %d offsets for %d attributes", len(offsets), len(path.Attributes))
	}
	// 8-bit length prefix followed by 0..4 points of 64 bits.
	if diff := cmp.Diff([]int{8, 72, 136, 200, 264}, offsets[1].Values()); diff != "" {
		t.Fatalf("offset after points (-want +got):\n%s", diff)
	}
	if !offsets[1].IsAlignedAtByte() {
		t.Fatalf("expected padding offset to be aligned")
	}
	if offsets[2].IsAlignedAtByte() {
		t.Fatalf("expected bool after void3 to be unaligned")
	}
	if !offsets[3].Equal(offsets[4]) {
		t.Fatalf("constants must not advance the offset")
	}
}

func TestCompositeNames(t *testing.T) {
	t.Parallel()

	typ := &CompositeType{FullName: "any.str.2Foo", Version: Version{Major: 1, Minor: 2}}
	if typ.ShortName() != "2Foo" {
		t.Fatalf("ShortName() = %q", typ.ShortName())
	}
	if typ.FullNamespace() != "any.str" {
		t.Fatalf("FullNamespace() = %q", typ.FullNamespace())
	}
	if diff := cmp.Diff([]string{"any", "str"}, typ.NamespaceComponents()); diff != "" {
		t.Fatalf("NamespaceComponents (-want +got):\n%s", diff)
	}

	bare := &CompositeType{FullName: "Foo"}
	if bare.FullNamespace() != "" || bare.NamespaceComponents() != nil || bare.ShortName() != "Foo" {
		t.Fatalf("unexpected names for a type without namespace: %q %v %q", bare.FullNamespace(), bare.NamespaceComponents(), bare.ShortName())
	}
}

func TestReaderUsesLookupNamespaces(t *testing.T) {
	t.Parallel()

	target := Namespace{
		Name: "app",
		FS: fstest.MapFS{
			"Msg.1.0.dsdl": {Data: []byte("demo.time.Stamp.1.0 when\n")},
		},
	}
	types, err := NewReader(nil).Read(context.Background(), target, demoNamespace())
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(types) != 1 || types[0].FullName != "app.Msg" {
		t.Fatalf("expected only the target type, got %v", types)
	}
	if _, ok := types[0].Attributes[0].DataType.(*CompositeType); !ok {
		t.Fatalf("lookup reference was not resolved")
	}
}

func TestReaderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		files   fstest.MapFS
		line    int
		message string
	}{
		{
			name:    "unknown type",
			files:   fstest.MapFS{"A.1.0.dsdl": {Data: []byte("uint8 ok\nMissing.1.0 field\n")}},
			line:    2,
			message: "unknown type ns.Missing.1.0",
		},
		{
			name:    "bad width",
			files:   fstest.MapFS{"A.1.0.dsdl": {Data: []byte("uint65 big\n")}},
			line:    1,
			message: "invalid bit width",
		},
		{
			name:    "named padding",
			files:   fstest.MapFS{"A.1.0.dsdl": {Data: []byte("void8 pad\n")}},
			line:    1,
			message: "cannot be named",
		},
		{
			name:    "unnamed field",
			files:   fstest.MapFS{"A.1.0.dsdl": {Data: []byte("uint8\n")}},
			line:    1,
			message: "requires a name",
		},
		{
			name:    "two separators",
			files:   fstest.MapFS{"A.1.0.dsdl": {Data: []byte("---\n---\n")}},
			line:    2,
			message: "exactly one",
		},
		{
			name:    "syntax",
			files:   fstest.MapFS{"A.1.0.dsdl": {Data: []byte("uint8 a b c\n")}},
			line:    1,
			message: "",
		},
		{
			name:    "dangling sign",
			files:   fstest.MapFS{"A.1.0.dsdl": {Data: []byte("int8 MIN = -\n")}},
			line:    1,
			message: "",
		},
		{
			name:    "file name",
			files:   fstest.MapFS{"A.dsdl": {Data: []byte("uint8 a\n")}},
			line:    1,
			message: "invalid definition file name",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewReader(nil).Read(context.Background(), Namespace{Name: "ns", FS: tc.files})
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if perr.Line != tc.line {
				t.Fatalf("line = %d, want %d (%v)", perr.Line, tc.line, perr)
			}
			if !strings.Contains(perr.Message, tc.message) {
				t.Fatalf("message %q does not contain %q", perr.Message, tc.message)
			}
		})
	}
}

func TestReaderNegativeConstants(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{"Limits.1.0.dsdl": {Data: []byte("int8 MIN = -1\nint16 LOW = -32768\nuint8 HIGH = 255\nint8 value\n")}}
	types, err := NewReader(nil).Read(context.Background(), Namespace{Name: "ns", FS: files})
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(types) != 1 {
		t.Fatalf("read %d types, want 1", len(types))
	}

	constants := types[0].Constants()
	got := make([]int64, len(constants))
	for i, c := range constants {
		got[i] = *c.Value
	}
	if diff := cmp.Diff([]int64{-1, -32768, 255}, got); diff != "" {
		t.Fatalf("constant values (-want +got):\n%s", diff)
	}
	if s := constants[0].String(); s != "int8 MIN = -1" {
		t.Fatalf("String() = %q", s)
	}
}

func TestReaderDetectsCycles(t *testing.T) {
	t.Parallel()

	ns := Namespace{
		Name: "loop",
		FS: fstest.MapFS{
			"A.1.0.dsdl": {Data: []byte("B.1.0 b\n")},
			"B.1.0.dsdl": {Data: []byte("A.1.0[<=2] a\n")},
		},
	}
	_, err := NewReader(nil).Read(context.Background(), ns)
	if err == nil || !strings.Contains(err.Error(), "circular type dependency") {
		t.Fatalf("expected circular dependency error, got %v", err)
	}
}

func TestReaderDuplicateDefinition(t *testing.T) {
	t.Parallel()

	lookup := Namespace{Name: "ns", Dir: "other/ns", FS: fstest.MapFS{"A.1.0.dsdl": {Data: []byte("uint8 a\n")}}}
	target := Namespace{Name: "ns", Dir: "ns", FS: fstest.MapFS{"A.1.0.dsdl": {Data: []byte("uint8 a\n")}}}
	_, err := NewReader(nil).Read(context.Background(), target, lookup)
	if err == nil || !strings.Contains(err.Error(), "duplicate definition of ns.A.1.0") {
		t.Fatalf("expected duplicate definition error, got %v", err)
	}
}

func TestReaderCachesParsedFiles(t *testing.T) {
	t.Parallel()

	reader := NewReader(nil)
	for range 2 {
		if _, err := reader.Read(context.Background(), demoNamespace()); err != nil {
			t.Fatalf("Read returned error: %v", err)
		}
	}
	mem, ok := reader.Cache.(interface{ Len() int })
	if !ok {
		t.Fatalf("unexpected cache type %T", reader.Cache)
	}
	if mem.Len() != 4 {
		t.Fatalf("cache holds %d entries, want 4", mem.Len())
	}
}
