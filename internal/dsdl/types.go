// Package dsdl models DSDL data type definitions and reads them from namespace directories.
package dsdl

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// DataType is the declared type of an attribute.
type DataType interface {
	fmt.Stringer
	// BitLengthSet returns every length a serialized value of the type may occupy.
	BitLengthSet() BitLengthSet
}

// Named is implemented by schema entities that carry a declared name.
type Named interface {
	DeclaredName() string
}

// PrimitiveKind enumerates the primitive type families.
type PrimitiveKind int

const (
	// KindBool is a single bit boolean.
	KindBool PrimitiveKind = iota
	// KindUnsigned is an unsigned integer of 1..64 bits.
	KindUnsigned
	// KindSigned is a two's complement integer of 2..64 bits.
	KindSigned
	// KindFloat is an IEEE 754 float of 16, 32 or 64 bits.
	KindFloat
)

// PrimitiveType is a scalar value type.
type PrimitiveType struct {
	Kind PrimitiveKind
	Bits int
}

func (p *PrimitiveType) String() string {
	switch p.Kind {
	case KindBool:
		return "bool"
	case KindSigned:
		return fmt.Sprintf("int%d", p.Bits)
	case KindFloat:
		return fmt.Sprintf("float%d", p.Bits)
	default:
		return fmt.Sprintf("uint%d", p.Bits)
	}
}

// BitLengthSet implements DataType.
func (p *PrimitiveType) BitLengthSet() BitLengthSet { return newSet([]int{p.Bits}) }

// VoidType is a padding field.
type VoidType struct {
	Bits int
}

func (v *VoidType) String() string { return fmt.Sprintf("void%d", v.Bits) }

// BitLengthSet implements DataType.
func (v *VoidType) BitLengthSet() BitLengthSet { return newSet([]int{v.Bits}) }

// ArrayType is a fixed or variable-length sequence of an element type.
type ArrayType struct {
	Element  DataType
	Capacity int
	// Variable marks a variable-length array holding at most Capacity elements.
	Variable bool

	lengthsOnce sync.Once
	lengths     BitLengthSet
}

func (a *ArrayType) String() string {
	if a.Variable {
		return fmt.Sprintf("%s[<=%d]", a.Element, a.Capacity)
	}
	return fmt.Sprintf("%s[%d]", a.Element, a.Capacity)
}

// LengthPrefixBits is the width of the implicit length field of a variable-length array.
func (a *ArrayType) LengthPrefixBits() int {
	switch {
	case !a.Variable:
		return 0
	case a.Capacity < 1<<8:
		return 8
	case a.Capacity < 1<<16:
		return 16
	default:
		return 32
	}
}

// BitLengthSet implements DataType. The set is computed on first use; the
// array must not be modified afterwards.
func (a *ArrayType) BitLengthSet() BitLengthSet {
	a.lengthsOnce.Do(func() {
		elem := a.Element.BitLengthSet()
		if !a.Variable {
			a.lengths = elem.Repeat(a.Capacity)
			return
		}
		a.lengths = elem.RepeatRange(a.Capacity).Increment(a.LengthPrefixBits())
	})
	return a.lengths
}

// Version is the major and minor version of a composite type.
type Version struct {
	Major int
	Minor int
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// Attribute is a field, padding or constant declared by a composite type.
type Attribute struct {
	Name     string
	DataType DataType
	// Value is set for constants.
	Value *int64
}

// DeclaredName implements Named.
func (a *Attribute) DeclaredName() string { return a.Name }

// IsPadding reports whether the attribute is an unnamed void field.
func (a *Attribute) IsPadding() bool {
	_, ok := a.DataType.(*VoidType)
	return ok
}

// IsConstant reports whether the attribute declares a constant value.
func (a *Attribute) IsConstant() bool { return a.Value != nil }

func (a *Attribute) String() string {
	switch {
	case a.IsPadding():
		return a.DataType.String()
	case a.IsConstant():
		return fmt.Sprintf("%s %s = %d", a.DataType, a.Name, *a.Value)
	default:
		return fmt.Sprintf("%s %s", a.DataType, a.Name)
	}
}

// CompositeType is a structured type defined in a namespace. Service types
// have no attributes of their own and carry Request and Response instead.
type CompositeType struct {
	FullName   string
	Version    Version
	Attributes []*Attribute
	Deprecated bool
	// Source is the path of the definition file.
	Source   string
	Request  *CompositeType
	Response *CompositeType

	offsetsOnce sync.Once
	offsetSets  []BitLengthSet
}

// DeclaredName implements Named.
func (c *CompositeType) DeclaredName() string { return c.FullName }

// ShortName is the last segment of the full name.
func (c *CompositeType) ShortName() string {
	if i := strings.LastIndexByte(c.FullName, '.'); i >= 0 {
		return c.FullName[i+1:]
	}
	return c.FullName
}

// FullNamespace is the full name without its last segment.
func (c *CompositeType) FullNamespace() string {
	if i := strings.LastIndexByte(c.FullName, '.'); i >= 0 {
		return c.FullName[:i]
	}
	return ""
}

// NamespaceComponents splits the full namespace into its segments.
func (c *CompositeType) NamespaceComponents() []string {
	ns := c.FullNamespace()
	if ns == "" {
		return nil
	}
	return strings.Split(ns, ".")
}

// IsService reports whether the type is a request/response pair.
func (c *CompositeType) IsService() bool { return c.Request != nil || c.Response != nil }

// Fields returns the attributes that are neither padding nor constants.
func (c *CompositeType) Fields() []*Attribute {
	out := make([]*Attribute, 0, len(c.Attributes))
	for _, a := range c.Attributes {
		if a.IsPadding() || a.IsConstant() {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Constants returns the constant attributes.
func (c *CompositeType) Constants() []*Attribute {
	out := make([]*Attribute, 0)
	for _, a := range c.Attributes {
		if a.IsConstant() {
			out = append(out, a)
		}
	}
	return out
}

func (c *CompositeType) String() string { return c.FullName + "." + c.Version.String() }

// BitLengthSet implements DataType. Service types are not serializable and report the empty set.
func (c *CompositeType) BitLengthSet() BitLengthSet {
	if c.IsService() {
		return BitLengthSet{}
	}
	offsets := c.offsets()
	return offsets[len(offsets)-1]
}

// FieldOffsets returns, for each attribute, the set of bit offsets at which it may start.
// Constants occupy no space and share the offset of the next attribute.
func (c *CompositeType) FieldOffsets() []BitLengthSet {
	offsets := c.offsets()
	return slices.Clone(offsets[:len(offsets)-1])
}

// offsets is computed once, after the reader has linked the type.
func (c *CompositeType) offsets() []BitLengthSet {
	c.offsetsOnce.Do(func() {
		out := make([]BitLengthSet, 0, len(c.Attributes)+1)
		current := newSet([]int{0})
		for _, a := range c.Attributes {
			out = append(out, current)
			if a.IsConstant() {
				continue
			}
			current = current.Sum(a.DataType.BitLengthSet())
		}
		c.offsetSets = append(out, current)
	})
	return c.offsetSets
}

var (
	_ DataType = (*PrimitiveType)(nil)
	_ DataType = (*VoidType)(nil)
	_ DataType = (*ArrayType)(nil)
	_ DataType = (*CompositeType)(nil)
	_ Named    = (*Attribute)(nil)
	_ Named    = (*CompositeType)(nil)
)
