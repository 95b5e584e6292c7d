package dsdl

import (
	"errors"
	"fmt"
	"math/bits"
	"slices"
	"strconv"
	"strings"
)

// ErrNegativeBitLength is returned when a bit length set is built from a negative value.
var ErrNegativeBitLength = errors.New("dsdl: bit length set elements cannot be negative")

// BitLengthSet is the set of lengths, in bits, that a serialized value may occupy.
// The zero value is the empty set. Values are immutable; every operation returns a new set.
type BitLengthSet struct {
	values []int // sorted, unique
}

// NewBitLengthSet builds a set from the provided lengths.
func NewBitLengthSet(values ...int) (BitLengthSet, error) {
	for _, v := range values {
		if v < 0 {
			return BitLengthSet{}, fmt.Errorf("%w: %d", ErrNegativeBitLength, v)
		}
	}
	return newSet(slices.Clone(values)), nil
}

// MustBitLengthSet is like NewBitLengthSet but panics on invalid input.
func MustBitLengthSet(values ...int) BitLengthSet {
	s, err := NewBitLengthSet(values...)
	if err != nil {
		panic(err)
	}
	return s
}

func newSet(values []int) BitLengthSet {
	slices.Sort(values)
	return BitLengthSet{values: slices.Compact(values)}
}

// Values returns the lengths in ascending order.
func (s BitLengthSet) Values() []int { return slices.Clone(s.values) }

// Len returns the number of distinct lengths.
func (s BitLengthSet) Len() int { return len(s.values) }

// IsEmpty reports whether the set holds no lengths.
func (s BitLengthSet) IsEmpty() bool { return len(s.values) == 0 }

// Min returns the smallest length, or 0 for the empty set.
func (s BitLengthSet) Min() int {
	if len(s.values) == 0 {
		return 0
	}
	return s.values[0]
}

// Max returns the largest length, or 0 for the empty set.
func (s BitLengthSet) Max() int {
	if len(s.values) == 0 {
		return 0
	}
	return s.values[len(s.values)-1]
}

// IsAlignedAt reports whether every length is a multiple of bits.
// The empty set is aligned at any boundary.
func (s BitLengthSet) IsAlignedAt(bits int) bool {
	if bits <= 0 {
		return false
	}
	for _, v := range s.values {
		if v%bits != 0 {
			return false
		}
	}
	return true
}

// IsAlignedAtByte reports whether every length is a whole number of bytes.
func (s BitLengthSet) IsAlignedAtByte() bool { return s.IsAlignedAt(8) }

// Increment adds bits to every length. The empty set is treated as {0}.
func (s BitLengthSet) Increment(bits int) BitLengthSet {
	if len(s.values) == 0 {
		return newSet([]int{bits})
	}
	out := make([]int, len(s.values))
	for i, v := range s.values {
		out[i] = v + bits
	}
	return BitLengthSet{values: out}
}

// Union returns every length found in either set.
func (s BitLengthSet) Union(other BitLengthSet) BitLengthSet {
	out := make([]int, 0, len(s.values)+len(other.values))
	out = append(out, s.values...)
	out = append(out, other.values...)
	return newSet(out)
}

// Sum returns the elementwise sum: every length a value of s followed by a
// value of other may occupy.
func (s BitLengthSet) Sum(other BitLengthSet) BitLengthSet {
	switch {
	case len(s.values) == 0:
		return other
	case len(other.values) == 0:
		return s
	case len(s.values) == 1:
		return other.Increment(s.values[0])
	case len(other.values) == 1:
		return s.Increment(other.values[0])
	}
	x, y := s, other
	if len(x.values) > len(y.values) {
		x, y = y, x
	}
	g := stride(x, y)
	width := (x.Max() - x.Min() + y.Max() - y.Min()) / g
	if width >= denseLimit {
		return sumPairwise(x, y)
	}
	out := newBitset(width + 1)
	ybits := y.dense(g)
	for _, v := range x.values {
		out.orShifted(ybits, (v-x.Min())/g)
	}
	return BitLengthSet{values: out.appendValues(nil, x.Min()+y.Min(), g)}
}

func sumPairwise(x, y BitLengthSet) BitLengthSet {
	out := make([]int, 0, len(x.values)*len(y.values))
	for _, a := range x.values {
		for _, b := range y.values {
			out = append(out, a+b)
		}
	}
	return newSet(out)
}

// Repeat returns the lengths of exactly n consecutive values from s.
func (s BitLengthSet) Repeat(n int) BitLengthSet {
	if n <= 0 || len(s.values) == 0 {
		return newSet([]int{0})
	}
	if len(s.values) == 1 {
		return newSet([]int{s.values[0] * n})
	}
	g := stride(s)
	width := (s.Max() - s.Min()) / g
	if width >= denseLimit/n {
		acc := newSet([]int{0})
		for range n {
			acc = acc.Sum(s)
		}
		return acc
	}
	steps := s.positions(s.Min(), g)
	acc, next := newBitset(n*width+1), newBitset(n*width+1)
	acc.set(0)
	for range n {
		clear(next)
		for _, d := range steps {
			next.orShifted(acc, d)
		}
		acc, next = next, acc
	}
	return BitLengthSet{values: acc.appendValues(nil, n*s.Min(), g)}
}

// RepeatRange returns the lengths of zero up to n consecutive values from s.
func (s BitLengthSet) RepeatRange(n int) BitLengthSet {
	if n <= 0 || len(s.values) == 0 {
		return newSet([]int{0})
	}
	if len(s.values) == 1 {
		v := s.values[0]
		if v == 0 {
			return newSet([]int{0})
		}
		out := make([]int, n+1)
		for i := range out {
			out[i] = i * v
		}
		return BitLengthSet{values: out}
	}
	// Every partial sum is a multiple of the gcd of the values themselves.
	g := gcd(stride(s), s.Min())
	span := s.Max() / g
	if span >= denseLimit/n {
		acc := newSet([]int{0})
		result := acc
		for range n {
			acc = acc.Sum(s)
			result = result.Union(acc)
		}
		return result
	}
	steps := s.positions(0, g)
	result := newBitset(n*span + 1)
	acc, next := newBitset(n*span+1), newBitset(n*span+1)
	acc.set(0)
	result.set(0)
	for range n {
		clear(next)
		for _, d := range steps {
			next.orShifted(acc, d)
		}
		acc, next = next, acc
		for i, word := range acc {
			result[i] |= word
		}
	}
	return BitLengthSet{values: result.appendValues(nil, 0, g)}
}

// denseLimit bounds the number of bits a dense intermediate may hold before
// arithmetic falls back to enumerating pairs.
const denseLimit = 1 << 26

// stride returns the gcd of the distances of every value from its set's minimum.
// It is zero when every set holds a single value.
func stride(sets ...BitLengthSet) int {
	g := 0
	for _, s := range sets {
		for _, v := range s.values {
			g = gcd(g, v-s.Min())
		}
	}
	return g
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// positions scales every value into a bitset position relative to base.
func (s BitLengthSet) positions(base, g int) []int {
	out := make([]int, len(s.values))
	for i, v := range s.values {
		out[i] = (v - base) / g
	}
	return out
}

func (s BitLengthSet) dense(g int) bitset {
	b := newBitset((s.Max()-s.Min())/g + 1)
	for _, d := range s.positions(s.Min(), g) {
		b.set(d)
	}
	return b
}

// bitset is a dense set of small non-negative integers.
type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) set(i int) { b[i/64] |= 1 << (uint(i) % 64) }

// orShifted merges src moved up by shift positions into b, dropping what falls past the end.
func (b bitset) orShifted(src bitset, shift int) {
	w, r := shift/64, uint(shift%64)
	for i, word := range src {
		if word == 0 {
			continue
		}
		j := i + w
		if j >= len(b) {
			break
		}
		b[j] |= word << r
		if r != 0 && j+1 < len(b) {
			b[j+1] |= word >> (64 - r)
		}
	}
}

// appendValues appends base+pos*g for every member position, in ascending order.
func (b bitset) appendValues(out []int, base, g int) []int {
	for i, word := range b {
		for word != 0 {
			out = append(out, base+(i*64+bits.TrailingZeros64(word))*g)
			word &= word - 1
		}
	}
	return out
}

// Equal reports whether both sets hold the same lengths.
func (s BitLengthSet) Equal(other BitLengthSet) bool {
	return slices.Equal(s.values, other.values)
}

func (s BitLengthSet) String() string {
	parts := make([]string, len(s.values))
	for i, v := range s.values {
		parts[i] = strconv.Itoa(v)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
