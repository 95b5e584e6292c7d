package dsdl

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNewBitLengthSet(t *testing.T) {
	t.Parallel()

	set, err := NewBitLengthSet(16, 8, 16, 0)
	if err != nil {
		t.Fatalf("NewBitLengthSet returned error: %v", err)
	}
	if diff := cmp.Diff([]int{0, 8, 16}, set.Values()); diff != "" {
		t.Fatalf("Values mismatch (-want +got):\n%s", diff)
	}
	if set.Min() != 0 || set.Max() != 16 {
		t.Fatalf("Min/Max = %d/%d, want 0/16", set.Min(), set.Max())
	}
	if got := set.String(); got != "{0, 8, 16}" {
		t.Fatalf("String() = %q", got)
	}

	if _, err := NewBitLengthSet(3, -1); !errors.Is(err, ErrNegativeBitLength) {
		t.Fatalf("expected ErrNegativeBitLength, got %v", err)
	}
}

func TestBitLengthSetAlignment(t *testing.T) {
	t.Parallel()

	set := MustBitLengthSet(32)
	if !set.IsAlignedAtByte() {
		t.Fatalf("expected %s to be byte aligned", set)
	}
	bumped := set.Increment(1)
	if bumped.IsAlignedAtByte() {
		t.Fatalf("expected %s to be unaligned", bumped)
	}
	if !set.Equal(MustBitLengthSet(32)) {
		t.Fatalf("Increment mutated the receiver: %s", set)
	}
	if !(BitLengthSet{}).IsAlignedAtByte() {
		t.Fatalf("expected the empty set to be aligned")
	}
	if MustBitLengthSet(8, 12).IsAlignedAtByte() {
		t.Fatalf("a set with one unaligned member must be unaligned")
	}
	if set.IsAlignedAt(0) {
		t.Fatalf("alignment at zero bits must be false")
	}
}

func TestBitLengthSetArithmetic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  BitLengthSet
		want []int
	}{
		{name: "union", got: MustBitLengthSet(1, 8).Union(MustBitLengthSet(8, 16)), want: []int{1, 8, 16}},
		{name: "sum", got: MustBitLengthSet(0, 8).Sum(MustBitLengthSet(1, 2)), want: []int{1, 2, 9, 10}},
		{name: "sum with empty", got: (BitLengthSet{}).Sum(MustBitLengthSet(4)), want: []int{4}},
		{name: "repeat", got: MustBitLengthSet(3).Repeat(3), want: []int{9}},
		{name: "repeat zero", got: MustBitLengthSet(3).Repeat(0), want: []int{0}},
		{name: "repeat range", got: MustBitLengthSet(8).RepeatRange(2), want: []int{0, 8, 16}},
		{name: "increment empty", got: (BitLengthSet{}).Increment(5), want: []int{5}},
		{name: "sum of ranges", got: MustBitLengthSet(0, 3, 8).Sum(MustBitLengthSet(1, 5)), want: []int{1, 4, 5, 8, 9, 13}},
		{name: "repeat of range", got: MustBitLengthSet(1, 3).Repeat(3), want: []int{3, 5, 7, 9}},
		{name: "repeat range of range", got: MustBitLengthSet(2, 5).RepeatRange(2), want: []int{0, 2, 4, 5, 7, 10}},
		{name: "repeat range of zero", got: MustBitLengthSet(0).RepeatRange(4), want: []int{0}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, tc.got.Values()); diff != "" {
				t.Fatalf("Values mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func naiveSum(a, b []int) []int {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	var out []int
	for _, x := range a {
		for _, y := range b {
			out = append(out, x+y)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func naiveRepeat(values []int, n int, ranged bool) []int {
	acc := []int{0}
	result := []int{0}
	for range n {
		acc = naiveSum(acc, values)
		result = append(result, acc...)
	}
	if !ranged {
		return acc
	}
	slices.Sort(result)
	return slices.Compact(result)
}

func TestBitLengthSetMatchesPairwise(t *testing.T) {
	t.Parallel()

	sets := [][]int{
		{0},
		{7},
		{0, 1},
		{8, 16, 40},
		{3, 64, 65, 130},
		{12, 30, 33},
	}
	for _, a := range sets {
		for _, b := range sets {
			got := MustBitLengthSet(a...).Sum(MustBitLengthSet(b...)).Values()
			if diff := cmp.Diff(naiveSum(a, b), got); diff != "" {
				t.Fatalf("%v + %v mismatch (-want +got):\n%s", a, b, diff)
			}
		}
		for n := range 6 {
			got := MustBitLengthSet(a...).Repeat(n).Values()
			if diff := cmp.Diff(naiveRepeat(a, n, false), got); diff != "" {
				t.Fatalf("%v repeated %d times mismatch (-want +got):\n%s", a, n, diff)
			}
			got = MustBitLengthSet(a...).RepeatRange(n).Values()
			if diff := cmp.Diff(naiveRepeat(a, n, true), got); diff != "" {
				t.Fatalf("%v repeated up to %d times mismatch (-want +got):\n%s", a, n, diff)
			}
		}
	}
}

func TestNestedArrayBitLengthSet(t *testing.T) {
	t.Parallel()

	uint8Type := &PrimitiveType{Kind: KindUnsigned, Bits: 8}
	small := &ArrayType{Element: &ArrayType{Element: uint8Type, Capacity: 5, Variable: true}, Capacity: 3}
	inner := naiveRepeat([]int{8}, 5, true)
	for i := range inner {
		inner[i] += 8
	}
	want := naiveRepeat(inner, 3, false)
	if diff := cmp.Diff(want, small.BitLengthSet().Values()); diff != "" {
		t.Fatalf("uint8[<=5][3] mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		capacity int
		count    int
	}{
		{capacity: 32, count: 8161},
		{capacity: 64, count: 16321},
	}
	for _, tc := range tests {
		start := time.Now()
		nested := &ArrayType{Element: &ArrayType{Element: uint8Type, Capacity: 255, Variable: true}, Capacity: tc.capacity}
		set := nested.BitLengthSet()
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Fatalf("uint8[<=255][%d] took %s", tc.capacity, elapsed)
		}
		if set.Len() != tc.count {
			t.Fatalf("uint8[<=255][%d] has %d lengths, want %d", tc.capacity, set.Len(), tc.count)
		}
		if set.Min() != tc.capacity*8 || set.Max() != tc.capacity*2048 {
			t.Fatalf("uint8[<=255][%d] spans %d..%d", tc.capacity, set.Min(), set.Max())
		}
		if !set.IsAlignedAtByte() {
			t.Fatalf("uint8[<=255][%d] must be byte aligned", tc.capacity)
		}
		if !set.Equal(nested.BitLengthSet()) {
			t.Fatalf("repeated BitLengthSet calls disagree")
		}
	}
}
