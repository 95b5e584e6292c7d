// Package chaos corrupts valid inputs so tests can check that readers and
// filters reject malformed data with errors instead of panicking.
package chaos

import (
	"bytes"
	"math/rand/v2"
	"slices"
)

// Mutation is one kind of corruption.
type Mutation int

const (
	ByteFlip Mutation = iota
	ByteDelete
	ByteInsert
	InvalidUTF8
	Truncation
	LineDuplicate
	LineSwap
	numMutations
)

// Corruptor applies pseudo-random mutations. The same seed yields the same
// sequence of corruptions.
type Corruptor struct {
	rng *rand.Rand
}

// NewCorruptor creates a Corruptor seeded with seed.
func NewCorruptor(seed uint64) *Corruptor {
	return &Corruptor{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Corrupt returns a corrupted copy of input. input is never modified.
func (c *Corruptor) Corrupt(input []byte) []byte {
	return c.Apply(Mutation(c.rng.IntN(int(numMutations))), input)
}

// Apply returns a copy of input corrupted by m.
func (c *Corruptor) Apply(m Mutation, input []byte) []byte {
	out := slices.Clone(input)
	if len(out) == 0 {
		return append(out, byte(c.rng.IntN(256)))
	}
	switch m {
	case ByteFlip:
		out[c.rng.IntN(len(out))] ^= 1 << c.rng.IntN(8)
	case ByteDelete:
		i := c.rng.IntN(len(out))
		out = slices.Delete(out, i, i+1)
	case ByteInsert:
		out = slices.Insert(out, c.rng.IntN(len(out)+1), byte(c.rng.IntN(256)))
	case InvalidUTF8:
		// 0xC0 and 0xC1 never start a valid sequence.
		out[c.rng.IntN(len(out))] = 0xC0 | byte(c.rng.IntN(2))
	case Truncation:
		out = out[:c.rng.IntN(len(out))]
	case LineDuplicate, LineSwap:
		lines := bytes.SplitAfter(out, []byte("\n"))
		i, j := c.rng.IntN(len(lines)), c.rng.IntN(len(lines))
		if m == LineDuplicate {
			lines = slices.Insert(lines, i, lines[i])
		} else {
			lines[i], lines[j] = lines[j], lines[i]
		}
		out = bytes.Join(lines, nil)
	}
	return out
}

// CorruptN applies n successive corruptions.
func (c *Corruptor) CorruptN(input []byte, n int) []byte {
	out := slices.Clone(input)
	for range n {
		out = c.Corrupt(out)
	}
	return out
}

// GenerateCorpus returns count corruptions of valid with one to five
// mutations each.
func (c *Corruptor) GenerateCorpus(valid []byte, count int) [][]byte {
	corpus := make([][]byte, count)
	for i := range corpus {
		corpus[i] = c.CorruptN(valid, c.rng.IntN(5)+1)
	}
	return corpus
}
