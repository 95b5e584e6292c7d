// Package strop turns arbitrary tokens into identifiers that are valid in
// C-like languages and do not collide with reserved words.
package strop

import (
	"fmt"
	"strings"
)

// DefaultEncodingPrefix is used when an Encoder has no encoding prefix, since
// the hex code alone could start with a digit.
const DefaultEncodingPrefix = "ZX"

// Set is a set of reserved words.
type Set map[string]struct{}

// NewSet builds a Set from any number of word lists.
func NewSet(lists ...[]string) Set {
	s := make(Set)
	for _, list := range lists {
		for _, w := range list {
			s[w] = struct{}{}
		}
	}
	return s
}

// Contains reports whether w is in the set.
func (s Set) Contains(w string) bool {
	_, ok := s[w]
	return ok
}

// Encoder strops tokens. Identifier characters are ASCII letters, digits and
// underscore; a digit may not lead.
type Encoder struct {
	StroppingPrefix string
	StroppingSuffix string
	EncodingPrefix  string
}

// Strop returns token as a valid identifier that is not in reserved:
//   - a space becomes an underscore;
//   - a leading digit is preceded by the stropping prefix;
//   - any other invalid character becomes the encoding prefix plus its
//     code point as at least four upper-case hex digits;
//   - a result that is a reserved word gets the stropping suffix.
//
// The transformation is deterministic but not reversible.
func (e Encoder) Strop(token string, reserved Set) string {
	var b strings.Builder
	b.Grow(len(token))
	for i, r := range token {
		switch {
		case r == '_' || isLetter(r):
			b.WriteRune(r)
		case isDigit(r):
			if i == 0 {
				if e.StroppingPrefix == "" {
					b.WriteString(e.encode(r))
					continue
				}
				b.WriteString(e.StroppingPrefix)
			}
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		default:
			b.WriteString(e.encode(r))
		}
	}

	out := b.String()
	if out == "" {
		out = e.StroppingPrefix
		if out == "" {
			out = "_"
		}
	}

	suffix := e.StroppingSuffix
	if suffix == "" {
		suffix = "_"
	}
	for reserved.Contains(out) {
		out += suffix
	}
	return out
}

func (e Encoder) encode(r rune) string {
	prefix := e.EncodingPrefix
	if prefix == "" {
		prefix = DefaultEncodingPrefix
	}
	return fmt.Sprintf("%s%04X", prefix, r)
}

// IsValid reports whether s is a non-empty identifier of ASCII letters,
// digits and underscores that does not start with a digit.
func IsValid(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || isLetter(r):
		case isDigit(r):
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func isLetter(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
