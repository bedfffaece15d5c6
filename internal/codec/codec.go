// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package codec validates and normalizes nucleotide sequences and converts
// between the string representation used throughout the engine and a
// packed 2-bit-per-base encoding used by the seed index.
package codec

import (
	"strings"

	"github.com/sirnaoff/offtarget/internal/xerrors"
)

// RNA is a normalized, validated sequence over the four canonical bases.
type RNA string

// Base is one of the four canonical RNA bases, encoded as its 2-bit value.
type Base byte

// Base values, matching the packing order fixed by the index layout:
// A=00 C=01 G=10 U=11.
const (
	BaseA Base = 0
	BaseC Base = 1
	BaseG Base = 2
	BaseU Base = 3
)

const (
	// MinGuideLength is the shortest supported guide strand.
	MinGuideLength = 19
	// MaxGuideLength is the longest supported guide strand.
	MaxGuideLength = 23
	// SeedLength is the width of the index seed window.
	SeedLength = 7
)

func baseOf(c byte) (Base, bool) {
	switch c {
	case 'A':
		return BaseA, true
	case 'C':
		return BaseC, true
	case 'G':
		return BaseG, true
	case 'U':
		return BaseU, true
	default:
		return 0, false
	}
}

// Byte returns the ASCII letter for b.
func (b Base) Byte() byte { return b.byte() }

func (b Base) byte() byte {
	switch b {
	case BaseA:
		return 'A'
	case BaseC:
		return 'C'
	case BaseG:
		return 'G'
	case BaseU:
		return 'U'
	default:
		panic("codec: invalid base value")
	}
}

// complement returns the Watson-Crick complement of b.
func (b Base) complement() Base {
	switch b {
	case BaseA:
		return BaseU
	case BaseU:
		return BaseA
	case BaseC:
		return BaseG
	case BaseG:
		return BaseC
	default:
		panic("codec: invalid base value")
	}
}

// Wobble reports whether guide base g paired against target base t forms a
// G:U or U:G wobble pair.
func Wobble(g, t Base) bool {
	return (g == BaseG && t == BaseU) || (g == BaseU && t == BaseG)
}

// Normalize strips whitespace, upper-cases, maps T to U, and validates that
// only {A,C,G,U} remain. It does not check length.
func Normalize(s string) (RNA, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		}
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c == 'T' {
			c = 'U'
		}
		if _, ok := baseOf(c); !ok {
			return "", xerrors.ErrInvalidAlphabet
		}
		b.WriteByte(c)
	}
	return RNA(b.String()), nil
}

// ValidateGuideLength checks that s satisfies the guide length bounds.
func ValidateGuideLength(s RNA) error {
	if len(s) < MinGuideLength || len(s) > MaxGuideLength {
		return xerrors.ErrInvalidLength
	}
	return nil
}

// NormalizeGuide normalizes s and checks the guide length bounds.
func NormalizeGuide(s string) (RNA, error) {
	n, err := Normalize(s)
	if err != nil {
		return "", err
	}
	if err := ValidateGuideLength(n); err != nil {
		return "", err
	}
	return n, nil
}

// ReverseComplement returns the reverse complement of s.
func ReverseComplement(s RNA) RNA {
	n := len(s)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b, _ := baseOf(s[n-1-i])
		out[i] = b.complement().byte()
	}
	return RNA(out)
}

// Packed is a 2-bit-per-base encoding of an RNA sequence with an explicit
// length, so that the final, possibly partial, byte is interpreted
// unambiguously.
type Packed struct {
	bits   []byte
	length int
}

// Len returns the number of bases represented.
func (p Packed) Len() int { return p.length }

// Bytes returns the packed byte buffer; the last byte may carry unused high
// bits beyond the final base.
func (p Packed) Bytes() []byte { return p.bits }

// Encode packs s into 2 bits per base, A=00 C=01 G=10 U=11, four bases per
// byte, earliest base in the low-order bits of each byte.
func Encode(s RNA) (Packed, error) {
	nbytes := (len(s) + 3) / 4
	buf := make([]byte, nbytes)
	for i := 0; i < len(s); i++ {
		b, ok := baseOf(byte(s[i]))
		if !ok {
			return Packed{}, xerrors.ErrInvalidAlphabet
		}
		buf[i/4] |= byte(b) << uint((i%4)*2)
	}
	return Packed{bits: buf, length: len(s)}, nil
}

// Decode unpacks p back into its RNA string.
func Decode(p Packed) RNA {
	out := make([]byte, p.length)
	for i := 0; i < p.length; i++ {
		v := (p.bits[i/4] >> uint((i%4)*2)) & 0x3
		out[i] = Base(v).byte()
	}
	return RNA(out)
}

// SeedKey packs a 7-mer into its 14-bit representation, little-endian over
// positions (position 0 occupies the two lowest-order bits). It is an
// error to call SeedKey with a sequence that is not exactly SeedLength
// bases long.
func SeedKey(s RNA) (uint16, error) {
	if len(s) != SeedLength {
		return 0, xerrors.ErrInvalidLength
	}
	var key uint16
	for i := 0; i < SeedLength; i++ {
		b, ok := baseOf(byte(s[i]))
		if !ok {
			return 0, xerrors.ErrInvalidAlphabet
		}
		key |= uint16(b) << uint(i*2)
	}
	return key, nil
}

// UnpackSeedKey is the inverse of SeedKey, reconstructing the 7-mer string
// from its packed representation. It returns ErrIndexCorrupt if key carries
// set bits beyond the 14 used for a 7-mer.
func UnpackSeedKey(key uint16) (RNA, error) {
	if key&^0x3FFF != 0 {
		return "", xerrors.ErrIndexCorrupt
	}
	out := make([]byte, SeedLength)
	for i := 0; i < SeedLength; i++ {
		v := (key >> uint(i*2)) & 0x3
		out[i] = Base(v).byte()
	}
	return RNA(out), nil
}

// Bases returns the decoded Base sequence of s, assuming s has already been
// normalized.
func Bases(s RNA) []Base {
	out := make([]Base, len(s))
	for i := 0; i < len(s); i++ {
		out[i], _ = baseOf(byte(s[i]))
	}
	return out
}
