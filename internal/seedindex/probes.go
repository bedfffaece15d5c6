// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package seedindex

import "github.com/sirnaoff/offtarget/internal/codec"

var allBases = [4]codec.Base{codec.BaseA, codec.BaseC, codec.BaseG, codec.BaseU}

// enumerateProbes builds the probe set described in spec.md §4.D step 2:
// the seed itself, then every single-base substitution, then every
// substitution of those once more, always deduplicated. The set is always built out to Hamming distance 2 so that
// wobble-weighted acceptance (spec.md §4.D step 4, which can admit a
// Hamming-2 hit under maxMismatches=1 when both differences are G:U
// wobbles) has candidates to consider; Search itself is what enforces the
// maxMismatches bound, via the weighted distance computed from the actual
// classification of each hit.
func enumerateProbes(seed codec.RNA, maxMismatches int) []codec.RNA {
	seen := map[codec.RNA]bool{seed: true}
	frontier := []codec.RNA{seed}

	depth := maxMismatches
	if depth < 2 {
		// Still expand to depth 2 so wobble-weighted acceptance can find
		// Hamming-2 candidates; Search filters by the weighted distance,
		// not by how deep this enumeration went.
		depth = 2
	}
	for d := 0; d < depth; d++ {
		var next []codec.RNA
		for _, s := range frontier {
			for _, variant := range singleSubstitutions(s) {
				if !seen[variant] {
					seen[variant] = true
					next = append(next, variant)
				}
			}
		}
		frontier = next
	}

	out := make([]codec.RNA, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	return out
}

// singleSubstitutions returns every sequence obtained from s by replacing
// exactly one base with one of the three alternatives.
func singleSubstitutions(s codec.RNA) []codec.RNA {
	bases := codec.Bases(s)
	out := make([]codec.RNA, 0, len(bases)*3)
	buf := make([]codec.Base, len(bases))
	copy(buf, bases)
	for i, orig := range bases {
		for _, alt := range allBases {
			if alt == orig {
				continue
			}
			buf[i] = alt
			out = append(out, basesToRNA(buf))
		}
		buf[i] = orig
	}
	return out
}

func basesToRNA(bases []codec.Base) codec.RNA {
	b := make([]byte, len(bases))
	for i, base := range bases {
		b[i] = base.Byte()
	}
	return codec.RNA(b)
}
