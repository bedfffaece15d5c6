// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package seedindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirnaoff/offtarget/internal/codec"
	"github.com/sirnaoff/offtarget/internal/store"
)

func newFixture(t *testing.T) (*store.Store, *Index) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "transcripts.db"), true)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ix, err := Create(filepath.Join(t.TempDir(), "seeds.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return st, ix
}

func TestBuildIndexCompleteness(t *testing.T) {
	st, ix := newFixture(t)
	seq := codec.RNA("AAAAAGCUACGUAAAAAA")
	require.NoError(t, st.Put(store.Transcript{ID: "T1", Sequence: seq}))

	seedCount, err := Build(context.Background(), ix, st, nil)
	require.NoError(t, err)
	assert.Equal(t, len(seq)-codec.SeedLength+1, seedCount)

	for i := 0; i+codec.SeedLength <= len(seq); i++ {
		key, err := codec.SeedKey(seq[i : i+codec.SeedLength])
		require.NoError(t, err)
		postings, err := lookup(ix, key)
		require.NoError(t, err)
		found := false
		for _, p := range postings {
			if p.transcriptID == "T1" && p.position == i {
				found = true
			}
		}
		assert.True(t, found, "missing posting for position %d", i)
	}
}

func TestPostingsReturnsExactSeedMatches(t *testing.T) {
	st, ix := newFixture(t)
	seq := codec.RNA("AAAAAGCUACGUAAAAAA")
	require.NoError(t, st.Put(store.Transcript{ID: "T1", Sequence: seq}))
	_, err := Build(context.Background(), ix, st, nil)
	require.NoError(t, err)

	postings, err := Postings(ix, seq[7:14])
	require.NoError(t, err)
	require.Len(t, postings, 1)
	assert.Equal(t, "T1", postings[0].TranscriptID)
	assert.Equal(t, 7, postings[0].Position)
}

func TestPostingsEmptyForAbsentSeed(t *testing.T) {
	st, ix := newFixture(t)
	require.NoError(t, st.Put(store.Transcript{ID: "T1", Sequence: codec.RNA("AAAAAAAAAAAAAAAAAAAA")}))
	_, err := Build(context.Background(), ix, st, nil)
	require.NoError(t, err)

	postings, err := Postings(ix, codec.RNA("GCGCGCG"))
	require.NoError(t, err)
	assert.Empty(t, postings)
}

func TestBuildIdempotent(t *testing.T) {
	st, ix := newFixture(t)
	require.NoError(t, st.Put(store.Transcript{ID: "T1", Sequence: codec.RNA("AAAAAGCUACGUAAAAAA")}))

	n1, err := Build(context.Background(), ix, st, nil)
	require.NoError(t, err)
	n2, err := Build(context.Background(), ix, st, nil)
	require.NoError(t, err)
	assert.Equal(t, n1, n2)
}

func TestBuildRestrictsToUTR3WhenPresent(t *testing.T) {
	st, ix := newFixture(t)
	start, end := 5, 12
	require.NoError(t, st.Put(store.Transcript{
		ID: "T1", Sequence: codec.RNA("AAAAAGCUACGUAAAAAA"),
		UTR3Start: &start, UTR3End: &end,
	}))
	seedCount, err := Build(context.Background(), ix, st, nil)
	require.NoError(t, err)
	assert.Equal(t, end-start-codec.SeedLength+1, seedCount)
}

// The guide fixture used across these tests is 20nt long, so the target
// transcript needs flanking bases on both sides of the hit for the full
// guide length to fit (fitsGuide gates the antiparallel [pos+8-L, pos+8)
// span, not just the 7nt seed); every fixture below pads a 20nt core with
// 10 'A' bases on each side. The core itself is the exact reverse
// complement of the guide, so the window Search locates is a true
// full-length antiparallel duplex, not just a seed-only match.
const flank = "AAAAAAAAAA"

// perfectCore is revcomp(guide) below: UUUUUUUUUUGCUACGUAAA. The 7nt seed
// (guide positions 2..8) falls at core offset 12.
const perfectCore = "UUUUUUUUUUGCUACGUAAA"

func TestSearchPerfectSeedMatch(t *testing.T) {
	st, ix := newFixture(t)
	require.NoError(t, st.Put(store.Transcript{ID: "T1", Sequence: codec.RNA(flank + perfectCore + flank)}))
	_, err := Build(context.Background(), ix, st, nil)
	require.NoError(t, err)

	guide := codec.RNA("UUUACGUAGCAAAAAAAAAA")
	hits, err := Search(ix, st, guide, len(guide), Params{MaxSeedMismatches: 0, AllowWobble: false})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "T1", hits[0].TranscriptID)
	assert.Equal(t, 0, hits[0].Mismatches)
	assert.Equal(t, 0, hits[0].Wobbles)
	assert.Equal(t, 22, hits[0].Position)
}

func TestSearchRespectsMismatchTolerance(t *testing.T) {
	st, ix := newFixture(t)
	// perfectCore with the seed's third base (core offset 14, a 'C')
	// changed to 'A': guide position 4 is 'G', so G:A is a hard mismatch,
	// not a wobble.
	require.NoError(t, st.Put(store.Transcript{ID: "T1", Sequence: codec.RNA(flank + "UUUUUUUUUUGCUAAGUAAA" + flank)}))
	_, err := Build(context.Background(), ix, st, nil)
	require.NoError(t, err)

	guide := codec.RNA("UUUACGUAGCAAAAAAAAAA")

	hits, err := Search(ix, st, guide, len(guide), Params{MaxSeedMismatches: 0, AllowWobble: false})
	require.NoError(t, err)
	assert.Len(t, hits, 0)

	hits, err = Search(ix, st, guide, len(guide), Params{MaxSeedMismatches: 1, AllowWobble: false})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Mismatches)
	assert.Equal(t, 0, hits[0].Wobbles)
}

func TestSearchWobbleClassification(t *testing.T) {
	st, ix := newFixture(t)
	// perfectCore with the seed's second base (core offset 13, an 'A')
	// changed to 'G': guide position 5 is 'U', so U:G is a wobble pair.
	require.NoError(t, st.Put(store.Transcript{ID: "T1", Sequence: codec.RNA(flank + "UUUUUUUUUUGCUGCGUAAA" + flank)}))
	_, err := Build(context.Background(), ix, st, nil)
	require.NoError(t, err)

	guide := codec.RNA("UUUACGUAGCAAAAAAAAAA")

	hits, err := Search(ix, st, guide, len(guide), Params{MaxSeedMismatches: 0, AllowWobble: false})
	require.NoError(t, err)
	assert.Len(t, hits, 0, "with wobble disallowed, the G:U position is a mismatch and filtered by m=0")

	hits, err = Search(ix, st, guide, len(guide), Params{MaxSeedMismatches: 0, AllowWobble: true})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 0, hits[0].Mismatches)
	assert.Equal(t, 1, hits[0].Wobbles)
}

func TestSearchRejectsHitsThatRunOffTranscriptEnds(t *testing.T) {
	st, ix := newFixture(t)
	// Seed match sits at the very start of a short transcript so the
	// guide's 3' tail, which pairs upstream of the seed, cannot fit.
	require.NoError(t, st.Put(store.Transcript{ID: "T1", Sequence: codec.RNA("UACGUAACCCCCCCCCCCCCCCC")}))
	_, err := Build(context.Background(), ix, st, nil)
	require.NoError(t, err)

	guide := codec.RNA("UUUACGUAGCAAAAAAAAAA")
	hits, err := Search(ix, st, guide, len(guide), Params{MaxSeedMismatches: 0, AllowWobble: false})
	require.NoError(t, err)
	assert.Len(t, hits, 0)
}

func TestSearchCompletenessBruteForce(t *testing.T) {
	st, ix := newFixture(t)
	seq := codec.RNA("ACGUACGUACGUACGUACGUACGUACGUACGU")
	require.NoError(t, st.Put(store.Transcript{ID: "T1", Sequence: seq}))
	_, err := Build(context.Background(), ix, st, nil)
	require.NoError(t, err)

	guide := codec.RNA("UUUACGUAGCAAAAAAAAAA")
	targetSeed := codec.ReverseComplement(guide[1:8])

	for _, m := range []int{0, 1, 2} {
		hits, err := Search(ix, st, guide, len(guide), Params{MaxSeedMismatches: m, AllowWobble: false})
		require.NoError(t, err)

		// Brute force every 7-mer window that fits the full guide, using
		// the same antiparallel [pos+8-L, pos+8) alignment span as
		// fitsGuide.
		var want int
		minPos := len(guide) - (codec.SeedLength + 1)
		for i := minPos; i+codec.SeedLength+1 <= len(seq); i++ {
			window := seq[i : i+codec.SeedLength]
			if hamming(targetSeed, window) <= m {
				want++
			}
		}
		assert.Equal(t, want, len(hits), "mismatch tolerance m=%d", m)
	}
}

func hamming(a, b codec.RNA) int {
	n := 0
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}
