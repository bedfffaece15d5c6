// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package seedindex

import (
	"fmt"
	"io"
	"strconv"

	"github.com/sirnaoff/offtarget/internal/codec"
	"github.com/sirnaoff/offtarget/internal/store"
)

// CandidateHit is one deduplicated seed match, per the data model.
type CandidateHit struct {
	TranscriptID string
	Position     int // 0-indexed offset of the seed on the target strand
	Mismatches   int
	Wobbles      int
}

// Params configures one seed search.
type Params struct {
	MaxSeedMismatches int // 0, 1, or 2
	AllowWobble       bool
}

// Search enumerates the probe set derived from guide's seed (positions 2-8,
// 1-indexed) and returns every deduplicated candidate hit whose alignment
// fits entirely within its transcript, per spec.md §4.D. guideLength is the
// full guide length L, used to reject hits that would run off either end
// of the transcript once the full guide (not just the seed) is aligned. st
// supplies transcript lengths for that bounds check.
func Search(ix *Index, st *store.Store, guide codec.RNA, guideLength int, p Params) ([]CandidateHit, error) {
	if p.MaxSeedMismatches < 0 || p.MaxSeedMismatches > 2 {
		return nil, fmt.Errorf("seedindex: search: max_seed_mismatches must be 0, 1, or 2, got %d", p.MaxSeedMismatches)
	}
	guideSeed := guide[1:8] // positions 2..8, 1-indexed
	targetSeed := codec.ReverseComplement(guideSeed)

	probes := enumerateProbes(targetSeed, p.MaxSeedMismatches)

	type accum struct {
		transcriptID string
		position     int
		mismatches   int
		wobbles      int
	}
	best := make(map[string]accum)

	for _, probe := range probes {
		mismatches, wobbles := classify(guideSeed, targetSeed, probe, p.AllowWobble)
		if weightedDistance(mismatches, wobbles) > float64(p.MaxSeedMismatches) {
			continue
		}
		key, err := codec.SeedKey(probe)
		if err != nil {
			continue
		}
		postings, err := lookup(ix, key)
		if err != nil {
			return nil, err
		}
		for _, post := range postings {
			dedupKey := post.transcriptID + "\x00" + strconv.Itoa(post.position)
			cur, ok := best[dedupKey]
			if !ok || better(mismatches, wobbles, cur.mismatches, cur.wobbles) {
				best[dedupKey] = accum{
					transcriptID: post.transcriptID,
					position:     post.position,
					mismatches:   mismatches,
					wobbles:      wobbles,
				}
			}
		}
	}

	lengths := make(map[string]int)
	var hits []CandidateHit
	for _, acc := range best {
		length, ok := lengths[acc.transcriptID]
		if !ok {
			t, err := st.Get(acc.transcriptID)
			if err != nil {
				// Posting references a transcript no longer in the
				// store; a data-integrity warning, not a hard failure.
				continue
			}
			length = t.Length()
			lengths[acc.transcriptID] = length
		}
		if !fitsGuide(acc.position, guideLength, length) {
			continue
		}
		hits = append(hits, CandidateHit{
			TranscriptID: acc.transcriptID,
			Position:     acc.position,
			Mismatches:   acc.mismatches,
			Wobbles:      acc.wobbles,
		})
	}
	return hits, nil
}

// fitsGuide reports whether a guide of length L aligned antiparallel so
// that guide positions 2..8 sit at target offset seedPos fits entirely
// within [0, transcriptLength). The guide's 3' tail extends upstream of
// the seed on the target strand, so the full alignment spans
// [seedPos+8-L, seedPos+8).
func fitsGuide(seedPos, guideLength, transcriptLength int) bool {
	start := seedPos + codec.SeedLength + 1 - guideLength
	end := seedPos + codec.SeedLength + 1
	return start >= 0 && end <= transcriptLength
}

// weightedDistance combines mismatches and wobbles into the acceptance
// metric: wobbles already carry half weight when AllowWobble caused them
// to be classified as wobbles in the first place; when wobble is
// disallowed, classify folds every difference into mismatches so wobbles
// is always 0 here.
func weightedDistance(mismatches, wobbles int) float64 {
	return float64(mismatches) + 0.5*float64(wobbles)
}

// better reports whether (m1, w1) is a strictly better (mismatches-first)
// ordering than (m2, w2), for collapsing duplicate (transcript, position)
// hits produced by overlapping probes to the minimum under that ordering.
func better(m1, w1, m2, w2 int) bool {
	if m1 != m2 {
		return m1 < m2
	}
	return w1 < w2
}

// classify compares guideSeed (guide positions 2..8, 1-indexed) against a
// matched target-side probe, position by position against targetSeed =
// revcomp(guideSeed), and splits differing positions into mismatches and
// (when allowWobble) G:U/U:G wobbles.
func classify(guideSeed, targetSeed, probe codec.RNA, allowWobble bool) (mismatches, wobbles int) {
	gBases := codec.Bases(guideSeed)
	tBases := codec.Bases(probe)
	n := len(targetSeed)
	for i := 0; i < n; i++ {
		if probe[i] == targetSeed[i] {
			continue
		}
		// Position i of the (5'->3') target-side alignment pairs with
		// guide position (n-1-i) of the (5'->3') guide seed, since
		// targetSeed is the reverse complement of guideSeed.
		gBase := gBases[n-1-i]
		tBase := tBases[i]
		if allowWobble && codec.Wobble(gBase, tBase) {
			wobbles++
		} else {
			mismatches++
		}
	}
	return mismatches, wobbles
}

// posting is one decoded seed index entry.
type posting struct {
	transcriptID string
	position     int
}

// Posting is one exported (transcript, position) seed index entry, for
// callers outside the package that need to inspect raw postings (notably
// the audit tool) rather than run a full guide search.
type Posting struct {
	TranscriptID string
	Position     int
}

// Postings returns every posting stored under the exact 7-mer seed,
// unlike Search, which enumerates mismatch/wobble probes around a guide's
// seed region.
func Postings(ix *Index, seed codec.RNA) ([]Posting, error) {
	key, err := codec.SeedKey(seed)
	if err != nil {
		return nil, err
	}
	raw, err := lookup(ix, key)
	if err != nil {
		return nil, err
	}
	out := make([]Posting, len(raw))
	for i, p := range raw {
		out[i] = Posting{TranscriptID: p.transcriptID, Position: p.position}
	}
	return out, nil
}

// lookup returns every posting stored under seedKey, by seeking to the
// start of that key's contiguous range and scanning forward while the
// prefix matches.
func lookup(ix *Index, seedKey uint16) ([]posting, error) {
	prefix := marshalPostingKey(seedKey, "", 0)
	enum, _, err := ix.db.Seek(prefix)
	if err != nil {
		return nil, fmt.Errorf("seedindex: lookup: %w", err)
	}
	var out []posting
	for {
		k, _, err := enum.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("seedindex: lookup: %w", err)
		}
		gotKey, id, pos, err := unmarshalPostingKey(k)
		if err != nil {
			return nil, err
		}
		if gotKey != seedKey {
			break
		}
		out = append(out, posting{transcriptID: id, position: pos})
	}
	return out, nil
}
