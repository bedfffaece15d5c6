// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thermo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirnaoff/offtarget/internal/codec"
	"github.com/sirnaoff/offtarget/internal/xerrors"
)

func TestScorePerfectDuplexIsNegative(t *testing.T) {
	guide := codec.RNA("GCGCGCGCGCGCGCGCGCGCG")
	target := codec.ReverseComplement(guide)
	dG, err := Score(guide, target)
	require.NoError(t, err)
	assert.Less(t, dG, 0.0)
}

func TestScoreRejectsLengthMismatch(t *testing.T) {
	_, err := Score(codec.RNA("AAAA"), codec.RNA("AAA"))
	assert.ErrorIs(t, err, xerrors.ErrLengthMismatch)
}

// targetFor builds the target window that pairs perfectly against guide,
// except at position pos (0-indexed on the guide), which is realigned
// against the complement of substitute instead of guide[pos]'s true
// complement. This lets a test control exactly which actual target base
// pairs against a single guide position without having to reason about the
// reverse-complement index mirroring by hand.
func targetFor(guide codec.RNA, pos int, substitute byte) codec.RNA {
	mutated := []byte(guide)
	mutated[pos] = substitute
	return codec.ReverseComplement(codec.RNA(mutated))
}

func TestScoreMismatchRaisesEnergyRelativeToPerfectMatch(t *testing.T) {
	guide := codec.RNA("GCGCGCGCGCGCGCGCGCGCG")
	perfectTarget := codec.ReverseComplement(guide)
	mid := len(guide) / 2
	require.Equal(t, byte('G'), guide[mid])

	// guide[mid] is G; pairing it against a substitute of C (complement G)
	// is neither identical to guide[mid] nor a G:U wobble, so it is a hard
	// mismatch at that step.
	mismatchTarget := targetFor(guide, mid, 'C')

	dGPerfect, err := Score(guide, perfectTarget)
	require.NoError(t, err)
	dGMismatch, err := Score(guide, mismatchTarget)
	require.NoError(t, err)
	assert.Greater(t, dGMismatch, dGPerfect)
}

func TestScoreWobbleStepIsCheaperThanHardMismatch(t *testing.T) {
	guide := codec.RNA("GCGCGCGCGCGCGCGCGCGCG")
	mid := len(guide) / 2
	require.Equal(t, byte('G'), guide[mid])

	// Substituting A pairs guide[mid]=G against the complement of A, which
	// is U: a G:U wobble. Substituting C pairs it against the complement
	// of C, which is G: a hard mismatch. Both touch the same two
	// dinucleotide steps, so the weighting is identical and only the
	// mismatch-vs-wobble penalty differs.
	wobbleTarget := targetFor(guide, mid, 'A')
	hardTarget := targetFor(guide, mid, 'C')

	dGWobble, err := Score(guide, wobbleTarget)
	require.NoError(t, err)
	dGHard, err := Score(guide, hardTarget)
	require.NoError(t, err)
	assert.Less(t, dGWobble, dGHard)
}

func TestPositionalWeightBands(t *testing.T) {
	assert.Equal(t, 1.5, positionalWeight(1, 21))
	assert.Equal(t, 1.5, positionalWeight(7, 21))
	assert.Equal(t, 1.0, positionalWeight(8, 21))
	assert.Equal(t, 1.0, positionalWeight(11, 21))
	assert.Equal(t, 0.8, positionalWeight(12, 21))
	assert.Equal(t, 0.8, positionalWeight(19, 21))
}

func TestTerminalAUPenaltyApplied(t *testing.T) {
	// Two-base guides so the single dinucleotide step is the whole score;
	// expected values come directly from the embedded Turner table, with
	// the AU case picking up two terminal penalties since both bases are
	// themselves terminal.
	gcGuide := codec.RNA("GC")
	auGuide := codec.RNA("AU")

	dGGC, err := Score(gcGuide, codec.ReverseComplement(gcGuide))
	require.NoError(t, err)
	dGAU, err := Score(auGuide, codec.ReverseComplement(auGuide))
	require.NoError(t, err)

	assert.InDelta(t, -3.42, dGGC, 1e-9)
	assert.InDelta(t, -1.10+2*terminalAUPenalty, dGAU, 1e-9)
}
