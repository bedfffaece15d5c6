// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package thermo computes the duplex free energy (ΔG) of a guide strand
// against a target window, using Turner nearest-neighbor stacking
// parameters, positional weighting of the seed, a terminal AU penalty, and
// wobble-aware mismatch handling.
package thermo

import (
	_ "embed"

	"gonum.org/v1/gonum/floats"

	"github.com/sirnaoff/offtarget/internal/codec"
	"github.com/sirnaoff/offtarget/internal/xerrors"
)

//go:embed turner_nn.csv
var turnerCSV []byte

// Default is the Turner nearest-neighbor table loaded from the embedded
// resource, shared by every call to Score.
var Default *Table

func init() {
	t, err := parseTable(turnerCSV)
	if err != nil {
		panic(err)
	}
	Default = t
}

// pairState classifies one base-pair position of a guide/target alignment.
type pairState int

const (
	pairWC pairState = iota
	pairWobble
	pairMismatch
)

// terminalAUPenalty is added once for each terminal base of the guide that
// is A or U, per spec.
const terminalAUPenalty = 0.45

// Score computes the unrounded ΔG, in kcal/mol, of the duplex formed by
// guide against targetWindow, which must be the same length as guide and
// given 5'->3' on the target strand (not reverse-complemented). Score
// reverse-complements targetWindow internally to align it against guide
// base-by-base.
//
// Score never rounds its result; rounding for reporting happens at the
// report boundary so ranking always uses full precision.
func (t *Table) Score(guide, targetWindow codec.RNA) (float64, error) {
	if len(guide) != len(targetWindow) {
		return 0, xerrors.ErrLengthMismatch
	}
	l := len(guide)
	if l < 2 {
		return 0, xerrors.ErrLengthMismatch
	}

	compTarget := codec.ReverseComplement(targetWindow)
	gBases := codec.Bases(guide)
	cBases := codec.Bases(compTarget)
	tBases := codec.Bases(targetWindow)

	paired := make([]pairState, l)
	for i := 0; i < l; i++ {
		if gBases[i] == cBases[i] {
			paired[i] = pairWC
			continue
		}
		// The base actually pairing with guide[i] is the target-strand base
		// at the mirrored offset, since compTarget[i] = complement(target[l-1-i]).
		if codec.Wobble(gBases[i], tBases[l-1-i]) {
			paired[i] = pairWobble
		} else {
			paired[i] = pairMismatch
		}
	}

	weights := make([]float64, l-1)
	values := make([]float64, l-1)
	for i := 0; i < l-1; i++ {
		weights[i] = positionalWeight(i, l)

		if paired[i] == pairWC && paired[i+1] == pairWC {
			values[i] = t.wcStackEnergy(gBases[i], gBases[i+1])
			continue
		}
		step := t.mismatch
		if paired[i] != pairMismatch && paired[i+1] != pairMismatch {
			// Neither position is a hard mismatch, so every difference in
			// this step is a wobble: halve the penalty.
			step /= 2
		}
		values[i] = step
	}

	dG := floats.Dot(weights, values)

	if gBases[0] == codec.BaseA || gBases[0] == codec.BaseU {
		dG += terminalAUPenalty
	}
	if gBases[l-1] == codec.BaseA || gBases[l-1] == codec.BaseU {
		dG += terminalAUPenalty
	}
	return dG, nil
}

// Score computes ΔG using the default embedded Turner table.
func Score(guide, targetWindow codec.RNA) (float64, error) {
	return Default.Score(guide, targetWindow)
}

// positionalWeight returns the weight applied to the dinucleotide step
// whose 5' base sits at 0-indexed guide position i, for a guide of length
// l, per spec.md §4.E:
//
//	i in [1,7]   (seed, guide positions 2..8): 1.5
//	i in [8,11]: 1.0
//	i in [12,l-2]: 0.8
//	i == 0: treated as the 1.0 band (outside the named ranges).
func positionalWeight(i, l int) float64 {
	switch {
	case i >= 1 && i <= 7:
		return 1.5
	case i >= 8 && i <= 11:
		return 1.0
	case i >= 12 && i <= l-2:
		return 0.8
	default:
		return 1.0
	}
}
