// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package risk normalizes thermodynamic and context features into a
// composite risk score, classifies it, and orders off-target records for
// reporting (Component G).
package risk

import (
	"sort"

	"github.com/sirnaoff/offtarget/internal/codec"
)

// Classification is the coarse risk bucket a composite score falls into.
type Classification string

const (
	ClassHigh     Classification = "high"
	ClassModerate Classification = "moderate"
	ClassLow      Classification = "low"
)

const (
	// energyNormFloor and energyNormSpan define the ΔG normalization
	// window, per spec.md §4.G: dg_norm = clamp((ΔG+25)/15, 0, 1).
	energyNormFloor = -25.0
	energyNormSpan  = 15.0

	// auHighThreshold is the AU% above which au_score is 1 rather than 0.
	auHighThreshold = 60.0

	weightEnergy       = 0.5
	weightAU           = 0.2
	weightAccessibility = 0.2
	weightConservation = 0.1
)

// ConservationFunc optionally supplies a cross-species conservation score
// in [0,1] for a transcript position. The default always returns 0,
// matching "default 0 if unavailable" (conservation lookups are out of
// scope; see spec.md §1 Non-goals).
type ConservationFunc func(transcriptID string, position int) float64

// DefaultConservation is the zero-value ConservationFunc.
func DefaultConservation(string, int) float64 { return 0 }

// NormalizeEnergy maps ΔG onto [0,1], where 0 corresponds to the most
// negative (most stable, highest-risk) energies and 1 to the least
// negative.
func NormalizeEnergy(deltaG float64) float64 {
	return clamp((deltaG-energyNormFloor)/energyNormSpan, 0, 1)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Classify buckets a composite risk score per the fixed thresholds in
// spec.md §4.G.
func Classify(riskScore float64) Classification {
	switch {
	case riskScore > 0.7:
		return ClassHigh
	case riskScore >= 0.5:
		return ClassModerate
	default:
		return ClassLow
	}
}

// Score computes the composite risk score in [0,1] from a candidate's
// already-computed features.
func Score(deltaG, auContentPct, accessibility, conservation float64) float64 {
	dgNorm := NormalizeEnergy(deltaG)
	auScore := 0.0
	if auContentPct > auHighThreshold {
		auScore = 1
	}
	return (1-dgNorm)*weightEnergy + auScore*weightAU + accessibility*weightAccessibility + conservation*weightConservation
}

// OffTarget is one scored, classified candidate site, matching the
// off-target record of spec.md §3.
type OffTarget struct {
	TranscriptID           string         `json:"transcript_id"`
	GeneSymbol             string         `json:"gene_symbol"`
	Position               int            `json:"position"`
	DeltaG                 float64        `json:"delta_g"`
	SeedMatches            int            `json:"seed_matches"`
	Mismatches             int            `json:"mismatches"`
	Wobbles                int            `json:"wobbles"`
	AUContent              float64        `json:"au_content"`
	StructureAccessibility float64        `json:"structure_accessibility"`
	RiskScore              float64        `json:"risk_score"`
	Classification         Classification `json:"classification"`
}

// SeedMatchesOf returns the count of seed positions that paired exactly
// (neither a mismatch nor a wobble), given the classification produced by
// internal/seedindex.
func SeedMatchesOf(mismatches, wobbles int) int {
	n := codec.SeedLength - mismatches - wobbles
	if n < 0 {
		return 0
	}
	return n
}

// New builds a fully scored and classified OffTarget from its component
// features.
func New(transcriptID, geneSymbol string, position, mismatches, wobbles int, deltaG, auContentPct, accessibility, conservation float64) OffTarget {
	score := Score(deltaG, auContentPct, accessibility, conservation)
	return OffTarget{
		TranscriptID:           transcriptID,
		GeneSymbol:             geneSymbol,
		Position:               position,
		DeltaG:                 deltaG,
		SeedMatches:            SeedMatchesOf(mismatches, wobbles),
		Mismatches:             mismatches,
		Wobbles:                wobbles,
		AUContent:              auContentPct,
		StructureAccessibility: accessibility,
		RiskScore:              score,
		Classification:         Classify(score),
	}
}

// Filter drops every off-target whose ΔG exceeds energyThreshold,
// enforcing the spec's "no off-target with delta_g > energy_threshold"
// invariant before ranking.
func Filter(offtargets []OffTarget, energyThreshold float64) []OffTarget {
	out := make([]OffTarget, 0, len(offtargets))
	for _, o := range offtargets {
		if o.DeltaG <= energyThreshold {
			out = append(out, o)
		}
	}
	return out
}

// Sort orders offtargets by risk_score descending, breaking ties by
// delta_g ascending then transcript_id ascending, per spec.md §3.
func Sort(offtargets []OffTarget) {
	sort.SliceStable(offtargets, func(i, j int) bool {
		a, b := offtargets[i], offtargets[j]
		if a.RiskScore != b.RiskScore {
			return a.RiskScore > b.RiskScore
		}
		if a.DeltaG != b.DeltaG {
			return a.DeltaG < b.DeltaG
		}
		return a.TranscriptID < b.TranscriptID
	})
}

// Counts tallies off-targets by classification.
type Counts struct {
	High     int
	Moderate int
	Low      int
}

// Tally computes Counts over offtargets.
func Tally(offtargets []OffTarget) Counts {
	var c Counts
	for _, o := range offtargets {
		switch o.Classification {
		case ClassHigh:
			c.High++
		case ClassModerate:
			c.Moderate++
		default:
			c.Low++
		}
	}
	return c
}
