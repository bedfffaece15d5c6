// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// offtarget-cull reads a JSON array of analysis results and discards any
// off-target hit whose context window is completely contained within a
// higher risk-scoring hit's window on the same transcript.
//
// usage: offtarget-cull < results.json > culled.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/biogo/store/interval"

	"github.com/sirnaoff/offtarget/internal/codec"
	"github.com/sirnaoff/offtarget/internal/orchestrator"
	"github.com/sirnaoff/offtarget/internal/risk"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: offtarget-cull < results.json > culled.json")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(in io.Reader, out io.Writer) error {
	var results []*orchestrator.AnalysisResult
	if err := json.NewDecoder(in).Decode(&results); err != nil {
		return fmt.Errorf("offtarget-cull: decode: %w", err)
	}

	for _, r := range results {
		r.OffTargets = cullContained(r.OffTargets)
		counts := risk.Tally(r.OffTargets)
		r.TotalOffTargets = len(r.OffTargets)
		r.HighRiskCount = counts.High
		r.ModerateRiskCount = counts.Moderate
		r.LowRiskCount = counts.Low
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// cullContained returns offtargets with every hit removed whose context
// window is fully contained within a higher risk-scoring hit's window on
// the same transcript. Hits on different transcripts never compare.
func cullContained(offtargets []risk.OffTarget) []risk.OffTarget {
	var order []string
	byTranscript := make(map[string][]risk.OffTarget)
	for _, o := range offtargets {
		if _, ok := byTranscript[o.TranscriptID]; !ok {
			order = append(order, o.TranscriptID)
		}
		byTranscript[o.TranscriptID] = append(byTranscript[o.TranscriptID], o)
	}

	var culled []risk.OffTarget
	for _, id := range order {
		culled = append(culled, cullTranscript(byTranscript[id])...)
	}
	return culled
}

// cullTranscript applies the interval-tree "discard contained
// lower-scoring features" algorithm to the hits of a single transcript.
func cullTranscript(hits []risk.OffTarget) []risk.OffTarget {
	var tree interval.IntTree
	for i, h := range hits {
		if err := tree.Insert(hitInterval{uid: uintptr(i), OffTarget: h}, true); err != nil {
			log.Fatal(err)
		}
	}
	tree.AdjustRanges()

	var out []risk.OffTarget
outer:
	for _, h := range hits {
		for _, g := range tree.Get(hitInterval{OffTarget: h}) {
			if g.(hitInterval).RiskScore > h.RiskScore {
				continue outer
			}
		}
		out = append(out, h)
	}
	return out
}

// hitInterval adapts a risk.OffTarget's context window, [position,
// position+seed_length), to github.com/biogo/store/interval's IntTree.
type hitInterval struct {
	uid uintptr
	risk.OffTarget
}

// Overlap reports whether the query range b completely contains i, per
// the same asymmetric "containment" relation the teacher's cmd/cull used
// for GFF features.
func (i hitInterval) Overlap(b interval.IntRange) bool {
	return b.Start <= i.Position && i.Position+codec.SeedLength <= b.End
}
func (i hitInterval) ID() uintptr { return i.uid }
func (i hitInterval) Range() interval.IntRange {
	return interval.IntRange{Start: i.Position, End: i.Position + codec.SeedLength}
}
