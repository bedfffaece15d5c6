// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diffreport compares two analysis result sets for the same
// guides and reports base-level concordance between their risk
// classifications, following the step-vector comparison the teacher
// codebase used to compare repeat-annotation tracks (a supporting tool of
// the off-target engine, added beyond the distilled requirements).
package diffreport

import (
	"fmt"
	"sort"

	"github.com/biogo/store/step"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/sirnaoff/offtarget/internal/codec"
	"github.com/sirnaoff/offtarget/internal/orchestrator"
)

// Tally summarizes base-level classification agreement between two
// off-target result sets, across every transcript either set covers.
type Tally struct {
	Agree    int `json:"agree"`
	AMissing int `json:"a_missing"`
	BMissing int `json:"b_missing"`
	Mismatch int `json:"mismatch"`
}

// classPair is the step-vector equality key: the higher risk-scoring
// classification label seen from each result set at a given base.
type classPair struct {
	a, b string
}

func (p classPair) isZero() bool { return p == classPair{} }

// pair is the step vector element, carrying the score that won each side
// of classPair so later hits at the same base can be compared.
type pair struct {
	classPair
	aScore float64
	bScore float64
}

// Equal satisfies step.Equaler by comparing only the winning labels, not
// the scores that produced them.
func (p pair) Equal(e step.Equaler) bool { return p.classPair == e.(pair).classPair }

// Compare computes the Tally and a mismatch-edge histogram (keyed
// "aLabel->bLabel", aLabel/bLabel empty when a set has no hit there)
// between two analysis result sets covering the same transcripts.
func Compare(a, b []*orchestrator.AnalysisResult) (Tally, map[string]int, error) {
	vectors := make(map[string]*step.Vector)

	vectorFor := func(id string) (*step.Vector, error) {
		v, ok := vectors[id]
		if ok {
			return v, nil
		}
		v, err := step.New(0, 1, pair{})
		if err != nil {
			return nil, err
		}
		v.Relaxed = true
		vectors[id] = v
		return v, nil
	}

	apply := func(results []*orchestrator.AnalysisResult, assign func(p pair, class string, score float64) pair) error {
		for _, r := range results {
			for _, o := range r.OffTargets {
				v, err := vectorFor(o.TranscriptID)
				if err != nil {
					return err
				}
				start := o.Position
				end := o.Position + codec.SeedLength
				class, score := string(o.Classification), o.RiskScore
				err = v.ApplyRange(start, end, func(e step.Equaler) step.Equaler {
					return assign(e.(pair), class, score)
				})
				if err != nil {
					return fmt.Errorf("diffreport: apply range [%d,%d) on %s: %w", start, end, o.TranscriptID, err)
				}
			}
		}
		return nil
	}

	if err := apply(a, func(p pair, class string, score float64) pair {
		if p.a == "" || score > p.aScore {
			p.a, p.aScore = class, score
		}
		return p
	}); err != nil {
		return Tally{}, nil, err
	}
	if err := apply(b, func(p pair, class string, score float64) pair {
		if p.b == "" || score > p.bScore {
			p.b, p.bScore = class, score
		}
		return p
	}); err != nil {
		return Tally{}, nil, err
	}

	var transcripts []string
	for id := range vectors {
		transcripts = append(transcripts, id)
	}
	sort.Strings(transcripts)

	var tally Tally
	mismatches := make(map[string]int)
	for _, id := range transcripts {
		vectors[id].Do(func(start, end int, e step.Equaler) {
			p := e.(pair)
			if p.isZero() {
				return
			}
			n := end - start
			switch {
			case p.a == p.b:
				tally.Agree += n
			case p.a == "":
				tally.AMissing += n
			case p.b == "":
				tally.BMissing += n
			default:
				tally.Mismatch += n
			}
			if p.a != p.b {
				mismatches[p.a+"->"+p.b] += n
			}
		})
	}
	return tally, mismatches, nil
}

// WriteDOT renders the mismatch histogram returned by Compare as an
// undirected weighted graph in DOT format, with edge weights equal to
// mismatched base counts, following the teacher's cmd/cmpint discordance
// graph.
func WriteDOT(mismatches map[string]int, noneLabel string) ([]byte, error) {
	g := newLabelGraph(noneLabel)
	for edgeKey, weight := range mismatches {
		a, b := splitEdgeKey(edgeKey)
		g.SetWeightedEdge(labelEdge{
			f: g.nodeFor("a", a),
			t: g.nodeFor("b", b),
			w: float64(weight),
		})
	}
	return dot.Marshal(g, "discord", "", "\t")
}

func splitEdgeKey(key string) (a, b string) {
	for i := 0; i+1 < len(key); i++ {
		if key[i] == '-' && key[i+1] == '>' {
			return key[:i], key[i+2:]
		}
	}
	return key, ""
}

type labelGraph struct {
	*simple.WeightedUndirectedGraph
	idFor map[string]int64
	none  string
}

func newLabelGraph(none string) labelGraph {
	return labelGraph{
		WeightedUndirectedGraph: simple.NewWeightedUndirectedGraph(0, 0),
		idFor:                   make(map[string]int64),
		none:                    none,
	}
}

func (g labelGraph) nodeFor(side, label string) graph.Node {
	if label == "" {
		label = g.none
	}
	key := side + ":" + label
	if id, ok := g.idFor[key]; ok {
		return g.Node(id)
	}
	id := g.WeightedUndirectedGraph.NewNode().ID()
	g.idFor[key] = id
	n := labelNode{id: id, name: key}
	g.AddNode(n)
	return n
}

type labelNode struct {
	id   int64
	name string
}

func (n labelNode) ID() int64     { return n.id }
func (n labelNode) DOTID() string { return n.name }

type labelEdge struct {
	f, t graph.Node
	w    float64
}

func (e labelEdge) From() graph.Node         { return e.f }
func (e labelEdge) To() graph.Node           { return e.t }
func (e labelEdge) ReversedEdge() graph.Edge { return labelEdge{f: e.t, t: e.f, w: e.w} }
func (e labelEdge) Weight() float64          { return e.w }
func (e labelEdge) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{Key: "weight", Value: fmt.Sprint(e.w)}}
}
