// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package orchestrator drives a guide strand through seed search,
// thermodynamic scoring, context analysis, and risk aggregation
// (Component H), and batches multiple guides against a shared index
// generation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sirnacontext "github.com/sirnaoff/offtarget/internal/context"

	"github.com/sirnaoff/offtarget/internal/codec"
	"github.com/sirnaoff/offtarget/internal/risk"
	"github.com/sirnaoff/offtarget/internal/seedindex"
	"github.com/sirnaoff/offtarget/internal/store"
	"github.com/sirnaoff/offtarget/internal/thermo"
	"github.com/sirnaoff/offtarget/internal/xerrors"
)

// maxBatchSize and minBatchSize bound an analysis request's sirnas list,
// per spec.md §6.
const (
	minBatchSize = 1
	maxBatchSize = 100

	// defaultMaxCandidates is the ResourceExhausted cap on candidates per
	// query, per spec.md §7.
	defaultMaxCandidates = 50000
)

// Parameters configures one analysis, mirroring the analysis request of
// spec.md §6.
type Parameters struct {
	MaxSeedMismatches int     `json:"max_seed_mismatches"` // 0, 1, or 2; default 1
	AllowWobble       bool    `json:"allow_wobble"`        // default true in practice, caller-specified
	EnergyThreshold   float64 `json:"energy_threshold"`    // default -10.0
	IncludeStructure  bool    `json:"include_structure"`   // default true

	// MaxCandidates caps candidates per query before ResourceExhausted
	// fires; 0 selects defaultMaxCandidates.
	MaxCandidates int `json:"-"`

	// Workers bounds the per-candidate scoring worker pool; 0 selects a
	// single worker (fully sequential).
	Workers int `json:"-"`
}

// DefaultParameters returns the spec's documented request defaults.
func DefaultParameters() Parameters {
	return Parameters{
		MaxSeedMismatches: 1,
		AllowWobble:       true,
		EnergyThreshold:   -10.0,
		IncludeStructure:  true,
		MaxCandidates:     defaultMaxCandidates,
		Workers:           4,
	}
}

// GuideRequest is one named guide to analyze.
type GuideRequest struct {
	Name     string `json:"name"`
	Sequence string `json:"sequence"`
}

// State is a point in an analysis's queued -> running -> (completed |
// failed) lifecycle, per spec.md §4.G.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// AnalysisResult is the per-guide outcome, matching spec.md §6.
type AnalysisResult struct {
	SIRNAName  string     `json:"sirna_name"`
	Guide      codec.RNA  `json:"guide"`
	Parameters Parameters `json:"parameters"`

	State       State        `json:"state"`
	FailureCode xerrors.Code `json:"failure_code,omitempty"`

	TotalOffTargets   int `json:"total_offtargets"`
	HighRiskCount     int `json:"high_risk_count"`
	ModerateRiskCount int `json:"moderate_risk_count"`
	LowRiskCount      int `json:"low_risk_count"`

	OffTargets []risk.OffTarget `json:"offtargets"`
}

// Progress reports per-candidate scoring progress within one analysis.
type Progress func(done, total int)

// Orchestrator wires together the read-only capabilities (store, seed
// index, thermodynamic table) and the pluggable context/conservation
// functions that drive one analysis.
type Orchestrator struct {
	Store *store.Store
	Index *seedindex.Index
	Table *thermo.Table

	// Accessibility defaults to the composition-based proxy; callers may
	// substitute internal/fold.Predictor.Accessibility for a real
	// structure prediction.
	Accessibility sirnacontext.AccessibilityFunc

	// Conservation defaults to always 0 (unavailable).
	Conservation risk.ConservationFunc

	Progress Progress
}

// New builds an Orchestrator with the default accessibility and
// conservation functions.
func New(st *store.Store, ix *seedindex.Index) *Orchestrator {
	return &Orchestrator{
		Store:         st,
		Index:         ix,
		Table:         thermo.Default,
		Accessibility: sirnacontext.DefaultAccessibility,
		Conservation:  risk.DefaultConservation,
	}
}

// Analyze runs one guide through seed search, scoring, and ranking. A guide
// that fails validation returns a nil result and the validation error
// before any work is done. Any failure after validation returns a non-nil
// result in StateFailed alongside the error, with FailureCode set when the
// error carries a taxonomy code.
func (o *Orchestrator) Analyze(ctx context.Context, req GuideRequest, params Parameters) (*AnalysisResult, error) {
	if params.MaxCandidates <= 0 {
		params.MaxCandidates = defaultMaxCandidates
	}

	result := &AnalysisResult{
		SIRNAName:  req.Name,
		Parameters: params,
		State:      StateRunning,
	}

	guide, err := codec.NormalizeGuide(req.Sequence)
	if err != nil {
		return nil, err // validation errors return before any work
	}
	result.Guide = guide

	hits, err := seedindex.Search(o.Index, o.Store, guide, len(guide), seedindex.Params{
		MaxSeedMismatches: params.MaxSeedMismatches,
		AllowWobble:       params.AllowWobble,
	})
	if err != nil {
		return o.fail(result, err)
	}
	if len(hits) > params.MaxCandidates {
		return o.fail(result, xerrors.ErrResourceExhausted)
	}

	if cancelled(ctx) {
		return o.fail(result, xerrors.ErrCancelled)
	}

	offtargets, err := o.scoreCandidates(guide, hits, params)
	if err != nil {
		return o.fail(result, err)
	}

	if cancelled(ctx) {
		return o.fail(result, xerrors.ErrCancelled)
	}

	offtargets = risk.Filter(offtargets, params.EnergyThreshold)

	if cancelled(ctx) {
		return o.fail(result, xerrors.ErrCancelled)
	}

	risk.Sort(offtargets)
	counts := risk.Tally(offtargets)

	result.State = StateCompleted
	result.TotalOffTargets = len(offtargets)
	result.HighRiskCount = counts.High
	result.ModerateRiskCount = counts.Moderate
	result.LowRiskCount = counts.Low
	result.OffTargets = offtargets
	return result, nil
}

// AnalyzeBatch runs every request in reqs (1..100, per spec.md §6)
// against the same index generation and shared parameters. It stops at
// the first guide for which Analyze returns a nil result (a guide that
// fails validation), returning the results gathered so far with that
// error; a failure after validation is recorded in that guide's
// AnalysisResult and does not abort the batch.
func (o *Orchestrator) AnalyzeBatch(ctx context.Context, reqs []GuideRequest, params Parameters) ([]*AnalysisResult, error) {
	if len(reqs) < minBatchSize || len(reqs) > maxBatchSize {
		return nil, fmt.Errorf("orchestrator: batch size must be %d..%d, got %d", minBatchSize, maxBatchSize, len(reqs))
	}
	results := make([]*AnalysisResult, 0, len(reqs))
	for _, req := range reqs {
		res, err := o.Analyze(ctx, req, params)
		if res == nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (o *Orchestrator) fail(result *AnalysisResult, err error) (*AnalysisResult, error) {
	code, _ := xerrors.CodeOf(err)
	result.State = StateFailed
	result.FailureCode = code
	return result, err
}

func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// scoreCandidates scores every hit, fanning out to a bounded worker pool
// sized by params.Workers. Per-candidate errors are isolated (the
// candidate is dropped) except LengthMismatch, which is a programmer
// error that aborts the whole analysis, per spec.md §7.
func (o *Orchestrator) scoreCandidates(guide codec.RNA, hits []seedindex.CandidateHit, params Parameters) ([]risk.OffTarget, error) {
	workers := params.Workers
	if workers < 1 {
		workers = 1
	}

	type outcome struct {
		off   risk.OffTarget
		kept  bool
		fatal error
	}

	limit := make(chan bool, workers)
	out := make(chan outcome, len(hits))
	var wg sync.WaitGroup
	for _, hit := range hits {
		wg.Add(1)
		limit <- true
		go func(hit seedindex.CandidateHit) {
			defer wg.Done()
			defer func() { <-limit }()

			off, err := o.scoreOne(guide, hit, params)
			if err != nil {
				if errors.Is(err, xerrors.ErrLengthMismatch) {
					out <- outcome{fatal: err}
					return
				}
				out <- outcome{}
				return
			}
			out <- outcome{off: off, kept: true}
		}(hit)
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	offtargets := make([]risk.OffTarget, 0, len(hits))
	var fatal error
	done := 0
	for res := range out {
		done++
		if o.Progress != nil {
			o.Progress(done, len(hits))
		}
		if res.fatal != nil {
			fatal = res.fatal
			continue
		}
		if res.kept {
			offtargets = append(offtargets, res.off)
		}
	}
	if fatal != nil {
		return nil, fatal
	}
	return offtargets, nil
}

// scoreOne extracts context for a single candidate hit and scores it.
func (o *Orchestrator) scoreOne(guide codec.RNA, hit seedindex.CandidateHit, params Parameters) (risk.OffTarget, error) {
	t, err := o.Store.Get(hit.TranscriptID)
	if err != nil {
		return risk.OffTarget{}, err
	}

	guideLen := len(guide)
	start := hit.Position + codec.SeedLength + 1 - guideLen
	targetWindow, err := o.Store.Slice(hit.TranscriptID, start, start+guideLen)
	if err != nil {
		return risk.OffTarget{}, err
	}
	if len(targetWindow) != guideLen {
		return risk.OffTarget{}, xerrors.ErrLengthMismatch
	}

	deltaG, err := o.Table.Score(guide, targetWindow)
	if err != nil {
		return risk.OffTarget{}, err
	}

	center := hit.Position + codec.SeedLength/2
	auWindow, _, _, err := o.Store.Window(hit.TranscriptID, center, sirnacontext.AUWindowRadius)
	if err != nil {
		return risk.OffTarget{}, err
	}
	auContent := sirnacontext.AUContent(auWindow)

	var accessibility float64
	if params.IncludeStructure {
		accessWindow, _, _, err := o.Store.Window(hit.TranscriptID, center, sirnacontext.AccessibilityWindowRadius)
		if err != nil {
			return risk.OffTarget{}, err
		}
		accessFn := o.Accessibility
		if accessFn == nil {
			accessFn = sirnacontext.DefaultAccessibility
		}
		accessibility, err = accessFn(accessWindow)
		if err != nil {
			return risk.OffTarget{}, err
		}
	}

	conservationFn := o.Conservation
	if conservationFn == nil {
		conservationFn = risk.DefaultConservation
	}
	conservation := conservationFn(hit.TranscriptID, hit.Position)

	return risk.New(hit.TranscriptID, t.GeneSymbol, hit.Position, hit.Mismatches, hit.Wobbles, deltaG, auContent, accessibility, conservation), nil
}
