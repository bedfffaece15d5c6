// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report writes analysis results in the two ambient export
// formats named in spec.md §6: one JSON object per guide via
// encoding/json, and a flat CSV of off-targets via encoding/csv.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/sirnaoff/offtarget/internal/orchestrator"
	"github.com/sirnaoff/offtarget/internal/risk"
)

// csvHeader lists the off-target columns in result-schema order.
var csvHeader = []string{
	"transcript_id", "gene_symbol", "position", "delta_g", "seed_matches",
	"mismatches", "wobbles", "au_content", "structure_accessibility",
	"risk_score", "classification",
}

// WriteJSON encodes result as a single JSON object, matching the analysis
// result shape of spec.md §6.
func WriteJSON(w io.Writer, result *orchestrator.AnalysisResult) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

// WriteJSONBatch encodes results as a JSON array, one object per guide.
func WriteJSONBatch(w io.Writer, results []*orchestrator.AnalysisResult) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("report: encode json batch: %w", err)
	}
	return nil
}

// WriteCSV writes a header row followed by one line per off-target.
// Numeric formatting follows spec.md §6 exactly: delta_g to 2 decimals,
// risk_score to 3, and au_content (a percentage) and
// structure_accessibility (a fraction in [0,1]) to 2.
func WriteCSV(w io.Writer, offtargets []risk.OffTarget) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("report: write csv header: %w", err)
	}
	for _, o := range offtargets {
		row := []string{
			o.TranscriptID,
			o.GeneSymbol,
			strconv.Itoa(o.Position),
			strconv.FormatFloat(o.DeltaG, 'f', 2, 64),
			strconv.Itoa(o.SeedMatches),
			strconv.Itoa(o.Mismatches),
			strconv.Itoa(o.Wobbles),
			strconv.FormatFloat(o.AUContent, 'f', 2, 64),
			strconv.FormatFloat(o.StructureAccessibility, 'f', 2, 64),
			strconv.FormatFloat(o.RiskScore, 'f', 3, 64),
			string(o.Classification),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: write csv row for %s: %w", o.TranscriptID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: flush csv: %w", err)
	}
	return nil
}
