// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirnaoff/offtarget/internal/orchestrator"
	"github.com/sirnaoff/offtarget/internal/risk"
)

func TestWriteCSVFormatsNumericColumns(t *testing.T) {
	offs := []risk.OffTarget{
		{
			TranscriptID:           "T1",
			GeneSymbol:             "FOO",
			Position:               17,
			DeltaG:                 -12.3456,
			SeedMatches:            7,
			Mismatches:             0,
			Wobbles:                0,
			AUContent:              33.333,
			StructureAccessibility: 0.5,
			RiskScore:              0.812345,
			Classification:         risk.ClassHigh,
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, offs))

	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "transcript_id,gene_symbol,position,delta_g,seed_matches,mismatches,wobbles,au_content,structure_accessibility,risk_score,classification", lines[0])
	assert.Equal(t, "T1,FOO,17,-12.35,7,0,0,33.33,0.50,0.812,high", lines[1])
}

func TestWriteCSVEmptyOfftargetsWritesHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\n")
	require.Len(t, lines, 1)
}

func TestWriteJSONRoundTripsAnalysisResult(t *testing.T) {
	result := &orchestrator.AnalysisResult{
		SIRNAName: "siFOO",
		Guide:     "UUUACGUAGCAAAAAAAAAA",
		State:     orchestrator.StateCompleted,
		Parameters: orchestrator.Parameters{
			MaxSeedMismatches: 1,
			AllowWobble:       true,
			EnergyThreshold:   -10,
			IncludeStructure:  true,
		},
		TotalOffTargets: 1,
		HighRiskCount:   1,
		OffTargets: []risk.OffTarget{
			{TranscriptID: "T1", RiskScore: 0.9, Classification: risk.ClassHigh},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, result))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "siFOO", decoded["sirna_name"])
	assert.Equal(t, "completed", decoded["state"])
	assert.Equal(t, float64(1), decoded["total_offtargets"])
	offs, ok := decoded["offtargets"].([]any)
	require.True(t, ok)
	require.Len(t, offs, 1)
	off := offs[0].(map[string]any)
	assert.Equal(t, "T1", off["transcript_id"])
}

func TestWriteJSONBatchEncodesArray(t *testing.T) {
	results := []*orchestrator.AnalysisResult{
		{SIRNAName: "siA", State: orchestrator.StateCompleted},
		{SIRNAName: "siB", State: orchestrator.StateFailed},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteJSONBatch(&buf, results))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "siA", decoded[0]["sirna_name"])
	assert.Equal(t, "siB", decoded[1]["sirna_name"])
}
