// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ingest

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirnaoff/offtarget/internal/codec"
	"github.com/sirnaoff/offtarget/internal/store"
)

func openTemp(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "transcripts.db"), true)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStreamExtractsGeneSymbolFromGeneToken(t *testing.T) {
	st := openTemp(t)
	fasta := ">T1 homo sapiens gene=FOO description here\nAAAAGGGGCCCCUUUU\n"

	stats, err := Stream(st, strings.NewReader(fasta))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TranscriptCount)
	assert.Equal(t, int64(16), stats.BaseCount)

	got, err := st.Get("T1")
	require.NoError(t, err)
	assert.Equal(t, "FOO", got.GeneSymbol)
	assert.Equal(t, codec.RNA("AAAAGGGGCCCCUUUU"), got.Sequence)
}

func TestStreamExtractsGeneSymbolFromSymbolToken(t *testing.T) {
	st := openTemp(t)
	fasta := ">T2 symbol=BAR other words\nACGUACGUACGU\n"

	_, err := Stream(st, strings.NewReader(fasta))
	require.NoError(t, err)

	got, err := st.Get("T2")
	require.NoError(t, err)
	assert.Equal(t, "BAR", got.GeneSymbol)
}

func TestStreamExtractsGeneID(t *testing.T) {
	st := openTemp(t)
	fasta := ">T3 gene=FOO gene_id=ENSG000123\nACGUACGUACGU\n"

	_, err := Stream(st, strings.NewReader(fasta))
	require.NoError(t, err)

	got, err := st.Get("T3")
	require.NoError(t, err)
	assert.Equal(t, "ENSG000123", got.GeneID)
}

func TestStreamLeavesGeneSymbolEmptyWithoutToken(t *testing.T) {
	st := openTemp(t)
	fasta := ">T4 no gene tokens at all\nACGUACGUACGU\n"

	_, err := Stream(st, strings.NewReader(fasta))
	require.NoError(t, err)

	got, err := st.Get("T4")
	require.NoError(t, err)
	assert.Equal(t, "", got.GeneSymbol)
}

func TestStreamHandlesMultipleRecords(t *testing.T) {
	st := openTemp(t)
	fasta := ">T1 gene=FOO\nAAAACCCC\n>T2 gene=BAR\nGGGGUUUU\n"

	stats, err := Stream(st, strings.NewReader(fasta))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TranscriptCount)
	assert.Equal(t, int64(16), stats.BaseCount)

	snap := st.StatsSnapshot()
	assert.Equal(t, 2, snap.TranscriptCount)
}

func TestExtractTokenCaseInsensitivePrefix(t *testing.T) {
	assert.Equal(t, "FOO", extractToken("desc Gene=FOO more", "gene="))
	assert.Equal(t, "", extractToken("desc has no matching token", "gene=", "symbol="))
}
