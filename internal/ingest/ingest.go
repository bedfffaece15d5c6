// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ingest streams FASTA records into the transcript store
// (Component B's build-time input), extracting each record's identifier
// and a gene symbol heuristically parsed from its description line.
package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"github.com/sirnaoff/offtarget/internal/codec"
	"github.com/sirnaoff/offtarget/internal/store"
)

// Stats summarizes one ingestion run.
type Stats struct {
	TranscriptCount int
	BaseCount       int64

	// Rejected counts records dropped for containing characters outside
	// the RNA alphabet once whitespace is stripped; ingestion continues
	// past these rather than aborting the run.
	Rejected int
}

// Stream reads FASTA records from src and writes each as a Transcript into
// st. The identifier is the first whitespace-delimited header token; the
// gene symbol is heuristically extracted from a "gene=" or "symbol="
// token anywhere in the remaining header words (case-insensitive),
// matching common Ensembl/RefSeq header conventions, with "gene_id="
// handled the same way for the record's optional gene ID. Sequence lines
// are concatenated and whitespace-stripped by the reader; any record
// whose sequence still contains characters outside {A,C,G,U}/{T} is
// dropped and counted in Stats.Rejected.
func Stream(st *store.Store, src io.Reader) (Stats, error) {
	var stats Stats
	sc := seqio.NewScanner(fasta.NewReader(src, linear.NewSeq("", nil, alphabet.RNA)))
	for sc.Next() {
		seq, ok := sc.Seq().(*linear.Seq)
		if !ok {
			continue
		}
		rna, err := codec.Normalize(lettersToString(seq.Seq))
		if err != nil {
			stats.Rejected++
			continue
		}
		t := store.Transcript{
			ID:         seq.ID,
			GeneSymbol: extractToken(seq.Desc, "gene=", "symbol="),
			GeneID:     extractToken(seq.Desc, "gene_id="),
			Sequence:   rna,
		}
		if err := st.Put(t); err != nil {
			return stats, fmt.Errorf("ingest: put %s: %w", t.ID, err)
		}
		stats.TranscriptCount++
		stats.BaseCount += int64(len(rna))
	}
	if err := sc.Error(); err != nil {
		return stats, fmt.Errorf("ingest: read: %w", err)
	}
	return stats, nil
}

// extractToken scans desc's whitespace-delimited fields for the first one
// matching any of prefixes (case-insensitive) and returns the text after
// the matched prefix, or "" if none match.
func extractToken(desc string, prefixes ...string) string {
	for _, field := range strings.Fields(desc) {
		lower := strings.ToLower(field)
		for _, p := range prefixes {
			if strings.HasPrefix(lower, p) {
				return field[len(p):]
			}
		}
	}
	return ""
}

// lettersToString renders a biogo RNA/DNA letter slice as a plain string,
// for handoff into codec.Normalize.
func lettersToString(l alphabet.Letters) string {
	b := make([]byte, len(l))
	for i, v := range l {
		b[i] = byte(v)
	}
	return string(b)
}
