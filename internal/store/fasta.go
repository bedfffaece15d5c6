// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"fmt"
	"io"
	"os"

	"github.com/biogo/hts/fai"

	"github.com/sirnaoff/offtarget/internal/codec"
)

// fastaSource gives windowed random access to transcript sequence bytes
// straight off disk through a biogo/hts/fai index, following the same
// fai.NewIndex/fai.NewFile/SeqRange pattern the teacher uses in cmd/ins to
// pull a masked region back out of a genome FASTA without holding the
// whole file in memory. Attaching one lets Window and Slice read a
// transcript's window directly from the reference file instead of going
// through the in-memory sequence cache, the same tradeoff cmd/ins makes
// against a multi-gigabyte genome.
type fastaSource struct {
	f   *os.File
	idx fai.Index
	fa  *fai.File
}

// openFastaSource indexes the FASTA file at path and returns a source
// ready for windowed SeqRange lookups. The index is rebuilt in memory on
// each open, matching cmd/ins's own fai.NewIndex(query) call.
func openFastaSource(path string) (*fastaSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: open fasta %s: %w", path, err)
	}
	idx, err := fai.NewIndex(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("store: index fasta %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("store: rewind fasta %s: %w", path, err)
	}
	return &fastaSource{f: f, idx: idx, fa: fai.NewFile(f, idx)}, nil
}

// window returns the [start, end) range of id's sequence read directly
// from the indexed FASTA file.
func (fs *fastaSource) window(id string, start, end int) (codec.RNA, error) {
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}
	r, err := fs.fa.SeqRange(id, start, end)
	if err != nil {
		return "", fmt.Errorf("store: fasta seqrange %s[%d:%d]: %w", id, start, end, err)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("store: fasta read %s: %w", id, err)
	}
	return codec.RNA(b), nil
}

func (fs *fastaSource) close() error {
	return fs.f.Close()
}

// AttachFASTA points Store's windowed reads (Window, Slice) at the
// reference FASTA file at path via a biogo/hts/fai index, bypassing the
// in-memory sequence cache for any transcript it covers. Metadata
// (GeneSymbol, GeneID, UTR3 bounds, Length) still comes from the kv
// record; only the sequence bytes returned by Window/Slice are served off
// disk. The in-memory sequence cache that Open fills is kept, so attaching
// a FASTA source does not reduce resident memory.
func (s *Store) AttachFASTA(path string) error {
	src, err := openFastaSource(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.fasta != nil {
		s.fasta.close()
	}
	s.fasta = src
	s.mu.Unlock()
	return nil
}
