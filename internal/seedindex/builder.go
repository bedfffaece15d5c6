// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package seedindex builds and searches the 7-mer seed index: one posting
// per 7-mer occurrence in each transcript's searchable range, keyed for
// ordered range scans by seed key in the same spirit as the teacher's
// composite, big-endian, length-prefixed kv keys.
package seedindex

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"modernc.org/kv"

	"github.com/sirnaoff/offtarget/internal/codec"
	"github.com/sirnaoff/offtarget/internal/store"
	"github.com/sirnaoff/offtarget/internal/xerrors"
)

var order = binary.BigEndian

// Index wraps the postings database backing the seed index.
type Index struct {
	db *kv.DB
}

// Create makes a new, empty postings database at path.
func Create(path string) (*Index, error) {
	db, err := kv.Create(path, &kv.Options{})
	if err != nil {
		return nil, fmt.Errorf("seedindex: create %s: %w", path, err)
	}
	return &Index{db: db}, nil
}

// Open opens an existing postings database at path.
func Open(path string) (*Index, error) {
	db, err := kv.Open(path, &kv.Options{})
	if err != nil {
		return nil, fmt.Errorf("seedindex: open %s: %w", path, err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database handle.
func (ix *Index) Close() error { return ix.db.Close() }

// presentMarker is the sentinel value written for each posting; the key
// alone carries all the information a reader needs.
var presentMarker = []byte{1}

// Progress reports builder progress after each transcript is processed.
type Progress func(transcriptsDone, seedsEmitted int)

// Build scans every transcript in st and emits one posting per 7-mer
// occurrence in its searchable range (the annotated 3'UTR window when
// present, otherwise the whole sequence — see the builder design notes for
// why this package resolves spec Open Question (b) this way). Build is
// idempotent: re-running over the same transcript set reproduces an
// identical key multiset, since postings are keyed by their full identity
// rather than appended positionally.
func Build(ctx context.Context, ix *Index, st *store.Store, progress Progress) (seedCount int, err error) {
	it, err := st.Stream()
	if err != nil {
		return 0, fmt.Errorf("seedindex: build: %w", err)
	}

	transcriptsDone := 0
	for {
		select {
		case <-ctx.Done():
			return seedCount, xerrors.ErrCancelled
		default:
		}

		t, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return seedCount, fmt.Errorf("seedindex: build: %w", err)
		}

		start, end := t.SearchableRange()
		for i := start; i+codec.SeedLength <= end; i++ {
			kmer := t.Sequence[i : i+codec.SeedLength]
			key, err := codec.SeedKey(kmer)
			if err != nil {
				// Non-ACGU content in a transcript window; skip the
				// offending k-mer rather than failing the whole build.
				continue
			}
			pkey := marshalPostingKey(key, t.ID, i)
			if err := ix.db.Set(pkey, presentMarker); err != nil {
				return seedCount, fmt.Errorf("seedindex: build: %w", err)
			}
			seedCount++
		}

		transcriptsDone++
		if progress != nil {
			progress(transcriptsDone, seedCount)
		}
	}
	return seedCount, nil
}

// marshalPostingKey packs (seedKey, transcriptID, position) into a key
// whose big-endian byte ordering matches numeric (seedKey, transcriptID,
// position) ordering, so that all postings for a seed key occupy a
// contiguous range.
func marshalPostingKey(seedKey uint16, transcriptID string, position int) []byte {
	buf := make([]byte, 0, 2+8+len(transcriptID)+8)
	var b2 [2]byte
	order.PutUint16(b2[:], seedKey)
	buf = append(buf, b2[:]...)

	var b8 [8]byte
	order.PutUint64(b8[:], uint64(len(transcriptID)))
	buf = append(buf, b8[:]...)
	buf = append(buf, transcriptID...)

	order.PutUint64(b8[:], uint64(position))
	buf = append(buf, b8[:]...)
	return buf
}

func unmarshalPostingKey(data []byte) (seedKey uint16, transcriptID string, position int, err error) {
	if len(data) < 2+8 {
		return 0, "", 0, fmt.Errorf("seedindex: %w", xerrors.ErrIndexCorrupt)
	}
	seedKey = order.Uint16(data[:2])
	data = data[2:]
	n := order.Uint64(data[:8])
	data = data[8:]
	if uint64(len(data)) < n+8 {
		return 0, "", 0, fmt.Errorf("seedindex: %w", xerrors.ErrIndexCorrupt)
	}
	transcriptID = string(data[:n])
	data = data[n:]
	position = int(int64(order.Uint64(data[:8])))
	return seedKey, transcriptID, position, nil
}
