// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store persists transcripts in a keyed, ordered key-value store
// and gives O(1)-by-key random access to any transcript's sequence or a
// windowed slice of it, following the same modernc.org/kv-backed,
// length-prefixed-key marshalling idiom used for BLAST hit keys in the
// teacher codebase this package is descended from. Windowed reads can
// optionally be served straight off a reference FASTA file through a
// biogo/hts/fai index (see AttachFASTA in fasta.go) instead of the
// default in-memory sequence cache.
package store

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"modernc.org/kv"

	"github.com/sirnaoff/offtarget/internal/codec"
	"github.com/sirnaoff/offtarget/internal/xerrors"
)

var order = binary.BigEndian

// Transcript is one reference sequence record.
type Transcript struct {
	ID         string
	GeneSymbol string
	GeneID     string
	Sequence   codec.RNA
	UTR3Start  *int
	UTR3End    *int
}

// Length returns the number of bases in the transcript.
func (t Transcript) Length() int { return len(t.Sequence) }

// SearchableRange returns the [start, end) range of positions eligible for
// seed indexing and search: the 3'UTR window when annotated, otherwise the
// whole sequence.
func (t Transcript) SearchableRange() (start, end int) {
	if t.UTR3Start != nil && t.UTR3End != nil {
		return *t.UTR3Start, *t.UTR3End
	}
	return 0, t.Length()
}

// Stats summarizes store contents for observability.
type Stats struct {
	TranscriptCount int
	BaseCount       int64
}

// Store is a keyed transcript store backed by a modernc.org/kv database.
// Sequences are additionally cached in memory keyed by transcript id so
// that Window is a direct map lookup plus a bounds-clamped slice, rather
// than a re-decode of the on-disk record, once a transcript has been
// observed by this process. Calling AttachFASTA (fasta.go) replaces that
// in-memory path with disk-backed random access through a biogo/hts/fai
// index over a reference FASTA file.
type Store struct {
	db *kv.DB

	mu    sync.RWMutex
	stats Stats
	cache map[string]codec.RNA

	// fasta, when attached via AttachFASTA, serves Window/Slice reads
	// directly off an indexed reference FASTA file instead of the
	// in-memory cache above.
	fasta *fastaSource
}

// Open opens or creates the kv database at path.
func Open(path string, create bool) (*Store, error) {
	opts := &kv.Options{}
	var db *kv.DB
	var err error
	if create {
		db, err = kv.Create(path, opts)
	} else {
		db, err = kv.Open(path, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	s := &Store{db: db, cache: make(map[string]codec.RNA)}
	if err := s.rebuildStats(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle and any attached FASTA
// source.
func (s *Store) Close() error {
	s.mu.Lock()
	fasta := s.fasta
	s.mu.Unlock()
	if fasta != nil {
		fasta.close()
	}
	return s.db.Close()
}

// Put persists t, overwriting any existing record with the same ID.
func (s *Store) Put(t Transcript) error {
	val, err := marshalTranscript(t)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", t.ID, err)
	}
	existed, err := s.db.Get(nil, []byte(t.ID))
	if err != nil {
		return fmt.Errorf("store: put %s: %w", t.ID, err)
	}
	if err := s.db.Set([]byte(t.ID), val); err != nil {
		return fmt.Errorf("store: put %s: %w", t.ID, err)
	}

	s.mu.Lock()
	if existed == nil {
		s.stats.TranscriptCount++
		s.stats.BaseCount += int64(t.Length())
	} else {
		prev, _ := unmarshalTranscript(t.ID, existed)
		s.stats.BaseCount += int64(t.Length() - prev.Length())
	}
	s.cache[t.ID] = t.Sequence
	s.mu.Unlock()
	return nil
}

// Get retrieves the transcript with the given id.
func (s *Store) Get(id string) (Transcript, error) {
	val, err := s.db.Get(nil, []byte(id))
	if err != nil {
		return Transcript{}, fmt.Errorf("store: get %s: %w", id, err)
	}
	if val == nil {
		return Transcript{}, fmt.Errorf("store: get %s: %w", id, xerrors.ErrTranscriptMissing)
	}
	return unmarshalTranscript(id, val)
}

// Window returns the slice of the transcript's sequence centered on center
// with the given radius, clamped to the sequence bounds. It reports the
// actual [start, end) range returned. When a FASTA source is attached (see
// AttachFASTA), the window is read directly off disk instead of the
// in-memory cache.
func (s *Store) Window(id string, center, radius int) (window codec.RNA, start, end int, err error) {
	n, err := s.length(id)
	if err != nil {
		return "", 0, 0, err
	}

	start = center - radius
	if start < 0 {
		start = 0
	}
	end = center + radius + 1
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	window, err = s.readRange(id, start, end)
	return window, start, end, err
}

// Slice returns the transcript's sequence over the exact [start, end)
// range, clamped to the sequence bounds. It is used by callers (notably
// the orchestrator) that already know an exact range rather than a
// center/radius pair. Like Window, it prefers an attached FASTA source
// over the in-memory cache when one is present.
func (s *Store) Slice(id string, start, end int) (codec.RNA, error) {
	n, err := s.length(id)
	if err != nil {
		return "", err
	}
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return s.readRange(id, start, end)
}

// length returns the transcript's base count from the in-memory cache,
// decoding the kv record only when the cache has no entry for id.
func (s *Store) length(id string) (int, error) {
	s.mu.RLock()
	seq, cached := s.cache[id]
	s.mu.RUnlock()
	if cached {
		return len(seq), nil
	}
	t, err := s.Get(id)
	if err != nil {
		return 0, err
	}
	return t.Length(), nil
}

// readRange returns the [start, end) bytes of id's sequence, preferring an
// attached FASTA source (disk-backed, no whole-sequence caching) and
// falling back to the in-memory cache populated by Get/Put.
func (s *Store) readRange(id string, start, end int) (codec.RNA, error) {
	s.mu.RLock()
	fasta := s.fasta
	seq, cached := s.cache[id]
	s.mu.RUnlock()

	if fasta != nil {
		return fasta.window(id, start, end)
	}

	if !cached {
		t, err := s.Get(id)
		if err != nil {
			return "", err
		}
		seq = t.Sequence
		s.mu.Lock()
		s.cache[id] = seq
		s.mu.Unlock()
	}
	if end > len(seq) {
		end = len(seq)
	}
	if start > len(seq) {
		start = len(seq)
	}
	return seq[start:end], nil
}

// Iterator streams transcripts in key order.
type Iterator struct {
	it  *kv.Enumerator
	err error
}

// Stream returns an iterator over all transcripts in ID order.
func (s *Store) Stream() (*Iterator, error) {
	it, err := s.db.SeekFirst()
	if err != nil {
		if err == io.EOF {
			return &Iterator{it: it, err: io.EOF}, nil
		}
		return nil, fmt.Errorf("store: stream: %w", err)
	}
	return &Iterator{it: it}, nil
}

// Next advances the iterator and returns the next transcript, or io.EOF
// when the stream is exhausted.
func (it *Iterator) Next() (Transcript, error) {
	if it.err == io.EOF {
		return Transcript{}, io.EOF
	}
	k, v, err := it.it.Next()
	if err != nil {
		it.err = err
		return Transcript{}, err
	}
	return unmarshalTranscript(string(k), v)
}

// StatsSnapshot returns a snapshot of the store's observability counters.
func (s *Store) StatsSnapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Store) rebuildStats() error {
	it, err := s.Stream()
	if err != nil {
		return fmt.Errorf("store: rebuild stats: %w", err)
	}
	var stats Stats
	cache := make(map[string]codec.RNA)
	for {
		t, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("store: rebuild stats: %w", err)
		}
		stats.TranscriptCount++
		stats.BaseCount += int64(t.Length())
		cache[t.ID] = t.Sequence
	}
	s.mu.Lock()
	s.stats = stats
	s.cache = cache
	s.mu.Unlock()
	return nil
}

// marshalTranscript encodes t as: len-prefixed GeneSymbol, len-prefixed
// GeneID, len-prefixed Sequence, UTR3Start, UTR3End (int64, -1 for absent).
func marshalTranscript(t Transcript) ([]byte, error) {
	var buf []byte
	buf = appendString(buf, t.GeneSymbol)
	buf = appendString(buf, t.GeneID)
	buf = appendString(buf, string(t.Sequence))
	buf = appendOptionalInt(buf, t.UTR3Start)
	buf = appendOptionalInt(buf, t.UTR3End)
	return buf, nil
}

func unmarshalTranscript(id string, data []byte) (Transcript, error) {
	t := Transcript{ID: id}
	var s string
	var err error
	s, data, err = takeString(data)
	if err != nil {
		return Transcript{}, err
	}
	t.GeneSymbol = s
	s, data, err = takeString(data)
	if err != nil {
		return Transcript{}, err
	}
	t.GeneID = s
	s, data, err = takeString(data)
	if err != nil {
		return Transcript{}, err
	}
	t.Sequence = codec.RNA(s)
	t.UTR3Start, data, err = takeOptionalInt(data)
	if err != nil {
		return Transcript{}, err
	}
	t.UTR3End, _, err = takeOptionalInt(data)
	if err != nil {
		return Transcript{}, err
	}
	return t, nil
}

func appendString(buf []byte, s string) []byte {
	var b [8]byte
	order.PutUint64(b[:], uint64(len(s)))
	buf = append(buf, b[:]...)
	buf = append(buf, s...)
	return buf
}

func takeString(data []byte) (string, []byte, error) {
	if len(data) < 8 {
		return "", nil, fmt.Errorf("store: %w", xerrors.ErrIndexCorrupt)
	}
	n := order.Uint64(data[:8])
	data = data[8:]
	if uint64(len(data)) < n {
		return "", nil, fmt.Errorf("store: %w", xerrors.ErrIndexCorrupt)
	}
	return string(data[:n]), data[n:], nil
}

const noValue = int64(-1)

func appendOptionalInt(buf []byte, v *int) []byte {
	var b [8]byte
	n := noValue
	if v != nil {
		n = int64(*v)
	}
	order.PutUint64(b[:], uint64(n))
	return append(buf, b[:]...)
}

func takeOptionalInt(data []byte) (*int, []byte, error) {
	if len(data) < 8 {
		return nil, nil, fmt.Errorf("store: %w", xerrors.ErrIndexCorrupt)
	}
	n := int64(order.Uint64(data[:8]))
	data = data[8:]
	if n == noValue {
		return nil, data, nil
	}
	v := int(n)
	return &v, data, nil
}
