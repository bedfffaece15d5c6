// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirnaoff/offtarget/internal/codec"
)

func writeFasta(t *testing.T, id, seq string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcripts.fa")
	require.NoError(t, os.WriteFile(path, []byte(">"+id+"\n"+seq+"\n"), 0o644))
	return path
}

func TestAttachFASTAServesWindowFromDisk(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Put(Transcript{ID: "T1", Sequence: codec.RNA("AAAAAGCUACGUAAAAAA")}))

	fastaPath := writeFasta(t, "T1", "AAAAAGCUACGUAAAAAA")
	require.NoError(t, s.AttachFASTA(fastaPath))

	w, start, end, err := s.Window("T1", 9, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, start)
	assert.Equal(t, 13, end)
	assert.Equal(t, codec.RNA("CUACGUA"), w)

	got, err := s.Slice("T1", 6, 13)
	require.NoError(t, err)
	assert.Equal(t, codec.RNA("CUACGUA"), got)
}

func TestAttachFASTAClampsToTranscriptBounds(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Put(Transcript{ID: "T1", Sequence: codec.RNA("AAAAAGCUACGUAAAAAA")}))

	fastaPath := writeFasta(t, "T1", "AAAAAGCUACGUAAAAAA")
	require.NoError(t, s.AttachFASTA(fastaPath))

	w, start, end, err := s.Window("T1", 0, 30)
	require.NoError(t, err)
	assert.Equal(t, 0, start)
	assert.Equal(t, 18, end)
	assert.Equal(t, codec.RNA("AAAAAGCUACGUAAAAAA"), w)

	got, err := s.Slice("T1", -5, 1000)
	require.NoError(t, err)
	assert.Equal(t, codec.RNA("AAAAAGCUACGUAAAAAA"), got)
}

func TestAttachFASTARejectsMissingFile(t *testing.T) {
	s := openTemp(t)
	err := s.AttachFASTA(filepath.Join(t.TempDir(), "nope.fa"))
	assert.Error(t, err)
}
