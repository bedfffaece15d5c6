// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buildstatus

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirnaoff/offtarget/internal/xerrors"
)

func TestReadMissingIsEmptyNotError(t *testing.T) {
	st, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, StateEmpty, st.State)
	assert.False(t, st.Ready())
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build_status.json")
	want := Status{Generation: 3, State: StateReady, TranscriptCount: 10, SeedCount: 1000}
	require.NoError(t, Write(path, want))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, got.Ready())
}

func TestRequireReadyFailsBeforeCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build_status.json")
	require.NoError(t, Write(path, Status{Generation: 1, State: StateBuilding}))

	_, err := RequireReady(path)
	assert.ErrorIs(t, err, xerrors.ErrIndexNotReady)

	require.NoError(t, Write(path, Status{Generation: 1, State: StateReady}))
	st, err := RequireReady(path)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Generation)
}

func TestNextGenerationIncrements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build_status.json")
	g, err := NextGeneration(path)
	require.NoError(t, err)
	assert.Equal(t, 1, g)

	require.NoError(t, Write(path, Status{Generation: 1, State: StateReady}))
	g, err = NextGeneration(path)
	require.NoError(t, err)
	assert.Equal(t, 2, g)
}
