// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fold

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutputExtractsStructureAndEnergy(t *testing.T) {
	out := []byte("ACGUACGUACGU\n..((....)).. (-3.40)\n")
	structure, mfe, err := parseOutput(out)
	require.NoError(t, err)
	assert.Equal(t, "..((....))..", structure)
	assert.InDelta(t, -3.40, mfe, 1e-9)
}

func TestParseOutputRejectsTooFewLines(t *testing.T) {
	_, _, err := parseOutput([]byte("ACGUACGUACGU\n"))
	assert.Error(t, err)
}

func TestParseOutputRejectsUnparseableEnergy(t *testing.T) {
	_, _, err := parseOutput([]byte("ACGU\n.... (notanumber)\n"))
	assert.Error(t, err)
}

func TestBuildCommandDefaultsToRNAfoldBinary(t *testing.T) {
	p := Predictor{}
	cmd, err := p.BuildCommand()
	require.NoError(t, err)
	assert.Equal(t, "RNAfold", cmd.Args[0])
}

func TestBuildCommandIncludesNoPSFlag(t *testing.T) {
	p := Predictor{NoPS: true}
	cmd, err := p.BuildCommand()
	require.NoError(t, err)
	assert.Contains(t, cmd.Args, "--noPS")
}
