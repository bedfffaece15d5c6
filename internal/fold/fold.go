// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fold wraps the ViennaRNA RNAfold binary as an optional
// accessibility predictor, for callers that want a real minimum-free-
// energy structure prediction in place of the composition-based proxy in
// internal/context. It satisfies the same context.AccessibilityFunc
// signature so it can be substituted in without the caller knowing the
// difference.
package fold

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/biogo/external"

	"github.com/sirnaoff/offtarget/internal/codec"
)

// Predictor invokes RNAfold to obtain a minimum-free-energy secondary
// structure for a window and derives an accessibility score from the
// fraction of unpaired bases in that structure.
type Predictor struct {
	// Usage: RNAfold --noPS
	//
	// For details relating to options, see the ViennaRNA manual.
	Cmd  string `buildarg:"{{if .}}{{.}}{{else}}RNAfold{{end}}"` // RNAfold
	NoPS bool   `buildarg:"{{if .}}--noPS{{end}}"`               // --noPS

	Temperature float64 `buildarg:"{{if .}}--temp{{split}}{{.}}{{end}}"` // --temp <f>
}

// BuildCommand constructs the exec.Cmd for a single invocation.
func (p Predictor) BuildCommand() (*exec.Cmd, error) {
	cl := external.Must(external.Build(p))
	return exec.Command(cl[0], cl[1:]...), nil
}

// Accessibility runs RNAfold on window and returns the fraction of bases
// left unpaired in the predicted minimum-free-energy structure, in [0,1].
// It has the signature of context.AccessibilityFunc.
func (p Predictor) Accessibility(window codec.RNA) (float64, error) {
	cmd, err := p.BuildCommand()
	if err != nil {
		return 0, fmt.Errorf("fold: %w", err)
	}
	cmd.Stdin = strings.NewReader(string(window) + "\n")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("fold: RNAfold: %w: %s", err, stderr.String())
	}

	structure, _, err := parseOutput(stdout.Bytes())
	if err != nil {
		return 0, err
	}
	if len(structure) == 0 {
		return 0, fmt.Errorf("fold: empty structure in RNAfold output")
	}
	var unpaired int
	for _, c := range structure {
		if c == '.' {
			unpaired++
		}
	}
	return float64(unpaired) / float64(len(structure)), nil
}

// parseOutput parses RNAfold's two-line stdout: the input sequence on one
// line, then the dot-bracket structure followed by the minimum free energy
// in parentheses, e.g. "..((...)).. (-3.40)". The structure is always
// taken from the second non-empty line.
func parseOutput(out []byte) (structure string, mfe float64, err error) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	var lines []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return "", 0, fmt.Errorf("fold: reading RNAfold output: %w", err)
	}
	if len(lines) < 2 {
		return "", 0, fmt.Errorf("fold: unexpected RNAfold output: %q", out)
	}

	second := lines[1]
	sep := strings.LastIndexByte(second, ' ')
	if sep < 0 {
		return "", 0, fmt.Errorf("fold: unparseable structure line: %q", second)
	}
	structure = second[:sep]
	energyField := strings.Trim(second[sep+1:], "()")
	mfe, err = strconv.ParseFloat(energyField, 64)
	if err != nil {
		return "", 0, fmt.Errorf("fold: unparseable energy %q: %w", energyField, err)
	}
	return structure, mfe, nil
}
